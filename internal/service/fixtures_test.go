package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-scheduler/internal/models"
	"github.com/noah-isme/academic-scheduler/internal/repository"
	"github.com/noah-isme/academic-scheduler/internal/scheduling"
	"github.com/noah-isme/academic-scheduler/pkg/lock"
)

var monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func strPtr(v string) *string { return &v }

// memoryStore backs every stub repository so writes made by one workflow
// are visible to the occupation query of the next.
type memoryStore struct {
	mu           sync.Mutex
	sessions     []models.Session
	makeups      []models.MakeupSession
	reservations []models.Reservation
	blocks       []models.AvailabilityBlock
}

func inRange(date, from, to time.Time) bool {
	day := models.DateKey(date)
	return day >= models.DateKey(from) && day <= models.DateKey(to)
}

type occupationStub struct{ store *memoryStore }

func (o occupationStub) List(ctx context.Context, exec sqlx.ExtContext, filter models.OccupationFilter) ([]models.Occupation, error) {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	var out []models.Occupation
	add := func(occ models.Occupation) {
		if !inRange(occ.Date, filter.From, filter.To) {
			return
		}
		if len(filter.GroupIDs) > 0 && (occ.GroupID == nil || *occ.GroupID != filter.GroupIDs[0]) {
			return
		}
		if len(filter.TeacherIDs) > 0 && occ.TeacherID != filter.TeacherIDs[0] {
			return
		}
		out = append(out, occ)
	}
	for _, s := range o.store.sessions {
		add(s.Occupation())
	}
	for _, m := range o.store.makeups {
		if m.Status == models.MakeupConfirmed {
			add(m.Occupation())
		}
	}
	for _, r := range o.store.reservations {
		if r.Status == models.ReservationApproved {
			add(r.Occupation())
		}
	}
	return out, nil
}

type blockStub struct{ store *memoryStore }

func (b blockStub) ListOverlapping(ctx context.Context, from, to time.Time) ([]models.AvailabilityBlock, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	var out []models.AvailabilityBlock
	for _, block := range b.store.blocks {
		if models.DateKey(block.StartDate) <= models.DateKey(to) && models.DateKey(block.EndDate) >= models.DateKey(from) {
			out = append(out, block)
		}
	}
	return out, nil
}

func (b blockStub) Create(ctx context.Context, exec sqlx.ExtContext, block *models.AvailabilityBlock) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	b.store.blocks = append(b.store.blocks, *block)
	return nil
}

func (b blockStub) FindByID(ctx context.Context, id string) (*models.AvailabilityBlock, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, block := range b.store.blocks {
		if block.ID == id {
			found := block
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (b blockStub) ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityBlock, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	var out []models.AvailabilityBlock
	for _, block := range b.store.blocks {
		if teacherID == "" || block.TeacherID == teacherID {
			out = append(out, block)
		}
	}
	return out, nil
}

func (b blockStub) Delete(ctx context.Context, id string) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for i, block := range b.store.blocks {
		if block.ID == id {
			b.store.blocks = append(b.store.blocks[:i], b.store.blocks[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type sessionStub struct {
	store     *memoryStore
	createErr error
}

func (s sessionStub) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var out []models.Session
	for _, session := range s.store.sessions {
		if filter.TeacherID != "" && session.TeacherID != filter.TeacherID {
			continue
		}
		if filter.GroupID != "" && session.GroupID != filter.GroupID {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

func (s sessionStub) FindByID(ctx context.Context, id string) (*models.Session, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	for _, session := range s.store.sessions {
		if session.ID == id {
			found := session
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s sessionStub) Create(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	s.store.sessions = append(s.store.sessions, *session)
	return nil
}

func (s sessionStub) CreateBatch(ctx context.Context, exec sqlx.ExtContext, sessions []models.Session) error {
	for i := range sessions {
		if err := s.Create(ctx, exec, &sessions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s sessionStub) ListByTeacherInRange(ctx context.Context, exec sqlx.ExtContext, teacherID string, from, to time.Time) ([]models.Session, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var out []models.Session
	for _, session := range s.store.sessions {
		if session.TeacherID == teacherID && inRange(session.Date, from, to) {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s sessionStub) DeleteByIDs(ctx context.Context, exec sqlx.ExtContext, ids []string) (int64, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.store.sessions[:0]
	var deleted int64
	for _, session := range s.store.sessions {
		if drop[session.ID] {
			deleted++
			continue
		}
		kept = append(kept, session)
	}
	s.store.sessions = kept
	return deleted, nil
}

func (s sessionStub) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	n, err := s.DeleteByIDs(ctx, exec, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// makeupStub enforces the confirmed-slot unique index like the database.
type makeupStub struct{ store *memoryStore }

func (m makeupStub) Create(ctx context.Context, exec sqlx.ExtContext, makeup *models.MakeupSession) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, existing := range m.store.makeups {
		if existing.Status == models.MakeupConfirmed && makeup.Status == models.MakeupConfirmed &&
			existing.RoomID == makeup.RoomID && existing.StartTime == makeup.StartTime &&
			models.DateKey(existing.Date) == models.DateKey(makeup.Date) {
			return fmt.Errorf("create makeup session: %w", repository.ErrUniqueViolation)
		}
	}
	if makeup.ID == "" {
		makeup.ID = uuid.NewString()
	}
	m.store.makeups = append(m.store.makeups, *makeup)
	return nil
}

func (m makeupStub) FindByID(ctx context.Context, id string) (*models.MakeupSession, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, makeup := range m.store.makeups {
		if makeup.ID == id {
			found := makeup
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m makeupStub) List(ctx context.Context, filter models.MakeupFilter) ([]models.MakeupSession, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []models.MakeupSession
	for _, makeup := range m.store.makeups {
		if (filter.TeacherID == "" || makeup.TeacherID == filter.TeacherID) && (filter.Status == "" || makeup.Status == filter.Status) {
			out = append(out, makeup)
		}
	}
	return out, nil
}

func (m makeupStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to models.MakeupStatus) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for i := range m.store.makeups {
		if m.store.makeups[i].ID == id && m.store.makeups[i].Status == from {
			m.store.makeups[i].Status = to
			return nil
		}
	}
	return repository.ErrStaleStatus
}

type reservationStub struct{ store *memoryStore }

func (r reservationStub) Create(ctx context.Context, exec sqlx.ExtContext, reservation *models.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	r.store.reservations = append(r.store.reservations, *reservation)
	return nil
}

func (r reservationStub) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, reservation := range r.store.reservations {
		if reservation.ID == id {
			found := reservation
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r reservationStub) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Reservation
	for _, reservation := range r.store.reservations {
		if (filter.TeacherID == "" || reservation.TeacherID == filter.TeacherID) && (filter.Status == "" || reservation.Status == filter.Status) {
			out = append(out, reservation)
		}
	}
	return out, nil
}

func (r reservationStub) Review(ctx context.Context, exec sqlx.ExtContext, reservation *models.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.reservations {
		if r.store.reservations[i].ID == reservation.ID {
			if r.store.reservations[i].Status != models.ReservationPending {
				return repository.ErrStaleStatus
			}
			r.store.reservations[i] = *reservation
			return nil
		}
	}
	return repository.ErrStaleStatus
}

type teacherStub []models.Teacher

func (t teacherStub) List(ctx context.Context) ([]models.Teacher, error) { return t, nil }

func (t teacherStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	for _, teacher := range t {
		if teacher.ID == id {
			found := teacher
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type groupStub []models.Group

func (g groupStub) List(ctx context.Context) ([]models.Group, error) { return g, nil }

func (g groupStub) FindByID(ctx context.Context, id string) (*models.Group, error) {
	for _, group := range g {
		if group.ID == id {
			found := group
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type roomStub struct {
	rooms []models.Room
	calls int
}

func (r *roomStub) List(ctx context.Context) ([]models.Room, error) {
	r.calls++
	return r.rooms, nil
}

type dispatchStub struct {
	mu     sync.Mutex
	events []models.NotificationEvent
	fail   map[string]bool
}

func (d *dispatchStub) Dispatch(ctx context.Context, events []models.NotificationEvent) models.DispatchReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	var report models.DispatchReport
	for _, event := range events {
		d.events = append(d.events, event)
		if d.fail[event.TargetID] {
			report.Failed++
		} else {
			report.Sent++
		}
	}
	return report
}

func (d *dispatchStub) byCategory(category models.NotificationCategory) []models.NotificationEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.NotificationEvent
	for _, event := range d.events {
		if event.Category == category {
			out = append(out, event)
		}
	}
	return out
}

func sampleRooms() []models.Room {
	return []models.Room{
		{ID: "B01", Name: "B01", Capacity: 40, Kind: models.RoomKindClassroom, Equipment: "projector"},
		{ID: "B02", Name: "B02", Capacity: 35, Kind: models.RoomKindClassroom},
		{ID: "A1", Name: "Amphi A", Capacity: 120, Kind: models.RoomKindAmphitheater, Equipment: "projector, sound system"},
		{ID: "L1", Name: "Lab 1", Capacity: 30, Kind: models.RoomKindLaboratory, Equipment: "computers, projector"},
	}
}

func sampleGroups() []models.Group {
	return []models.Group{
		{ID: "G1", Name: "CS1-A", Size: 30},
		{ID: "G2", Name: "CS1-B", Size: 28},
		{ID: "G3", Name: "CS2", Size: 40},
		{ID: "G4", Name: "Freshmen", Size: 110},
	}
}

func sampleTeachers() []models.Teacher {
	return []models.Teacher{
		{ID: "T1", Name: "Ada Lovelace", DailyCapMinutes: 480},
		{ID: "T2", Name: "Alan Turing", DailyCapMinutes: 480},
		{ID: "T3", Name: "Grace Hopper", DailyCapMinutes: 120},
	}
}

// fixture wires the services over the in-memory store and a sqlmock
// transaction provider.
type fixture struct {
	store    *memoryStore
	roomRepo *roomStub
	planner  *Planner
	rooms    *RoomService
	notifier *dispatchStub
	db       *sqlx.DB
	mock     sqlmock.Sqlmock
	locker   lock.Locker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := &memoryStore{}
	planner := NewPlanner(occupationStub{store}, blockStub{store}, teacherStub(sampleTeachers()), groupStub(sampleGroups()), SchedulingOptions{
		PauseMinutes: scheduling.DefaultPauseMinutes,
		Template:     scheduling.NewSlotTemplate(nil),
		Limits:       scheduling.DefaultLimits(),
		WeeklyCap:    scheduling.DefaultWeeklyCapMinutes,
		Algorithm:    AlgorithmGreedy,
	})
	planner.now = func() time.Time { return monday.AddDate(0, 0, -7) }
	roomRepo := &roomStub{rooms: sampleRooms()}

	return &fixture{
		store:    store,
		roomRepo: roomRepo,
		planner:  planner,
		rooms:    NewRoomService(roomRepo, planner, nil, nil, nil, time.Minute),
		notifier: &dispatchStub{},
		db:       sqlx.NewDb(db, "sqlmock"),
		mock:     mock,
		locker:   lock.NewLocalLocker(time.Second),
	}
}

func (f *fixture) addSession(id, date, start, end, room, teacher, group string) models.Session {
	day, _ := models.ParseDate(date)
	session := models.Session{ID: id, Title: "Course " + id, Kind: models.SessionKindLecture, Date: day, StartTime: start, EndTime: end, RoomID: room, TeacherID: teacher, GroupID: group, Origin: models.SessionOriginManual}
	f.store.mu.Lock()
	f.store.sessions = append(f.store.sessions, session)
	f.store.mu.Unlock()
	return session
}
