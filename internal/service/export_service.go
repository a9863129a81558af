package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-scheduler/internal/models"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
	"github.com/noah-isme/academic-scheduler/pkg/export"
)

const maxExportDays = 62

// TimetableExportRequest selects whose timetable to render.
type TimetableExportRequest struct {
	Format    export.Format `form:"format" validate:"omitempty,oneof=csv pdf"`
	GroupID   string        `form:"group_id"`
	TeacherID string        `form:"teacher_id"`
	From      string        `form:"from" validate:"required,datetime=2006-01-02"`
	To        string        `form:"to" validate:"required,datetime=2006-01-02"`
}

// ExportFile is a rendered timetable.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders group and teacher timetables.
type ExportService struct {
	occupations occupationReader
	rooms       roomLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(occupations occupationReader, rooms roomLookup, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	return &ExportService{occupations: occupations, rooms: rooms, validator: validate, logger: nilLogger(logger)}
}

// Timetable renders every occupation of a group or teacher between two
// dates, sessions, approved reservations and confirmed make-ups alike.
func (s *ExportService) Timetable(ctx context.Context, req TimetableExportRequest) (*ExportFile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid export request")
	}
	if (req.GroupID == "") == (req.TeacherID == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of group_id or teacher_id is required")
	}
	if req.Format == "" {
		req.Format = export.FormatCSV
	}
	from, err := parseDay(req.From, "from")
	if err != nil {
		return nil, err
	}
	to, err := parseDay(req.To, "to")
	if err != nil {
		return nil, err
	}
	if to.Before(from) || to.Sub(from) > maxExportDays*24*time.Hour {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range must be ordered and span at most %d days", maxExportDays))
	}

	filter := models.OccupationFilter{From: from, To: to}
	owner := "group " + req.GroupID
	if req.GroupID != "" {
		filter.GroupIDs = []string{req.GroupID}
	} else {
		filter.TeacherIDs = []string{req.TeacherID}
		owner = "teacher " + req.TeacherID
	}
	occupations, err := s.occupations.List(ctx, nil, filter)
	if err != nil {
		return nil, internal(err, "failed to load timetable")
	}
	rooms, err := s.rooms.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	names := lo.SliceToMap(rooms, func(room models.Room) (string, string) { return room.ID, room.Name })

	data := export.Dataset{
		Title:   fmt.Sprintf("Timetable for %s, %s to %s", owner, req.From, req.To),
		Headers: []string{"Date", "Start", "End", "Kind", "Title", "Room", "Teacher", "Group"},
		Rows: lo.Map(occupations, func(occ models.Occupation, _ int) []string {
			room := names[occ.RoomID]
			if room == "" {
				room = occ.RoomID
			}
			return []string{models.DateKey(occ.Date), occ.Start, occ.End, string(occ.Kind), occ.Label, room, occ.TeacherID, deref(occ.GroupID)}
		}),
	}
	content, err := export.Render(req.Format, data)
	if err != nil {
		return nil, internal(err, "failed to render timetable")
	}
	s.logger.Info("timetable exported", zap.String("owner", owner), zap.String("format", string(req.Format)), zap.Int("rows", len(data.Rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("timetable-%s-%s.%s", req.From, req.To, req.Format),
		ContentType: req.Format.ContentType(),
		Content:     content,
	}, nil
}
