package scheduling

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

// RoomQuery describes a free-room search.
type RoomQuery struct {
	Date        time.Time
	Start       string
	End         string
	MinCapacity int
	Kind        models.RoomKind
}

// MatchesFilter applies the capacity and kind filter without touching the
// occupation set.
func (q RoomQuery) MatchesFilter(room models.Room) bool {
	if room.Capacity < q.MinCapacity {
		return false
	}
	return q.Kind == "" || room.Kind == q.Kind
}

// FindFree filters rooms by capacity and kind first, then keeps those the
// detector reports free for the interval. Input order is preserved.
func FindFree(detector *ConflictDetector, rooms []models.Room, q RoomQuery) []models.Room {
	if !IsValidRange(q.Start, q.End) {
		return []models.Room{}
	}
	candidates := lo.Filter(rooms, func(room models.Room, _ int) bool {
		return q.MatchesFilter(room)
	})
	return lo.Filter(candidates, func(room models.Room, _ int) bool {
		return detector.IsFree(Candidate{Date: q.Date, Start: q.Start, End: q.End, RoomID: room.ID})
	})
}

// SmallestFirst returns rooms with capacity >= size sorted by ascending
// capacity, keeping input order among equal capacities.
func SmallestFirst(rooms []models.Room, size int) []models.Room {
	fitting := lo.Filter(rooms, func(room models.Room, _ int) bool {
		return room.Capacity >= size
	})
	sort.SliceStable(fitting, func(i, j int) bool {
		return fitting[i].Capacity < fitting[j].Capacity
	})
	return fitting
}
