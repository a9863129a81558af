package scheduling

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

const (
	capacityWeight  = 40.0
	kindWeight      = 30.0
	equipmentWeight = 30.0
)

// ScoreRequest describes what the caller wants from a room.
type ScoreRequest struct {
	GroupSize int
	Kind      models.RoomKind
	Equipment []string
}

// ScoredRoom pairs a room with its score breakdown.
type ScoredRoom struct {
	Room      models.Room `json:"room"`
	Score     float64     `json:"score"`
	Capacity  float64     `json:"capacity_points"`
	KindMatch float64     `json:"kind_points"`
	Equipment float64     `json:"equipment_points"`
}

// ScoreRoom computes the 0..100 suitability of a room.
//
// Capacity earns 40 x groupSize/capacity when the group fits, 0 otherwise.
// Kind earns 30 on an exact match and 15 when no kind was requested.
// Equipment earns 30 x the fraction of requested items present; with no
// request it earns 3 points per item, capped at 15.
func ScoreRoom(room models.Room, req ScoreRequest) ScoredRoom {
	scored := ScoredRoom{Room: room}

	if room.Capacity > 0 && req.GroupSize <= room.Capacity {
		scored.Capacity = capacityWeight * float64(req.GroupSize) / float64(room.Capacity)
	}

	switch {
	case req.Kind == "":
		scored.KindMatch = kindWeight / 2
	case room.Kind == req.Kind:
		scored.KindMatch = kindWeight
	}

	available := lo.Map(room.EquipmentList(), func(item string, _ int) string {
		return strings.ToLower(item)
	})
	requested := lo.Uniq(lo.FilterMap(req.Equipment, func(item string, _ int) (string, bool) {
		item = strings.ToLower(strings.TrimSpace(item))
		return item, item != ""
	}))
	if len(requested) > 0 {
		present := lo.CountBy(requested, func(item string) bool {
			return lo.Contains(available, item)
		})
		scored.Equipment = equipmentWeight * float64(present) / float64(len(requested))
	} else {
		scored.Equipment = float64(min(15, 3*len(available)))
	}

	scored.Score = scored.Capacity + scored.KindMatch + scored.Equipment
	return scored
}

// BestRoom scores every room and returns the highest. Ties keep the first
// room encountered. ok is false for an empty list.
func BestRoom(rooms []models.Room, req ScoreRequest) (ScoredRoom, bool) {
	if len(rooms) == 0 {
		return ScoredRoom{}, false
	}
	best := ScoreRoom(rooms[0], req)
	for _, room := range rooms[1:] {
		if scored := ScoreRoom(room, req); scored.Score > best.Score {
			best = scored
		}
	}
	return best, true
}

// RankRooms scores rooms, best first, stable on ties.
func RankRooms(rooms []models.Room, req ScoreRequest) []ScoredRoom {
	scored := lo.Map(rooms, func(room models.Room, _ int) ScoredRoom {
		return ScoreRoom(room, req)
	})
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
