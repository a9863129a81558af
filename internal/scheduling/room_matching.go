package scheduling

import (
	"errors"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"

	"github.com/noah-isme/academic-scheduler/internal/models"
)

// ErrNoRoomMatching is returned when no group can be given a room.
var ErrNoRoomMatching = errors.New("no group can be matched to a free room")

// RoomAssignment pairs a group with the room it was matched to.
type RoomAssignment struct {
	GroupID string      `json:"group_id"`
	Room    models.Room `json:"room"`
}

// MatchRooms gives each group its own free room for the same interval,
// e.g. for parallel exams. It computes a maximum bipartite matching between
// groups and the free rooms large enough for them, so a greedy choice never
// starves a larger group. Groups that are busy themselves, and groups left
// without a room, are returned as unmatched ids.
func MatchRooms(detector *ConflictDetector, requested []models.Group, rooms []models.Room, q RoomQuery) ([]RoomAssignment, []string, error) {
	groups, busy := lo.FilterReject(requested, func(group models.Group, _ int) bool {
		return detector.IsFree(Candidate{Date: q.Date, Start: q.Start, End: q.End, GroupID: group.ID})
	})
	unmatched := lo.Map(busy, func(group models.Group, _ int) string { return group.ID })
	if len(groups) == 0 {
		return []RoomAssignment{}, unmatched, nil
	}
	free := SmallestFirst(FindFree(detector, rooms, RoomQuery{
		Date:  q.Date,
		Start: q.Start,
		End:   q.End,
		Kind:  q.Kind,
	}), 0)
	if len(free) == 0 {
		return nil, nil, ErrNoRoomMatching
	}

	neighbours := func(groupAny, roomAny any) (bool, error) {
		return roomAny.(models.Room).Capacity >= groupAny.(models.Group).Size, nil
	}
	groupNodes := lo.Map(groups, func(group models.Group, _ int) any { return group })
	roomNodes := lo.Map(free, func(room models.Room, _ int) any { return room })

	graph, err := bipartitegraph.NewBipartiteGraph(groupNodes, roomNodes, neighbours)
	if err != nil {
		return nil, nil, err
	}
	matching := graph.LargestMatching()
	if len(matching) == 0 {
		return nil, nil, ErrNoRoomMatching
	}

	matched := make(map[int]models.Room, len(matching))
	for _, edge := range matching {
		matched[edge.Node1] = free[edge.Node2-len(groups)]
	}

	assignments := make([]RoomAssignment, 0, len(matched))
	for i, group := range groups {
		room, ok := matched[i]
		if !ok {
			unmatched = append(unmatched, group.ID)
			continue
		}
		assignments = append(assignments, RoomAssignment{GroupID: group.ID, Room: room})
	}
	return assignments, unmatched, nil
}
