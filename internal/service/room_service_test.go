package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-scheduler/internal/models"
	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
)

type memoryCache struct {
	items map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func TestRoomServiceCachesRoomList(t *testing.T) {
	f := newFixture(t)
	cache := NewCacheService(&memoryCache{items: map[string][]byte{}}, nil, time.Minute, nil, true)
	svc := NewRoomService(f.roomRepo, f.planner, cache, nil, nil, time.Minute)

	first, err := svc.Rooms(context.Background())
	require.NoError(t, err)
	second, err := svc.Rooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.roomRepo.calls)
	assert.Equal(t, first[2].EquipmentList(), second[2].EquipmentList())
	assert.Contains(t, cache.repo.(*memoryCache).items, "scheduler:"+roomsCacheKey)

	require.NoError(t, svc.InvalidateRooms(context.Background()))
	_, err = svc.Rooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.roomRepo.calls)
}

func TestRoomServiceFindAvailable(t *testing.T) {
	f := newFixture(t)
	f.addSession("S1", "2025-01-06", "08:00", "09:30", "B01", "T1", "G1")

	rooms, err := f.rooms.FindAvailable(context.Background(), FindRoomsRequest{
		Date: "2025-01-06", StartTime: "09:35", EndTime: "10:30", MinCapacity: 35, Kind: models.RoomKindClassroom,
	})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "B02", rooms[0].ID)

	_, err = f.rooms.FindAvailable(context.Background(), FindRoomsRequest{Date: "2025-01-06", StartTime: "10:00", EndTime: "09:00"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRoomServiceFindBestRoom(t *testing.T) {
	f := newFixture(t)

	ranked, err := f.rooms.FindBestRoom(context.Background(), BestRoomRequest{
		FindRoomsRequest: FindRoomsRequest{Date: "2025-01-06", StartTime: "10:00", EndTime: "12:00"},
		GroupSize:        32,
		Equipment:        []string{"projector"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, ranked)
	assert.Equal(t, "B01", ranked[0].Room.ID)
	for _, scored := range ranked {
		assert.GreaterOrEqual(t, scored.Room.Capacity, 32)
	}

	_, err = f.rooms.FindBestRoom(context.Background(), BestRoomRequest{
		FindRoomsRequest: FindRoomsRequest{Date: "2025-01-06", StartTime: "10:00", EndTime: "12:00"},
		GroupSize:        500,
	})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRoomServiceAssignRooms(t *testing.T) {
	f := newFixture(t)
	f.addSession("S1", "2025-01-06", "10:00", "11:00", "A1", "T1", "G4")

	result, err := f.rooms.AssignRooms(context.Background(), AssignRoomsRequest{
		Date: "2025-01-06", StartTime: "10:00", EndTime: "11:00", GroupIDs: []string{"G1", "G3", "G4"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"G4"}, result.Unmatched)
	require.Len(t, result.Assignments, 2)

	used := map[string]string{}
	for _, assignment := range result.Assignments {
		used[assignment.GroupID] = assignment.Room.ID
	}
	assert.Len(t, used, 2)
	assert.NotEqual(t, used["G1"], used["G3"])
	assert.NotEqual(t, "A1", used["G1"])

	_, err = f.rooms.AssignRooms(context.Background(), AssignRoomsRequest{
		Date: "2025-01-06", StartTime: "10:00", EndTime: "11:00", GroupIDs: []string{"G9"},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
