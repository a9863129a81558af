package models

import (
	"strings"
	"time"
)

// RoomKind classifies rooms for kind-filtered searches and scoring.
type RoomKind string

const (
	RoomKindClassroom    RoomKind = "classroom"
	RoomKindAmphitheater RoomKind = "amphitheater"
	RoomKindLaboratory   RoomKind = "laboratory"
)

// Room is a bookable teaching space.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Kind      RoomKind  `db:"kind" json:"kind"`
	Equipment string    `db:"equipment" json:"equipment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EquipmentList splits the free-text equipment column into trimmed items.
func (r Room) EquipmentList() []string {
	if strings.TrimSpace(r.Equipment) == "" {
		return nil
	}
	parts := strings.Split(r.Equipment, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// RoomFilter narrows free-room searches.
type RoomFilter struct {
	Date        time.Time
	Start       string
	End         string
	MinCapacity int
	Kind        RoomKind
	Equipment   []string
}
