package scheduling

import (
	"sort"

	"github.com/samber/lo"
)

// DefaultSlots is the institution's standard teaching day.
var DefaultSlots = []Interval{
	{Start: "08:00", End: "09:30"},
	{Start: "09:40", End: "11:10"},
	{Start: "11:20", End: "12:50"},
	{Start: "14:00", End: "15:30"},
	{Start: "15:40", End: "17:10"},
	{Start: "17:20", End: "18:50"},
}

// SlotTemplate is the ordered list of fixed teaching slots. It also defines
// the opening hours.
type SlotTemplate struct {
	slots []Interval
}

// NewSlotTemplate keeps valid slots sorted by start. An empty result falls
// back to DefaultSlots.
func NewSlotTemplate(slots []Interval) SlotTemplate {
	valid := lo.Filter(slots, func(slot Interval, _ int) bool {
		return IsValidRange(slot.Start, slot.End)
	})
	if len(valid) == 0 {
		valid = append([]Interval(nil), DefaultSlots...)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		a, _ := ToMinutes(valid[i].Start)
		b, _ := ToMinutes(valid[j].Start)
		return a < b
	})
	return SlotTemplate{slots: valid}
}

// Slots returns a copy of the template slots.
func (t SlotTemplate) Slots() []Interval {
	return append([]Interval(nil), t.slots...)
}

// OpeningHours spans the first slot start to the latest slot end.
func (t SlotTemplate) OpeningHours() Interval {
	if len(t.slots) == 0 {
		return NewSlotTemplate(nil).OpeningHours()
	}
	latest := lo.MaxBy(t.slots, func(a, b Interval) bool {
		x, _ := ToMinutes(a.End)
		y, _ := ToMinutes(b.End)
		return x > y
	})
	return Interval{Start: t.slots[0].Start, End: latest.End}
}

// Starts returns the slot start times in order.
func (t SlotTemplate) Starts() []string {
	return lo.Map(t.slots, func(slot Interval, _ int) string { return slot.Start })
}
