// Package lock serialises check-then-commit sequences on scheduling
// resources (rooms, teachers, groups).
package lock

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ErrTimeout is returned when the locks could not be acquired in time.
var ErrTimeout = errors.New("lock: wait timeout")

// Release frees every lock taken by one Acquire call. It is safe to call
// more than once.
type Release func()

// Locker acquires a set of named locks atomically with respect to other
// Acquire calls on the same keys.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

// Room, Teacher and Group build lock keys for scheduling resources.
func Room(id string) string    { return "room:" + id }
func Teacher(id string) string { return "teacher:" + id }
func Group(id string) string   { return "group:" + id }

// Normalize drops blanks and duplicates and sorts keys so that every caller
// acquires them in the same order.
func Normalize(keys []string) []string {
	cleaned := lo.Uniq(lo.Filter(keys, func(key string, _ int) bool {
		return strings.TrimSpace(key) != "" && !strings.HasSuffix(key, ":")
	}))
	sort.Strings(cleaned)
	return cleaned
}

func once(fn func()) Release {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		fn()
	}
}
