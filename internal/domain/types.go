package domain

import (
	"fmt"
	"strings"
	"time"
)

// UserID is the chat platform's stable identifier for a user. For Telegram
// it is the private chat id rendered as a decimal string.
type UserID string

type UnitSystem string

const (
	UnitMetric   UnitSystem = "metric"   // ml / g
	UnitImperial UnitSystem = "imperial" // fluid oz / oz, converted on commit
)

// ParseUnitSystem normalizes a free-text unit preference reply.
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch UnitSystem(strings.ToLower(strings.TrimSpace(s))) {
	case UnitMetric:
		return UnitMetric, nil
	case UnitImperial:
		return UnitImperial, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
}

// Location is the time zone for every scheduling and calendar-day decision
// in the system. Check-in times, once-per-day guards and report windows are
// evaluated in UTC regardless of where users live.
var Location = time.UTC

// SameDay reports whether two instants fall on the same UTC calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(Location).Date()
	by, bm, bd := b.In(Location).Date()
	return ay == by && am == bm && ad == bd
}
