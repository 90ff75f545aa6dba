package domain

import (
	"crypto/rand"
	"fmt"
	"time"
)

const (
	DefaultCheckinHour   = 20
	DefaultCheckinMinute = 0
	DefaultGoalLiters    = 2.5
)

// UserConfig is the per-user registration record. Created once by setup,
// mutated only when a check-in session completes (LastCheckin); never
// deleted.
type UserConfig struct {
	UserID       UserID
	Username     string
	AccountToken string
	// Local time of day the daily check-in fires, in the system time zone.
	CheckinHour   int
	CheckinMinute int
	Unit          UnitSystem
	GoalLiters    float64
	// LastCheckin is the instant of the last successfully completed session,
	// nil until the first one. It is the once-per-day idempotency marker:
	// it is set on completion, never on session start.
	LastCheckin *time.Time
	CreatedAt   time.Time
}

// NewUserConfig builds a registration record with a fresh account token and
// the default schedule and goal.
func NewUserConfig(id UserID, username string, unit UnitSystem) (*UserConfig, error) {
	token, err := NewAccountToken()
	if err != nil {
		return nil, fmt.Errorf("generating account token: %w", err)
	}
	return &UserConfig{
		UserID:        id,
		Username:      username,
		AccountToken:  token,
		CheckinHour:   DefaultCheckinHour,
		CheckinMinute: DefaultCheckinMinute,
		Unit:          unit,
		GoalLiters:    DefaultGoalLiters,
		CreatedAt:     time.Now().In(Location),
	}, nil
}

// CheckedInOn reports whether the user already completed a check-in on the
// UTC calendar date of day.
func (c *UserConfig) CheckedInOn(day time.Time) bool {
	return c.LastCheckin != nil && SameDay(*c.LastCheckin, day)
}

// FormatCheckinTime renders the configured check-in time as "HH:MM".
func (c *UserConfig) FormatCheckinTime() string {
	return fmt.Sprintf("%02d:%02d", c.CheckinHour, c.CheckinMinute)
}

// ParseCheckinTime parses an "HH:MM" check-in time.
func ParseCheckinTime(s string) (hour, minute int, err error) {
	if _, err = fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("parsing check-in time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("check-in time %q out of range", s)
	}
	return hour, minute, nil
}

const (
	accountTokenLength  = 16
	accountTokenCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewAccountToken returns a 16-character token drawn uniformly from A-Z and
// 0-9. It correlates the user's submissions on the external form endpoint.
func NewAccountToken() (string, error) {
	b := make([]byte, accountTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = accountTokenCharset[int(b[i])%len(accountTokenCharset)]
	}
	return string(b), nil
}
