package domain

import (
	"context"
	"time"
)

// UserStore persists registration records, keyed by user id.
type UserStore interface {
	// CreateUser stores a new config. Returns ErrConflict if the user is
	// already registered.
	CreateUser(ctx context.Context, cfg *UserConfig) error
	// GetUser returns ErrNotFound for unknown users.
	GetUser(ctx context.Context, id UserID) (*UserConfig, error)
	ListUsers(ctx context.Context) ([]*UserConfig, error)
	// SetLastCheckin marks a successfully completed session.
	SetLastCheckin(ctx context.Context, id UserID, at time.Time) error
}

// RecordStore persists the per-user append-only hydration log.
type RecordStore interface {
	AppendRecord(ctx context.Context, id UserID, rec *HydrationRecord) error
	// ListRecords returns the user's records in ascending timestamp order.
	ListRecords(ctx context.Context, id UserID) ([]*HydrationRecord, error)
}

// Messenger delivers one text message to a user's private channel.
type Messenger interface {
	Send(ctx context.Context, id UserID, text string) error
}

// Submission is the payload for the external form endpoint. Water, sugar and
// foods are canonical metric; caffeine and notes travel as the user typed
// them.
type Submission struct {
	UserID       UserID
	Username     string
	AccountToken string
	WaterML      float64
	SugarML      float64
	FoodsG       float64
	CaffeineRaw  string
	Notes        string
}

// FormSubmitter posts one completed check-in to the external form endpoint.
type FormSubmitter interface {
	Submit(ctx context.Context, sub *Submission) error
}
