package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/hydrolog/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (HYDROLOG_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) usersCol() *firestore.CollectionRef {
	return s.client.Collection("user_configs")
}

func (s *Store) userDoc(id domain.UserID) *firestore.DocumentRef {
	return s.usersCol().Doc(string(id))
}

func (s *Store) entriesCol(id domain.UserID) *firestore.CollectionRef {
	return s.client.Collection("hydration_logs").Doc(string(id)).Collection("entries")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type userConfigDoc struct {
	Username     string     `firestore:"username"`
	AccountToken string     `firestore:"account_token"`
	CheckinTime  string     `firestore:"checkin_time"`
	Unit         string     `firestore:"unit"`
	GoalLiters   float64    `firestore:"goal_liters"`
	LastCheckin  *time.Time `firestore:"last_checkin"`
	CreatedAt    time.Time  `firestore:"created_at"`
}

type recordDoc struct {
	Timestamp  time.Time `firestore:"timestamp"`
	WaterML    float64   `firestore:"water_ml"`
	SugarML    float64   `firestore:"sugar_ml"`
	CaffeineMG float64   `firestore:"caffeine_mg"`
	FoodsG     float64   `firestore:"foods_g"`
	Notes      string    `firestore:"notes"`
}

func fromUserDoc(id domain.UserID, doc userConfigDoc) (*domain.UserConfig, error) {
	hour, minute, err := domain.ParseCheckinTime(doc.CheckinTime)
	if err != nil {
		return nil, err
	}
	return &domain.UserConfig{
		UserID:        id,
		Username:      doc.Username,
		AccountToken:  doc.AccountToken,
		CheckinHour:   hour,
		CheckinMinute: minute,
		Unit:          domain.UnitSystem(doc.Unit),
		GoalLiters:    doc.GoalLiters,
		LastCheckin:   doc.LastCheckin,
		CreatedAt:     doc.CreatedAt,
	}, nil
}

// ─────────────────────────────────────────
// UserStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, cfg *domain.UserConfig) error {
	doc := userConfigDoc{
		Username:     cfg.Username,
		AccountToken: cfg.AccountToken,
		CheckinTime:  cfg.FormatCheckinTime(),
		Unit:         string(cfg.Unit),
		GoalLiters:   cfg.GoalLiters,
		LastCheckin:  cfg.LastCheckin,
		CreatedAt:    cfg.CreatedAt,
	}

	_, err := s.userDoc(cfg.UserID).Create(ctx, doc)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return domain.ErrConflict
		}
		return fmt.Errorf("firestore CreateUser: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id domain.UserID) (*domain.UserConfig, error) {
	snap, err := s.userDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetUser: %w", err)
	}

	var doc userConfigDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetUser decode: %w", err)
	}
	return fromUserDoc(id, doc)
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.UserConfig, error) {
	iter := s.usersCol().Documents(ctx)
	defer iter.Stop()

	var out []*domain.UserConfig
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListUsers: %w", err)
		}

		var doc userConfigDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode userConfigDoc: %w", err)
		}

		cfg, err := fromUserDoc(domain.UserID(snap.Ref.ID), doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (s *Store) SetLastCheckin(ctx context.Context, id domain.UserID, at time.Time) error {
	_, err := s.userDoc(id).Update(ctx, []firestore.Update{
		{Path: "last_checkin", Value: at.In(domain.Location)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrNotFound
		}
		return fmt.Errorf("firestore SetLastCheckin: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// RecordStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendRecord(ctx context.Context, id domain.UserID, rec *domain.HydrationRecord) error {
	doc := recordDoc{
		Timestamp:  rec.Timestamp,
		WaterML:    rec.WaterML,
		SugarML:    rec.SugarML,
		CaffeineMG: rec.CaffeineMG,
		FoodsG:     rec.FoodsG,
		Notes:      rec.Notes,
	}

	_, err := s.entriesCol(id).Doc(uuid.NewString()).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("firestore AppendRecord: %w", err)
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, id domain.UserID) ([]*domain.HydrationRecord, error) {
	q := s.entriesCol(id).OrderBy("timestamp", firestore.Asc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.HydrationRecord
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListRecords: %w", err)
		}

		var doc recordDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode recordDoc: %w", err)
		}

		out = append(out, &domain.HydrationRecord{
			Timestamp:  doc.Timestamp,
			WaterML:    doc.WaterML,
			SugarML:    doc.SugarML,
			CaffeineMG: doc.CaffeineMG,
			FoodsG:     doc.FoodsG,
			Notes:      doc.Notes,
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ domain.UserStore = (*Store)(nil)
var _ domain.RecordStore = (*Store)(nil)
