// Package file is the JSON-file storage backend. User configs and the
// hydration log live in two files; every mutation is written synchronously
// through an atomic tmp-write-and-rename, and one mutex per store serializes
// all writers across both collections.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/PabloGalante/hydrolog/internal/domain"
)

type Store struct {
	mu          sync.RWMutex
	usersFile   string
	recordsFile string
	users       map[domain.UserID]*domain.UserConfig
	records     map[domain.UserID][]*domain.HydrationRecord
}

// NewStore loads both collections from disk; missing files start empty.
func NewStore(usersFile, recordsFile string) (*Store, error) {
	s := &Store{
		usersFile:   usersFile,
		recordsFile: recordsFile,
		users:       make(map[domain.UserID]*domain.UserConfig),
		records:     make(map[domain.UserID][]*domain.HydrationRecord),
	}
	if err := s.loadUsers(); err != nil {
		return nil, fmt.Errorf("loading user configs: %w", err)
	}
	if err := s.loadRecords(); err != nil {
		return nil, fmt.Errorf("loading hydration logs: %w", err)
	}
	return s, nil
}

// ─────────────────────────────────────────
// On-disk shapes
// ─────────────────────────────────────────

type userConfigDoc struct {
	Username     string     `json:"username"`
	AccountToken string     `json:"account_token"`
	CheckinTime  string     `json:"checkin_time"`
	Unit         string     `json:"unit"`
	GoalLiters   float64    `json:"goal_liters"`
	LastCheckin  *time.Time `json:"last_checkin"`
	CreatedAt    time.Time  `json:"created_at"`
}

type recordDoc struct {
	Timestamp  time.Time `json:"timestamp"`
	WaterML    float64   `json:"water_ml"`
	SugarML    float64   `json:"sugar_ml"`
	CaffeineMG float64   `json:"caffeine_mg"`
	FoodsG     float64   `json:"foods_g"`
	Notes      string    `json:"notes"`
}

func toUserDoc(cfg *domain.UserConfig) userConfigDoc {
	return userConfigDoc{
		Username:     cfg.Username,
		AccountToken: cfg.AccountToken,
		CheckinTime:  cfg.FormatCheckinTime(),
		Unit:         string(cfg.Unit),
		GoalLiters:   cfg.GoalLiters,
		LastCheckin:  cfg.LastCheckin,
		CreatedAt:    cfg.CreatedAt,
	}
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
// Load / save
// ─────────────────────────────────────────

func (s *Store) loadUsers() error {
	f, err := os.Open(s.usersFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var docs map[string]userConfigDoc
	if err := json.NewDecoder(f).Decode(&docs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	for id, doc := range docs {
		cfg, err := fromUserDoc(domain.UserID(id), doc)
		if err != nil {
			return err
		}
		s.users[cfg.UserID] = cfg
	}
	return nil
}

func (s *Store) loadRecords() error {
	f, err := os.Open(s.recordsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var docs map[string][]recordDoc
	if err := json.NewDecoder(f).Decode(&docs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	for id, list := range docs {
		recs := make([]*domain.HydrationRecord, 0, len(list))
		for _, doc := range list {
			recs = append(recs, &domain.HydrationRecord{
				Timestamp:  doc.Timestamp,
				WaterML:    doc.WaterML,
				SugarML:    doc.SugarML,
				CaffeineMG: doc.CaffeineMG,
				FoodsG:     doc.FoodsG,
				Notes:      doc.Notes,
			})
		}
		s.records[domain.UserID(id)] = recs
	}
	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

// saveUsers must be called with s.mu held.
func (s *Store) saveUsers() error {
	docs := make(map[string]userConfigDoc, len(s.users))
	for id, cfg := range s.users {
		docs[string(id)] = toUserDoc(cfg)
	}
	return atomicWriteFileJSON(s.usersFile, docs)
}

// saveRecords must be called with s.mu held.
func (s *Store) saveRecords() error {
	docs := make(map[string][]recordDoc, len(s.records))
	for id, recs := range s.records {
		list := make([]recordDoc, 0, len(recs))
		for _, rec := range recs {
			list = append(list, recordDoc{
				Timestamp:  rec.Timestamp,
				WaterML:    rec.WaterML,
				SugarML:    rec.SugarML,
				CaffeineMG: rec.CaffeineMG,
				FoodsG:     rec.FoodsG,
				Notes:      rec.Notes,
			})
		}
		docs[string(id)] = list
	}
	return atomicWriteFileJSON(s.recordsFile, docs)
}

// ─────────────────────────────────────────
// UserStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, cfg *domain.UserConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[cfg.UserID]; exists {
		return domain.ErrConflict
	}

	c := *cfg
	s.users[cfg.UserID] = &c
	return s.saveUsers()
}

func (s *Store) GetUser(ctx context.Context, id domain.UserID) (*domain.UserConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *cfg
	return &c, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.UserConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.UserConfig, 0, len(s.users))
	for _, cfg := range s.users {
		c := *cfg
		out = append(out, &c)
	}
	return out, nil
}

func (s *Store) SetLastCheckin(ctx context.Context, id domain.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}

	at = at.In(domain.Location)
	cfg.LastCheckin = &at
	return s.saveUsers()
}

// ─────────────────────────────────────────
// RecordStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendRecord(ctx context.Context, id domain.UserID, rec *domain.HydrationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *rec
	s.records[id] = append(s.records[id], &r)
	return s.saveRecords()
}

func (s *Store) ListRecords(ctx context.Context, id domain.UserID) ([]*domain.HydrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.HydrationRecord, 0, len(s.records[id]))
	for _, rec := range s.records[id] {
		r := *rec
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Close flushes both collections a final time.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveUsers(); err != nil {
		return err
	}
	return s.saveRecords()
}

var _ domain.UserStore = (*Store)(nil)
var _ domain.RecordStore = (*Store)(nil)
