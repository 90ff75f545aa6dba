// Package memory holds the in-memory storage backend. It is the default for
// local runs and the fixture the service tests build on.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/PabloGalante/hydrolog/internal/domain"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[domain.UserID]*domain.UserConfig
}

func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[domain.UserID]*domain.UserConfig),
	}
}

func (s *UserStore) CreateUser(ctx context.Context, cfg *domain.UserConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[cfg.UserID]; exists {
		return domain.ErrConflict
	}

	c := *cfg
	s.users[cfg.UserID] = &c
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, id domain.UserID) (*domain.UserConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	c := *cfg
	return &c, nil
}

func (s *UserStore) ListUsers(ctx context.Context) ([]*domain.UserConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.UserConfig, 0, len(s.users))
	for _, cfg := range s.users {
		c := *cfg
		out = append(out, &c)
	}
	return out, nil
}

func (s *UserStore) SetLastCheckin(ctx context.Context, id domain.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}

	at = at.In(domain.Location)
	cfg.LastCheckin = &at
	return nil
}

var _ domain.UserStore = (*UserStore)(nil)
