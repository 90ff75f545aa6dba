// Package postgres is the pgx-backed storage backend for deployments where
// the JSON files and Firestore are not an option.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PabloGalante/hydrolog/internal/domain"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the two tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS user_configs (
			user_id        TEXT PRIMARY KEY,
			username       TEXT NOT NULL,
			account_token  TEXT NOT NULL,
			checkin_hour   INT NOT NULL,
			checkin_minute INT NOT NULL,
			unit           TEXT NOT NULL,
			goal_liters    DOUBLE PRECISION NOT NULL,
			last_checkin   TIMESTAMPTZ,
			created_at     TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS hydration_records (
			id          BIGSERIAL PRIMARY KEY,
			user_id     TEXT NOT NULL,
			ts          TIMESTAMPTZ NOT NULL,
			water_ml    DOUBLE PRECISION NOT NULL,
			sugar_ml    DOUBLE PRECISION NOT NULL,
			caffeine_mg DOUBLE PRECISION NOT NULL,
			foods_g     DOUBLE PRECISION NOT NULL,
			notes       TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_hydration_records_user_ts
			ON hydration_records (user_id, ts);`)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// UserStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateUser(ctx context.Context, cfg *domain.UserConfig) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_configs
			(user_id, username, account_token, checkin_hour, checkin_minute, unit, goal_liters, last_checkin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		cfg.UserID, cfg.Username, cfg.AccountToken, cfg.CheckinHour, cfg.CheckinMinute,
		cfg.Unit, cfg.GoalLiters, cfg.LastCheckin, cfg.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrConflict
		}
		return fmt.Errorf("postgres CreateUser: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id domain.UserID) (*domain.UserConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, username, account_token, checkin_hour, checkin_minute, unit, goal_liters, last_checkin, created_at
		FROM user_configs WHERE user_id = $1`, id)

	cfg, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres GetUser: %w", err)
	}
	return cfg, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.UserConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, username, account_token, checkin_hour, checkin_minute, unit, goal_liters, last_checkin, created_at
		FROM user_configs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres ListUsers: %w", err)
	}
	defer rows.Close()

	var out []*domain.UserConfig
	for rows.Next() {
		cfg, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres ListUsers scan: %w", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (s *Store) SetLastCheckin(ctx context.Context, id domain.UserID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_configs SET last_checkin = $1 WHERE user_id = $2`,
		at.In(domain.Location), id)
	if err != nil {
		return fmt.Errorf("postgres SetLastCheckin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.UserConfig, error) {
	var cfg domain.UserConfig
	var unit string
	err := row.Scan(&cfg.UserID, &cfg.Username, &cfg.AccountToken,
		&cfg.CheckinHour, &cfg.CheckinMinute, &unit, &cfg.GoalLiters,
		&cfg.LastCheckin, &cfg.CreatedAt)
	if err != nil {
		return nil, err
	}
	cfg.Unit = domain.UnitSystem(unit)
	return &cfg, nil
}

// ─────────────────────────────────────────
// RecordStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendRecord(ctx context.Context, id domain.UserID, rec *domain.HydrationRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO hydration_records (user_id, ts, water_ml, sugar_ml, caffeine_mg, foods_g, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, rec.Timestamp, rec.WaterML, rec.SugarML, rec.CaffeineMG, rec.FoodsG, rec.Notes)
	if err != nil {
		return fmt.Errorf("postgres AppendRecord: %w", err)
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, id domain.UserID) ([]*domain.HydrationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ts, water_ml, sugar_ml, caffeine_mg, foods_g, notes
		FROM hydration_records WHERE user_id = $1 ORDER BY ts`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres ListRecords: %w", err)
	}
	defer rows.Close()

	var out []*domain.HydrationRecord
	for rows.Next() {
		var rec domain.HydrationRecord
		if err := rows.Scan(&rec.Timestamp, &rec.WaterML, &rec.SugarML,
			&rec.CaffeineMG, &rec.FoodsG, &rec.Notes); err != nil {
			return nil, fmt.Errorf("postgres ListRecords scan: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() {
	s.pool.Close()
}

var _ domain.UserStore = (*Store)(nil)
var _ domain.RecordStore = (*Store)(nil)
