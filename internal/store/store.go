package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KaranOps/ContextCut/internal/catalog"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables if they do not exist yet. Called
// once at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS generation_runs (
			run_id     TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			step       TEXT,
			error      TEXT,
			result     JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS broll_catalog (
			clip_id    TEXT PRIMARY KEY,
			entries    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS media (
			id           TEXT PRIMARY KEY,
			filename     TEXT NOT NULL,
			kind         TEXT NOT NULL,
			duration_sec DOUBLE PRECISION NOT NULL DEFAULT 0,
			storage_path TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// CreateRun registers a new generation run in the pending state.
func (s *Store) CreateRun(ctx context.Context, runID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO generation_runs (run_id, status, created_at, updated_at)
		VALUES ($1, $2, now(), now())
	`, runID, RunPending)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// SetRunStep marks a run as processing at the named pipeline step.
func (s *Store) SetRunStep(ctx context.Context, runID, step string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE generation_runs SET status = $2, step = $3, updated_at = now()
		WHERE run_id = $1
	`, runID, RunProcessing, step)
	if err != nil {
		return fmt.Errorf("set run step: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	slog.Debug("run step updated", "run_id", runID, "step", step)
	return nil
}

// CompleteRun stores the finished timeline and marks the run completed.
func (s *Store) CompleteRun(ctx context.Context, runID string, result json.RawMessage) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE generation_runs SET status = $2, result = $3, error = NULL, updated_at = now()
		WHERE run_id = $1
	`, runID, RunCompleted, result)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FailRun records the failure reason and marks the run failed.
func (s *Store) FailRun(ctx context.Context, runID, errMsg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE generation_runs SET status = $2, error = $3, updated_at = now()
		WHERE run_id = $1
	`, runID, RunFailed, errMsg)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, status, COALESCE(step, ''), error, result, created_at, updated_at
		FROM generation_runs WHERE run_id = $1
	`, runID)

	var r Run
	if err := row.Scan(&r.RunID, &r.Status, &r.Step, &r.Error, &r.Result, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}

// QueryRuns returns runs filtered by status, newest first.
func (s *Store) QueryRuns(ctx context.Context, status string, limit int) ([]Run, error) {
	q := `SELECT run_id, status, COALESCE(step, ''), error, result, created_at, updated_at FROM generation_runs`
	args := []any{}
	argN := 1

	if status != "" {
		q += fmt.Sprintf(` WHERE status = $%d`, argN)
		args = append(args, status)
		argN++
	}

	q += ` ORDER BY created_at DESC`

	if limit > 0 {
		q += fmt.Sprintf(` LIMIT $%d`, argN)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Status, &r.Step, &r.Error, &r.Result, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// UpsertCatalog persists every catalog entry list keyed by clip ID.
// Entries for an existing clip replace the stored ones.
func (s *Store) UpsertCatalog(ctx context.Context, cat catalog.Catalog) error {
	if len(cat) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin catalog upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	for id, entries := range cat {
		payload, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshal catalog entry %s: %w", id, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO broll_catalog (clip_id, entries, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (clip_id) DO UPDATE SET entries = EXCLUDED.entries, updated_at = now()
		`, id, payload)
		if err != nil {
			return fmt.Errorf("upsert catalog entry %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit catalog upsert: %w", err)
	}
	slog.Debug("catalog persisted", "clips", len(cat))
	return nil
}

func (s *Store) LoadCatalog(ctx context.Context) (catalog.Catalog, error) {
	rows, err := s.pool.Query(ctx, `SELECT clip_id, entries FROM broll_catalog`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cat := catalog.Catalog{}
	for rows.Next() {
		var (
			id      string
			payload json.RawMessage
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var entries []catalog.Entry
		if err := json.Unmarshal(payload, &entries); err != nil {
			return nil, fmt.Errorf("decode catalog entry %s: %w", id, err)
		}
		cat[id] = entries
	}
	return cat, rows.Err()
}

func (s *Store) UpsertMedia(ctx context.Context, m Media) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO media (id, filename, kind, duration_sec, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			kind = EXCLUDED.kind,
			duration_sec = EXCLUDED.duration_sec,
			storage_path = EXCLUDED.storage_path
	`, m.ID, m.Filename, m.Kind, m.DurationSec, m.StoragePath)
	if err != nil {
		return fmt.Errorf("upsert media: %w", err)
	}
	return nil
}

func (s *Store) ListMedia(ctx context.Context) ([]Media, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, kind, duration_sec, storage_path, created_at
		FROM media ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Media
	for rows.Next() {
		var m Media
		if err := rows.Scan(&m.ID, &m.Filename, &m.Kind, &m.DurationSec, &m.StoragePath, &m.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}
