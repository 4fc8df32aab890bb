package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"campaign_feed/internal/domain"

	_ "modernc.org/sqlite"
)

var ErrNoSnapshot = errors.New("no saved snapshot")

const defaultKeepSnapshots = 5

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	current_tick INTEGER NOT NULL,
	payload TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS generation_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	cost REAL NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generation_log_created ON generation_log(created_at);
CREATE INDEX IF NOT EXISTS idx_generation_log_kind ON generation_log(kind, created_at);
`

type Store struct {
	db   *sql.DB
	keep int
}

func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db, keep: defaultKeepSnapshots}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SaveSnapshot stores snap as the newest snapshot and prunes older ones.
func (s *Store) SaveSnapshot(ctx context.Context, snap domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx save snapshot: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO snapshots(current_tick, payload, created_at) VALUES(?, ?, ?)`,
		snap.Loop.CurrentTick, string(payload), time.Now().UTC().Unix(),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`,
		s.keep,
	); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the newest snapshot or ErrNoSnapshot.
func (s *Store) LoadSnapshot(ctx context.Context) (domain.Snapshot, time.Time, error) {
	var payload string
	var createdAt int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT payload, created_at FROM snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return domain.Snapshot{}, time.Time{}, fmt.Errorf("load snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return domain.Snapshot{}, time.Time{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, unixToTime(createdAt), nil
}

// ClearSnapshots drops every saved snapshot so a reset session is not
// restored on the next start.
func (s *Store) ClearSnapshots(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	return nil
}

func (s *Store) LogGeneration(ctx context.Context, rec domain.GenerationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO generation_log(job_id, kind, attempts, tokens_used, cost, error, duration_ms, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.JobID, string(rec.Kind), rec.Attempts, rec.TokensUsed, rec.Cost, rec.Error,
		rec.DurationMS, rec.CreatedAt.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("log generation: %w", err)
	}
	return nil
}

func (s *Store) ListGenerations(ctx context.Context, limit int) ([]domain.GenerationRecord, error) {
	if limit <= 0 {
		limit = 300
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT job_id, kind, attempts, tokens_used, cost, error, duration_ms, created_at
		FROM generation_log
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	result := make([]domain.GenerationRecord, 0, limit)
	for rows.Next() {
		var rec domain.GenerationRecord
		var kind string
		var createdAt int64
		if err := rows.Scan(
			&rec.JobID, &kind, &rec.Attempts, &rec.TokensUsed, &rec.Cost, &rec.Error,
			&rec.DurationMS, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		rec.Kind = domain.JobKind(kind)
		rec.CreatedAt = unixToTime(createdAt)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generations: %w", err)
	}
	return result, nil
}

// GenerationStats summarizes the generation log per job kind.
type GenerationStats struct {
	Kind     domain.JobKind `json:"kind"`
	Total    int            `json:"total"`
	Failed   int            `json:"failed"`
	Tokens   int            `json:"tokens"`
	Cost     float64        `json:"cost"`
	AvgDurMS int64          `json:"avg_duration_ms"`
}

func (s *Store) GenerationStats(ctx context.Context) ([]GenerationStats, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT kind, COUNT(*), SUM(CASE WHEN error != '' THEN 1 ELSE 0 END),
			COALESCE(SUM(tokens_used), 0), COALESCE(SUM(cost), 0), CAST(COALESCE(AVG(duration_ms), 0) AS INTEGER)
		FROM generation_log
		GROUP BY kind
		ORDER BY kind`,
	)
	if err != nil {
		return nil, fmt.Errorf("generation stats: %w", err)
	}
	defer rows.Close()

	var result []GenerationStats
	for rows.Next() {
		var st GenerationStats
		var kind string
		if err := rows.Scan(&kind, &st.Total, &st.Failed, &st.Tokens, &st.Cost, &st.AvgDurMS); err != nil {
			return nil, fmt.Errorf("scan generation stats: %w", err)
		}
		st.Kind = domain.JobKind(kind)
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generation stats: %w", err)
	}
	return result, nil
}

func unixToTime(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}
