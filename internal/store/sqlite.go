package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/altar-plans/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS study_plan_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		completed_days TEXT NOT NULL DEFAULT '[]',
		completed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(user_id, plan_id)
	);

	CREATE TABLE IF NOT EXISTS study_plans (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL,
		readings_json TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT 'client',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_study_plans_created ON study_plans(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.LastSeenAt.Unix(),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// GetProgress returns the progress row for (userID, planID), or nil if none exists.
func (s *SQLiteStore) GetProgress(ctx context.Context, userID, planID string) (*domain.PlanProgress, error) {
	query := `
		SELECT completed_days, completed
		FROM study_plan_progress WHERE user_id = ? AND plan_id = ? LIMIT 1`

	var daysJSON string
	var completed bool
	err := s.db.QueryRowContext(ctx, query, userID, planID).Scan(&daysJSON, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress row: %w", err)
	}

	p := &domain.PlanProgress{PlanID: planID, Completed: completed}
	if err := json.Unmarshal([]byte(daysJSON), &p.CompletedDays); err != nil {
		return nil, fmt.Errorf("decode completed_days: %w", err)
	}
	if p.CompletedDays == nil {
		p.CompletedDays = []int{}
	}
	return p, nil
}

// UpsertProgress overwrites the progress row for (userID, p.PlanID).
// There is no version check: the last writer wins.
func (s *SQLiteStore) UpsertProgress(ctx context.Context, userID string, p *domain.PlanProgress) error {
	days := p.CompletedDays
	if days == nil {
		days = []int{}
	}
	daysJSON, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("encode completed_days: %w", err)
	}

	query := `
	INSERT INTO study_plan_progress (user_id, plan_id, completed_days, completed, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, plan_id) DO UPDATE SET
		completed_days = excluded.completed_days,
		completed = excluded.completed,
		updated_at = excluded.updated_at`

	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx, query, userID, p.PlanID, string(daysJSON), p.Completed, now, now); err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// ListPlans returns custom plans ordered by creation time.
func (s *SQLiteStore) ListPlans(ctx context.Context) ([]*domain.StudyPlan, error) {
	query := `
		SELECT id, title, description, duration, readings_json, source, created_at
		FROM study_plans ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close plan rows", "error", closeErr)
		}
	}()

	var plans []*domain.StudyPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

// GetPlan returns a custom plan, or nil if none exists.
func (s *SQLiteStore) GetPlan(ctx context.Context, planID string) (*domain.StudyPlan, error) {
	query := `
		SELECT id, title, description, duration, readings_json, source, created_at
		FROM study_plans WHERE id = ?`

	plan, err := scanPlan(s.db.QueryRowContext(ctx, query, planID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return plan, err
}

// InsertPlan stores a new custom plan.
func (s *SQLiteStore) InsertPlan(ctx context.Context, plan *domain.StudyPlan) error {
	readingsJSON, err := json.Marshal(plan.Readings)
	if err != nil {
		return fmt.Errorf("encode readings: %w", err)
	}

	query := `
	INSERT INTO study_plans (id, title, description, duration, readings_json, source, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		plan.ID, plan.Title, plan.Description, plan.Duration,
		string(readingsJSON), plan.Source, plan.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*domain.StudyPlan, error) {
	var plan domain.StudyPlan
	var readingsJSON string
	var createdAt int64

	if err := row.Scan(
		&plan.ID, &plan.Title, &plan.Description, &plan.Duration,
		&readingsJSON, &plan.Source, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan plan row: %w", err)
	}

	if err := json.Unmarshal([]byte(readingsJSON), &plan.Readings); err != nil {
		return nil, fmt.Errorf("decode readings for plan %s: %w", plan.ID, err)
	}
	plan.CreatedAt = time.Unix(createdAt, 0)
	return &plan, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
