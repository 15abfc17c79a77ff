package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

// ErrNotFound is returned by Get when no record exists for the key.
var ErrNotFound = errors.New("forecast record not found")

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// UpsertPrimed inserts a primed record for (user, day) or refreshes the
// payloads of the existing one. State and sent_at are deliberately absent
// from the conflict update: a record that already reached sent keeps its
// delivery state and only gets fresher content.
func (r *SQLiteRepo) UpsertPrimed(ctx context.Context, rec *domain.ForecastRecord) error {
	if rec == nil {
		return errors.New("nil record")
	}

	now := time.Now().UTC().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO forecasts (
			user_id, day, weather, content, state, sent_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, 'primed', NULL, ?, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET
			weather    = excluded.weather,
			content    = excluded.content,
			updated_at = excluded.updated_at`,
		rec.UserID, string(rec.Day), rec.Weather, rec.Content, now, now,
	)
	return err
}

// Get returns the record for (userID, day).
func (r *SQLiteRepo) Get(ctx context.Context, userID string, day domain.Day) (*domain.ForecastRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, day, weather, content, state, sent_at, created_at, updated_at
		FROM forecasts
		WHERE user_id = ? AND day = ?`,
		userID, string(day),
	)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListPrimed returns up to limit primed records for day with user_id > afterUser,
// ordered by user_id ascending. The cursor lets the dispatcher page through
// large days without holding every row in memory.
func (r *SQLiteRepo) ListPrimed(ctx context.Context, day domain.Day, afterUser string, limit int) ([]domain.ForecastRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, day, weather, content, state, sent_at, created_at, updated_at
		FROM forecasts
		WHERE day = ? AND state = 'primed' AND user_id > ?
		ORDER BY user_id ASC
		LIMIT ?`,
		string(day), afterUser, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.ForecastRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// MarkSent performs the conditional primed → sent transition. The WHERE
// clause is the compare-and-set: a record that is already sent (or gone)
// matches nothing and the call reports false.
func (r *SQLiteRepo) MarkSent(ctx context.Context, userID string, day domain.Day, sentAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE forecasts
		SET state = 'sent', sent_at = ?, updated_at = ?
		WHERE user_id = ? AND day = ? AND state = 'primed'`,
		sentAt.UTC().Unix(), time.Now().UTC().Unix(), userID, string(day),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanRecord(scan func(dest ...any) error) (*domain.ForecastRecord, error) {
	var (
		userID    string
		day       string
		weather   []byte
		content   []byte
		state     string
		sentNS    sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := scan(&userID, &day, &weather, &content, &state, &sentNS, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return &domain.ForecastRecord{
		UserID:    userID,
		Day:       domain.Day(day),
		Weather:   weather,
		Content:   content,
		State:     domain.State(state),
		SentAt:    fromNullInt64(sentNS),
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		UpdatedAt: time.Unix(updatedAt, 0).UTC(),
	}, nil
}
