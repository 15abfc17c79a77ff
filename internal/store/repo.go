package store

import (
	"context"
	"time"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

// Repo defines storage operations over forecast records.
//
// Records are independent per (user, day) key; the only cross-cutting
// invariant the store enforces is key uniqueness and the monotonic
// primed → sent transition.
type Repo interface {
	// UpsertPrimed inserts a primed record or, if the key exists,
	// refreshes its payloads in place. It never regresses an existing
	// sent record back to primed.
	UpsertPrimed(ctx context.Context, rec *domain.ForecastRecord) error

	// Get returns the record for (userID, day), or ErrNotFound.
	Get(ctx context.Context, userID string, day domain.Day) (*domain.ForecastRecord, error)

	// ListPrimed returns up to limit primed records for day whose user id
	// sorts after afterUser, ordered by user id. Pass "" to start from
	// the beginning.
	ListPrimed(ctx context.Context, day domain.Day, afterUser string, limit int) ([]domain.ForecastRecord, error)

	// MarkSent transitions (userID, day) from primed to sent with the
	// given sent-at timestamp. It reports false when the record was not
	// in primed state (already sent, or missing), leaving it untouched.
	MarkSent(ctx context.Context, userID string, day domain.Day, sentAt time.Time) (bool, error)

	Close() error
}
