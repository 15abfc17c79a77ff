package directory

import (
	"context"
	"errors"
	"time"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

// ErrNotFound is returned by GetUser when the directory has no such user.
var ErrNotFound = errors.New("user not found")

// Directory supplies the population this pipeline operates on. The user
// data is owned elsewhere; this core only reads it.
type Directory interface {
	// ListEligibleUsers returns the users eligible for the daily
	// pipeline as of the given instant: resolvable location, device
	// token, notifications enabled, active within the trailing window.
	ListEligibleUsers(ctx context.Context, asOf time.Time) ([]domain.User, error)

	// GetUser returns the current directory entry for id, or ErrNotFound.
	// The dispatcher uses it to re-check token and enabled flag right
	// before sending.
	GetUser(ctx context.Context, id string) (*domain.User, error)
}
