package weather

import (
	"context"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

// Generator produces a weather snapshot plus the derived content payload
// for one user. Failures are classified with the domain error taxonomy:
// transient (timeout, upstream outage) or permanent (unresolvable
// location).
type Generator interface {
	Generate(ctx context.Context, loc domain.Location, profile []byte) (*domain.ForecastBundle, error)
}
