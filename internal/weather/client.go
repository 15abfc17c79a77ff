package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

// Client is an HTTP forecast generator. Calls are rate limited client-side
// (the provider is a rate-limited service) and wrapped in a circuit
// breaker so a dead upstream fails fast for the rest of a batch instead
// of burning the per-call timeout on every user.
type Client struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*domain.ForecastBundle]
}

// NewClient builds a generator client. rps caps outbound request rate.
func NewClient(baseURL string, timeout time.Duration, rps float64) *Client {
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		breaker: gobreaker.NewCircuitBreaker[*domain.ForecastBundle](gobreaker.Settings{
			Name: "forecast-generator",
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			Timeout: 30 * time.Second,
		}),
	}
}

// Generate fetches the daily forecast for loc and composes the content
// payload from it and the user's profile.
func (c *Client) Generate(ctx context.Context, loc domain.Location, profile []byte) (*domain.ForecastBundle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.Transientf("generator rate wait: %v", err)
	}

	bundle, err := c.breaker.Execute(func() (*domain.ForecastBundle, error) {
		return c.fetch(ctx, loc, profile)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, domain.Transientf("generator circuit open: %v", err)
	}
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

func (c *Client) fetch(ctx context.Context, loc domain.Location, profile []byte) (*domain.ForecastBundle, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,weathercode")
	q.Set("forecast_days", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, domain.Transientf("forecast fetch: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.Transientf("forecast fetch: upstream status %d", resp.StatusCode)
	default:
		// 4xx: the provider rejected this location outright
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.Permanentf("forecast fetch: rejected with status %d", resp.StatusCode)
	}

	snapshot, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.Transientf("forecast fetch: read: %v", err)
	}

	content, err := composeContent(snapshot, profile)
	if err != nil {
		return nil, fmt.Errorf("compose content: %w", err)
	}
	return &domain.ForecastBundle{Weather: snapshot, Content: content}, nil
}
