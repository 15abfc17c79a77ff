package directory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

// Client talks to the user-directory service over HTTP. The service may
// return users that stopped qualifying since its own snapshot, so the
// eligibility filter is applied again client-side.
type Client struct {
	baseURL      string
	httpc        *http.Client
	activeWithin time.Duration
}

// NewClient builds a directory client. timeout bounds each HTTP call;
// activeWithin is the trailing activity window for eligibility.
func NewClient(baseURL string, timeout, activeWithin time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		httpc:        &http.Client{Timeout: timeout},
		activeWithin: activeWithin,
	}
}

// userDoc is the directory wire format.
type userDoc struct {
	ID                   string          `json:"id"`
	Latitude             *float64        `json:"latitude"`
	Longitude            *float64        `json:"longitude"`
	PushToken            string          `json:"push_token"`
	NotificationsEnabled bool            `json:"notifications_enabled"`
	LastActiveAt         time.Time       `json:"last_active_at"`
	Profile              json.RawMessage `json:"profile"`
}

func (d userDoc) toDomain() domain.User {
	u := domain.User{
		ID:                   d.ID,
		PushToken:            d.PushToken,
		NotificationsEnabled: d.NotificationsEnabled,
		LastActiveAt:         d.LastActiveAt,
		Profile:              d.Profile,
	}
	if d.Latitude != nil && d.Longitude != nil {
		u.Location = &domain.Location{Lat: *d.Latitude, Lon: *d.Longitude}
	}
	return u
}

// ListEligibleUsers fetches active users and filters them down to the
// eligible set. A failure here is pipeline-fatal for the caller, so the
// error is returned unclassified.
func (c *Client) ListEligibleUsers(ctx context.Context, asOf time.Time) ([]domain.User, error) {
	q := url.Values{}
	q.Set("active_since", asOf.Add(-c.activeWithin).UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/users?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory list: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory list: unexpected status %d", resp.StatusCode)
	}

	var docs []userDoc
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("directory list: decode: %w", err)
	}

	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		u := d.toDomain()
		if u.EligibleAt(asOf, c.activeWithin) {
			users = append(users, u)
		}
	}
	return users, nil
}

// GetUser fetches one user's current directory entry.
func (c *Client) GetUser(ctx context.Context, id string) (*domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, domain.Transientf("directory get %s: %v", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.Transientf("directory get %s: unexpected status %d", id, resp.StatusCode)
	}

	var doc userDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, domain.Transientf("directory get %s: decode: %v", id, err)
	}
	u := doc.toDomain()
	return &u, nil
}
