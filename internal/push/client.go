package push

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

// Client delivers notifications through an HTTP push gateway. The gateway
// is rate limited, so sends are throttled client-side.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	limiter *rate.Limiter
}

// NewClient builds a sender. rps caps outbound delivery rate.
func NewClient(baseURL, apiKey string, timeout time.Duration, rps float64) *Client {
	if rps <= 0 {
		rps = 20
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

type pushRequest struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send delivers msg to token. Token rejections (404/410) are permanent;
// throttling, upstream outages, and transport errors are transient.
func (c *Client) Send(ctx context.Context, token string, msg Message) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Transientf("push rate wait: %v", err)
	}

	payload, err := json.Marshal(pushRequest{Token: token, Title: msg.Title, Body: msg.Body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/push", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return domain.Transientf("push send: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return domain.Permanent(ErrInvalidToken)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.Transientf("push send: gateway status %d", resp.StatusCode)
	default:
		return domain.Permanentf("push send: rejected with status %d", resp.StatusCode)
	}
}
