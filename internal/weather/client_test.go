package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

const snapshotJSON = `{"daily":{
	"temperature_2m_max":[21.4],
	"temperature_2m_min":[11.2],
	"precipitation_probability_max":[60],
	"weathercode":[61]}}`

func testClient(url string) *Client {
	return NewClient(url, 2*time.Second, 100)
}

func TestGenerateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") == "" || r.URL.Query().Get("longitude") == "" {
			t.Fatal("missing coordinates")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(snapshotJSON))
	}))
	defer srv.Close()

	b, err := testClient(srv.URL).Generate(context.Background(), domain.Location{Lat: 52.52, Lon: 13.41}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(b.Weather) != snapshotJSON {
		t.Fatal("snapshot not stored verbatim")
	}
	var content struct{ Headline, Body string }
	if err := json.Unmarshal(b.Content, &content); err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if !strings.Contains(content.Headline, "light rain") {
		t.Fatalf("unexpected headline %q", content.Headline)
	}
	if !strings.Contains(content.Body, "High 21°C") || !strings.Contains(content.Body, "60%") {
		t.Fatalf("unexpected body %q", content.Body)
	}
}

func TestGenerateImperialProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(snapshotJSON))
	}))
	defer srv.Close()

	b, err := testClient(srv.URL).Generate(context.Background(),
		domain.Location{Lat: 40.71, Lon: -74.0}, []byte(`{"units":"imperial"}`))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var content struct{ Body string }
	_ = json.Unmarshal(b.Content, &content)
	if !strings.Contains(content.Body, "°F") {
		t.Fatalf("expected fahrenheit body, got %q", content.Body)
	}
}

func TestGenerateClassifiesFailures(t *testing.T) {
	cases := []struct {
		status int
		want   domain.Kind
	}{
		{http.StatusBadRequest, domain.KindPermanent},
		{http.StatusUnprocessableEntity, domain.KindPermanent},
		{http.StatusTooManyRequests, domain.KindTransient},
		{http.StatusBadGateway, domain.KindTransient},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(c.status)
		}))
		_, err := testClient(srv.URL).Generate(context.Background(), domain.Location{}, nil)
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", c.status)
		}
		if got := domain.KindOf(err); got != c.want {
			t.Fatalf("status %d: want %s, got %s (%v)", c.status, c.want, got, err)
		}
	}
}

func TestGenerateBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for i := 0; i < 10; i++ {
		if _, err := c.Generate(context.Background(), domain.Location{}, nil); err == nil {
			t.Fatal("expected failure")
		}
	}
	if hits >= 10 {
		t.Fatalf("breaker never opened, upstream hit %d times", hits)
	}
	// open breaker still reads as transient so users stay retryable
	_, err := c.Generate(context.Background(), domain.Location{}, nil)
	if domain.KindOf(err) != domain.KindTransient {
		t.Fatalf("open breaker should classify transient, got %v", err)
	}
}
