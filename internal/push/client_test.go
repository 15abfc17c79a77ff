package push

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

func TestSendSuccess(t *testing.T) {
	var got pushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/push" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key123" {
			t.Fatalf("missing auth header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key123", time.Second, 100)
	err := c.Send(context.Background(), "tok1", Message{Title: "Today: rain", Body: "High 12°C."})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Token != "tok1" || got.Title != "Today: rain" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSendClassifiesFailures(t *testing.T) {
	cases := []struct {
		status       int
		want         domain.Kind
		invalidToken bool
	}{
		{http.StatusGone, domain.KindPermanent, true},
		{http.StatusNotFound, domain.KindPermanent, true},
		{http.StatusBadRequest, domain.KindPermanent, false},
		{http.StatusTooManyRequests, domain.KindTransient, false},
		{http.StatusInternalServerError, domain.KindTransient, false},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(c.status)
		}))
		err := NewClient(srv.URL, "", time.Second, 100).Send(context.Background(), "tok", Message{})
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", c.status)
		}
		if got := domain.KindOf(err); got != c.want {
			t.Fatalf("status %d: want %s, got %s", c.status, c.want, got)
		}
		if c.invalidToken != errors.Is(err, ErrInvalidToken) {
			t.Fatalf("status %d: invalid-token mismatch: %v", c.status, err)
		}
	}
}
