package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

type recordingJobs struct {
	mu       sync.Mutex
	preprime []domain.Day
	dispatch []domain.Day
	done     chan struct{}
}

func (r *recordingJobs) PrePrime(_ context.Context, day domain.Day) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preprime = append(r.preprime, day)
	if r.done != nil {
		r.done <- struct{}{}
	}
	return nil
}

func (r *recordingJobs) Dispatch(_ context.Context, day domain.Day) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch = append(r.dispatch, day)
	if r.done != nil {
		r.done <- struct{}{}
	}
	return nil
}

func testScheduler(t *testing.T, jobs Jobs) *Scheduler {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	primeAt, _ := domain.ParseWallClock("06:45")
	notifyAt, _ := domain.ParseWallClock("07:30")
	return New(jobs, zap.NewNop(), loc, primeAt, notifyAt)
}

func localTime(t *testing.T, hh, mm int) time.Time {
	t.Helper()
	loc, _ := time.LoadLocation("Europe/Berlin")
	return time.Date(2025, time.May, 5, hh, mm, 0, 0, loc)
}

func TestNextTriggerBeforeBoth(t *testing.T) {
	s := testScheduler(t, &recordingJobs{})
	kind, at := s.nextTrigger(localTime(t, 5, 0))
	if kind != triggerPrePrime {
		t.Fatalf("want preprime, got %s", kind)
	}
	if got := at.Format("2006-01-02 15:04"); got != "2025-05-05 06:45" {
		t.Fatalf("want today's preprime, got %s", got)
	}
}

func TestNextTriggerBetweenPhases(t *testing.T) {
	// process (re)started inside the gap: today's notify is still a
	// future-dated trigger and fires; the missed preprime does not.
	s := testScheduler(t, &recordingJobs{})
	kind, at := s.nextTrigger(localTime(t, 7, 0))
	if kind != triggerNotify {
		t.Fatalf("want notify, got %s", kind)
	}
	if got := at.Format("2006-01-02 15:04"); got != "2025-05-05 07:30" {
		t.Fatalf("want today's notify, got %s", got)
	}
}

func TestNextTriggerAfterBothRollsToTomorrow(t *testing.T) {
	s := testScheduler(t, &recordingJobs{})
	kind, at := s.nextTrigger(localTime(t, 9, 0))
	if kind != triggerPrePrime {
		t.Fatalf("want preprime, got %s", kind)
	}
	if got := at.Format("2006-01-02 15:04"); got != "2025-05-06 06:45" {
		t.Fatalf("missed triggers must not fire; want tomorrow's preprime, got %s", got)
	}
}

func TestRunFiresDueTrigger(t *testing.T) {
	jobs := &recordingJobs{done: make(chan struct{}, 2)}
	s := testScheduler(t, jobs)
	// pin the clock just before the preprime trigger so the timer fires
	// almost immediately
	base := localTime(t, 6, 44).Add(59 * time.Second)
	s.now = func() time.Time { return base }

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go s.Run(ctx)

	select {
	case <-jobs.done:
	case <-ctx.Done():
		t.Fatal("trigger never fired")
	}
	cancel()

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	if len(jobs.preprime) != 1 {
		t.Fatalf("want 1 preprime fire, got %d", len(jobs.preprime))
	}
	if jobs.preprime[0] != domain.Day("2025-05-05") {
		t.Fatalf("fired for wrong day %s", jobs.preprime[0])
	}
	if len(jobs.dispatch) != 0 {
		t.Fatalf("notify fired early: %v", jobs.dispatch)
	}
}
