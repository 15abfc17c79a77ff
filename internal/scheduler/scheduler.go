package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
)

// Jobs is what the scheduler triggers: the two daily batch phases.
// Run-level failures are the job's to report; the scheduler only fires.
type Jobs interface {
	PrePrime(ctx context.Context, day domain.Day) error
	Dispatch(ctx context.Context, day domain.Day) error
}

type triggerKind int

const (
	triggerPrePrime triggerKind = iota
	triggerNotify
)

func (k triggerKind) String() string {
	if k == triggerPrePrime {
		return "preprime"
	}
	return "notify"
}

// Scheduler fires the pre-prime trigger once per calendar day at a fixed
// wall-clock time in the reference zone, then the notify trigger at a
// later wall-clock time the same day. It never fires for an instant that
// has already passed: a process that was down over a trigger waits for
// the next future one. The configured gap between the triggers is an
// allowance for the prime batch, not a barrier; the notify trigger fires
// whether or not priming finished.
type Scheduler struct {
	log      *zap.Logger
	jobs     Jobs
	loc      *time.Location
	primeAt  domain.WallClock
	notifyAt domain.WallClock
	now      func() time.Time
}

func New(jobs Jobs, log *zap.Logger, loc *time.Location, primeAt, notifyAt domain.WallClock) *Scheduler {
	return &Scheduler{
		log:      log,
		jobs:     jobs,
		loc:      loc,
		primeAt:  primeAt,
		notifyAt: notifyAt,
		now:      time.Now,
	}
}

// nextTrigger returns the earliest future trigger after now.
func (s *Scheduler) nextTrigger(now time.Time) (triggerKind, time.Time) {
	prime := domain.NextOccurrence(now, s.primeAt, s.loc)
	notify := domain.NextOccurrence(now, s.notifyAt, s.loc)
	if notify.Before(prime) {
		return triggerNotify, notify
	}
	return triggerPrePrime, prime
}

// Run fires triggers until ctx is cancelled. Each trigger runs its job in
// a goroutine so a long batch never delays the next trigger computation.
func (s *Scheduler) Run(ctx context.Context) {
	// after advances to each fired instant so a timer that wakes
	// marginally early cannot re-select the same trigger.
	after := s.now()
	for {
		kind, at := s.nextTrigger(after)
		s.log.Info("next trigger scheduled",
			zap.String("trigger", kind.String()),
			zap.Time("at", at),
		)

		timer := time.NewTimer(at.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopping")
			return
		case <-timer.C:
		}

		day := domain.DayOf(at, s.loc)
		go s.fire(ctx, kind, day)

		after = at
		if now := s.now(); now.After(after) {
			after = now
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, kind triggerKind, day domain.Day) {
	var err error
	switch kind {
	case triggerPrePrime:
		err = s.jobs.PrePrime(ctx, day)
	case triggerNotify:
		err = s.jobs.Dispatch(ctx, day)
	}
	if err != nil {
		// run-level failure: this day's phase is lost, the next trigger
		// proceeds independently
		s.log.Error("trigger run failed",
			zap.String("trigger", kind.String()),
			zap.String("day", string(day)),
			zap.Error(err),
		)
	}
}
