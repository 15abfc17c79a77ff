package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/directory"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/push"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/store"
)

const defaultPageSize = 500

// Dispatcher is the second daily phase: it pushes a notification for
// every primed record of the day and marks it sent. A record is sent at
// most once, ever: overlapping runs are fenced by an in-process in-flight
// set plus the store's conditional primed → sent transition.
type Dispatcher struct {
	repo        store.Repo
	dir         directory.Directory
	sender      push.Sender
	log         *zap.Logger
	workers     int
	callTimeout time.Duration
	pageSize    int
	now         func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{} // user/day keys currently being dispatched
}

func NewDispatcher(repo store.Repo, dir directory.Directory, sender push.Sender,
	log *zap.Logger, workers int, callTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		dir:         dir,
		sender:      sender,
		log:         log,
		workers:     workers,
		callTimeout: callTimeout,
		pageSize:    defaultPageSize,
		now:         time.Now,
		inflight:    make(map[string]struct{}),
	}
}

// Run dispatches notifications for every primed record of day. Send
// failures leave the record primed for a later same-day run; records
// whose user became ineligible are skipped untouched. Store failures
// abort the run.
func (d *Dispatcher) Run(ctx context.Context, day domain.Day) (Summary, error) {
	runID := uuid.NewString()
	log := d.log.With(
		zap.String("run_id", runID),
		zap.String("phase", "dispatch"),
		zap.String("day", string(day)),
	)
	log.Info("dispatch run started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var fatalOnce sync.Once
	var fatalErr error
	fatal := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			cancel()
		})
	}

	var sum Summary
	cursor := ""
	for {
		page, err := d.repo.ListPrimed(runCtx, day, cursor, d.pageSize)
		if err != nil {
			log.Error("dispatch run aborted", append(sum.fields(), zap.Error(err))...)
			return sum, fmt.Errorf("list primed: %w", err)
		}
		if len(page) == 0 {
			break
		}
		cursor = page[len(page)-1].UserID

		pageSum := runPool(runCtx, d.workers, page, func(ctx context.Context, rec domain.ForecastRecord) outcome {
			return d.dispatchOne(ctx, log, rec, fatal)
		})
		sum.Processed += pageSum.Processed
		sum.Succeeded += pageSum.Succeeded
		sum.Skipped += pageSum.Skipped
		sum.Failed += pageSum.Failed

		if fatalErr != nil {
			log.Error("dispatch run aborted", append(sum.fields(), zap.Error(fatalErr))...)
			return sum, fatalErr
		}
		if len(page) < d.pageSize {
			break
		}
	}

	log.Info("dispatch run finished", sum.fields()...)
	return sum, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, log *zap.Logger,
	rec domain.ForecastRecord, fatal func(error)) outcome {
	if ctx.Err() != nil {
		return outcomeSkipped
	}

	key := rec.UserID + "/" + string(rec.Day)
	if !d.claim(key) {
		// another run is on this record right now
		return outcomeSkipped
	}
	defer d.release(key)

	// Re-read state under the claim: the record may have been sent by a
	// run that finished between our candidate scan and this moment.
	fresh, err := d.repo.Get(ctx, rec.UserID, rec.Day)
	if errors.Is(err, store.ErrNotFound) {
		return outcomeSkipped
	}
	if err != nil {
		fatal(fmt.Errorf("get forecast for %s: %w", rec.UserID, err))
		return outcomeFailed
	}
	if fresh.State != domain.StatePrimed {
		return outcomeSkipped
	}

	// Token and enabled flag may have changed since pre-priming.
	callCtx, cancelCall := context.WithTimeout(ctx, d.callTimeout)
	user, err := d.dir.GetUser(callCtx, rec.UserID)
	cancelCall()
	if errors.Is(err, directory.ErrNotFound) {
		return outcomeSkipped
	}
	if err != nil {
		log.Error("user lookup failed",
			zap.String("user_id", rec.UserID),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err),
		)
		return outcomeFailed
	}
	if user.PushToken == "" || !user.NotificationsEnabled {
		return outcomeSkipped
	}

	msg := MessageFromContent(fresh.Content)
	callCtx, cancelCall = context.WithTimeout(ctx, d.callTimeout)
	err = d.sender.Send(callCtx, user.PushToken, msg)
	cancelCall()
	if err != nil {
		// stays primed; a later same-day run retries it
		log.Error("send failed",
			zap.String("user_id", rec.UserID),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err),
		)
		return outcomeFailed
	}

	ok, err := d.repo.MarkSent(ctx, rec.UserID, rec.Day, d.now())
	if err != nil {
		fatal(fmt.Errorf("mark sent for %s: %w", rec.UserID, err))
		return outcomeFailed
	}
	if !ok {
		// compare-and-set lost: someone else transitioned it first
		log.Warn("sent transition lost race", zap.String("user_id", rec.UserID))
		return outcomeSkipped
	}
	return outcomeSucceeded
}

func (d *Dispatcher) claim(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, held := d.inflight[key]; held {
		return false
	}
	d.inflight[key] = struct{}{}
	return true
}

func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()
}
