package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/directory"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/store"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/weather"
)

// PrePrimer is the first daily phase: it computes forecast content for
// every eligible user and stores it primed, ahead of the notify trigger,
// so dispatch does not depend on the generator being up.
type PrePrimer struct {
	dir          directory.Directory
	gen          weather.Generator
	repo         store.Repo
	log          *zap.Logger
	workers      int
	callTimeout  time.Duration
	activeWithin time.Duration
	now          func() time.Time
}

func NewPrePrimer(dir directory.Directory, gen weather.Generator, repo store.Repo,
	log *zap.Logger, workers int, callTimeout, activeWithin time.Duration) *PrePrimer {
	return &PrePrimer{
		dir:          dir,
		gen:          gen,
		repo:         repo,
		log:          log,
		workers:      workers,
		callTimeout:  callTimeout,
		activeWithin: activeWithin,
		now:          time.Now,
	}
}

// Run primes forecast records for day. Per-user failures are logged,
// counted, and isolated; a directory or store failure aborts the run and
// is returned alongside whatever the Summary accumulated before the
// abort. Re-running for the same day upserts in place and never regresses
// delivery state.
func (p *PrePrimer) Run(ctx context.Context, day domain.Day) (Summary, error) {
	runID := uuid.NewString()
	log := p.log.With(
		zap.String("run_id", runID),
		zap.String("phase", "preprime"),
		zap.String("day", string(day)),
	)

	asOf := p.now()
	users, err := p.dir.ListEligibleUsers(ctx, asOf)
	if err != nil {
		log.Error("list eligible users failed", zap.Error(err))
		return Summary{}, fmt.Errorf("list eligible users: %w", err)
	}
	log.Info("preprime run started", zap.Int("eligible", len(users)))

	// First store failure cancels the batch; no further per-user writes
	// are attempted once the store is known bad.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var fatalOnce sync.Once
	var fatalErr error

	sum := runPool(runCtx, p.workers, users, func(ctx context.Context, u domain.User) outcome {
		return p.primeOne(ctx, log, day, asOf, u, func(err error) {
			fatalOnce.Do(func() {
				fatalErr = err
				cancel()
			})
		})
	})

	if fatalErr != nil {
		log.Error("preprime run aborted", append(sum.fields(), zap.Error(fatalErr))...)
		return sum, fatalErr
	}
	log.Info("preprime run finished", sum.fields()...)
	return sum, nil
}

func (p *PrePrimer) primeOne(ctx context.Context, log *zap.Logger, day domain.Day,
	asOf time.Time, u domain.User, fatal func(error)) outcome {
	if ctx.Err() != nil {
		return outcomeSkipped
	}
	// The directory filtered already, but eligibility can lapse between
	// selection and generation; lapsed users are skipped, not errored.
	if !u.EligibleAt(asOf, p.activeWithin) {
		return outcomeSkipped
	}

	callCtx, cancelCall := context.WithTimeout(ctx, p.callTimeout)
	bundle, err := p.gen.Generate(callCtx, *u.Location, u.Profile)
	cancelCall()
	if err != nil {
		log.Error("generate failed",
			zap.String("user_id", u.ID),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err),
		)
		return outcomeFailed
	}

	rec := &domain.ForecastRecord{
		UserID:  u.ID,
		Day:     day,
		Weather: bundle.Weather,
		Content: bundle.Content,
		State:   domain.StatePrimed,
	}
	if err := p.repo.UpsertPrimed(ctx, rec); err != nil {
		fatal(fmt.Errorf("upsert forecast for %s: %w", u.ID, err))
		return outcomeFailed
	}
	return outcomeSucceeded
}
