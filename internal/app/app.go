package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/config"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/directory"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/domain"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/metrics"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/pipeline"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/push"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/scheduler"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/store"
	"github.com/SpecGeniusAI/FlareWeather-sub002/internal/weather"
)

type App struct {
	cfg     config.Config
	sched   config.Schedule
	log     *zap.Logger
	metrics *metrics.Metrics
	httpSrv *http.Server
	repo    store.Repo
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sched, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, sched: sched, log: log, metrics: m, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting flareweather pipeline",
		zap.String("mode", a.cfg.RunMode),
		zap.String("tz", a.cfg.ReferenceTZ),
		zap.String("preprime_at", a.cfg.PrePrimeAt),
		zap.String("notify_at", a.cfg.NotifyAt),
		zap.String("http", a.cfg.HTTPAddr),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	dir := directory.NewClient(a.cfg.DirectoryBaseURL, a.cfg.CallTimeout, a.cfg.ActiveWithin)
	gen := weather.NewClient(a.cfg.WeatherBaseURL, a.cfg.CallTimeout, a.cfg.WeatherRPS)
	sender := push.NewClient(a.cfg.PushBaseURL, a.cfg.PushAPIKey, a.cfg.CallTimeout, a.cfg.PushRPS)

	jobs := &jobRunner{
		pre: pipeline.NewPrePrimer(dir, gen, repo, a.log,
			a.cfg.Workers, a.cfg.CallTimeout, a.cfg.ActiveWithin),
		disp: pipeline.NewDispatcher(repo, dir, sender, a.log,
			a.cfg.Workers, a.cfg.CallTimeout),
		metrics: a.metrics,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// one-shot modes run the phase for the current day and exit; this is
	// the manual same-day retry path
	switch a.cfg.RunMode {
	case "preprime":
		defer func() { _ = a.repo.Close() }()
		return jobs.PrePrime(ctx, domain.DayOf(time.Now(), a.sched.Loc))
	case "dispatch":
		defer func() { _ = a.repo.Close() }()
		return jobs.Dispatch(ctx, domain.DayOf(time.Now(), a.sched.Loc))
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	sched := scheduler.New(jobs, a.log, a.sched.Loc, a.sched.PrePrimeAt, a.sched.NotifyAt)
	sched.Run(ctx)

	a.log.Info("shutdown signal received")
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
	return nil
}

// jobRunner adapts the two pipeline phases to the scheduler's Jobs
// interface and records the operational summary of each run.
type jobRunner struct {
	pre     *pipeline.PrePrimer
	disp    *pipeline.Dispatcher
	metrics *metrics.Metrics
}

func (j *jobRunner) PrePrime(ctx context.Context, day domain.Day) error {
	start := time.Now()
	sum, err := j.pre.Run(ctx, day)
	j.metrics.ObserveRun("preprime", sum.Succeeded, sum.Skipped, sum.Failed, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("preprime %s: %w", day, err)
	}
	return nil
}

func (j *jobRunner) Dispatch(ctx context.Context, day domain.Day) error {
	start := time.Now()
	sum, err := j.disp.Run(ctx, day)
	j.metrics.ObserveRun("dispatch", sum.Succeeded, sum.Skipped, sum.Failed, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", day, err)
	}
	return nil
}
