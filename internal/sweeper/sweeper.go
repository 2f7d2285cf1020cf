package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/catalog"
	"github.com/trogers1052/stock-sentiment-service/internal/metrics"
	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

const (
	sweepAnalysis  = "analysis"
	sweepRetention = "retention"

	stopTimeout = 2 * time.Minute
)

// Ingester runs ingestion for one symbol
type Ingester interface {
	Ingest(ctx context.Context, symbol, displayName string) ([]*models.SentimentRecord, error)
}

// Snapshotter computes the all-stocks snapshot
type Snapshotter interface {
	Snapshot(ctx context.Context) []models.StockSentiment
}

// Purger bulk-deletes stale records
type Purger interface {
	DeleteSentimentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Broadcaster delivers the post-sweep snapshot to subscribers
type Broadcaster interface {
	Broadcast(ctx context.Context, update models.SentimentUpdate) error
}

// Config holds the sweep schedule
type Config struct {
	Warmup            time.Duration
	Interval          time.Duration
	SymbolPause       time.Duration
	RetentionInterval time.Duration
	RetentionMaxAge   time.Duration
}

// Sweeper periodically ingests every tracked stock and purges stale records
type Sweeper struct {
	ingester    Ingester
	snapshotter Snapshotter
	purger      Purger
	broadcaster Broadcaster
	catalog     *catalog.Catalog
	cfg         Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	log   *zap.SugaredLogger

	cron         *cron.Cron
	analysisJob  cron.Job
	retentionJob cron.Job

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// Option configures a Sweeper
type Option func(*Sweeper)

// WithBroadcaster attaches the push collaborator
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Sweeper) {
		s.broadcaster = b
	}
}

// WithClock overrides the clock used for cutoffs and message timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

// WithSleep overrides the pause between symbols
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Sweeper) {
		s.sleep = sleep
	}
}

// New creates a sweeper over the given catalog
func New(cfg Config, cat *catalog.Catalog, ingester Ingester, snapshotter Snapshotter, purger Purger, log *zap.SugaredLogger, opts ...Option) *Sweeper {
	s := &Sweeper{
		ingester:    ingester,
		snapshotter: snapshotter,
		purger:      purger,
		catalog:     cat,
		cfg:         cfg,
		now:         time.Now,
		sleep:       sleepContext,
		log:         log.With("component", "sweeper"),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{log: s.log}
	chain := func(fn func()) cron.Job {
		return cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(fn))
	}
	s.analysisJob = chain(func() { s.runJob(sweepAnalysis, s.RunAnalysisSweep) })
	s.retentionJob = chain(func() {
		s.runJob(sweepRetention, func(ctx context.Context) error {
			_, err := s.RunRetentionSweep(ctx)
			return err
		})
	})
	s.cron = cron.New(cron.WithLogger(cl))
	return s
}

// Start schedules both sweeps. The first analysis sweep runs after the warm-up
// delay, the first retention sweep after one full retention interval.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("sweeper already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.cfg.Interval > 0 {
		s.cron.Schedule(cron.Every(s.cfg.Interval), s.analysisJob)
	}
	if s.cfg.RetentionInterval > 0 {
		s.cron.Schedule(cron.Every(s.cfg.RetentionInterval), s.retentionJob)
	}
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(s.cfg.Warmup)
		defer timer.Stop()
		select {
		case <-s.ctx.Done():
		case <-timer.C:
			s.analysisJob.Run()
		}
	}()

	s.started = true
	s.log.Infow("Sweeper started",
		"warmup", s.cfg.Warmup,
		"interval", s.cfg.Interval,
		"retention_interval", s.cfg.RetentionInterval,
		"symbols", s.catalog.Len(),
	)
	return nil
}

// Stop cancels in-flight sweeps and waits for them to return
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.New("sweeper not started")
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()

	s.log.Info("Stopping sweeper...")

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("Sweeper stopped")
		return nil
	case <-time.After(stopTimeout):
		s.log.Warn("Sweeper shutdown timed out")
		return fmt.Errorf("sweeper shutdown timed out after %s", stopTimeout)
	}
}

func (s *Sweeper) runJob(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := fn(ctx)
	metrics.RecordSweep(name, time.Since(start), err)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Errorw("Sweep failed", "sweep", name, "error", err, "duration", time.Since(start))
	}
}

// RunAnalysisSweep ingests every tracked stock in catalog order, pausing
// between symbols, then broadcasts the snapshot when a broadcaster is attached.
// Per-symbol failures are logged and skipped.
func (s *Sweeper) RunAnalysisSweep(ctx context.Context) error {
	stocks := s.catalog.Stocks()
	s.log.Infow("Analysis sweep started", "symbols", len(stocks))

	created := 0
	for i, stock := range stocks {
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.SymbolPause); err != nil {
				s.log.Infow("Analysis sweep interrupted", "completed", i, "symbols", len(stocks))
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		records, err := s.ingester.Ingest(ctx, stock.Symbol, stock.Name)
		if err != nil {
			s.log.Warnw("Ingestion failed", "symbol", stock.Symbol, "error", err)
			continue
		}
		created += len(records)
	}

	s.log.Infow("Analysis sweep complete", "symbols", len(stocks), "created", created)

	if s.broadcaster == nil {
		return nil
	}
	update := models.NewSentimentUpdate(s.snapshotter.Snapshot(ctx), s.now())
	if err := s.broadcaster.Broadcast(ctx, update); err != nil {
		s.log.Warnw("Failed to broadcast sentiment update", "error", err)
	}
	return nil
}

// RunRetentionSweep deletes every record older than the retention age
func (s *Sweeper) RunRetentionSweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.RetentionMaxAge)
	n, err := s.purger.DeleteSentimentBefore(ctx, cutoff)
	if err != nil {
		return 0, &models.PersistenceError{Op: "purge stale sentiment", Err: err}
	}

	metrics.RecordsPurged.Add(float64(n))
	s.log.Infow("Retention sweep complete", "deleted", n, "cutoff", cutoff)
	return n, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
