package run

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"iiifdl/pkg/engine"
	"iiifdl/pkg/logger"
)

// Downloader is the engine surface the harness drives.
type Downloader interface {
	Run(ctx context.Context) (engine.Statistics, error)
	RunOne(ctx context.Context, index int) (engine.Statistics, error)
	Events() <-chan engine.Event
	Stats() engine.Statistics
}

// Consumer renders an engine's event stream until it closes. Both the
// plain renderer and the full-screen interface satisfy it.
type Consumer interface {
	Consume(events <-chan engine.Event) error
}

// Options configures a single run.
type Options struct {
	Engine   Downloader
	Consumer Consumer

	// Canvas selects single-canvas mode when positive (1-based).
	Canvas int

	// MetricsAddr serves MetricsHandler for the duration of the run
	// when both are set.
	MetricsAddr    string
	MetricsHandler http.Handler

	Logger logger.Logger
}

// Runner drives one engine run together with its event consumer.
type Runner struct {
	opts Options
	log  logger.Logger
}

// New creates a Runner. A nil Logger falls back to a no-op one.
func New(opts Options) *Runner {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Runner{opts: opts, log: log}
}

// Run executes the engine and the consumer until both finish and
// returns the run's final statistics. SIGINT and SIGTERM cancel the
// run; the engine aborts after the canvas in flight and the consumer
// drains the closing stream.
func (r *Runner) Run(ctx context.Context) (engine.Statistics, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopMetrics := r.serveMetrics()
	defer stopMetrics()

	// Subscribe before the engine starts so no event is missed.
	events := r.opts.Engine.Events()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if r.opts.Canvas > 0 {
			_, err = r.opts.Engine.RunOne(ctx, r.opts.Canvas)
		} else {
			_, err = r.opts.Engine.Run(ctx)
		}
		return err
	})
	g.Go(func() error {
		return r.opts.Consumer.Consume(events)
	})

	err := g.Wait()
	return r.opts.Engine.Stats(), err
}

// serveMetrics starts the prometheus listener when configured and
// returns a function that shuts it down.
func (r *Runner) serveMetrics() func() {
	if r.opts.MetricsAddr == "" || r.opts.MetricsHandler == nil {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.opts.MetricsHandler)
	server := &http.Server{
		Addr:    r.opts.MetricsAddr,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.WithError(err).Error("metrics server failed")
		}
	}()
	r.log.WithField("addr", r.opts.MetricsAddr).Info("metrics server listening")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			r.log.WithError(err).Warn("metrics server shutdown failed")
		}
	}
}

// ExitCode maps a finished run to the process exit status. Run errors
// (setup failures, aborts) exit non-zero, as does a run where every
// attempted canvas failed and nothing was downloaded or kept.
func ExitCode(stats engine.Statistics, err error) int {
	if err != nil {
		return 1
	}
	if stats.AllFailed() {
		return 1
	}
	return 0
}
