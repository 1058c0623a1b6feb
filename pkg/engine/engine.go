package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	errs "iiifdl/pkg/errors"
	"iiifdl/pkg/iiif"
	"iiifdl/pkg/logger"
	"iiifdl/pkg/metrics"
	"iiifdl/pkg/ratelimit"
	"iiifdl/pkg/retry"
	"iiifdl/pkg/tracker"
	"iiifdl/pkg/transfer"
)

// State is the engine's run-level phase
type State int

const (
	// StateInitializing covers construction through lock acquisition
	StateInitializing State = iota
	// StateIterating means canvases are being settled in manifest order
	StateIterating
	// StateCompleted means every canvas was settled
	StateCompleted
	// StateAborted means the run stopped early
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateIterating:
		return "iterating"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Config holds the engine's run options
type Config struct {
	// Resume skips canvases the tracker already has on disk. When false
	// a full run clears the ledger and fetches everything again.
	Resume bool

	// EventBuffer is the event channel capacity (default 64)
	EventBuffer int
}

// Sleeper pauses between requests and returns early when the context
// is done. The default is retry.Wait.
type Sleeper func(ctx context.Context, d time.Duration) error

// Engine walks a manifest's canvases in order and settles each one as
// skipped, migrated, downloaded or failed. One Engine drives one run;
// per-canvas failures are collected while setup errors and
// cancellation end the run.
type Engine struct {
	manifest *iiif.Manifest
	fetcher  CanvasFetcher
	tracker  CompletionTracker
	limiter  ratelimit.Limiter
	cfg      Config
	logger   logger.Logger
	metrics  *metrics.Metrics
	fs       afero.Fs
	sleep    Sleeper

	runID        string
	state        State
	stats        Statistics
	events       chan Event
	current      int
	ledgerWarned bool
}

// New creates an engine over the local filesystem
func New(manifest *iiif.Manifest, fetcher CanvasFetcher, tr CompletionTracker, limiter ratelimit.Limiter, cfg Config, log logger.Logger) *Engine {
	return NewWithFS(afero.NewOsFs(), manifest, fetcher, tr, limiter, cfg, log)
}

// NewWithFS creates an engine using the given filesystem for the run
// lock
func NewWithFS(fs afero.Fs, manifest *iiif.Manifest, fetcher CanvasFetcher, tr CompletionTracker, limiter ratelimit.Limiter, cfg Config, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.NewFixedDelay(0)
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	return &Engine{
		manifest: manifest,
		fetcher:  fetcher,
		tracker:  tr,
		limiter:  limiter,
		cfg:      cfg,
		logger:   log,
		fs:       fs,
		sleep:    retry.Wait,
		runID:    uuid.NewString(),
	}
}

// SetMetrics attaches a metrics registry. Optional; a nil registry is
// tolerated everywhere.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// RunID identifies this run in logs and the lock file
func (e *Engine) RunID() string {
	return e.runID
}

// State reports the engine's run-level phase
func (e *Engine) State() State {
	return e.state
}

// Stats returns a copy of the statistics. Final once Run has returned;
// mid-run readers should use the snapshots attached to events.
func (e *Engine) Stats() Statistics {
	return e.stats.Snapshot()
}

// Events returns the run's event stream. Subscribe before calling Run;
// the channel is closed when the run finishes. Without a subscriber
// events are discarded.
func (e *Engine) Events() <-chan Event {
	if e.events == nil {
		e.events = make(chan Event, e.cfg.EventBuffer)
	}
	return e.events
}

// ProgressFunc returns a callback for transfer.Transferrer.OnProgress
// that turns chunk progress into events for the canvas being fetched
func (e *Engine) ProgressFunc() transfer.ProgressFunc {
	return func(received, total int64, source transfer.SizeSource) {
		e.emit(Event{Type: EventProgress, Canvas: e.current, Received: received, Total: total, Source: source})
	}
}

// Run processes every canvas in manifest order
func (e *Engine) Run(ctx context.Context) (Statistics, error) {
	return e.run(ctx, 0)
}

// RunOne processes the single canvas at the given 1-based index. The
// index is validated against the manifest before any request is made.
func (e *Engine) RunOne(ctx context.Context, index int) (Statistics, error) {
	if count := e.manifest.CanvasCount(); index < 1 || index > count {
		err := errs.NewOutOfRange(index, count)
		now := time.Now()
		e.state = StateAborted
		e.stats.Total = count
		e.stats.StartedAt = now
		e.stats.FinishedAt = now
		e.emit(Event{Type: EventRunAborted, Message: err.Error()})
		e.closeEvents()
		return e.stats, err
	}
	return e.run(ctx, index)
}

func (e *Engine) run(ctx context.Context, only int) (Statistics, error) {
	defer e.closeEvents()

	e.stats.Total = e.manifest.CanvasCount()
	e.stats.StartedAt = time.Now()

	release, err := acquireLock(e.fs, e.tracker.Dir(), e.runID)
	if err != nil {
		e.state = StateAborted
		e.stats.FinishedAt = time.Now()
		e.emit(Event{Type: EventRunAborted, Message: err.Error()})
		return e.stats, err
	}
	defer release()

	// A fresh full run starts from a clean ledger. Single-canvas mode
	// leaves the ledger alone so one re-download cannot discard the
	// resume state of every other canvas.
	if only == 0 && !e.cfg.Resume {
		if err := e.tracker.Reset(); err != nil {
			e.warnLedger(err)
		}
	}

	e.state = StateIterating
	e.emit(Event{Type: EventRunStarted})
	e.logger.WithFields(map[string]interface{}{
		"manifest": e.manifest.Source,
		"canvases": e.stats.Total,
		"resume":   e.cfg.Resume,
		"run_id":   e.runID,
	}).Info("run started")

	for _, canvas := range e.manifest.Canvases {
		if only > 0 && canvas.Index != only {
			continue
		}
		if ctx.Err() != nil {
			return e.abort(ctx.Err())
		}
		if err := e.processCanvas(ctx, canvas); err != nil {
			return e.abort(err)
		}
	}

	e.state = StateCompleted
	e.stats.FinishedAt = time.Now()
	e.emit(Event{Type: EventRunCompleted})
	e.logger.WithFields(map[string]interface{}{
		"downloaded": e.stats.Downloaded,
		"skipped":    e.stats.Skipped,
		"failed":     e.stats.Failed,
		"migrated":   e.stats.Migrated,
		"bytes":      e.stats.BytesDownloaded,
		"duration":   e.stats.Duration().String(),
	}).Info("run completed")
	return e.stats, nil
}

// processCanvas settles one canvas. The returned error is non-nil only
// when the run must stop; per-canvas failures are recorded and
// swallowed.
func (e *Engine) processCanvas(ctx context.Context, canvas iiif.Canvas) error {
	e.current = canvas.Index
	e.emit(Event{Type: EventCanvasStarted, Canvas: canvas.Index, Label: canvas.Label})

	if e.cfg.Resume && e.tracker.Detect(canvas.Index, canvas.Label) != tracker.Missing {
		filename, migrated, err := e.tracker.MigrateIfNeeded(canvas.Index, canvas.Label)
		if err != nil {
			e.fail(canvas, err)
			return nil
		}
		if migrated {
			e.stats.Migrated++
			e.metrics.IncCanvas("migrated")
			e.emit(Event{Type: EventMigrated, Canvas: canvas.Index, Label: canvas.Label, Filename: filename})
		}
		e.stats.Skipped++
		e.metrics.IncCanvas("skipped")
		e.emit(Event{Type: EventSkipped, Canvas: canvas.Index, Label: canvas.Label, Filename: filename})
		e.logger.WithFields(map[string]interface{}{
			"canvas":   canvas.Index,
			"filename": filename,
		}).Debug("canvas already complete")
		return nil
	}

	return e.fetchCanvas(ctx, canvas)
}

// fetchCanvas waits out the limiter's delay, downloads the canvas
// image and records completion
func (e *Engine) fetchCanvas(ctx context.Context, canvas iiif.Canvas) error {
	delay := e.limiter.NextDelay()
	e.metrics.SetRateDelay(delay)
	if err := e.sleep(ctx, delay); err != nil {
		return err
	}

	name := tracker.FilenameFor(canvas.Index, canvas.Label, tracker.DefaultExtension)
	target := filepath.Join(e.tracker.Dir(), name)

	start := time.Now()
	res, err := e.fetcher.Fetch(ctx, canvas, target)
	if res.Attempts > 1 {
		e.metrics.AddRetries(res.Attempts - 1)
	}
	if err != nil {
		if errs.IsType(err, errs.ErrorTypeCanceled) {
			return err
		}
		e.fail(canvas, err)
		return nil
	}

	filename := filepath.Base(res.Path)
	if rerr := e.tracker.RecordComplete(canvas.Index, filename, res.BytesWritten); rerr != nil {
		e.warnLedger(rerr)
	}

	e.stats.Downloaded++
	e.stats.BytesDownloaded += res.BytesWritten
	e.metrics.IncCanvas("downloaded")
	e.metrics.AddBytes(res.BytesWritten)
	e.metrics.ObserveTransfer(time.Since(start))
	e.emit(Event{Type: EventDownloaded, Canvas: canvas.Index, Label: canvas.Label, Filename: filename, Received: res.BytesWritten})
	e.logger.WithFields(map[string]interface{}{
		"canvas":   canvas.Index,
		"filename": filename,
		"bytes":    res.BytesWritten,
		"attempts": res.Attempts,
		"duration": time.Since(start).String(),
	}).Debug("canvas downloaded")
	return nil
}

// fail records a per-canvas failure; the run moves on
func (e *Engine) fail(canvas iiif.Canvas, cause error) {
	e.stats.Failed++
	e.stats.Failures = append(e.stats.Failures, Failure{Index: canvas.Index, Reason: cause.Error()})
	e.metrics.IncCanvas("failed")
	e.emit(Event{Type: EventFailed, Canvas: canvas.Index, Label: canvas.Label, Message: cause.Error()})
	e.logger.WithFields(map[string]interface{}{
		"canvas": canvas.Index,
		"error":  cause.Error(),
	}).Error("canvas failed")
}

// abort finalizes the run after a cancellation or mid-run fatal error
func (e *Engine) abort(cause error) (Statistics, error) {
	e.state = StateAborted
	e.stats.FinishedAt = time.Now()
	e.emit(Event{Type: EventRunAborted, Message: cause.Error()})
	e.logger.WithFields(map[string]interface{}{
		"reason":    cause.Error(),
		"processed": e.stats.Processed(),
	}).Warn("run aborted")
	if errs.TypeOf(cause) == errs.ErrorTypeUnknown {
		cause = errs.Wrap(cause, errs.ErrorTypeCanceled, "run canceled")
	}
	return e.stats, cause
}

// warnLedger surfaces ledger degradation once; completed work is still
// tracked in memory for the rest of the run
func (e *Engine) warnLedger(cause error) {
	if e.ledgerWarned {
		return
	}
	e.ledgerWarned = true
	e.emit(Event{Type: EventWarning, Message: "resume state cannot be saved; progress will not survive an interruption"})
	e.logger.WithError(cause).Warn("resume ledger unavailable")
}

// emit attaches a statistics snapshot and delivers the event. Progress
// is dropped when the buffer is full; everything else blocks until the
// consumer takes it.
func (e *Engine) emit(ev Event) {
	if e.events == nil {
		return
	}
	ev.Stats = e.stats.Snapshot()
	if ev.Type == EventProgress {
		select {
		case e.events <- ev:
		default:
		}
		return
	}
	e.events <- ev
}

func (e *Engine) closeEvents() {
	if e.events != nil {
		close(e.events)
		e.events = nil
	}
}
