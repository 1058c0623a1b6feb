// Package engine orchestrates a manifest download run.
//
// The Engine walks the manifest's canvases in order and settles each
// one exactly once per run: already-complete canvases are skipped
// (migrating legacy filenames on the way), the rest are fetched through
// the transfer layer with the rate limiter's pacing between requests.
// Per-canvas failures are collected into the run statistics; only setup
// errors and cancellation end a run early.
//
// Architecture:
//
// The Engine is the single writer of Statistics and the single decider
// of what is run-fatal. Collaborators are injected at construction:
//   - CanvasFetcher downloads one canvas image (see pkg/transfer)
//   - CompletionTracker answers "is this canvas done" and records
//     completions (see pkg/tracker)
//   - ratelimit.Limiter supplies the pause before each request
//
// Presentation layers never touch engine internals; they consume the
// event stream, where every event carries a statistics snapshot.
//
// Usage:
//
//	eng := engine.New(manifest, transferrer, tr, limiter,
//	    engine.Config{Resume: true}, log)
//	events := eng.Events()
//	go func() {
//	    for ev := range events {
//	        fmt.Println(ev.Type, ev.Filename)
//	    }
//	}()
//	stats, err := eng.Run(ctx)
//
// Exclusivity:
//
// A run claims its output directory by creating .iiifdl.lock before the
// first request and removing it on exit. A second run against the same
// directory fails fast with a setup error instead of interleaving
// writes with the first.
package engine
