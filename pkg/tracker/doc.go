// Package tracker maintains the on-disk resume ledger for an output
// directory: which canvases are already materialized, under which
// filename scheme, and at what size.
//
// This package includes:
//   - The filename derivation policy (hybrid index+label names, plain
//     indexed names for unlabeled canvases, label sanitization)
//   - Recognition and migration of legacy plain-named files for
//     canvases that have since gained a label
//   - Atomic persistence of the resume ledger (temp file + rename),
//     forward-readable across format extensions
//   - Adoption of scheme-conforming files found on disk when the
//     ledger is missing or unreadable
//
// Detection is a pure query; migration is an explicit separate step:
//
//	switch t.Detect(canvas.Index, canvas.Label) {
//	case tracker.LegacyScheme:
//	    name, _, err := t.MigrateIfNeeded(canvas.Index, canvas.Label)
//	    // treat as already complete under name
//	case tracker.CurrentScheme:
//	    // already complete
//	case tracker.Missing:
//	    // fetch, then t.RecordComplete(...)
//	}
//
// When ledger writes start failing the tracker degrades to in-memory
// tracking for the rest of the run; the next run rebuilds resume state
// from directory contents.
package tracker
