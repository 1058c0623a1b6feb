package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"iiifdl/pkg/tracker"
)

func TestSecondRunSkipsCompletedCanvases(t *testing.T) {
	srv := NewIIIFServer(testPages())
	defer srv.Close()
	dir := t.TempDir()

	first := buildStack(t, srv, dir, true, nil)
	stats, err := first.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if stats.Downloaded != 3 {
		t.Fatalf("first run downloaded = %d", stats.Downloaded)
	}

	second := buildStack(t, srv, dir, true, nil)
	stats, err = second.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if stats.Skipped != 3 || stats.Downloaded != 0 {
		t.Errorf("second run stats = %+v", stats)
	}
	for _, id := range []string{"page-1", "page-2", "page-3"} {
		if n := srv.ImageGETs(id); n != 1 {
			t.Errorf("%s fetched %d times across both runs, want 1", id, n)
		}
	}
}

func TestLegacyNamesMigrateOnResume(t *testing.T) {
	srv := NewIIIFServer(testPages())
	defer srv.Close()
	dir := t.TempDir()

	// A previous tool version left plain indexed names and no ledger
	for i, page := range testPages() {
		name := filepath.Join(dir, tracker.FilenameFor(i+1, "", "jpeg"))
		if err := os.WriteFile(name, page.Body, 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	st := buildStack(t, srv, dir, true, nil)
	stats, err := st.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if stats.Migrated != 3 || stats.Skipped != 3 || stats.Downloaded != 0 {
		t.Errorf("stats = %+v", stats)
	}

	assertFileSize(t, filepath.Join(dir, "canvas-001_f._1r.jpeg"), 4096)
	assertFileSize(t, filepath.Join(dir, "canvas-002_f._1v.jpeg"), 6144)
	assertFileSize(t, filepath.Join(dir, "canvas-003_f._2r.jpeg"), 2048)
	for i := 1; i <= 3; i++ {
		legacy := filepath.Join(dir, tracker.FilenameFor(i, "", "jpeg"))
		if _, err := os.Stat(legacy); err == nil {
			t.Errorf("legacy file %s still present after migration", legacy)
		}
	}

	for _, id := range []string{"page-1", "page-2", "page-3"} {
		if n := srv.ImageGETs(id); n != 0 {
			t.Errorf("%s fetched %d times, want 0", id, n)
		}
	}

	ledger, err := os.ReadFile(filepath.Join(dir, tracker.LedgerFilename))
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if !bytes.Contains(ledger, []byte("canvas-002_f._1v.jpeg")) {
		t.Errorf("ledger does not record the migrated name: %s", ledger)
	}
}

func TestResumeSurvivesLedgerLoss(t *testing.T) {
	srv := NewIIIFServer(testPages())
	defer srv.Close()
	dir := t.TempDir()

	first := buildStack(t, srv, dir, true, nil)
	if _, err := first.engine.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, tracker.LedgerFilename)); err != nil {
		t.Fatalf("remove ledger: %v", err)
	}

	second := buildStack(t, srv, dir, true, nil)
	stats, err := second.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	// Disk presence rebuilds the resume state
	if stats.Skipped != 3 || stats.Downloaded != 0 || stats.Migrated != 0 {
		t.Errorf("stats = %+v", stats)
	}
	for _, id := range []string{"page-1", "page-2", "page-3"} {
		if n := srv.ImageGETs(id); n != 1 {
			t.Errorf("%s fetched %d times across both runs, want 1", id, n)
		}
	}
}

func TestFullRunWithoutResumeRefetches(t *testing.T) {
	srv := NewIIIFServer(testPages())
	defer srv.Close()
	dir := t.TempDir()

	first := buildStack(t, srv, dir, true, nil)
	if _, err := first.engine.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second := buildStack(t, srv, dir, false, nil)
	stats, err := second.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if stats.Downloaded != 3 || stats.Skipped != 0 {
		t.Errorf("stats = %+v", stats)
	}
	for _, id := range []string{"page-1", "page-2", "page-3"} {
		if n := srv.ImageGETs(id); n != 2 {
			t.Errorf("%s fetched %d times across both runs, want 2", id, n)
		}
	}
}
