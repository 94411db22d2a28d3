package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/KaranOps/ContextCut/internal/catalog"
)

func skipWithoutDB(t *testing.T) string {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	return url
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	url := skipWithoutDB(t)
	ctx := context.Background()
	s, err := New(ctx, url)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIntegration_RunLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	runID := "int-run-" + time.Now().Format("20060102150405")

	if err := s.CreateRun(ctx, runID); err != nil {
		t.Fatalf("create run: %v", err)
	}

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != RunPending {
		t.Errorf("expected pending, got %s", run.Status)
	}

	if err := s.SetRunStep(ctx, runID, "retrieving_candidates"); err != nil {
		t.Fatalf("set step: %v", err)
	}
	run, _ = s.GetRun(ctx, runID)
	if run.Status != RunProcessing || run.Step != "retrieving_candidates" {
		t.Errorf("expected processing/retrieving_candidates, got %s/%s", run.Status, run.Step)
	}

	result := json.RawMessage(`{"timeline": []}`)
	if err := s.CompleteRun(ctx, runID, result); err != nil {
		t.Fatalf("complete run: %v", err)
	}
	run, _ = s.GetRun(ctx, runID)
	if run.Status != RunCompleted {
		t.Errorf("expected completed, got %s", run.Status)
	}
	if string(run.Result) != string(result) {
		t.Errorf("result mismatch: %s", run.Result)
	}

	s.pool.Exec(ctx, "DELETE FROM generation_runs WHERE run_id = $1", runID)
}

func TestIntegration_FailRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	runID := "int-fail-" + time.Now().Format("20060102150405")

	if err := s.CreateRun(ctx, runID); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := s.FailRun(ctx, runID, "director call failed"); err != nil {
		t.Fatalf("fail run: %v", err)
	}

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != RunFailed {
		t.Errorf("expected failed, got %s", run.Status)
	}
	if run.Error == nil || *run.Error != "director call failed" {
		t.Errorf("expected failure reason, got %v", run.Error)
	}

	s.pool.Exec(ctx, "DELETE FROM generation_runs WHERE run_id = $1", runID)
}

func TestIntegration_GetRunNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetRun(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_CatalogRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	clipID := "int-clip-" + time.Now().Format("150405")
	cat := catalog.Catalog{
		clipID: {{Description: "A chef cooking pasta", Category: "food", SearchTags: []string{"cooking"}}},
	}

	if err := s.UpsertCatalog(ctx, cat); err != nil {
		t.Fatalf("upsert catalog: %v", err)
	}

	loaded, err := s.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	entries, ok := loaded[clipID]
	if !ok || len(entries) != 1 {
		t.Fatalf("expected 1 entry for %s, got %v", clipID, entries)
	}
	if entries[0].Description != "A chef cooking pasta" {
		t.Errorf("unexpected description: %s", entries[0].Description)
	}

	// Replacing entries for the same clip must overwrite, not append.
	cat[clipID] = []catalog.Entry{{Description: "Updated shot"}}
	if err := s.UpsertCatalog(ctx, cat); err != nil {
		t.Fatalf("re-upsert catalog: %v", err)
	}
	loaded, _ = s.LoadCatalog(ctx)
	if len(loaded[clipID]) != 1 || loaded[clipID][0].Description != "Updated shot" {
		t.Errorf("expected replaced entries, got %v", loaded[clipID])
	}

	s.pool.Exec(ctx, "DELETE FROM broll_catalog WHERE clip_id = $1", clipID)
}

func TestIntegration_MediaRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id := "int-media-" + time.Now().Format("150405")
	m := Media{
		ID:          id,
		Filename:    "aroll.mp4",
		Kind:        "a_roll",
		DurationSec: 42.5,
		StoragePath: "/media/aroll.mp4",
	}
	if err := s.UpsertMedia(ctx, m); err != nil {
		t.Fatalf("upsert media: %v", err)
	}

	list, err := s.ListMedia(ctx)
	if err != nil {
		t.Fatalf("list media: %v", err)
	}
	found := false
	for _, got := range list {
		if got.ID == id {
			found = true
			if got.DurationSec != 42.5 || got.Kind != "a_roll" {
				t.Errorf("unexpected media row: %+v", got)
			}
		}
	}
	if !found {
		t.Errorf("media %s not returned by ListMedia", id)
	}

	s.pool.Exec(ctx, "DELETE FROM media WHERE id = $1", id)
}
