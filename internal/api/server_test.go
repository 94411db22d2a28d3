package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/KaranOps/ContextCut/internal/catalog"
	"github.com/KaranOps/ContextCut/internal/store"
	"github.com/KaranOps/ContextCut/internal/testutil"
	"github.com/KaranOps/ContextCut/internal/timeline"
)

type fakeRunner struct {
	mu     sync.Mutex
	result timeline.Timeline
	err    error
	calls  int
	gotCat catalog.Catalog
}

func (f *fakeRunner) Run(ctx context.Context, segments []timeline.NarrationSegment, cat catalog.Catalog) (timeline.Timeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotCat = cat
	if f.err != nil {
		return timeline.Timeline{}, f.err
	}
	return f.result, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeNotifier) PublishRunEvent(subject, runID string, detail map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakeNotifier) Close() {}

func (f *fakeNotifier) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subjects...)
}

func newTestServer(t *testing.T, runner *fakeRunner) (*Server, *testutil.MockStore, *fakeNotifier) {
	t.Helper()
	ms := testutil.NewMockStore()
	fn := &fakeNotifier{}
	srv := NewServer(ms, runner, fn, nil, 0)
	return srv, ms, fn
}

// waitForRunDone polls until the run leaves the pending/processing
// states or the deadline expires.
func waitForRunDone(t *testing.T, ms *testutil.MockStore, runID string) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		status := ms.RunStatus(runID)
		if status == store.RunCompleted || status == store.RunFailed {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish in time, status %q", runID, ms.RunStatus(runID))
	return ""
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["service"] != "contextcut" {
		t.Errorf("unexpected service name: %v", body["service"])
	}
}

func TestUploadCatalogMergesAndPersists(t *testing.T) {
	srv, ms, _ := newTestServer(t, &fakeRunner{})

	payload := `{"clip_a": {"description": "A chef cooking pasta"}, "clip_b": [{"description": "A dog in the park"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["merged_clips"] != float64(2) {
		t.Errorf("expected 2 merged clips, got %v", body["merged_clips"])
	}

	if len(ms.Catalog) != 2 {
		t.Errorf("expected catalog persisted with 2 clips, got %d", len(ms.Catalog))
	}
	if ms.Catalog["clip_a"][0].Description != "A chef cooking pasta" {
		t.Errorf("unexpected persisted entry: %+v", ms.Catalog["clip_a"])
	}
}

func TestUploadCatalogRejectsBadBody(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{})

	for _, payload := range []string{`not json`, `{}`, `{"clip_a": 42}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog", bytes.NewBufferString(payload))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("payload %q: expected 400, got %d", payload, rec.Code)
		}
	}
}

func TestGetCatalog(t *testing.T) {
	cat := catalog.Catalog{"clip_a": {{Description: "City skyline at dusk"}}}
	ms := testutil.NewMockStore()
	srv := NewServer(ms, &fakeRunner{}, &fakeNotifier{}, cat, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got catalog.Catalog
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got["clip_a"]) != 1 || got["clip_a"][0].Description != "City skyline at dusk" {
		t.Errorf("unexpected catalog body: %v", got)
	}
}

func TestGenerateTimelineCompletes(t *testing.T) {
	clipA := "clip_a"
	runner := &fakeRunner{result: timeline.Timeline{Events: []timeline.AcceptedEvent{
		{ARollStart: 0, DurationSec: 5, BrollID: &clipA, Confidence: 0.9},
	}}}
	srv, ms, fn := newTestServer(t, runner)

	body := `{"segments": [{"start": 0, "end": 5, "text": "making pasta"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timeline", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	runID := resp["run_id"]
	if runID == "" {
		t.Fatal("expected run_id in response")
	}

	if status := waitForRunDone(t, ms, runID); status != store.RunCompleted {
		t.Fatalf("expected completed, got %s", status)
	}

	run, err := ms.GetRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	var tl timeline.Timeline
	if err := json.Unmarshal(run.Result, &tl); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(tl.Events) != 1 || *tl.Events[0].BrollID != "clip_a" {
		t.Errorf("unexpected stored timeline: %+v", tl)
	}

	subjects := fn.published()
	if len(subjects) < 2 || subjects[len(subjects)-1] != "contextcut.run.completed" {
		t.Errorf("expected completion event, got %v", subjects)
	}
}

func TestGenerateTimelineFailureRecorded(t *testing.T) {
	runner := &fakeRunner{err: errors.New("director call failed")}
	srv, ms, fn := newTestServer(t, runner)

	body := `{"segments": [{"start": 0, "end": 5, "text": "making pasta"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timeline", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	runID := resp["run_id"]

	if status := waitForRunDone(t, ms, runID); status != store.RunFailed {
		t.Fatalf("expected failed, got %s", status)
	}

	run, _ := ms.GetRun(context.Background(), runID)
	if run.Error == nil || *run.Error != "director call failed" {
		t.Errorf("expected failure reason stored, got %v", run.Error)
	}

	subjects := fn.published()
	if len(subjects) == 0 || subjects[len(subjects)-1] != "contextcut.run.failed" {
		t.Errorf("expected failure event, got %v", subjects)
	}
}

func TestGenerateTimelineSnapshotsCatalog(t *testing.T) {
	runner := &fakeRunner{}
	cat := catalog.Catalog{"clip_a": {{Description: "A laptop on a desk"}}}
	ms := testutil.NewMockStore()
	srv := NewServer(ms, runner, &fakeNotifier{}, cat, 0)

	body := `{"segments": [{"start": 0, "end": 5, "text": "typing"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timeline", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	waitForRunDone(t, ms, resp["run_id"])

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.gotCat) != 1 {
		t.Errorf("expected runner to receive catalog snapshot, got %v", runner.gotCat)
	}
}

func TestGenerateTimelineRejectsEmptySegments(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{})

	for _, body := range []string{`{}`, `{"segments": []}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/timeline", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestRunStatusNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/nope", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListRuns(t *testing.T) {
	srv, ms, _ := newTestServer(t, &fakeRunner{})
	ctx := context.Background()
	ms.CreateRun(ctx, "run-1")
	ms.CreateRun(ctx, "run-2")
	ms.FailRun(ctx, "run-2", "boom")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs?status=failed", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var runs []store.Run
	json.Unmarshal(rec.Body.Bytes(), &runs)
	if len(runs) != 1 || runs[0].RunID != "run-2" {
		t.Errorf("expected only the failed run, got %+v", runs)
	}
}

func TestMediaUpsertAndList(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{})

	body := `{"filename": "broll.mp4", "kind": "b_roll", "duration_sec": 12.5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["id"] == "" {
		t.Error("expected generated media id")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/media", nil)
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	var list []store.Media
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Filename != "broll.mp4" {
		t.Errorf("unexpected media list: %+v", list)
	}
}

func TestMediaRequiresFilename(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", bytes.NewBufferString(`{"kind": "b_roll"}`))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
