package api_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"filevault/internal/api"
	"filevault/internal/asset"
	"filevault/internal/faults"
	"filevault/internal/ingest"
	"filevault/internal/lifecycle"
	"filevault/internal/logging"
	"filevault/internal/storagearea"
	"filevault/internal/testsupport"
)

func newService(t *testing.T) *api.AssetService {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	layout, err := storagearea.New(cfg.Paths.Root)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if err := layout.EnsureLayout(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	pipeline := ingest.NewPipeline(layout, store, cfg.Ingest.MaxUploadBytes, logging.NewNop())
	engine := lifecycle.NewEngine(layout, store, logging.NewNop())
	return api.NewAssetService(store, engine, pipeline)
}

func TestServiceIngestAndDescribe(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	view, err := svc.IngestStream(ctx, strings.NewReader("payload"), "note.txt", "alice", 7, nil)
	if err != nil {
		t.Fatalf("IngestStream: %v", err)
	}
	if view.Stage != string(asset.StageUploaded) || view.Category != string(asset.CategoryWord) {
		t.Fatalf("unexpected view: %+v", view)
	}

	described, err := svc.Describe(ctx, view.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if described.Checksum != view.Checksum || described.SizeBytes != 7 {
		t.Fatalf("describe mismatch: %+v", described)
	}
}

func TestServiceAdvanceAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	view, err := svc.IngestStream(ctx, strings.NewReader("payload"), "note.txt", "alice", 7, nil)
	if err != nil {
		t.Fatalf("IngestStream: %v", err)
	}

	advanced, err := svc.Advance(ctx, view.ID, "archived")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if advanced.Stage != string(asset.StageArchived) {
		t.Fatalf("stage = %s, want archived", advanced.Stage)
	}

	if _, err := svc.Advance(ctx, view.ID, "uploaded"); !errors.Is(err, faults.ErrIllegalTransition) {
		t.Fatalf("backward advance should be illegal, got %v", err)
	}
	if _, err := svc.Advance(ctx, view.ID, "nonsense"); !errors.Is(err, faults.ErrIllegalTransition) {
		t.Fatalf("unknown stage should be illegal, got %v", err)
	}

	deleted, err := svc.Delete(ctx, view.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.Stage != string(asset.StageDeleted) {
		t.Fatalf("stage = %s, want deleted", deleted.Stage)
	}
	if _, err := svc.Describe(ctx, view.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("deleted asset should be hidden, got %v", err)
	}
}

func TestServiceListFiltersAndHealth(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.IngestStream(ctx, strings.NewReader("one"), "a.txt", "", 3, nil)
	if err != nil {
		t.Fatalf("ingest first: %v", err)
	}
	if _, err := svc.IngestStream(ctx, strings.NewReader("two"), "b.txt", "", 3, nil); err != nil {
		t.Fatalf("ingest second: %v", err)
	}
	if _, err := svc.Advance(ctx, first.ID, "archived"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	uploaded, err := svc.List(ctx, "uploaded")
	if err != nil {
		t.Fatalf("List uploaded: %v", err)
	}
	if len(uploaded) != 1 {
		t.Fatalf("expected 1 uploaded, got %d", len(uploaded))
	}
	if _, err := svc.List(ctx, "bogus"); err == nil {
		t.Fatal("unknown stage filter should fail")
	}

	health, err := svc.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Uploaded != 1 || health.Archived != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{faults.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{faults.ErrNotFound, http.StatusNotFound},
		{faults.ErrStageConflict, http.StatusConflict},
		{faults.ErrIllegalTransition, http.StatusUnprocessableEntity},
		{faults.ErrChecksumMismatch, http.StatusUnprocessableEntity},
		{faults.ErrIngestAborted, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := api.HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestSortAssetsNewestFirst(t *testing.T) {
	now := time.Now().UTC()
	views := []api.AssetView{
		{ID: "old", CreatedAt: now.Add(-time.Hour).Format(time.RFC3339Nano)},
		{ID: "new", CreatedAt: now.Format(time.RFC3339Nano)},
		{ID: "mid", CreatedAt: now.Add(-time.Minute).Format(time.RFC3339Nano)},
	}
	sorted := api.SortAssetsNewestFirst(views)
	if sorted[0].ID != "new" || sorted[1].ID != "mid" || sorted[2].ID != "old" {
		t.Fatalf("unexpected order: %v", sorted)
	}
}
