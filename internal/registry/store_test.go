package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"filevault/internal/asset"
	"filevault/internal/faults"
	"filevault/internal/registry"
	"filevault/internal/testsupport"
)

func newStore(t *testing.T, opts ...testsupport.ConfigOption) *registry.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	return testsupport.MustOpenStore(t, cfg)
}

func newAsset(stage asset.Stage) *asset.Asset {
	return &asset.Asset{
		ID:           uuid.NewString(),
		Stage:        stage,
		StoragePath:  "/vault/assets/uploads/file.bin",
		Checksum:     "deadbeef",
		SizeBytes:    42,
		DeclaredName: "file.bin",
		Category:     asset.CategoryOther,
		OwnerRef:     "tester",
	}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	a := newAsset(asset.StageUploaded)
	a.DeclaredName = "report.pdf"
	a.Category = asset.CategoryPDF
	a.ExpiresAt = &expires

	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != asset.StageUploaded {
		t.Fatalf("stage = %s, want uploaded", got.Stage)
	}
	if got.DeclaredName != "report.pdf" || got.Category != asset.CategoryPDF {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if got.SizeBytes != 42 || got.Checksum != "deadbeef" {
		t.Fatalf("content fields mismatch: %+v", got)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("expires_at mismatch: %v", got.ExpiresAt)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps should be set on create")
	}
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	store := newStore(t)
	_, err := store.Get(context.Background(), uuid.NewString())
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetHidesSoftDeletedByDefault(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a := newAsset(asset.StageDeleted)
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Get(ctx, a.ID); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected deleted row hidden, got %v", err)
	}
}

func TestGetExposesSoftDeletedWhenConfigured(t *testing.T) {
	store := newStore(t, testsupport.WithExposeDeleted())
	ctx := context.Background()

	a := newAsset(asset.StageDeleted)
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != asset.StageDeleted {
		t.Fatalf("stage = %s, want deleted", got.Stage)
	}
}

func TestListFiltersByStage(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for _, stage := range []asset.Stage{asset.StageUploaded, asset.StageUploaded, asset.StageArchived} {
		if err := store.Create(ctx, newAsset(stage)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	uploaded, err := store.List(ctx, asset.StageUploaded)
	if err != nil {
		t.Fatalf("List uploaded: %v", err)
	}
	if len(uploaded) != 2 {
		t.Fatalf("expected 2 uploaded, got %d", len(uploaded))
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(all))
	}
}

func TestTransitionCompareAndSwap(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a := newAsset(asset.StageUploaded)
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	archivedPath := "/vault/assets/archives/" + a.ID
	if err := store.Transition(ctx, a.ID, asset.StageUploaded, asset.StageArchived, archivedPath); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != asset.StageArchived || got.StoragePath != archivedPath {
		t.Fatalf("transition not applied: %+v", got)
	}

	// The stage moved, so the original precondition no longer holds.
	err = store.Transition(ctx, a.ID, asset.StageUploaded, asset.StageArchived, archivedPath)
	if !errors.Is(err, faults.ErrStageConflict) {
		t.Fatalf("expected stage conflict, got %v", err)
	}
}

func TestTransitionMissingRowReturnsNotFound(t *testing.T) {
	store := newStore(t)
	err := store.Transition(context.Background(), uuid.NewString(),
		asset.StageUploaded, asset.StageArchived, "/nowhere")
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHealthAggregatesStages(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	stages := []asset.Stage{
		asset.StageUploaded, asset.StageUploaded,
		asset.StageArchived,
		asset.StageExported,
		asset.StageDeleted,
	}
	for _, stage := range stages {
		if err := store.Create(ctx, newAsset(stage)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 5 || health.Uploaded != 2 || health.Archived != 1 ||
		health.Exported != 1 || health.Deleted != 1 {
		t.Fatalf("unexpected summary: %+v", health)
	}
}
