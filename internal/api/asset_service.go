package api

import (
	"context"
	"io"
	"time"

	"filevault/internal/asset"
	"filevault/internal/faults"
	"filevault/internal/ingest"
	"filevault/internal/registry"
)

// AssetReader abstracts the registry queries the API needs.
type AssetReader interface {
	List(ctx context.Context, stages ...asset.Stage) ([]*asset.Asset, error)
	Get(ctx context.Context, id string) (*asset.Asset, error)
	Health(ctx context.Context) (registry.HealthSummary, error)
}

// TransitionEngine abstracts the stage transition operations.
type TransitionEngine interface {
	Advance(ctx context.Context, id string, to asset.Stage) (*asset.Asset, error)
	Delete(ctx context.Context, id string) (*asset.Asset, error)
}

// Ingester abstracts payload admission.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (*asset.Asset, error)
}

// AssetService exposes vault operations returning API DTOs.
type AssetService struct {
	store    AssetReader
	engine   TransitionEngine
	ingester Ingester
}

// NewAssetService constructs an AssetService around the vault components.
func NewAssetService(store AssetReader, engine TransitionEngine, ingester Ingester) *AssetService {
	if store == nil {
		return nil
	}
	return &AssetService{store: store, engine: engine, ingester: ingester}
}

// List returns assets filtered by stage names. An unknown stage name is a
// request error, not an empty result.
func (s *AssetService) List(ctx context.Context, stageNames ...string) ([]AssetView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stages := make([]asset.Stage, 0, len(stageNames))
	for _, name := range stageNames {
		stage, ok := asset.ParseStage(name)
		if !ok {
			return nil, faults.Wrap(faults.ErrIllegalTransition, "api", "list",
				"unknown stage "+name, nil)
		}
		stages = append(stages, stage)
	}
	assets, err := s.store.List(ctx, stages...)
	if err != nil {
		return nil, err
	}
	return FromAssets(assets), nil
}

// Describe fetches a single asset.
func (s *AssetService) Describe(ctx context.Context, id string) (*AssetView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := FromAsset(a)
	return &view, nil
}

// IngestStream admits a payload stream.
func (s *AssetService) IngestStream(ctx context.Context, reader io.Reader, declaredName, ownerRef string, declaredSize int64, expiresAt *time.Time) (*AssetView, error) {
	if s == nil || s.ingester == nil {
		return nil, nil
	}
	record, err := s.ingester.Ingest(ctx, ingest.Request{
		Reader:       reader,
		DeclaredName: declaredName,
		DeclaredSize: declaredSize,
		OwnerRef:     ownerRef,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return nil, err
	}
	view := FromAsset(record)
	return &view, nil
}

// Advance moves an asset to the named stage.
func (s *AssetService) Advance(ctx context.Context, id, stageName string) (*AssetView, error) {
	if s == nil || s.engine == nil {
		return nil, nil
	}
	stage, ok := asset.ParseStage(stageName)
	if !ok {
		return nil, faults.Wrap(faults.ErrIllegalTransition, "api", "advance",
			"unknown stage "+stageName, nil)
	}
	record, err := s.engine.Advance(ctx, id, stage)
	if err != nil {
		return nil, err
	}
	view := FromAsset(record)
	return &view, nil
}

// Delete soft-deletes an asset.
func (s *AssetService) Delete(ctx context.Context, id string) (*AssetView, error) {
	if s == nil || s.engine == nil {
		return nil, nil
	}
	record, err := s.engine.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	view := FromAsset(record)
	return &view, nil
}

// Health returns per-stage registry counts.
func (s *AssetService) Health(ctx context.Context) (HealthCounts, error) {
	if s == nil || s.store == nil {
		return HealthCounts{}, nil
	}
	summary, err := s.store.Health(ctx)
	if err != nil {
		return HealthCounts{}, err
	}
	return HealthCounts{
		Total:    summary.Total,
		Uploaded: summary.Uploaded,
		Archived: summary.Archived,
		Exported: summary.Exported,
		Deleted:  summary.Deleted,
	}, nil
}
