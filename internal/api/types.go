package api

import (
	"sort"
	"time"

	"filevault/internal/asset"
)

// AssetView is the wire representation of one asset.
type AssetView struct {
	ID           string `json:"id"`
	Stage        string `json:"stage"`
	StoragePath  string `json:"storage_path,omitempty"`
	Checksum     string `json:"checksum"`
	SizeBytes    int64  `json:"size_bytes"`
	DeclaredName string `json:"declared_name,omitempty"`
	Category     string `json:"category,omitempty"`
	OwnerRef     string `json:"owner_ref,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// FromAsset converts a registry asset into its wire shape.
func FromAsset(a *asset.Asset) AssetView {
	if a == nil {
		return AssetView{}
	}
	view := AssetView{
		ID:           a.ID,
		Stage:        string(a.Stage),
		StoragePath:  a.StoragePath,
		Checksum:     a.Checksum,
		SizeBytes:    a.SizeBytes,
		DeclaredName: a.DeclaredName,
		Category:     string(a.Category),
		OwnerRef:     a.OwnerRef,
		CreatedAt:    formatAssetTime(a.CreatedAt),
		UpdatedAt:    formatAssetTime(a.UpdatedAt),
	}
	if a.ExpiresAt != nil {
		view.ExpiresAt = formatAssetTime(*a.ExpiresAt)
	}
	return view
}

// FromAssets converts a slice of registry assets.
func FromAssets(assets []*asset.Asset) []AssetView {
	if len(assets) == 0 {
		return nil
	}
	views := make([]AssetView, 0, len(assets))
	for _, a := range assets {
		views = append(views, FromAsset(a))
	}
	return views
}

// SortAssetsNewestFirst orders views by CreatedAt descending, breaking ties
// by ID so output is stable.
func SortAssetsNewestFirst(views []AssetView) []AssetView {
	if len(views) == 0 {
		return nil
	}
	sorted := make([]AssetView, len(views))
	copy(sorted, views)
	sort.Slice(sorted, func(i, j int) bool {
		ti := ParseAssetTime(sorted[i].CreatedAt)
		tj := ParseAssetTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

// ParseAssetTime parses wire timestamps for display formatting.
func ParseAssetTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

func formatAssetTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// AssetListResponse wraps GET /api/assets.
type AssetListResponse struct {
	Assets []AssetView `json:"assets"`
}

// AssetResponse wraps single-asset endpoints.
type AssetResponse struct {
	Asset AssetView `json:"asset"`
}

// AdvanceRequest is the body of POST /api/assets/{id}/advance.
type AdvanceRequest struct {
	To string `json:"to"`
}

// StatusResponse wraps GET /api/status.
type StatusResponse struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	DatabasePath string       `json:"database_path"`
	LockFilePath string       `json:"lock_file_path"`
	StorageRoot  string       `json:"storage_root"`
	Health       HealthCounts `json:"health"`
	LastSweep    *SweepStatus `json:"last_sweep,omitempty"`
}

// SweepStatus reports the most recent reaper pass.
type SweepStatus struct {
	CompletedAt string `json:"completed_at"`
	TempRemoved int    `json:"temp_removed"`
	LogsPruned  int    `json:"logs_pruned"`
}

// HealthCounts aggregates registry contents per stage.
type HealthCounts struct {
	Total    int `json:"total"`
	Uploaded int `json:"uploaded"`
	Archived int `json:"archived"`
	Exported int `json:"exported"`
	Deleted  int `json:"deleted"`
}

// ReapResponse wraps POST /api/reap.
type ReapResponse struct {
	TempRemoved int    `json:"temp_removed"`
	LogsPruned  int    `json:"logs_pruned"`
	RotatedLog  string `json:"rotated_log,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
