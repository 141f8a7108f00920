package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"filevault/internal/asset"
	"filevault/internal/faults"
)

const assetColumns = "id, stage, storage_path, checksum, size_bytes, declared_name, category, owner_ref, created_at, updated_at, expires_at"

// Create inserts a new asset row. CreatedAt/UpdatedAt default to now when
// unset.
func (s *Store) Create(ctx context.Context, a *asset.Asset) error {
	if a == nil {
		return errors.New("asset is nil")
	}
	if a.ID == "" {
		return errors.New("asset id must be set")
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO assets (`+assetColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		string(a.Stage),
		nullableString(a.StoragePath),
		a.Checksum,
		a.SizeBytes,
		nullableString(a.DeclaredName),
		nullableString(string(a.Category)),
		nullableString(a.OwnerRef),
		a.CreatedAt.Format(time.RFC3339Nano),
		a.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(a.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// Get fetches an asset by id. Unknown ids fail with NotFound; soft-deleted
// rows do too unless the store was opened with WithExposeDeleted.
func (s *Store) Get(ctx context.Context, id string) (*asset.Asset, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.Wrap(faults.ErrNotFound, "registry", "get", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	if a.Stage == asset.StageDeleted && !s.exposeDeleted {
		return nil, faults.Wrap(faults.ErrNotFound, "registry", "get", id, nil)
	}
	return a, nil
}

// List returns assets filtered by stage set (or all assets when no stage is
// provided), ordered by creation time.
func (s *Store) List(ctx context.Context, stages ...asset.Stage) ([]*asset.Asset, error) {
	ctx = ensureContext(ctx)

	baseQuery := `SELECT ` + assetColumns + ` FROM assets`
	orderClause := ` ORDER BY created_at, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(stages) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(stages))
		args := make([]any, len(stages))
		for i, stage := range stages {
			args[i] = string(stage)
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE stage IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*asset.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// Transition is a compare-and-swap on the stage column: it succeeds only if
// the row's current stage equals from, atomically writing to and the matching
// storage path. A lost race surfaces as StageConflict; a missing row as
// NotFound. This is the sole concurrency primitive protecting the stage
// invariant.
func (s *Store) Transition(ctx context.Context, id string, from, to asset.Stage, storagePath string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE assets SET stage = ?, storage_path = ?, updated_at = ?
         WHERE id = ? AND stage = ?`,
		string(to),
		nullableString(storagePath),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("transition asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM assets WHERE id = ?`, id)
	if scanErr := row.Scan(&exists); scanErr != nil {
		return fmt.Errorf("verify asset presence: %w", scanErr)
	}
	if exists == 0 {
		return faults.Wrap(faults.ErrNotFound, "registry", "transition", id, nil)
	}
	return faults.Wrap(faults.ErrStageConflict, "registry", "transition",
		fmt.Sprintf("%s: stage is no longer %s", id, from), nil)
}

// Stats returns a count of assets grouped by stage.
func (s *Store) Stats(ctx context.Context) (map[asset.Stage]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT stage, COUNT(1) FROM assets GROUP BY stage`)
	if err != nil {
		return nil, fmt.Errorf("asset stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[asset.Stage]int)
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		stats[asset.Stage(stage)] = count
	}
	return stats, rows.Err()
}

// HealthSummary describes aggregated asset counts per lifecycle stage.
type HealthSummary struct {
	Total    int
	Uploaded int
	Archived int
	Exported int
	Deleted  int
}

// Health aggregates registry state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for stage, count := range stats {
		health.Total += count
		switch stage {
		case asset.StageUploaded:
			health.Uploaded += count
		case asset.StageArchived:
			health.Archived += count
		case asset.StageExported:
			health.Exported += count
		case asset.StageDeleted:
			health.Deleted += count
		}
	}
	return health, nil
}

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*asset.Asset, error) {
	var (
		id           string
		stage        string
		storagePath  sql.NullString
		checksum     string
		sizeBytes    int64
		declaredName sql.NullString
		category     sql.NullString
		ownerRef     sql.NullString
		createdRaw   string
		updatedRaw   string
		expiresRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&stage,
		&storagePath,
		&checksum,
		&sizeBytes,
		&declaredName,
		&category,
		&ownerRef,
		&createdRaw,
		&updatedRaw,
		&expiresRaw,
	); err != nil {
		return nil, err
	}

	a := &asset.Asset{
		ID:           id,
		Stage:        asset.Stage(stage),
		StoragePath:  storagePath.String,
		Checksum:     checksum,
		SizeBytes:    sizeBytes,
		DeclaredName: declaredName.String,
		Category:     asset.Category(category.String),
		OwnerRef:     ownerRef.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		a.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		a.UpdatedAt = updated
	}
	if expiresRaw.Valid {
		if expires, err := parseTimeString(expiresRaw.String); err == nil {
			a.ExpiresAt = &expires
		}
	}
	return a, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
