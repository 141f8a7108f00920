package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"filevault/internal/asset"
	"filevault/internal/faults"
	"filevault/internal/fileutil"
	"filevault/internal/logging"
	"filevault/internal/registry"
	"filevault/internal/storagearea"
)

// SizeUnknown marks a request whose payload length is not declared up front.
const SizeUnknown = int64(-1)

// Request describes one payload to admit.
type Request struct {
	Reader       io.Reader
	DeclaredName string
	// DeclaredSize is the caller-announced payload length, or SizeUnknown.
	// Known oversized payloads are rejected before any bytes are read.
	DeclaredSize int64
	OwnerRef     string
	// ExpiresAt optionally schedules the asset for later expiry.
	ExpiresAt *time.Time
}

// Pipeline streams payloads into the uploads area and registers them.
type Pipeline struct {
	layout   *storagearea.Layout
	store    *registry.Store
	maxBytes int64
	logger   *slog.Logger
}

// NewPipeline wires the ingest pipeline. maxBytes caps admitted payloads.
func NewPipeline(layout *storagearea.Layout, store *registry.Store, maxBytes int64, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		layout:   layout,
		store:    store,
		maxBytes: maxBytes,
		logger:   logging.NewComponentLogger(logger, "ingest"),
	}
}

// Ingest admits one payload. The asset becomes visible in the registry only
// after its bytes are durably in the uploads area; a registry row never
// points at a file that does not exist.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*asset.Asset, error) {
	if req.Reader == nil {
		return nil, faults.Wrap(faults.ErrIngestAborted, "ingest", "admit", "no payload reader", nil)
	}
	if req.DeclaredSize != SizeUnknown && req.DeclaredSize > p.maxBytes {
		return nil, faults.Wrap(faults.ErrPayloadTooLarge, "ingest", "admit",
			fmt.Sprintf("declared %d bytes exceeds cap %d", req.DeclaredSize, p.maxBytes), nil)
	}

	id := uuid.NewString()
	scratch := p.layout.TempPath(id + storagearea.PartSuffix)

	checksum, written, err := p.spool(ctx, req, scratch)
	if err != nil {
		_ = os.Remove(scratch)
		return nil, err
	}

	finalPath, err := p.layout.Resolve(asset.StageUploaded, id)
	if err != nil {
		_ = os.Remove(scratch)
		return nil, faults.Wrap(faults.ErrIngestAborted, "ingest", "resolve", id, err)
	}
	if err := fileutil.MoveFileVerified(scratch, finalPath); err != nil {
		_ = os.Remove(scratch)
		return nil, faults.Wrap(faults.ErrIngestAborted, "ingest", "promote", id, err)
	}

	record := &asset.Asset{
		ID:           id,
		Stage:        asset.StageUploaded,
		StoragePath:  finalPath,
		Checksum:     checksum,
		SizeBytes:    written,
		DeclaredName: req.DeclaredName,
		Category:     asset.DetectCategory(req.DeclaredName),
		OwnerRef:     req.OwnerRef,
		ExpiresAt:    req.ExpiresAt,
	}
	if err := p.store.Create(ctx, record); err != nil {
		_ = os.Remove(finalPath)
		return nil, faults.Wrap(faults.ErrIngestAborted, "ingest", "register", id, err)
	}

	p.logger.Info("asset ingested",
		logging.String("asset_id", id),
		logging.String("name", req.DeclaredName),
		logging.String("category", string(record.Category)),
		logging.Int64("size_bytes", written),
	)
	return record, nil
}

// IngestFile admits an existing on-disk file, consuming it: the source is
// removed once the asset is registered.
func (p *Pipeline) IngestFile(ctx context.Context, path, ownerRef string) (*asset.Asset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIngestAborted, "ingest", "stat source", path, err)
	}
	in, err := os.Open(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIngestAborted, "ingest", "open source", path, err)
	}
	defer in.Close()

	record, err := p.Ingest(ctx, Request{
		Reader:       in,
		DeclaredName: info.Name(),
		DeclaredSize: info.Size(),
		OwnerRef:     ownerRef,
	})
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		p.logger.Warn("failed to remove consumed source file",
			logging.String("path", path),
			logging.Error(err),
		)
	}
	return record, nil
}

// spool streams the payload to a scratch file while hashing it, enforcing
// the byte cap on the actual stream regardless of what was declared.
func (p *Pipeline) spool(ctx context.Context, req Request, scratch string) (string, int64, error) {
	out, err := os.OpenFile(scratch, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, faults.Wrap(faults.ErrIngestAborted, "ingest", "open scratch", scratch, err)
	}
	defer func() {
		_ = out.Close()
	}()

	hasher := sha256.New()
	// Read one byte past the cap so an oversized stream is distinguishable
	// from one that is exactly at the limit.
	limited := io.LimitReader(contextReader{ctx: ctx, r: req.Reader}, p.maxBytes+1)
	written, err := io.Copy(io.MultiWriter(out, hasher), limited)
	if err != nil {
		return "", 0, faults.Wrap(faults.ErrIngestAborted, "ingest", "stream payload", req.DeclaredName, err)
	}
	if written > p.maxBytes {
		return "", 0, faults.Wrap(faults.ErrPayloadTooLarge, "ingest", "stream payload",
			fmt.Sprintf("stream exceeds cap %d", p.maxBytes), nil)
	}
	if req.DeclaredSize != SizeUnknown && written != req.DeclaredSize {
		return "", 0, faults.Wrap(faults.ErrIngestAborted, "ingest", "stream payload",
			fmt.Sprintf("declared %d bytes, received %d", req.DeclaredSize, written), nil)
	}
	if err := out.Sync(); err != nil {
		return "", 0, faults.Wrap(faults.ErrIngestAborted, "ingest", "sync scratch", scratch, err)
	}
	if err := out.Close(); err != nil {
		return "", 0, faults.Wrap(faults.ErrIngestAborted, "ingest", "close scratch", scratch, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), written, nil
}

// contextReader aborts a long stream when the request context ends.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
