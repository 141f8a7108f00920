package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"filevault/internal/api"
	"filevault/internal/config"
	"filevault/internal/ingest"
	"filevault/internal/logging"
)

// Ingest metadata travels in headers so the request body stays a raw byte
// stream.
const (
	HeaderAssetName  = "X-Filevault-Name"
	HeaderAssetOwner = "X-Filevault-Owner"
	HeaderExpiresAt  = "X-Filevault-Expires-At"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/assets", srv.handleAssets)
	mux.HandleFunc("/api/assets/", srv.handleAsset)
	mux.HandleFunc("/api/reap", srv.handleReap)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Minute,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	health, err := s.daemon.service.Health(r.Context())
	if err != nil {
		s.writeFault(w, err)
		return
	}
	payload := api.StatusResponse{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		StorageRoot:  status.StorageRoot,
		Health:       health,
	}
	if sweep, ok := s.daemon.LastSweep(); ok {
		payload.LastSweep = &api.SweepStatus{
			CompletedAt: sweep.CompletedAt.Format(time.RFC3339Nano),
			TempRemoved: sweep.TempRemoved,
			LogsPruned:  sweep.LogsPruned,
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listAssets(w, r)
	case http.MethodPost:
		s.ingestAsset(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listAssets(w http.ResponseWriter, r *http.Request) {
	var stages []string
	for _, value := range r.URL.Query()["stage"] {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			stages = append(stages, trimmed)
		}
	}
	views, err := s.daemon.service.List(r.Context(), stages...)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AssetListResponse{Assets: api.SortAssetsNewestFirst(views)})
}

func (s *apiServer) ingestAsset(w http.ResponseWriter, r *http.Request) {
	declaredName := strings.TrimSpace(r.Header.Get(HeaderAssetName))
	if declaredName == "" {
		s.writeError(w, http.StatusBadRequest, "missing "+HeaderAssetName+" header")
		return
	}
	ownerRef := strings.TrimSpace(r.Header.Get(HeaderAssetOwner))

	var expiresAt *time.Time
	if raw := strings.TrimSpace(r.Header.Get(HeaderExpiresAt)); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid "+HeaderExpiresAt+" header")
			return
		}
		expiresAt = &parsed
	}

	declaredSize := r.ContentLength
	if declaredSize < 0 {
		declaredSize = ingest.SizeUnknown
	}

	view, err := s.daemon.service.IngestStream(r.Context(), r.Body, declaredName, ownerRef, declaredSize, expiresAt)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.AssetResponse{Asset: *view})
}

func (s *apiServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/assets/")
	if rest == "" {
		s.writeError(w, http.StatusNotFound, "asset not found")
		return
	}

	if id, ok := strings.CutSuffix(rest, "/advance"); ok {
		s.advanceAsset(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		s.writeError(w, http.StatusNotFound, "asset not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		view, err := s.daemon.service.Describe(r.Context(), rest)
		if err != nil {
			s.writeFault(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.AssetResponse{Asset: *view})
	case http.MethodDelete:
		view, err := s.daemon.service.Delete(r.Context(), rest)
		if err != nil {
			s.writeFault(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.AssetResponse{Asset: *view})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) advanceAsset(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := s.daemon.service.Advance(r.Context(), id, req.To)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AssetResponse{Asset: *view})
}

func (s *apiServer) handleReap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result := s.daemon.SweepNow()
	s.writeJSON(w, http.StatusOK, api.ReapResponse{
		TempRemoved: result.TempRemoved,
		LogsPruned:  result.LogsPruned,
		RotatedLog:  result.RotatedLog,
	})
}

func (s *apiServer) writeFault(w http.ResponseWriter, err error) {
	s.writeError(w, api.HTTPStatus(err), err.Error())
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode api response", logging.Error(err))
	}
}
