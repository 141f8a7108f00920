package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filevault/internal/api"
	"filevault/internal/daemon"
)

func TestClientIngestSendsHeaders(t *testing.T) {
	var gotName, gotOwner string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/assets" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotName = r.Header.Get(daemon.HeaderAssetName)
		gotOwner = r.Header.Get(daemon.HeaderAssetOwner)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.AssetResponse{Asset: api.AssetView{ID: "id-1"}})
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	client := newAPIClient(server.URL)
	view, err := client.IngestFile(path, "ops")
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if view.ID != "id-1" {
		t.Fatalf("unexpected view %+v", view)
	}
	if gotName != "notes.txt" || gotOwner != "ops" {
		t.Fatalf("headers name=%q owner=%q", gotName, gotOwner)
	}
}

func TestClientSurfacesDaemonErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "stage conflict: lost the race"})
	}))
	defer server.Close()

	client := newAPIClient(server.URL)
	_, err := client.Advance("id-1", "archived")
	if err == nil || !strings.Contains(err.Error(), "stage conflict") {
		t.Fatalf("expected surfaced daemon error, got %v", err)
	}
}

func TestClientListBuildsStageQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query()["stage"]; len(got) != 2 || got[0] != "uploaded" || got[1] != "archived" {
			t.Errorf("unexpected stage query %v", got)
		}
		_ = json.NewEncoder(w).Encode(api.AssetListResponse{})
	}))
	defer server.Close()

	client := newAPIClient(server.URL)
	if _, err := client.List([]string{"uploaded", "archived"}); err != nil {
		t.Fatalf("List: %v", err)
	}
}

func TestNewAPIClientAddsScheme(t *testing.T) {
	client := newAPIClient("127.0.0.1:7607")
	if client.base != "http://127.0.0.1:7607" {
		t.Fatalf("unexpected base %q", client.base)
	}
}
