package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"filevault/internal/api"
	"filevault/internal/daemon"
)

// apiClient speaks the daemon's HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(addr string) *apiClient {
	addr = strings.TrimSpace(addr)
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &apiClient{
		base: strings.TrimSuffix(addr, "/"),
		http: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *apiClient) Status() (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.do(http.MethodGet, "/api/status", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) List(stages []string) ([]api.AssetView, error) {
	path := "/api/assets"
	if len(stages) > 0 {
		values := url.Values{}
		for _, stage := range stages {
			values.Add("stage", stage)
		}
		path += "?" + values.Encode()
	}
	var resp api.AssetListResponse
	if err := c.do(http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Assets, nil
}

func (c *apiClient) Describe(id string) (*api.AssetView, error) {
	var resp api.AssetResponse
	if err := c.do(http.MethodGet, "/api/assets/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Asset, nil
}

func (c *apiClient) IngestFile(path, owner string) (*api.AssetView, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	headers := map[string]string{
		daemon.HeaderAssetName: filepath.Base(path),
	}
	if owner = strings.TrimSpace(owner); owner != "" {
		headers[daemon.HeaderAssetOwner] = owner
	}

	var resp api.AssetResponse
	if err := c.do(http.MethodPost, "/api/assets", file, headers, &resp); err != nil {
		return nil, err
	}
	return &resp.Asset, nil
}

func (c *apiClient) Advance(id, to string) (*api.AssetView, error) {
	body, err := json.Marshal(api.AdvanceRequest{To: to})
	if err != nil {
		return nil, err
	}
	var resp api.AssetResponse
	path := "/api/assets/" + url.PathEscape(id) + "/advance"
	if err := c.do(http.MethodPost, path, bytes.NewReader(body), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Asset, nil
}

func (c *apiClient) Remove(id string) (*api.AssetView, error) {
	var resp api.AssetResponse
	if err := c.do(http.MethodDelete, "/api/assets/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Asset, nil
}

func (c *apiClient) Reap() (*api.ReapResponse, error) {
	var resp api.ReapResponse
	if err := c.do(http.MethodPost, "/api/reap", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) do(method, path string, body io.Reader, headers map[string]string, out any) error {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func wrapDialError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `filevaultd`", base)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}
