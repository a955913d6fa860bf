package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CameraInfo is one camera as reported by the server.
type CameraInfo struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Source string `json:"source"`
	Auth   bool   `json:"auth"`
	Status string `json:"status"`
}

// StatusInfo is the operator-facing system summary.
type StatusInfo struct {
	MotionEnabled bool   `json:"motion_enabled"`
	Mode          string `json:"mode"`
	Sensitivity   int    `json:"sensitivity"`
	TotalCameras  int    `json:"total_cameras"`
	OnlineCameras int    `json:"online_cameras"`
	OpenStreams   int    `json:"open_streams"`
}

// APIClient talks to a running camwatch server.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates an API client for the given base URL, e.g.
// "http://localhost:8080".
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AddCamera registers a camera on the server.
func (c *APIClient) AddCamera(ctx context.Context, id, url, username, password string) error {
	payload := map[string]string{
		"id":       id,
		"url":      url,
		"username": username,
		"password": password,
	}

	return c.do(ctx, http.MethodPost, "/api/v1/cameras", payload, nil)
}

// RemoveCamera deletes a camera from the server.
func (c *APIClient) RemoveCamera(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/cameras/"+id, nil, nil)
}

// ListCameras retrieves the configured cameras with their status.
func (c *APIClient) ListCameras(ctx context.Context) ([]CameraInfo, error) {
	var resp struct {
		Cameras []CameraInfo `json:"cameras"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/cameras", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Cameras, nil
}

// SetSensitivity updates the active detection mode's sensitivity.
func (c *APIClient) SetSensitivity(ctx context.Context, value int) error {
	return c.do(ctx, http.MethodPut, "/api/v1/detection/sensitivity", map[string]int{"value": value}, nil)
}

// SetEnabled toggles motion detection.
func (c *APIClient) SetEnabled(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/api/v1/detection/enabled", map[string]bool{"enabled": enabled}, nil)
}

// Status retrieves the system summary.
func (c *APIClient) Status(ctx context.Context) (*StatusInfo, error) {
	var status StatusInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RefreshStatus forces an out-of-cycle reachability sweep.
func (c *APIClient) RefreshStatus(ctx context.Context) (*StatusInfo, error) {
	var status StatusInfo
	if err := c.do(ctx, http.MethodPost, "/api/v1/status/refresh", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
