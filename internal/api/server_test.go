package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/camwatch/internal/alert"
	"github.com/yourusername/camwatch/internal/camera"
	"github.com/yourusername/camwatch/internal/capture"
	"github.com/yourusername/camwatch/internal/core"
	"github.com/yourusername/camwatch/internal/motion"
	"github.com/yourusername/camwatch/internal/watch"
	"go.uber.org/zap"
)

type nopNotifier struct{}

func (nopNotifier) SendPhoto(ctx context.Context, jpegData []byte, caption string) error {
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := zap.NewNop()

	path := filepath.Join(t.TempDir(), "runtime.json")
	store, err := core.NewStore(path, core.DefaultDetectionSettings(), logger)
	require.NoError(t, err)

	settings := motion.NewSettings(store, logger)

	watcher := watch.New(watch.Config{
		Registry:   camera.NewRegistry(store, logger),
		Source:     capture.NewSource(logger),
		Detector:   motion.NewDetector(settings, logger),
		Settings:   settings,
		Dispatcher: alert.NewDispatcher(nopNotifier{}, logger),
		Logger:     logger,
	})
	t.Cleanup(watcher.Stop)

	return NewServer(ServerConfig{
		Port:       0,
		Production: true,
		Logger:     logger,
		Watcher:    watcher,
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAddListRemoveCamera(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/cameras", map[string]string{
		"id":  "front",
		"url": "http://cam1.local/video.mjpg",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/cameras", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Cameras []cameraResponse `json:"cameras"`
		Count   int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Equal(t, 1, listResp.Count)
	assert.Equal(t, "front", listResp.Cameras[0].ID)
	assert.Equal(t, "mjpeg", listResp.Cameras[0].Source)
	assert.Equal(t, "unknown", listResp.Cameras[0].Status)

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/cameras/front", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/cameras", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.Zero(t, listResp.Count)
}

func TestAddCameraRejectsMissingFields(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/cameras", map[string]string{"id": "front"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshotUnknownCameraReturns404(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/cameras/ghost/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnapshotEndpoint(t *testing.T) {
	s := newTestServer(t)

	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{50, 50, 50, 255}), image.Point{}, draw.Src)
	var frame bytes.Buffer
	require.NoError(t, jpeg.Encode(&frame, img, nil))

	camSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(frame.Bytes())
	}))
	defer camSrv.Close()

	rec := doJSON(t, s, http.MethodPost, "/api/v1/cameras", map[string]string{
		"id":  "front",
		"url": camSrv.URL + "/snapshot.jpg",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/cameras/front/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	decoded, err := jpeg.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 24), decoded.Bounds())
}

func TestSensitivityEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/api/v1/detection/sensitivity", map[string]int{"value": 5000})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/detection/sensitivity", map[string]int{"value": 50})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st watch.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 5000, st.Sensitivity)
}

func TestEnabledEndpoint(t *testing.T) {
	s := newTestServer(t)

	enabled := false
	rec := doJSON(t, s, http.MethodPut, "/api/v1/detection/enabled", map[string]*bool{"enabled": &enabled})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/status", nil)
	var st watch.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.MotionEnabled)
}

func TestModeEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/api/v1/detection/mode", map[string]string{"mode": "score"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/detection/mode", map[string]string{"mode": "fancy"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsEndpointWithoutRepository(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/events", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
