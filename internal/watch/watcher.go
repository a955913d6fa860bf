package watch

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/camwatch/internal/alert"
	"github.com/yourusername/camwatch/internal/camera"
	"github.com/yourusername/camwatch/internal/capture"
	"github.com/yourusername/camwatch/internal/core"
	"github.com/yourusername/camwatch/internal/motion"
	"github.com/yourusername/camwatch/internal/observability"
	"github.com/yourusername/camwatch/internal/storage"
	"go.uber.org/zap"
)

// EventSink receives motion events as they happen, e.g. for broadcasting
// to connected dashboard clients.
type EventSink interface {
	PublishEvent(event *storage.MotionEvent)
}

// Watcher wires the registry, frame source, detector, and dispatcher into
// the polling pipeline and exposes the operations the external command
// surface calls into.
type Watcher struct {
	registry   *camera.Registry
	source     *capture.Source
	detector   *motion.Detector
	settings   *motion.Settings
	dispatcher *alert.Dispatcher
	events     *storage.EventRepository
	sink       EventSink
	logger     *zap.Logger

	probeClient *http.Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds the dependencies for a Watcher. Events and Sink are
// optional.
type Config struct {
	Registry   *camera.Registry
	Source     *capture.Source
	Detector   *motion.Detector
	Settings   *motion.Settings
	Dispatcher *alert.Dispatcher
	Events     *storage.EventRepository
	Sink       EventSink
	Logger     *zap.Logger
}

// New creates a Watcher.
func New(cfg Config) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		registry:    cfg.Registry,
		source:      cfg.Source,
		detector:    cfg.Detector,
		settings:    cfg.Settings,
		dispatcher:  cfg.Dispatcher,
		events:      cfg.Events,
		sink:        cfg.Sink,
		logger:      cfg.Logger,
		probeClient: &http.Client{},
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ListCameras returns every configured camera with its last known status.
func (w *Watcher) ListCameras() []camera.Info {
	return w.registry.List()
}

// AddCamera registers a camera, overwriting any existing entry with the
// same ID.
func (w *Watcher) AddCamera(id, rawURL, username, password string) error {
	if id == "" {
		return fmt.Errorf("%w: camera ID cannot be empty", core.ErrInvalidConfig)
	}
	if rawURL == "" {
		return fmt.Errorf("%w: camera URL cannot be empty", core.ErrInvalidConfig)
	}

	// Overwriting may change the delivery model; a stale handle for the
	// old endpoint must not survive.
	w.source.Release(id)
	w.detector.Forget(id)

	return w.registry.Add(id, rawURL, username, password)
}

// RemoveCamera deletes a camera together with its status, stream handle,
// reference frame, cooldown entry, and event history. Removing an unknown
// ID is a no-op.
func (w *Watcher) RemoveCamera(id string) error {
	removed, err := w.registry.Remove(id)
	if !removed {
		return err
	}

	w.source.Release(id)
	w.detector.Forget(id)
	w.dispatcher.Forget(id)

	if w.events != nil {
		if purgeErr := w.events.DeleteByCamera(id); purgeErr != nil {
			w.logger.Warn("Failed to purge camera events",
				zap.String("camera_id", id),
				zap.Error(purgeErr),
			)
		}
	}

	return err
}

// Snapshot fetches one frame on demand, outside the poll cycle, through
// the same multiplexer the scheduler uses.
func (w *Watcher) Snapshot(ctx context.Context, id string) (image.Image, error) {
	cfg, exists := w.registry.Get(id)
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrCameraNotFound, id)
	}

	timeout := w.fetchTimeout()
	return w.source.Fetch(ctx, id, cfg, timeout)
}

// SetSensitivity updates the active detection mode's sensitivity value.
func (w *Watcher) SetSensitivity(value int) error {
	return w.settings.SetSensitivity(value)
}

// SetMotionEnabled toggles motion detection globally. Takes effect on the
// next cycle.
func (w *Watcher) SetMotionEnabled(enabled bool) error {
	return w.settings.SetEnabled(enabled)
}

// SetDetectionMode switches the scoring algorithm.
func (w *Watcher) SetDetectionMode(mode core.DetectionMode) error {
	return w.settings.SetMode(mode)
}

// ForceStatusCheck runs an out-of-cycle reachability sweep synchronously.
func (w *Watcher) ForceStatusCheck() {
	w.sweep(context.Background())
}

// Status is the operator-facing system summary.
type Status struct {
	MotionEnabled bool               `json:"motion_enabled"`
	Mode          core.DetectionMode `json:"mode"`
	Sensitivity   int                `json:"sensitivity"`
	TotalCameras  int                `json:"total_cameras"`
	OnlineCameras int                `json:"online_cameras"`
	CheckInterval int                `json:"check_interval"`
	Timeout       int                `json:"timeout"`
	Cooldown      int                `json:"cooldown"`
	OpenStreams   int                `json:"open_streams"`
}

// SystemStatus returns the current system summary.
func (w *Watcher) SystemStatus() Status {
	set := w.settings.Get()
	total, online := w.registry.Counts()

	return Status{
		MotionEnabled: set.Enabled,
		Mode:          set.Mode,
		Sensitivity:   w.settings.Sensitivity(),
		TotalCameras:  total,
		OnlineCameras: online,
		CheckInterval: set.CheckIntervalSec,
		Timeout:       set.TimeoutSec,
		Cooldown:      set.CooldownSeconds,
		OpenStreams:   w.source.OpenStreams(),
	}
}

// Settings exposes the settings manager for read access.
func (w *Watcher) Settings() core.DetectionSettings {
	return w.settings.Get()
}

func (w *Watcher) fetchTimeout() time.Duration {
	return time.Duration(w.settings.Get().TimeoutSec) * time.Second
}

func (w *Watcher) recordEvent(cameraID string, res motion.Result, delivered bool) {
	event := &storage.MotionEvent{
		ID:         uuid.NewString(),
		CameraID:   cameraID,
		DetectedAt: time.Now(),
		Regions:    len(res.Regions),
		Score:      res.Score,
		Delivered:  delivered,
	}

	if w.events != nil {
		if err := w.events.Insert(event); err != nil {
			w.logger.Warn("Failed to record motion event",
				zap.String("camera_id", cameraID),
				zap.Error(err),
			)
		}
	}

	if w.sink != nil {
		w.sink.PublishEvent(event)
	}

	observability.MotionEvents.WithLabelValues(cameraID).Inc()
}
