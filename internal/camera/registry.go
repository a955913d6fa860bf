package camera

import (
	"strings"
	"sync"

	"github.com/yourusername/camwatch/internal/core"
	"go.uber.org/zap"
)

// Status is the last known reachability of a camera.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Info pairs a camera with its configuration and last known status.
type Info struct {
	ID     string
	Config core.CameraConfig
	Status Status
}

// Registry holds the configured camera set and per-camera reachability.
// Mutations may race with a running poll cycle, so every access goes
// through a single RWMutex. The scheduler is the only status writer;
// add/remove come from the external command surface.
type Registry struct {
	mu      sync.RWMutex
	cameras map[string]core.CameraConfig
	order   []string
	status  map[string]Status

	store  *core.Store
	logger *zap.Logger
}

// NewRegistry seeds a registry from the persisted runtime document.
func NewRegistry(store *core.Store, logger *zap.Logger) *Registry {
	doc := store.Snapshot()

	r := &Registry{
		cameras: make(map[string]core.CameraConfig, len(doc.Cameras)),
		order:   append([]string(nil), doc.Order...),
		status:  make(map[string]Status, len(doc.Cameras)),
		store:   store,
		logger:  logger,
	}

	for id, cfg := range doc.Cameras {
		r.cameras[id] = cfg
		r.status[id] = StatusUnknown
	}

	return r
}

// Add registers a camera, silently overwriting an existing entry with the
// same ID. The delivery model is classified once here and stored.
func (r *Registry) Add(id, rawURL, username, password string) error {
	cfg := core.CameraConfig{
		URL:      rawURL,
		Username: username,
		Password: password,
		Source:   core.ClassifySource(rawURL),
	}

	r.mu.Lock()
	if _, exists := r.cameras[id]; !exists {
		r.order = append(r.order, id)
	}
	r.cameras[id] = cfg
	r.status[id] = StatusUnknown
	err := r.persistUnsafe()
	r.mu.Unlock()

	if err != nil {
		return err
	}

	r.logger.Info("Camera added",
		zap.String("camera_id", id),
		zap.String("url", maskURL(rawURL)),
		zap.String("source", string(cfg.Source)),
	)
	return nil
}

// Remove deletes a camera and its status entry. Removing an unknown ID is
// a no-op. Returns true if a camera was actually removed so the caller can
// release derived state (stream handle, reference frame, cooldown entry).
func (r *Registry) Remove(id string) (bool, error) {
	r.mu.Lock()
	if _, exists := r.cameras[id]; !exists {
		r.mu.Unlock()
		return false, nil
	}

	delete(r.cameras, id)
	delete(r.status, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	err := r.persistUnsafe()
	r.mu.Unlock()

	if err != nil {
		return true, err
	}

	r.logger.Info("Camera removed", zap.String("camera_id", id))
	return true, nil
}

// Get returns a camera's configuration.
func (r *Registry) Get(id string) (core.CameraConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, exists := r.cameras[id]
	return cfg, exists
}

// List returns all cameras in insertion order with their last status.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		cfg, exists := r.cameras[id]
		if !exists {
			continue
		}
		infos = append(infos, Info{ID: id, Config: cfg, Status: r.statusUnsafe(id)})
	}
	return infos
}

// SetStatus records a reachability sweep result. Results for cameras
// removed mid-sweep are discarded.
func (r *Registry) SetStatus(id string, online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cameras[id]; !exists {
		return
	}
	if online {
		r.status[id] = StatusOnline
	} else {
		r.status[id] = StatusOffline
	}
}

// GetStatus returns the last known reachability, or StatusUnknown if the
// camera has never been swept.
func (r *Registry) GetStatus(id string) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statusUnsafe(id)
}

// Counts returns the total and online camera counts.
func (r *Registry) Counts() (total, online int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total = len(r.cameras)
	for _, st := range r.status {
		if st == StatusOnline {
			online++
		}
	}
	return total, online
}

func (r *Registry) statusUnsafe(id string) Status {
	if st, ok := r.status[id]; ok {
		return st
	}
	return StatusUnknown
}

func (r *Registry) persistUnsafe() error {
	cameras := make(map[string]core.CameraConfig, len(r.cameras))
	for id, cfg := range r.cameras {
		cameras[id] = cfg
	}
	return r.store.PutCameras(cameras, r.order)
}

// maskURL hides the password portion of a camera URL for logging.
func maskURL(urlStr string) string {
	protocolEnd := strings.Index(urlStr, "://")
	if protocolEnd == -1 {
		return urlStr
	}
	rest := urlStr[protocolEnd+3:]

	atIdx := strings.Index(rest, "@")
	if atIdx == -1 {
		return urlStr
	}

	credentials := rest[:atIdx]
	colonIdx := strings.Index(credentials, ":")
	if colonIdx == -1 {
		return urlStr
	}

	return urlStr[:protocolEnd+3] + credentials[:colonIdx] + ":***" + rest[atIdx:]
}
