package capture

import (
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"sync"
	"time"

	"github.com/yourusername/camwatch/internal/core"
	"go.uber.org/zap"
)

// Source multiplexes the two frame delivery models behind one Fetch call:
// stateless snapshot pulls and stateful persistent streams. It owns every
// stream handle; at most one live handle exists per camera.
type Source struct {
	client *http.Client

	mu      sync.Mutex
	streams map[string]*streamHandle
	locks   map[string]*sync.Mutex
	gens    map[string]uint64

	logger *zap.Logger
}

// NewSource creates a frame source multiplexer.
func NewSource(logger *zap.Logger) *Source {
	return &Source{
		client:  &http.Client{},
		streams: make(map[string]*streamHandle),
		locks:   make(map[string]*sync.Mutex),
		gens:    make(map[string]uint64),
		logger:  logger,
	}
}

// Fetch returns one decoded frame for the camera. Snapshot cameras get an
// independent GET; streaming cameras read from the persistent handle,
// reconnecting at most once per call when a read fails.
func (s *Source) Fetch(ctx context.Context, cameraID string, cfg core.CameraConfig, timeout time.Duration) (image.Image, error) {
	if cfg.Source == core.SourceMJPEG {
		return s.fetchStream(cameraID, cfg, timeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fetchSnapshot(ctx, s.client, cfg)
}

func (s *Source) fetchStream(cameraID string, cfg core.CameraConfig, timeout time.Duration) (image.Image, error) {
	// One in-flight fetch per camera; a handle is not safe for
	// concurrent reads.
	lock := s.cameraLock(cameraID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	gen := s.gens[cameraID]
	h := s.streams[cameraID]
	s.mu.Unlock()

	if h != nil && h.url != cfg.URL {
		// The camera was re-pointed; a handle for the old endpoint must
		// not serve another frame.
		h.Close()
		s.dropHandle(cameraID, h)
		h = nil
	}

	if h != nil && h.Usable() {
		img, err := h.ReadFrame(timeout)
		if err == nil {
			return img, nil
		}
		if isDecodeFailure(err) {
			return nil, err
		}

		// Read failed: discard the handle and fall through to a single
		// reconnect attempt.
		s.logger.Warn("Stream read failed, reconnecting",
			zap.String("camera_id", cameraID),
			zap.Error(err),
		)
		h.Close()
		s.dropHandle(cameraID, h)
	}

	newHandle, err := openStream(cameraID, cfg, timeout, s.logger)
	if err != nil {
		return nil, err
	}

	img, err := newHandle.ReadFrame(timeout)
	if err != nil {
		// No usable first frame means no handle is stored.
		newHandle.Close()
		return nil, err
	}

	s.mu.Lock()
	stale := s.gens[cameraID] != gen
	if !stale {
		s.streams[cameraID] = newHandle
	}
	s.mu.Unlock()

	if stale {
		// Release ran while this fetch was in flight; storing the handle
		// would resurrect the released endpoint.
		newHandle.Close()
	}

	return img, nil
}

// Release closes and forgets the camera's stream handle, if any. Called
// when a camera is removed.
func (s *Source) Release(cameraID string) {
	s.mu.Lock()
	h := s.streams[cameraID]
	delete(s.streams, cameraID)
	delete(s.locks, cameraID)
	// Invalidate any fetch still in flight so it cannot store its handle.
	s.gens[cameraID]++
	s.mu.Unlock()

	if h != nil {
		h.Close()
	}
}

// Close releases every open stream handle. Called on shutdown.
func (s *Source) Close() {
	s.mu.Lock()
	handles := make([]*streamHandle, 0, len(s.streams))
	for id, h := range s.streams {
		handles = append(handles, h)
		delete(s.streams, id)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}

// OpenStreams reports how many stream handles are currently held.
func (s *Source) OpenStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

func (s *Source) cameraLock(cameraID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.locks[cameraID]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[cameraID] = lock
	}
	return lock
}

func (s *Source) dropHandle(cameraID string, h *streamHandle) {
	s.mu.Lock()
	if s.streams[cameraID] == h {
		delete(s.streams, cameraID)
	}
	s.mu.Unlock()
}

func isDecodeFailure(err error) bool {
	return errors.Is(err, core.ErrDecodeFailure)
}
