package core

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Document is the persisted runtime state: the camera set in insertion
// order plus the mutable detection settings.
type Document struct {
	Cameras   map[string]CameraConfig `json:"cameras"`
	Order     []string                `json:"camera_order"`
	Detection DetectionSettings       `json:"detection"`
}

// Store persists mutable runtime configuration as a JSON file. It is the
// configuration collaborator the registry and settings call into whenever
// they change; reads happen once at startup.
type Store struct {
	mu       sync.Mutex
	filePath string
	doc      Document
	logger   *zap.Logger
}

// NewStore creates a Store backed by filePath. A missing file is not an
// error; the document starts from the given detection defaults.
func NewStore(filePath string, defaults DetectionSettings, logger *zap.Logger) (*Store, error) {
	s := &Store{
		filePath: filePath,
		logger:   logger,
		doc: Document{
			Cameras:   make(map[string]CameraConfig),
			Detection: defaults,
		},
	}

	if err := s.loadFromFile(); err != nil {
		return nil, err
	}

	return s, nil
}

// Snapshot returns a copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.copyDocUnsafe()
}

// PutCameras replaces the persisted camera set and saves.
func (s *Store) PutCameras(cameras map[string]CameraConfig, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Cameras = make(map[string]CameraConfig, len(cameras))
	for id, cfg := range cameras {
		s.doc.Cameras[id] = cfg
	}
	s.doc.Order = append([]string(nil), order...)

	return s.saveToFileUnsafe()
}

// PutDetection replaces the persisted detection settings and saves.
func (s *Store) PutDetection(d DetectionSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Detection = d
	return s.saveToFileUnsafe()
}

func (s *Store) loadFromFile() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// First run; defaults stand until the first save.
			return nil
		}
		return fmt.Errorf("failed to read runtime config: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse runtime config: %w", err)
	}

	if doc.Cameras == nil {
		doc.Cameras = make(map[string]CameraConfig)
	}
	// Older files may predate the order list.
	if len(doc.Order) != len(doc.Cameras) {
		doc.Order = doc.Order[:0]
		for id := range doc.Cameras {
			doc.Order = append(doc.Order, id)
		}
	}
	doc.Detection.Normalize()

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.logger.Info("Runtime config loaded",
		zap.String("path", s.filePath),
		zap.Int("cameras", len(doc.Cameras)),
	)
	return nil
}

func (s *Store) saveToFileUnsafe() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal runtime config: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write runtime config: %w", err)
	}

	return nil
}

func (s *Store) copyDocUnsafe() Document {
	doc := Document{
		Cameras:   make(map[string]CameraConfig, len(s.doc.Cameras)),
		Order:     append([]string(nil), s.doc.Order...),
		Detection: s.doc.Detection,
	}
	for id, cfg := range s.doc.Cameras {
		doc.Cameras[id] = cfg
	}
	return doc
}
