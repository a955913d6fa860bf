package motion

import (
	"fmt"
	"sync"

	"github.com/yourusername/camwatch/internal/core"
	"go.uber.org/zap"
)

// Settings wraps the process-wide detection parameters. Every mutation is
// validated, applied, and persisted through the runtime store; rejected
// values leave the prior state untouched.
type Settings struct {
	mu      sync.RWMutex
	current core.DetectionSettings
	store   *core.Store
	logger  *zap.Logger
}

// NewSettings seeds settings from the persisted runtime document.
func NewSettings(store *core.Store, logger *zap.Logger) *Settings {
	current := store.Snapshot().Detection
	current.Normalize()

	return &Settings{
		current: current,
		store:   store,
		logger:  logger,
	}
}

// Get returns a copy of the current settings.
func (s *Settings) Get() core.DetectionSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Sensitivity returns the active mode's sensitivity value.
func (s *Settings) Sensitivity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current.Mode == core.ModeScore {
		return s.current.Threshold
	}
	return s.current.MinContourArea
}

// SetSensitivity updates the active mode's sensitivity. Values outside the
// mode's valid range are rejected with ErrInvalidConfig.
func (s *Settings) SetSensitivity(value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.current.Mode {
	case core.ModeScore:
		if value < core.MinScoreThreshold || value > core.MaxScoreThreshold {
			return fmt.Errorf("%w: threshold %d outside %d-%d",
				core.ErrInvalidConfig, value, core.MinScoreThreshold, core.MaxScoreThreshold)
		}
		updated := s.current
		updated.Threshold = value
		return s.applyUnsafe(updated, "threshold", value)
	default:
		if value < core.MinContourArea || value > core.MaxContourArea {
			return fmt.Errorf("%w: min contour area %d outside %d-%d",
				core.ErrInvalidConfig, value, core.MinContourArea, core.MaxContourArea)
		}
		updated := s.current
		updated.MinContourArea = value
		return s.applyUnsafe(updated, "min_contour_area", value)
	}
}

// SetEnabled toggles motion detection globally.
func (s *Settings) SetEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.current
	updated.Enabled = enabled
	if err := s.applyUnsafe(updated, "enabled", enabled); err != nil {
		return err
	}
	return nil
}

// SetMode switches between the contour and score detection variants.
func (s *Settings) SetMode(mode core.DetectionMode) error {
	if mode != core.ModeContour && mode != core.ModeScore {
		return fmt.Errorf("%w: unknown detection mode %q", core.ErrInvalidConfig, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.current
	updated.Mode = mode
	return s.applyUnsafe(updated, "mode", string(mode))
}

func (s *Settings) applyUnsafe(updated core.DetectionSettings, field string, value interface{}) error {
	if err := s.store.PutDetection(updated); err != nil {
		return err
	}
	s.current = updated

	s.logger.Info("Detection settings changed",
		zap.String("field", field),
		zap.Any("value", value),
	)
	return nil
}
