package alert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/yourusername/camwatch/internal/core"
	"go.uber.org/zap"
)

// jpegQuality for encoded alert photos.
const jpegQuality = 85

// Notifier delivers an encoded alert image to the operator channel.
type Notifier interface {
	SendPhoto(ctx context.Context, jpegData []byte, caption string) error
}

// Dispatcher serializes alert delivery under a cooldown window. It is the
// only component that mutates the cooldown state. Delivery failures are
// logged and do not consume the window, so the next motion event retries
// as soon as the cooldown would otherwise allow.
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger

	mu           sync.Mutex
	lastGlobal   time.Time
	lastByCamera map[string]time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// NewDispatcher creates an alert dispatcher.
func NewDispatcher(notifier Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notifier:     notifier,
		logger:       logger,
		lastByCamera: make(map[string]time.Time),
		now:          time.Now,
	}
}

// MaybeAlert encodes the frame and delivers it unless the cooldown window
// is still open. Returns whether an alert was actually delivered. Errors
// never propagate past this boundary.
func (d *Dispatcher) MaybeAlert(ctx context.Context, cameraID string, frame image.Image, set core.DetectionSettings) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	cooldown := time.Duration(set.CooldownSeconds) * time.Second

	last := d.lastGlobal
	if set.CooldownScope == core.CooldownPerCamera {
		last = d.lastByCamera[cameraID]
	}
	if !last.IsZero() && now.Sub(last) < cooldown {
		d.logger.Debug("Alert suppressed by cooldown",
			zap.String("camera_id", cameraID),
			zap.Duration("remaining", cooldown-now.Sub(last)),
		)
		return false
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		d.logger.Error("Failed to encode alert frame",
			zap.String("camera_id", cameraID),
			zap.Error(err),
		)
		return false
	}

	caption := fmt.Sprintf("Motion detected on camera %s (%s)",
		cameraID, now.Format("2006-01-02 15:04:05"))

	if err := d.notifier.SendPhoto(ctx, buf.Bytes(), caption); err != nil {
		d.logger.Error("Alert delivery failed",
			zap.String("camera_id", cameraID),
			zap.Error(fmt.Errorf("%w: %v", core.ErrDeliveryFailure, err)),
		)
		return false
	}

	if set.CooldownScope == core.CooldownPerCamera {
		d.lastByCamera[cameraID] = now
	} else {
		d.lastGlobal = now
	}

	d.logger.Info("Alert delivered", zap.String("camera_id", cameraID))
	return true
}

// Forget drops a camera's cooldown entry. Called when a camera is removed.
func (d *Dispatcher) Forget(cameraID string) {
	d.mu.Lock()
	delete(d.lastByCamera, cameraID)
	d.mu.Unlock()
}
