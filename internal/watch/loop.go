package watch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yourusername/camwatch/internal/camera"
	"github.com/yourusername/camwatch/internal/core"
	"github.com/yourusername/camwatch/internal/observability"
	"go.uber.org/zap"
)

// Start launches the polling loop. The loop is the only long-lived task
// in the core; it runs until Stop.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()

	w.logger.Info("Polling loop started")
}

// Stop terminates the polling loop and releases every open stream handle.
func (w *Watcher) Stop() {
	w.cancel()
	w.wg.Wait()
	w.source.Close()

	w.logger.Info("Polling loop stopped")
}

// run repeats one cycle forever: sweep reachability, poll reachable
// cameras, sleep. Per-camera failures are swallowed at that camera's
// granularity; nothing in here may terminate the loop.
func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		w.sweep(w.ctx)
		w.pollOnce(w.ctx)

		interval := time.Duration(w.settings.Get().CheckIntervalSec) * time.Second
		select {
		case <-w.ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// sweep refreshes the reachability flag of every registered camera. A
// probe failure for one camera never aborts the sweep for the others.
func (w *Watcher) sweep(ctx context.Context) {
	start := time.Now()
	timeout := w.fetchTimeout()

	online := 0
	for _, info := range w.registry.List() {
		if ctx.Err() != nil {
			return
		}

		reachable := w.probe(ctx, info.Config, timeout)
		w.registry.SetStatus(info.ID, reachable)
		if reachable {
			online++
		}
	}

	observability.CamerasOnline.Set(float64(online))
	observability.SweepDuration.Observe(time.Since(start).Seconds())
}

// probe is the cheapest possible reachability check: an authenticated
// HEAD against the camera endpoint.
func (w *Watcher) probe(ctx context.Context, cfg core.CameraConfig, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cfg.URL, nil)
	if err != nil {
		return false
	}
	if cfg.Username != "" {
		req.SetBasicAuth(cfg.Username, cfg.Password)
	}

	resp, err := w.probeClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// pollOnce runs one detection pass over every reachable camera.
func (w *Watcher) pollOnce(ctx context.Context) {
	set := w.settings.Get()
	if !set.Enabled {
		return
	}

	timeout := time.Duration(set.TimeoutSec) * time.Second

	for _, info := range w.registry.List() {
		if ctx.Err() != nil {
			return
		}
		if info.Status != camera.StatusOnline {
			continue
		}

		// The camera may have been removed since List; skip quietly.
		cfg, exists := w.registry.Get(info.ID)
		if !exists {
			continue
		}

		frame, err := w.source.Fetch(ctx, info.ID, cfg, timeout)
		if err != nil {
			observability.FetchFailures.WithLabelValues(info.ID, failureReason(err)).Inc()
			w.logger.Warn("Frame fetch failed",
				zap.String("camera_id", info.ID),
				zap.Error(err),
			)
			continue
		}
		observability.FramesFetched.WithLabelValues(info.ID).Inc()

		res := w.detector.Detect(info.ID, frame)
		if !res.Motion {
			continue
		}

		w.logger.Info("Motion detected",
			zap.String("camera_id", info.ID),
			zap.Int("regions", len(res.Regions)),
			zap.Int("score", res.Score),
		)

		delivered := w.dispatcher.MaybeAlert(ctx, info.ID, res.Frame, set)
		if delivered {
			observability.AlertsDelivered.Inc()
		} else {
			observability.AlertsSuppressed.Inc()
		}

		w.recordEvent(info.ID, res, delivered)
	}

	observability.OpenStreams.Set(float64(w.source.OpenStreams()))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, core.ErrDecodeFailure):
		return "decode"
	case errors.Is(err, core.ErrStreamClosed):
		return "stream_closed"
	case errors.Is(err, core.ErrUnreachable):
		return "unreachable"
	default:
		return "other"
	}
}
