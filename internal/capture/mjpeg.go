package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yourusername/camwatch/internal/core"
	"go.uber.org/zap"
)

// Stream handle states. Liveness is explicit so transitions can be
// exercised in tests instead of inferred from the next read.
const (
	handleOpen int32 = iota
	handleClosed
)

// streamHandle is one persistent MJPEG connection. A handle is not safe
// for concurrent reads; the Source serializes access per camera.
type streamHandle struct {
	cameraID string
	url      string
	resp     *http.Response
	parts    *multipart.Reader
	cancel   context.CancelFunc
	state    atomic.Int32
	logger   *zap.Logger
}

// openStream establishes a persistent multipart connection. The timeout
// bounds dialing and response headers, not the stream lifetime.
func openStream(cameraID string, cfg core.CameraConfig, timeout time.Duration, logger *zap.Logger) (*streamHandle, error) {
	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", core.ErrUnreachable, err)
	}
	req.Header.Set("Accept", "multipart/x-mixed-replace")
	req.Header.Set("Cache-Control", "no-cache")
	if cfg.Username != "" {
		req.SetBasicAuth(cfg.Username, cfg.Password)
	}

	client := &http.Client{
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
			ResponseHeaderTimeout: timeout,
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", core.ErrUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: unexpected status %d", core.ErrUnreachable, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: not a multipart stream (content-type %q)", core.ErrUnreachable, contentType)
	}

	h := &streamHandle{
		cameraID: cameraID,
		url:      cfg.URL,
		resp:     resp,
		parts:    multipart.NewReader(resp.Body, params["boundary"]),
		cancel:   cancel,
		logger:   logger,
	}

	logger.Debug("Stream opened", zap.String("camera_id", cameraID))
	return h, nil
}

// Usable reports whether the handle can serve another read.
func (h *streamHandle) Usable() bool {
	return h.state.Load() == handleOpen
}

type frameResult struct {
	img image.Image
	err error
}

// ReadFrame reads the next part from the stream and decodes it. The read
// is bounded by timeout; a stalled stream is closed rather than allowed
// to wedge the polling cycle.
func (h *streamHandle) ReadFrame(timeout time.Duration) (image.Image, error) {
	if !h.Usable() {
		return nil, core.ErrStreamClosed
	}

	ch := make(chan frameResult, 1)
	go func() {
		ch <- h.readNext()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil && !isDecodeFailure(res.err) {
			h.Close()
		}
		return res.img, res.err
	case <-timer.C:
		// The blocked reader unwinds once the body is closed.
		h.Close()
		return nil, fmt.Errorf("%w: read timed out after %s", core.ErrStreamClosed, timeout)
	}
}

func (h *streamHandle) readNext() frameResult {
	part, err := h.parts.NextPart()
	if err != nil {
		return frameResult{err: fmt.Errorf("%w: %v", core.ErrStreamClosed, err)}
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxSnapshotBytes))
	if err != nil {
		return frameResult{err: fmt.Errorf("%w: %v", core.ErrStreamClosed, err)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// The part boundary kept the stream aligned, so the handle
		// survives a single undecodable frame.
		return frameResult{err: fmt.Errorf("%w: %v", core.ErrDecodeFailure, err)}
	}

	return frameResult{img: img}
}

// Close invalidates the handle and releases the connection. Safe to call
// more than once.
func (h *streamHandle) Close() {
	if !h.state.CompareAndSwap(handleOpen, handleClosed) {
		return
	}
	h.cancel()
	h.resp.Body.Close()
	h.logger.Debug("Stream closed", zap.String("camera_id", h.cameraID))
}
