package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/yourusername/camwatch/internal/core"
)

// maxSnapshotBytes caps a single snapshot body. Anything bigger than this
// is not a still frame.
const maxSnapshotBytes = 32 << 20

// fetchSnapshot issues one authenticated GET and decodes the body. Each
// call is independent; no state is retained between calls.
func fetchSnapshot(ctx context.Context, client *http.Client, cfg core.CameraConfig) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreachable, err)
	}
	if cfg.Username != "" {
		req.SetBasicAuth(cfg.Username, cfg.Password)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", core.ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnreachable, err)
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDecodeFailure, err)
	}

	return img, nil
}
