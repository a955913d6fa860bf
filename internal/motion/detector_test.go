package motion

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/camwatch/internal/core"
	"go.uber.org/zap"
)

func newTestSettings(t *testing.T) *Settings {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runtime.json")
	store, err := core.NewStore(path, core.DefaultDetectionSettings(), zap.NewNop())
	require.NoError(t, err)

	return NewSettings(store, zap.NewNop())
}

func newTestDetector(t *testing.T) (*Detector, *Settings) {
	t.Helper()

	settings := newTestSettings(t)
	return NewDetector(settings, zap.NewNop()), settings
}

// flatFrame is a uniform dark frame.
func flatFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{40, 40, 40, 255}), image.Point{}, draw.Src)
	return img
}

// frameWithBlock is a flat frame with a bright rectangle painted in.
func frameWithBlock(w, h int, block image.Rectangle) *image.RGBA {
	img := flatFrame(w, h)
	for y := block.Min.Y; y < block.Max.Y; y++ {
		for x := block.Min.X; x < block.Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{230, 230, 230, 255})
		}
	}
	return img
}

func TestDetectFirstFrameEstablishesReference(t *testing.T) {
	d, _ := newTestDetector(t)

	res := d.Detect("cam", flatFrame(200, 200))

	assert.False(t, res.Motion)
	assert.Zero(t, res.Score)
	assert.True(t, d.HasReference("cam"))
}

func TestDetectIdenticalFramesNoMotion(t *testing.T) {
	d, _ := newTestDetector(t)

	d.Detect("cam", flatFrame(200, 200))
	res := d.Detect("cam", flatFrame(200, 200))

	assert.False(t, res.Motion)
	assert.Empty(t, res.Regions)
}

func TestDetectBlockTriggersMotion(t *testing.T) {
	d, _ := newTestDetector(t)

	d.Detect("cam", flatFrame(200, 200))
	res := d.Detect("cam", frameWithBlock(200, 200, image.Rect(60, 60, 140, 140)))

	require.True(t, res.Motion)
	require.NotEmpty(t, res.Regions)
	assert.GreaterOrEqual(t, res.Score, 80*80/2)

	// The region must roughly cover the injected block.
	r := res.Regions[0]
	assert.True(t, r.Overlaps(image.Rect(60, 60, 140, 140)))
}

func TestDetectAnnotatesFrame(t *testing.T) {
	d, _ := newTestDetector(t)

	d.Detect("cam", flatFrame(200, 200))
	res := d.Detect("cam", frameWithBlock(200, 200, image.Rect(60, 60, 140, 140)))
	require.True(t, res.Motion)

	// The annotated copy must contain at least one pixel of the configured
	// contour color; the source frame is gray throughout.
	annotated, ok := res.Frame.(*image.RGBA)
	require.True(t, ok)

	found := false
	b := annotated.Bounds()
	for y := b.Min.Y; y < b.Max.Y && !found; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if annotated.RGBAAt(x, y) == (color.RGBA{0, 255, 0, 255}) {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "expected contour color in annotated frame")
}

func TestDetectBelowMinAreaIgnored(t *testing.T) {
	d, settings := newTestDetector(t)
	require.NoError(t, settings.SetSensitivity(50000))

	d.Detect("cam", flatFrame(200, 200))
	res := d.Detect("cam", frameWithBlock(200, 200, image.Rect(60, 60, 140, 140)))

	// 80x80 is far below a 50000 pixel minimum area.
	assert.False(t, res.Motion)
	assert.Empty(t, res.Regions)
}

func TestDetectDimensionChangeResetsReference(t *testing.T) {
	d, _ := newTestDetector(t)

	d.Detect("cam", flatFrame(200, 200))
	res := d.Detect("cam", frameWithBlock(320, 240, image.Rect(60, 60, 140, 140)))

	// A resolution change re-baselines instead of reporting motion.
	assert.False(t, res.Motion)

	res = d.Detect("cam", frameWithBlock(320, 240, image.Rect(60, 60, 140, 140)))
	assert.False(t, res.Motion, "new reference matches the repeated frame")
}

func TestDetectScoreMode(t *testing.T) {
	d, settings := newTestDetector(t)
	require.NoError(t, settings.SetMode(core.ModeScore))

	d.Detect("cam", flatFrame(300, 300))
	res := d.Detect("cam", frameWithBlock(300, 300, image.Rect(40, 40, 260, 260)))

	// A 220x220 change is well above the default 30000 pixel threshold.
	assert.True(t, res.Motion)
	assert.Greater(t, res.Score, 30000)
	assert.Empty(t, res.Regions, "score mode extracts no regions")

	res = d.Detect("cam", frameWithBlock(300, 300, image.Rect(40, 40, 260, 260)))
	assert.False(t, res.Motion)
}

func TestDetectForget(t *testing.T) {
	d, _ := newTestDetector(t)

	d.Detect("cam", flatFrame(100, 100))
	require.True(t, d.HasReference("cam"))

	d.Forget("cam")
	assert.False(t, d.HasReference("cam"))

	res := d.Detect("cam", frameWithBlock(100, 100, image.Rect(10, 10, 90, 90)))
	assert.False(t, res.Motion, "first frame after forget only re-baselines")
}

func TestDetectIndependentCameras(t *testing.T) {
	d, _ := newTestDetector(t)

	d.Detect("a", flatFrame(100, 100))
	res := d.Detect("b", frameWithBlock(100, 100, image.Rect(10, 10, 90, 90)))

	assert.False(t, res.Motion, "cameras must not share reference frames")
}
