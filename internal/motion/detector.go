package motion

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/disintegration/gift"
	"github.com/yourusername/camwatch/internal/core"
	"go.uber.org/zap"
)

// diffDelta is the fixed intensity cut for binarizing the frame
// difference.
const diffDelta = 25

// blurSigma yields an approximately 21x21 Gaussian kernel, enough to
// suppress sensor noise before differencing.
const blurSigma = 3.2

// kernelRadius matches a 5x5 structuring element for the morphological
// pass: dilate twice, erode once.
const kernelRadius = 2

// Result is the outcome of one detection pass.
type Result struct {
	Motion  bool
	Score   int
	Regions []image.Rectangle
	Frame   image.Image
}

// Detector compares each new frame against the camera's stored reference
// frame. Reference frames are internal state: grayscale, blurred, and
// overwritten on every pass regardless of outcome.
type Detector struct {
	mu       sync.Mutex
	refs     map[string]*image.Gray
	settings *Settings
	logger   *zap.Logger
}

// NewDetector creates a motion detector.
func NewDetector(settings *Settings, logger *zap.Logger) *Detector {
	return &Detector{
		refs:     make(map[string]*image.Gray),
		settings: settings,
		logger:   logger,
	}
}

// Detect runs one motion pass for a camera. The first frame for a camera
// only establishes the reference and never reports motion; so does a frame
// whose dimensions differ from the stored reference (camera resolution
// changed).
func (d *Detector) Detect(cameraID string, frame image.Image) Result {
	set := d.settings.Get()
	gray := prepare(frame)

	d.mu.Lock()
	prev, exists := d.refs[cameraID]
	d.refs[cameraID] = gray
	d.mu.Unlock()

	if !exists || !prev.Bounds().Eq(gray.Bounds()) {
		if exists {
			d.logger.Info("Reference frame reset, dimensions changed",
				zap.String("camera_id", cameraID),
			)
		}
		return Result{Frame: frame}
	}

	diff := absDiffThreshold(prev, gray, diffDelta)

	if set.Mode == core.ModeScore {
		score := countNonZero(diff)
		return Result{
			Motion: score >= set.Threshold,
			Score:  score,
			Frame:  frame,
		}
	}

	mask := erode(dilate(dilate(diff, kernelRadius), kernelRadius), kernelRadius)

	var rects []image.Rectangle
	score := 0
	for _, r := range findRegions(mask) {
		if r.area < set.MinContourArea {
			continue
		}
		rects = append(rects, r.bounds)
		score += r.area
	}

	res := Result{
		Motion:  len(rects) > 0,
		Score:   score,
		Regions: rects,
		Frame:   frame,
	}

	if res.Motion && set.DrawContours {
		res.Frame = annotate(frame, rects, set)
	}

	return res
}

// Forget drops a camera's reference frame. Called when a camera is
// removed.
func (d *Detector) Forget(cameraID string) {
	d.mu.Lock()
	delete(d.refs, cameraID)
	d.mu.Unlock()
}

// HasReference reports whether a camera has an established baseline.
func (d *Detector) HasReference(cameraID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, exists := d.refs[cameraID]
	return exists
}

// prepare converts a frame to blurred grayscale for differencing.
func prepare(frame image.Image) *image.Gray {
	g := gift.New(
		gift.Grayscale(),
		gift.GaussianBlur(blurSigma),
	)
	dst := image.NewGray(g.Bounds(frame.Bounds()))
	g.Draw(dst, frame)
	return dst
}

// annotate draws bounding rectangles onto a copy of the frame.
func annotate(frame image.Image, rects []image.Rectangle, set core.DetectionSettings) image.Image {
	b := frame.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, frame, b.Min, draw.Src)

	c := color.RGBA{set.ContourColor[0], set.ContourColor[1], set.ContourColor[2], 255}
	for _, r := range rects {
		drawRect(out, r.Add(b.Min), c, set.ContourThickness)
	}
	return out
}

// drawRect paints the border of a rectangle with the given thickness,
// growing inward.
func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	if thickness < 1 {
		thickness = 1
	}

	for t := 0; t < thickness; t++ {
		top, bottom := r.Min.Y+t, r.Max.Y-1-t
		left, right := r.Min.X+t, r.Max.X-1-t
		if top > bottom || left > right {
			break
		}
		for x := left; x <= right; x++ {
			img.SetRGBA(x, top, c)
			img.SetRGBA(x, bottom, c)
		}
		for y := top; y <= bottom; y++ {
			img.SetRGBA(left, y, c)
			img.SetRGBA(right, y, c)
		}
	}
}
