package core

import (
	"net/url"
	"strings"
)

// SourceType tells the capture layer how a camera delivers frames.
type SourceType string

const (
	// SourceSnapshot cameras serve one JPEG per HTTP GET.
	SourceSnapshot SourceType = "snapshot"
	// SourceMJPEG cameras serve a persistent multipart stream.
	SourceMJPEG SourceType = "mjpeg"
)

// CameraConfig describes a single configured camera.
type CameraConfig struct {
	URL      string     `json:"url"`
	Username string     `json:"username,omitempty"`
	Password string     `json:"password,omitempty"`
	Source   SourceType `json:"source"`
}

// ClassifySource decides the delivery model for a camera URL. It runs once
// at registration time; the result is stored in CameraConfig.Source.
func ClassifySource(rawURL string) SourceType {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)
	if strings.Contains(path, "mjpg") || strings.Contains(path, "mjpeg") {
		return SourceMJPEG
	}
	return SourceSnapshot
}

// DetectionMode selects the motion scoring algorithm.
type DetectionMode string

const (
	// ModeContour extracts connected changed regions and compares their
	// area against MinContourArea.
	ModeContour DetectionMode = "contour"
	// ModeScore counts changed pixels and compares against Threshold.
	// Cheaper; no region extraction, no annotation.
	ModeScore DetectionMode = "score"
)

// CooldownScope selects how alert cooldown is tracked.
type CooldownScope string

const (
	// CooldownGlobal keeps one timestamp for the whole system. An alert on
	// one camera suppresses alerts on every other camera until the window
	// passes. Kept as the default for compatibility with the original
	// deployment behavior.
	CooldownGlobal CooldownScope = "global"
	// CooldownPerCamera keeps one timestamp per camera.
	CooldownPerCamera CooldownScope = "per_camera"
)

// Sensitivity bounds. Values outside the active mode's range are rejected
// by Settings.SetSensitivity.
const (
	MinScoreThreshold = 1000
	MaxScoreThreshold = 100000
	MinContourArea    = 100
	MaxContourArea    = 100000
)

// DetectionSettings holds the process-wide mutable detection parameters.
// Persisted as JSON through the runtime Store whenever changed.
type DetectionSettings struct {
	Enabled          bool          `json:"enabled"`
	Mode             DetectionMode `json:"mode"`
	Threshold        int           `json:"threshold"`
	MinContourArea   int           `json:"min_contour_area"`
	CooldownSeconds  int           `json:"cooldown"`
	CooldownScope    CooldownScope `json:"cooldown_scope"`
	CheckIntervalSec int           `json:"check_interval"`
	TimeoutSec       int           `json:"timeout"`
	DrawContours     bool          `json:"draw_contours"`
	ContourColor     [3]uint8      `json:"contour_color"`
	ContourThickness int           `json:"contour_thickness"`
}

// DefaultDetectionSettings mirrors the defaults the system ships with.
func DefaultDetectionSettings() DetectionSettings {
	return DetectionSettings{
		Enabled:          true,
		Mode:             ModeContour,
		Threshold:        30000,
		MinContourArea:   1000,
		CooldownSeconds:  30,
		CooldownScope:    CooldownGlobal,
		CheckIntervalSec: 5,
		TimeoutSec:       10,
		DrawContours:     true,
		ContourColor:     [3]uint8{0, 255, 0},
		ContourThickness: 2,
	}
}

// Normalize clamps loaded values into their valid ranges and fills zero
// fields with defaults. Used when reading persisted settings; interactive
// setters reject instead of clamping.
func (d *DetectionSettings) Normalize() {
	def := DefaultDetectionSettings()

	if d.Mode != ModeContour && d.Mode != ModeScore {
		d.Mode = def.Mode
	}
	if d.CooldownScope != CooldownGlobal && d.CooldownScope != CooldownPerCamera {
		d.CooldownScope = def.CooldownScope
	}
	d.Threshold = clampInt(d.Threshold, MinScoreThreshold, MaxScoreThreshold)
	d.MinContourArea = clampInt(d.MinContourArea, MinContourArea, MaxContourArea)
	if d.CooldownSeconds <= 0 {
		d.CooldownSeconds = def.CooldownSeconds
	}
	if d.CheckIntervalSec <= 0 {
		d.CheckIntervalSec = def.CheckIntervalSec
	}
	if d.TimeoutSec <= 0 {
		d.TimeoutSec = def.TimeoutSec
	}
	if d.ContourThickness <= 0 {
		d.ContourThickness = def.ContourThickness
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
