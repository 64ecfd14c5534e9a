// Package config holds all controller tunables, fixed at startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ROI describes the region of interest as edge ratios in [0,1] of the
// frame dimensions.
type ROI struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Segmenter holds the white-line segmentation parameters.
type Segmenter struct {
	// GrayThreshold is the minimum grayscale intensity for the intensity mask.
	GrayThreshold float64 `json:"gray_threshold"`

	// HSV bounds for white-ish road paint: low saturation, high value.
	HSVLowH float64 `json:"hsv_low_h"`
	HSVLowS float64 `json:"hsv_low_s"`
	HSVLowV float64 `json:"hsv_low_v"`
	HSVHiH  float64 `json:"hsv_hi_h"`
	HSVHiS  float64 `json:"hsv_hi_s"`
	HSVHiV  float64 `json:"hsv_hi_v"`

	// LabLThreshold is the minimum L channel value in CIE Lab space.
	LabLThreshold float64 `json:"lab_l_threshold"`

	// CloseKernel bridges small gaps, OpenKernel removes noise specks.
	CloseKernel int `json:"close_kernel"`
	OpenKernel  int `json:"open_kernel"`

	CannyLow  float32 `json:"canny_low"`
	CannyHigh float32 `json:"canny_high"`

	// Probabilistic Hough parameters.
	HoughThreshold int     `json:"hough_threshold"`
	HoughMinLength float32 `json:"hough_min_length"`
	HoughMaxGap    float32 `json:"hough_max_gap"`

	// Segment validity filters.
	MinSegmentLength float64 `json:"min_segment_length"`
	MinAngleDeg      float64 `json:"min_angle_deg"`
	MaxRunOverRise   float64 `json:"max_run_over_rise"`
}

// Tracker holds the turn-prediction state machine parameters.
type Tracker struct {
	// DisappearFrames is how many consecutive one-sided frames commit a turn.
	DisappearFrames int `json:"disappear_frames"`

	// StrongTurn and ModerateTurn are the two discrete committed-turn
	// steering magnitudes.
	StrongTurn   float64 `json:"strong_turn"`
	ModerateTurn float64 `json:"moderate_turn"`

	// StrongTurnRatio selects the strong magnitude when the surviving
	// line's mean x exceeds this multiple of the half-width.
	StrongTurnRatio float64 `json:"strong_turn_ratio"`

	// LaneOffsetPx is the lateral offset held from a lone line.
	LaneOffsetPx float64 `json:"lane_offset_px"`

	// NarrowLanePx flags NARROWING when the left/right spread drops below it.
	NarrowLanePx float64 `json:"narrow_lane_px"`

	// ShiftRatio flags SHIFTING when |deviation| exceeds this fraction of
	// the half-width.
	ShiftRatio float64 `json:"shift_ratio"`

	// MinCommit is the minimum |last valid steering| required to continue a
	// turn open-loop once both lines are gone.
	MinCommit float64 `json:"min_commit"`

	// ContinueFactor amplifies the held steering in the continue scenario.
	ContinueFactor float64 `json:"continue_factor"`

	// ValidThreshold is the minimum |steering| recorded as last valid.
	ValidThreshold float64 `json:"valid_threshold"`
}

// Shaper holds amplification and smoothing parameters.
type Shaper struct {
	TurnGain     float64 `json:"turn_gain"`
	ContinueGain float64 `json:"continue_gain"`

	// SmoothWeight blends the previous output into a fresh detection.
	SmoothWeight float64 `json:"smooth_weight"`

	// DecayFactor decays the previous output while lines are briefly absent.
	DecayFactor float64 `json:"decay_factor"`

	// NoLineTolerance is the streak length after which the robot stops.
	NoLineTolerance int `json:"no_line_tolerance"`
}

// Drive holds the speed ladder and differential-drive geometry.
type Drive struct {
	BaseSpeed     float64 `json:"base_speed"`
	ModerateSpeed float64 `json:"moderate_speed"`
	SharpSpeed    float64 `json:"sharp_speed"`
	TurnSpeed     float64 `json:"turn_speed"`

	SharpThreshold    float64 `json:"sharp_threshold"`
	ModerateThreshold float64 `json:"moderate_threshold"`

	AngularGain float64 `json:"angular_gain"`
	TurnBoost   float64 `json:"turn_boost"`
	MaxAngular  float64 `json:"max_angular"`
	Wheelbase   float64 `json:"wheelbase"`
}

// Camera holds the capture settings.
type Camera struct {
	DeviceID int `json:"device_id"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	FPS      int `json:"fps"`
}

// Watchdog holds the frozen-feed detection settings.
type Watchdog struct {
	// MinChangePercent is the frame-difference percentage below which a
	// frame counts as identical to its predecessor.
	MinChangePercent float64 `json:"min_change_percent"`

	// StallFrames is how many identical frames in a row declare the feed
	// stalled.
	StallFrames int `json:"stall_frames"`
}

// Config bundles every tunable of the controller.
type Config struct {
	Camera    Camera    `json:"camera"`
	ROI       ROI       `json:"roi"`
	Segmenter Segmenter `json:"segmenter"`
	Tracker   Tracker   `json:"tracker"`
	Shaper    Shaper    `json:"shaper"`
	Drive     Drive     `json:"drive"`
	Watchdog  Watchdog  `json:"watchdog"`
}

// Default returns the configuration tuned for a 640x480 forward camera.
func Default() Config {
	return Config{
		Camera: Camera{
			DeviceID: 0,
			Width:    640,
			Height:   480,
			FPS:      20,
		},
		ROI: ROI{
			Top:    0.5,
			Bottom: 1.0,
			Left:   0.0,
			Right:  1.0,
		},
		Segmenter: Segmenter{
			GrayThreshold:    180,
			HSVLowH:          0,
			HSVLowS:          0,
			HSVLowV:          180,
			HSVHiH:           180,
			HSVHiS:           40,
			HSVHiV:           255,
			LabLThreshold:    190,
			CloseKernel:      3,
			OpenKernel:       5,
			CannyLow:         50,
			CannyHigh:        150,
			HoughThreshold:   20,
			HoughMinLength:   15,
			HoughMaxGap:      10,
			MinSegmentLength: 15,
			MinAngleDeg:      8,
			MaxRunOverRise:   3,
		},
		Tracker: Tracker{
			DisappearFrames: 5,
			StrongTurn:      0.8,
			ModerateTurn:    0.6,
			StrongTurnRatio: 1.1,
			LaneOffsetPx:    160,
			NarrowLanePx:    240,
			ShiftRatio:      0.4,
			MinCommit:       0.3,
			ContinueFactor:  1.2,
			ValidThreshold:  0.05,
		},
		Shaper: Shaper{
			TurnGain:        1.3,
			ContinueGain:    1.1,
			SmoothWeight:    0.25,
			DecayFactor:     0.8,
			NoLineTolerance: 10,
		},
		Drive: Drive{
			BaseSpeed:         0.18,
			ModerateSpeed:     0.14,
			SharpSpeed:        0.10,
			TurnSpeed:         0.08,
			SharpThreshold:    0.6,
			ModerateThreshold: 0.3,
			AngularGain:       1.2,
			TurnBoost:         1.3,
			MaxAngular:        2.0,
			Wheelbase:         0.16,
		},
		Watchdog: Watchdog{
			MinChangePercent: 0.01,
			StallFrames:      30,
		},
	}
}

// Load reads a JSON config file over the defaults. Fields missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks invariants that would otherwise surface as silent
// misbehavior deep in the pipeline.
func (c Config) Validate() error {
	r := c.ROI
	if r.Top < 0 || r.Bottom > 1 || r.Left < 0 || r.Right > 1 {
		return fmt.Errorf("roi ratios must lie in [0,1], got %+v", r)
	}
	if r.Top >= r.Bottom || r.Left >= r.Right {
		return fmt.Errorf("roi is empty: %+v", r)
	}

	if c.Tracker.DisappearFrames < 1 {
		return fmt.Errorf("tracker disappear_frames must be >= 1, got %d", c.Tracker.DisappearFrames)
	}
	if c.Shaper.NoLineTolerance < 1 {
		return fmt.Errorf("shaper no_line_tolerance must be >= 1, got %d", c.Shaper.NoLineTolerance)
	}
	if c.Shaper.SmoothWeight < 0 || c.Shaper.SmoothWeight >= 1 {
		return fmt.Errorf("shaper smooth_weight must lie in [0,1), got %f", c.Shaper.SmoothWeight)
	}
	if c.Drive.Wheelbase <= 0 {
		return fmt.Errorf("drive wheelbase must be positive, got %f", c.Drive.Wheelbase)
	}

	return nil
}
