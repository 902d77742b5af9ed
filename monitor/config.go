package monitor

import (
	"fmt"
	"log"
	"time"

	"github.com/examio/go-proctor"
	"github.com/examio/go-proctor/estimate"
)

// ConfigError reports a malformed configuration rejected at engine
// construction time, before any detection starts
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("monitor: invalid config field %s: %s", e.Field, e.Reason)
}

// Config defines the engine configuration.  Start from DefaultConfig and
// override what you need; NewEngine fills any zero valued numeric field
// with its documented default and validates the result into the fully
// resolved configuration used for the whole session.
type Config struct {
	// DetectionInterval is the tick cadence.  Default 500ms.
	DetectionInterval time.Duration
	// ConsecutiveFrameThreshold is the debounce run length required to
	// confirm a violation.  Default 3.
	ConsecutiveFrameThreshold int
	// HeadPoseThresholds are the per axis degree limits for the head pose
	// check.  Default yaw 30, pitch 25, roll 20.
	HeadPoseThresholds estimate.PoseThresholds
	// GazeThreshold is the normalized gaze offset limit in (0, 1].
	// Default 0.3.
	GazeThreshold float64
	// CaptureSnapshots attaches a JPEG frame to each confirmed frame based
	// violation.  DefaultConfig enables it.
	CaptureSnapshots bool
	// AnnotateSnapshots draws the detection overlay (face boxes, landmarks,
	// violation banner) onto captured snapshots
	AnnotateSnapshots bool
	// OnViolation is invoked once per confirmed episode.  May be nil.
	OnViolation func(proctor.Violation)
	// OnStatusChange is invoked after any tick that changes the status.
	// May be nil.
	OnStatusChange func(Status)
	// Logger receives skipped tick and discarded result notices.  Defaults
	// to log.Default().
	Logger *log.Logger
}

// DefaultConfig returns the fully populated default configuration
func DefaultConfig() Config {
	return Config{
		DetectionInterval:         500 * time.Millisecond,
		ConsecutiveFrameThreshold: 3,
		HeadPoseThresholds:        estimate.DefaultPoseThresholds(),
		GazeThreshold:             0.3,
		CaptureSnapshots:          true,
	}
}

// resolve merges defaults into zero valued fields and validates, returning
// the immutable session configuration
func (c Config) resolve() (Config, error) {

	defaults := DefaultConfig()

	if c.DetectionInterval == 0 {
		c.DetectionInterval = defaults.DetectionInterval
	}

	if c.ConsecutiveFrameThreshold == 0 {
		c.ConsecutiveFrameThreshold = defaults.ConsecutiveFrameThreshold
	}

	if c.HeadPoseThresholds.Yaw == 0 {
		c.HeadPoseThresholds.Yaw = defaults.HeadPoseThresholds.Yaw
	}

	if c.HeadPoseThresholds.Pitch == 0 {
		c.HeadPoseThresholds.Pitch = defaults.HeadPoseThresholds.Pitch
	}

	if c.HeadPoseThresholds.Roll == 0 {
		c.HeadPoseThresholds.Roll = defaults.HeadPoseThresholds.Roll
	}

	if c.GazeThreshold == 0 {
		c.GazeThreshold = defaults.GazeThreshold
	}

	if c.Logger == nil {
		c.Logger = log.Default()
	}

	if c.DetectionInterval < 0 {
		return Config{}, &ConfigError{"DetectionInterval", "must be positive"}
	}

	if c.ConsecutiveFrameThreshold < 0 {
		return Config{}, &ConfigError{"ConsecutiveFrameThreshold", "must be at least 1"}
	}

	if c.HeadPoseThresholds.Yaw < 0 || c.HeadPoseThresholds.Pitch < 0 ||
		c.HeadPoseThresholds.Roll < 0 {
		return Config{}, &ConfigError{"HeadPoseThresholds", "axis limits must be positive"}
	}

	if c.GazeThreshold < 0 || c.GazeThreshold > 1 {
		return Config{}, &ConfigError{"GazeThreshold", "must lie in (0, 1]"}
	}

	return c, nil
}
