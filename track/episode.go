package track

// EpisodeState represents the state of a violation episode
type EpisodeState int

const (
	// No qualifying ticks are currently being observed
	Clear EpisodeState = 0
	// Qualifying ticks are accumulating but have not reached the threshold
	Suspect EpisodeState = 1
	// The episode has been confirmed and emitted, further qualifying ticks
	// extend the run without re-emission
	Confirmed EpisodeState = 2
)

// Episode tracks the lifecycle of a single violation type from its first
// qualifying tick through confirmation and back to clearing
type Episode struct {
	// Current state of the episode
	state EpisodeState
	// Length of the current unbroken run of qualifying ticks
	runLength int
	// Number of consecutive qualifying ticks required to confirm
	threshold int
}

// NewEpisode creates a new Episode in the Clear state
func NewEpisode(threshold int) *Episode {
	return &Episode{
		state:     Clear,
		threshold: threshold,
	}
}

// State returns the current state of the episode
func (e *Episode) State() EpisodeState {
	return e.state
}

// RunLength returns the length of the current unbroken qualifying run
func (e *Episode) RunLength() int {
	return e.runLength
}

// Observe drives the episode with one tick's qualification and reports
// whether this tick confirmed the episode.  Confirmation happens exactly
// once per sustained run, on the tick the run length reaches the
// threshold.  A non qualifying tick resets the episode to Clear with a
// zero run length and never confirms.
func (e *Episode) Observe(qualifies bool) bool {

	if !qualifies {
		e.state = Clear
		e.runLength = 0
		return false
	}

	e.runLength++

	switch e.state {
	case Clear:
		e.state = Suspect

	case Confirmed:
		// run keeps extending, already emitted
		return false
	}

	if e.runLength >= e.threshold {
		e.state = Confirmed
		return true
	}

	return false
}
