// Package track debounces raw per tick violation signals into confirmed
// episodes.  One episode exists per violation type; a violation is
// confirmed only after a configured number of consecutive qualifying
// ticks, and is emitted once per sustained run rather than once per frame.
package track

import (
	"github.com/examio/go-proctor"
)

// Tracker maintains the per type episode state machines for a session.
// Tracker is not safe for concurrent use, the monitor engine serializes
// all calls through its loop goroutine.
type Tracker struct {
	// Number of consecutive qualifying ticks required to confirm a
	// violation type without an override
	threshold int
	// Per type threshold overrides
	overrides map[proctor.ViolationType]int
	// Episodes created lazily on first occurrence of a type
	episodes map[proctor.ViolationType]*Episode
	// Count of confirmed violations for the session
	total int
}

// NewTracker initializes and returns a new Tracker.  Tab switch reports
// bypass frame based debouncing, so their episode threshold is fixed at 1
// and every report is immediately eligible.
func NewTracker(threshold int) *Tracker {
	return &Tracker{
		threshold: threshold,
		overrides: map[proctor.ViolationType]int{
			proctor.TabSwitch: 1,
		},
		episodes: make(map[proctor.ViolationType]*Episode),
	}
}

// Observe drives every known episode with one tick's signals and returns
// the signals whose episodes were confirmed on this tick.  Types without a
// signal this tick are driven with a non qualifying observation, resetting
// their run.
func (t *Tracker) Observe(signals []proctor.Signal) []proctor.Signal {

	qualifying := make(map[proctor.ViolationType]proctor.Signal, len(signals))

	for _, sig := range signals {
		qualifying[sig.Type] = sig
		t.ensureEpisode(sig.Type)
	}

	var confirmed []proctor.Signal

	for vtype, ep := range t.episodes {
		sig, qualifies := qualifying[vtype]

		if ep.Observe(qualifies) {
			t.total++
			confirmed = append(confirmed, sig)
		}
	}

	return confirmed
}

// Inject feeds a single out of band report, such as a tab switch pushed by
// the browser visibility collaborator, through the episode machinery
// outside the per tick frame pipeline.  The report counts as a one tick
// qualifying pulse followed by a clear tick, so with a threshold of 1
// every report confirms.  Returns the confirmed signal, or nil when the
// report only advanced a run.
func (t *Tracker) Inject(sig proctor.Signal) *proctor.Signal {

	ep := t.ensureEpisode(sig.Type)

	confirmed := ep.Observe(true)

	// the pulse ends immediately so the next report starts a fresh run
	ep.Observe(false)

	if !confirmed {
		return nil
	}

	t.total++
	return &sig
}

// RunLengths returns a snapshot of the current unbroken qualifying run
// length per violation type
func (t *Tracker) RunLengths() map[proctor.ViolationType]int {

	lengths := make(map[proctor.ViolationType]int, len(t.episodes))

	for vtype, ep := range t.episodes {
		lengths[vtype] = ep.RunLength()
	}

	return lengths
}

// Total returns the number of confirmed violations for the session.  The
// count is monotonically non decreasing and increases by exactly one per
// confirmation.
func (t *Tracker) Total() int {
	return t.total
}

// Reset clears all episode state and the confirmed count
func (t *Tracker) Reset() {
	t.episodes = make(map[proctor.ViolationType]*Episode)
	t.total = 0
}

// ensureEpisode lazily creates the episode for a violation type
func (t *Tracker) ensureEpisode(vtype proctor.ViolationType) *Episode {

	ep, ok := t.episodes[vtype]

	if !ok {
		thr := t.threshold

		if o, ok := t.overrides[vtype]; ok {
			thr = o
		}

		ep = NewEpisode(thr)
		t.episodes[vtype] = ep
	}

	return ep
}
