package proctor

import (
	"sync"
)

// riskWeights are the fixed per type contributions to the session risk score
var riskWeights = map[ViolationType]int{
	MultipleFaces:     15,
	NoFace:            10,
	TabSwitch:         8,
	HeadPoseViolation: 5,
	GazeAway:          4,
}

// RiskWeight returns the fixed risk score contribution for a violation type
func RiskWeight(vtype ViolationType) int {
	return riskWeights[vtype]
}

// RiskScorer accumulates a weighted session risk score from confirmed
// violations.  The score starts at 0 and is monotonically non decreasing
// for the session, no decay or forgiveness is modeled.  Safe for
// concurrent use.
type RiskScorer struct {
	mu    sync.Mutex
	score int
}

// NewRiskScorer returns a RiskScorer with a zero score
func NewRiskScorer() *RiskScorer {
	return &RiskScorer{}
}

// Add records a confirmed violation of the given type and returns the
// updated session score
func (r *RiskScorer) Add(vtype ViolationType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.score += riskWeights[vtype]
	return r.score
}

// Score returns the current session risk score
func (r *RiskScorer) Score() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.score
}

// Reset returns the score to 0 for reuse across sessions
func (r *RiskScorer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.score = 0
}
