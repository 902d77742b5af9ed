package proctor

import (
	"sync"
	"testing"
)

// TestRiskScorer checks the accumulated score equals the sum of the fixed
// per type weights
func TestRiskScorer(t *testing.T) {

	rs := NewRiskScorer()

	if rs.Score() != 0 {
		t.Fatalf("initial score = %d, want 0", rs.Score())
	}

	sequence := []ViolationType{
		NoFace, TabSwitch, MultipleFaces, GazeAway, HeadPoseViolation, NoFace,
	}

	want := 0
	for _, vtype := range sequence {
		want += RiskWeight(vtype)
		got := rs.Add(vtype)

		if got != want {
			t.Errorf("score after %s = %d, want %d", vtype, got, want)
		}
	}

	// 10+8+15+4+5+10
	if rs.Score() != 52 {
		t.Errorf("final score = %d, want 52", rs.Score())
	}

	rs.Reset()

	if rs.Score() != 0 {
		t.Errorf("score after reset = %d, want 0", rs.Score())
	}
}

// TestRiskScorerConcurrent checks the scorer tolerates concurrent writers
func TestRiskScorerConcurrent(t *testing.T) {

	rs := NewRiskScorer()

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rs.Add(GazeAway)
			}
		}()
	}

	wg.Wait()

	if got := rs.Score(); got != 8*100*4 {
		t.Errorf("concurrent score = %d, want %d", got, 8*100*4)
	}
}
