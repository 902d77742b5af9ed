package monitor

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/examio/go-proctor"
	"gocv.io/x/gocv"
)

// stubDetector is a Detector test double.  It never touches the frame so
// tests can run without a camera or model file.
type stubDetector struct {
	loadErr error
	faces   []proctor.Face
	err     error
	calls   atomic.Int32
}

func (d *stubDetector) LoadModels() error {
	return d.loadErr
}

func (d *stubDetector) Detect(frame gocv.Mat) ([]proctor.Face, error) {
	d.calls.Add(1)
	return d.faces, d.err
}

// emptySource reports no frame available, every tick classifies as an
// empty frame
type emptySource struct {
	delay time.Duration
	calls atomic.Int32
}

func (s *emptySource) Frame() (gocv.Mat, bool) {
	s.calls.Add(1)

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	return gocv.Mat{}, false
}

// violationRecorder collects violations delivered on the engine goroutine
type violationRecorder struct {
	mu   sync.Mutex
	list []proctor.Violation
}

func (r *violationRecorder) record(v proctor.Violation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, v)
}

func (r *violationRecorder) all() []proctor.Violation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]proctor.Violation(nil), r.list...)
}

func (r *violationRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(2 * time.Millisecond)
	}

	t.Fatal(msg)
}

func TestStartRequiresLoadedModel(t *testing.T) {

	det := &stubDetector{loadErr: errors.New("model file missing")}

	eng, err := NewEngine(&emptySource{}, det, Config{})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	if err := eng.LoadModels(); err == nil {
		t.Fatal("LoadModels should propagate the detector error")
	}

	status := eng.Status()

	if status.ModelLoaded {
		t.Error("status reports model loaded after failure")
	}

	if !strings.Contains(status.Err, "model file missing") {
		t.Errorf("status error = %q, want load failure recorded", status.Err)
	}

	if err := eng.Start(); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Start error = %v, want ErrModelNotLoaded", err)
	}
}

func TestLoadModelsSetsStatus(t *testing.T) {

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	if err := eng.LoadModels(); err != nil {
		t.Fatalf("LoadModels returned error: %v", err)
	}

	if !eng.Status().ModelLoaded {
		t.Error("status does not report model loaded")
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {

	_, err := NewEngine(&emptySource{}, &stubDetector{},
		Config{ConsecutiveFrameThreshold: -2})

	var cfgErr *ConfigError

	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
}

func TestEmptyTickConfirmsNoFace(t *testing.T) {

	rec := &violationRecorder{}

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		ConsecutiveFrameThreshold: 1,
		OnViolation:               rec.record,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	eng.finishTick(tickResult{})

	violations := rec.all()

	if len(violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(violations))
	}

	v := violations[0]

	if v.Type != proctor.NoFace {
		t.Errorf("type = %s, want no_face", v.Type)
	}

	if v.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", v.Confidence)
	}

	if v.Severity != proctor.SeverityHigh {
		t.Errorf("severity = %s, want high", v.Severity)
	}

	if v.ID == "" {
		t.Error("violation has no ID")
	}

	if v.Timestamp.IsZero() {
		t.Error("violation has no timestamp")
	}

	if v.Details.Description == "" {
		t.Error("violation has no description")
	}

	if v.Snapshot != nil {
		t.Error("snapshot attached with capture disabled")
	}

	if got := eng.RiskScore(); got != proctor.RiskWeight(proctor.NoFace) {
		t.Errorf("risk score = %d, want %d", got, proctor.RiskWeight(proctor.NoFace))
	}

	status := eng.Status()

	if status.FaceCount != 0 {
		t.Errorf("face count = %d, want 0", status.FaceCount)
	}

	if status.RunLengths[proctor.NoFace] != 1 {
		t.Errorf("no_face run length = %d, want 1", status.RunLengths[proctor.NoFace])
	}

	if status.TotalViolations != 1 {
		t.Errorf("total violations = %d, want 1", status.TotalViolations)
	}
}

func TestDebounceAcrossTicks(t *testing.T) {

	rec := &violationRecorder{}

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		ConsecutiveFrameThreshold: 3,
		OnViolation:               rec.record,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	// two empty ticks, below the confirmation threshold
	eng.finishTick(tickResult{})
	eng.finishTick(tickResult{})

	if rec.count() != 0 {
		t.Fatalf("violations before threshold = %d, want 0", rec.count())
	}

	// third consecutive empty tick confirms
	eng.finishTick(tickResult{})

	if rec.count() != 1 {
		t.Fatalf("violations at threshold = %d, want 1", rec.count())
	}

	// the condition persisting does not re-emit
	eng.finishTick(tickResult{})

	if rec.count() != 1 {
		t.Errorf("violations after confirmation = %d, want 1", rec.count())
	}

	if got := eng.Status().RunLengths[proctor.NoFace]; got != 4 {
		t.Errorf("run length = %d, want 4", got)
	}
}

func TestMultipleFacesCritical(t *testing.T) {

	rec := &violationRecorder{}

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		ConsecutiveFrameThreshold: 1,
		OnViolation:               rec.record,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	faces := []proctor.Face{
		{Bounds: proctor.FaceBounds{X: 10, Y: 20, Width: 100, Height: 120}, Score: 0.95},
		{Bounds: proctor.FaceBounds{X: 300, Y: 40, Width: 90, Height: 110}, Score: 0.92},
	}

	eng.finishTick(tickResult{faces: faces})

	violations := rec.all()

	if len(violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(violations))
	}

	v := violations[0]

	if v.Type != proctor.MultipleFaces {
		t.Errorf("type = %s, want multiple_faces", v.Type)
	}

	if v.Severity != proctor.SeverityCritical {
		t.Errorf("severity = %s, want critical for confidence %v", v.Severity, v.Confidence)
	}

	if v.Details.FaceCount != 2 {
		t.Errorf("face count = %d, want 2", v.Details.FaceCount)
	}

	if len(v.Details.FaceBounds) != 2 {
		t.Errorf("face bounds = %d, want 2", len(v.Details.FaceBounds))
	}

	if got := eng.Status().FaceCount; got != 2 {
		t.Errorf("status face count = %d, want 2", got)
	}
}

func TestDetectionErrorSkipsTick(t *testing.T) {

	rec := &violationRecorder{}

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		ConsecutiveFrameThreshold: 1,
		OnViolation:               rec.record,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	eng.finishTick(tickResult{err: errors.New("camera fault")})

	if rec.count() != 0 {
		t.Fatalf("violations after failed tick = %d, want 0", rec.count())
	}

	if got := eng.Status().Err; !strings.Contains(got, "camera fault") {
		t.Errorf("status error = %q, want detection failure recorded", got)
	}

	// a following good tick clears the error and counts normally
	eng.finishTick(tickResult{})

	if rec.count() != 1 {
		t.Errorf("violations after recovery = %d, want 1", rec.count())
	}

	if got := eng.Status().Err; got != "" {
		t.Errorf("status error = %q, want cleared", got)
	}
}

func TestTabSwitchReports(t *testing.T) {

	rec := &violationRecorder{}

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		ConsecutiveFrameThreshold: 3,
		OnViolation:               rec.record,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	// reports bypass the debounce threshold, each one confirms
	eng.applyReport(proctor.Signal{Type: proctor.TabSwitch, Confidence: 1.0})
	eng.applyReport(proctor.Signal{Type: proctor.TabSwitch, Confidence: 1.0})

	violations := rec.all()

	if len(violations) != 2 {
		t.Fatalf("violations = %d, want 2", len(violations))
	}

	for _, v := range violations {
		if v.Type != proctor.TabSwitch {
			t.Errorf("type = %s, want tab_switch", v.Type)
		}

		if v.Severity != proctor.SeverityMedium {
			t.Errorf("severity = %s, want medium", v.Severity)
		}
	}

	if got := eng.Status().TotalViolations; got != 2 {
		t.Errorf("total violations = %d, want 2", got)
	}

	if got := eng.RiskScore(); got != 2*proctor.RiskWeight(proctor.TabSwitch) {
		t.Errorf("risk score = %d, want %d", got, 2*proctor.RiskWeight(proctor.TabSwitch))
	}
}

func TestStatusPushedOnlyOnChange(t *testing.T) {

	var (
		mu     sync.Mutex
		pushes int
	)

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		OnStatusChange: func(Status) {
			mu.Lock()
			pushes++
			mu.Unlock()
		},
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	eng.mutateStatus(func(s *Status) { s.FaceCount = 1 })
	eng.pushStatus()
	eng.pushStatus()

	mu.Lock()
	got := pushes
	mu.Unlock()

	if got != 1 {
		t.Errorf("pushes = %d, want 1 for an unchanged status", got)
	}

	eng.mutateStatus(func(s *Status) { s.FaceCount = 2 })
	eng.pushStatus()

	mu.Lock()
	got = pushes
	mu.Unlock()

	if got != 2 {
		t.Errorf("pushes = %d, want 2 after a change", got)
	}
}

func TestDetectionLoop(t *testing.T) {

	rec := &violationRecorder{}

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		DetectionInterval:         5 * time.Millisecond,
		ConsecutiveFrameThreshold: 1,
		OnViolation:               rec.record,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	if err := eng.LoadModels(); err != nil {
		t.Fatalf("LoadModels returned error: %v", err)
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	// starting again while detecting is a no-op
	if err := eng.Start(); err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}

	// the continuous no_face run confirms exactly once, liveness shows up
	// as the run length growing tick over tick
	waitFor(t, 2*time.Second, func() bool { return rec.count() >= 1 },
		"loop produced no violations")

	waitFor(t, 2*time.Second, func() bool {
		return eng.Status().RunLengths[proctor.NoFace] >= 3
	}, "run length did not grow across ticks")

	if !eng.Status().Detecting {
		t.Error("status does not report detecting")
	}

	eng.Stop()

	waitFor(t, 2*time.Second, func() bool { return !eng.Status().Detecting },
		"status never reported stopped")

	// no further violations arrive once stopped
	settled := rec.count()
	time.Sleep(50 * time.Millisecond)

	if got := rec.count(); got != settled {
		t.Errorf("violations grew from %d to %d after Stop", settled, got)
	}

	if got := rec.count(); got != 1 {
		t.Errorf("violations = %d, want 1 for an unbroken run", got)
	}

	// counts survive the stop for inspection
	if got := eng.Status().TotalViolations; got != 1 {
		t.Errorf("total violations = %d, want 1", got)
	}
}

func TestSingleFlightSkipsTicks(t *testing.T) {

	src := &emptySource{delay: 50 * time.Millisecond}

	eng, err := NewEngine(src, &stubDetector{}, Config{
		DetectionInterval:         10 * time.Millisecond,
		ConsecutiveFrameThreshold: 1,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	if err := eng.LoadModels(); err != nil {
		t.Fatalf("LoadModels returned error: %v", err)
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	time.Sleep(120 * time.Millisecond)
	eng.Stop()

	waitFor(t, 2*time.Second, func() bool { return !eng.Status().Detecting },
		"status never reported stopped")

	// ~12 timer ticks fired but captures outlast the interval, so most
	// ticks must have been skipped rather than queued
	if got := src.calls.Load(); got < 1 || got > 5 {
		t.Errorf("capture calls = %d, want between 1 and 5", got)
	}
}

// currentSession reads the running session under the lifecycle lock
func currentSession(e *Engine) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess
}

func TestStaleResultDiscarded(t *testing.T) {

	rec := &violationRecorder{}

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		// long interval so only injected results drive the loop
		DetectionInterval:         time.Minute,
		ConsecutiveFrameThreshold: 1,
		OnViolation:               rec.record,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	if err := eng.LoadModels(); err != nil {
		t.Fatalf("LoadModels returned error: %v", err)
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	defer eng.Stop()

	s := currentSession(eng)

	// a result tagged with a dead session must be discarded, the one
	// tagged with the current session processed
	s.results <- tickResult{epoch: s.epoch + 1}
	s.results <- tickResult{epoch: s.epoch}

	waitFor(t, 2*time.Second, func() bool { return rec.count() >= 1 },
		"current session result was not processed")

	if got := rec.count(); got != 1 {
		t.Errorf("violations = %d, want 1 with the stale result discarded", got)
	}
}

func TestStaleResultKeepsSingleFlight(t *testing.T) {

	rec := &violationRecorder{}

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		DetectionInterval:         time.Minute,
		ConsecutiveFrameThreshold: 1,
		OnViolation:               rec.record,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	if err := eng.LoadModels(); err != nil {
		t.Fatalf("LoadModels returned error: %v", err)
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	defer eng.Stop()

	s := currentSession(eng)

	// simulate a capture outstanding for this session, then deliver a
	// result from a dead session
	s.inFlight.Store(true)
	s.results <- tickResult{epoch: s.epoch + 1}

	time.Sleep(50 * time.Millisecond)

	if !s.inFlight.Load() {
		t.Error("stale result cleared the session's single flight flag")
	}

	if rec.count() != 0 {
		t.Errorf("violations = %d, want 0 from a stale result", rec.count())
	}

	// the session's own result still completes the tick and re-arms
	s.results <- tickResult{epoch: s.epoch}

	waitFor(t, 2*time.Second, func() bool { return !s.inFlight.Load() },
		"current session result did not clear the single flight flag")

	if got := rec.count(); got != 1 {
		t.Errorf("violations = %d, want 1", got)
	}
}

func TestRestartAfterStopKeepsDetecting(t *testing.T) {

	rec := &violationRecorder{}

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		DetectionInterval:         5 * time.Millisecond,
		ConsecutiveFrameThreshold: 1,
		OnViolation:               rec.record,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	if err := eng.LoadModels(); err != nil {
		t.Fatalf("LoadModels returned error: %v", err)
	}

	if err := eng.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	// restart immediately, racing the previous session's wind down
	eng.Stop()

	if err := eng.Start(); err != nil {
		t.Fatalf("restart returned error: %v", err)
	}

	defer eng.Stop()

	// the tracker's no_face run carries across sessions, so liveness of
	// the restarted loop shows as the run length growing
	before := eng.Status().RunLengths[proctor.NoFace]

	waitFor(t, 2*time.Second, func() bool {
		return eng.Status().RunLengths[proctor.NoFace] > before
	}, "restarted session is not ticking")

	// give the old session's wind down goroutine time to finish, it must
	// not flip the new session's status back to stopped
	time.Sleep(100 * time.Millisecond)

	if !eng.Status().Detecting {
		t.Error("status reports stopped while the restarted session runs")
	}
}

func TestTabSwitchDroppedWhileStopped(t *testing.T) {

	rec := &violationRecorder{}

	eng, err := NewEngine(&emptySource{}, &stubDetector{}, Config{
		// long interval so only tab reports drive the loop
		DetectionInterval: time.Minute,
		OnViolation:       rec.record,
	})

	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	if err := eng.LoadModels(); err != nil {
		t.Fatalf("LoadModels returned error: %v", err)
	}

	// a report before any session starts must not carry over
	eng.ReportTabSwitch()

	if err := eng.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if got := rec.count(); got != 0 {
		t.Fatalf("violations = %d, want 0 from a pre-start report", got)
	}

	// a report during the session confirms
	eng.ReportTabSwitch()

	waitFor(t, 2*time.Second, func() bool { return rec.count() == 1 },
		"running session report was not confirmed")

	eng.Stop()

	waitFor(t, 2*time.Second, func() bool { return !eng.Status().Detecting },
		"status never reported stopped")

	// a report after Stop must not replay into the next session
	eng.ReportTabSwitch()

	if err := eng.Start(); err != nil {
		t.Fatalf("restart returned error: %v", err)
	}

	defer eng.Stop()

	time.Sleep(50 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Errorf("violations = %d, want 1 with stopped-state reports dropped", got)
	}
}
