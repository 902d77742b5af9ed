// Package monitor runs the proctoring detection loop.  The engine ticks at
// a fixed interval, pulls a frame, drives the face detection, estimation,
// classification and debounce pipeline and publishes confirmed violations
// and status snapshots through callbacks.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/examio/go-proctor"
	"github.com/examio/go-proctor/classify"
	"github.com/examio/go-proctor/render"
	"github.com/examio/go-proctor/track"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// ErrModelNotLoaded is returned by Start when LoadModels has not completed
// successfully
var ErrModelNotLoaded = errors.New("monitor: model not loaded")

// Detector is the face detection capability consumed by the engine
type Detector interface {
	// LoadModels prepares the detector, it must complete before detection
	// starts
	LoadModels() error
	// Detect returns the faces found in a frame, an empty slice when none
	Detect(frame gocv.Mat) ([]proctor.Face, error)
}

// FrameSource supplies the current camera frame on demand.  Returning
// ok=false means no frame is available for this tick, which the engine
// treats the same as a frame with no faces.  A returned frame is owned by
// the engine and closed once the tick completes.
type FrameSource interface {
	Frame() (frame gocv.Mat, ok bool)
}

// tickResult carries one detection outcome from the capture goroutine back
// to the loop, tagged with the epoch of the session it was started under
type tickResult struct {
	epoch    uint64
	frame    gocv.Mat
	hasFrame bool
	faces    []proctor.Face
	err      error
}

// session holds the state of one Start/Stop detection cycle.  Each session
// owns its results channel and single flight flag, so a capture outliving
// Stop can never interleave with the session started after it.
type session struct {
	// epoch identifies the session, results from a dead session carry a
	// stale epoch and are discarded on arrival
	epoch   uint64
	cancel  context.CancelFunc
	done    chan struct{}
	results chan tickResult
	// inFlight enforces single flight detection, a timer firing while a
	// detection is outstanding is skipped rather than queued
	inFlight atomic.Bool
}

// Engine drives the detection pipeline on a timer.  Lifecycle: Idle until
// LoadModels succeeds, Ready until Start, Detecting while the loop ticks,
// Stopped after Stop with the final status retained for inspection.
type Engine struct {
	cfg Config
	src FrameSource
	det Detector

	classifier *classify.Classifier
	tracker    *track.Tracker
	risk       *proctor.RiskScorer

	// lifecycle state
	mu     sync.Mutex
	loaded bool
	// sess is the running session, nil while stopped
	sess *session

	// epoch issues session identities
	epoch atomic.Uint64

	statusMu   sync.Mutex
	status     Status
	lastPushed *Status

	tabReports chan proctor.Signal
}

// NewEngine creates an engine from a frame source, a detector and a
// configuration.  The configuration is resolved against the documented
// defaults and validated, a malformed configuration is rejected here
// before any detection starts.
func NewEngine(src FrameSource, det Detector, cfg Config) (*Engine, error) {

	resolved, err := cfg.resolve()

	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg: resolved,
		src: src,
		det: det,
		classifier: classify.NewClassifier(classify.Params{
			PoseThresholds: resolved.HeadPoseThresholds,
			GazeThreshold:  resolved.GazeThreshold,
		}),
		tracker:    track.NewTracker(resolved.ConsecutiveFrameThreshold),
		risk:       proctor.NewRiskScorer(),
		tabReports: make(chan proctor.Signal, 16),
	}, nil
}

// LoadModels loads the detector model.  It must complete successfully
// before Start is accepted; a failure is recorded on the status and the
// engine stays idle.
func (e *Engine) LoadModels() error {

	err := e.det.LoadModels()

	e.mu.Lock()
	e.loaded = err == nil
	e.mu.Unlock()

	e.mutateStatus(func(s *Status) {
		s.ModelLoaded = err == nil

		if err != nil {
			s.Err = err.Error()
		}
	})
	e.pushStatus()

	return err
}

// Start begins the detection loop.  It returns immediately, the loop runs
// in its own goroutine.  Starting while already detecting is a no-op;
// starting before a successful LoadModels is an error.
func (e *Engine) Start() error {

	e.mu.Lock()

	if !e.loaded {
		e.mu.Unlock()
		return ErrModelNotLoaded
	}

	if e.sess != nil {
		e.mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &session{
		epoch:   e.epoch.Add(1),
		cancel:  cancel,
		done:    make(chan struct{}),
		results: make(chan tickResult, 4),
	}

	e.sess = s

	e.mutateStatus(func(st *Status) {
		st.Detecting = true
		st.Err = ""
	})

	go e.run(ctx, s)

	e.mu.Unlock()

	// push outside the lifecycle lock so callbacks may call back into
	// the engine
	e.pushStatus()

	return nil
}

// Stop cancels the detection loop.  It returns immediately; the loop winds
// down asynchronously and a detection call still in flight has its result
// discarded on arrival.  The last status is retained, not reset, so final
// counts stay inspectable.
func (e *Engine) Stop() {

	e.mu.Lock()

	s := e.sess

	if s == nil {
		e.mu.Unlock()
		return
	}

	e.sess = nil
	s.cancel()

	// discard queued tab reports so they cannot count against a session
	// started later
drain:
	for {
		select {
		case <-e.tabReports:
		default:
			break drain
		}
	}

	e.mu.Unlock()

	go func() {
		<-s.done

		// the lifecycle lock serializes this against Start: only record
		// the stop if no new session has taken over the status since
		e.mu.Lock()

		if e.sess == nil {
			e.mutateStatus(func(st *Status) {
				st.Detecting = false
			})
		}

		e.mu.Unlock()
		e.pushStatus()
	}()
}

// ReportTabSwitch injects a tab or window switch report from the browser
// visibility collaborator.  Reports bypass the frame pipeline and are
// immediately eligible for confirmation.  Safe to call from any goroutine;
// reports arriving while the engine is not detecting are dropped.
func (e *Engine) ReportTabSwitch() {

	e.mu.Lock()
	detecting := e.sess != nil
	e.mu.Unlock()

	if !detecting {
		e.cfg.Logger.Printf("monitor: tab switch report dropped, not detecting")
		return
	}

	sig := proctor.Signal{
		Type:       proctor.TabSwitch,
		Confidence: 1.0,
	}

	select {
	case e.tabReports <- sig:
	default:
		e.cfg.Logger.Printf("monitor: tab switch report dropped, queue full")
	}
}

// Status returns a copy of the current detection status
func (e *Engine) Status() Status {

	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	return e.status.clone()
}

// RiskScore returns the accumulated session risk score
func (e *Engine) RiskScore() int {
	return e.risk.Score()
}

// run is the detection loop for one session.  It is the only writer of
// tracker and status state while detecting.
func (e *Engine) run(ctx context.Context, s *session) {

	defer close(s.done)

	ticker := time.NewTicker(e.cfg.DetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if s.inFlight.Load() {
				e.cfg.Logger.Printf("monitor: detection still in flight, skipping tick")
				continue
			}

			s.inFlight.Store(true)

			go e.capture(s)

		case res := <-s.results:
			if res.epoch != s.epoch {
				// a result from another session must not clear this
				// session's single flight flag
				e.cfg.Logger.Printf("monitor: discarding stale detection result")
				e.closeFrame(&res)
				continue
			}

			s.inFlight.Store(false)
			e.finishTick(res)

		case sig := <-e.tabReports:
			e.applyReport(sig)
		}
	}
}

// capture pulls a frame and runs detection off the loop goroutine, then
// hands the result back to its session tagged with the session's epoch
func (e *Engine) capture(s *session) {

	res := tickResult{epoch: s.epoch}

	if frame, ok := e.src.Frame(); ok {
		res.frame = frame
		res.hasFrame = true
		res.faces, res.err = e.det.Detect(frame)
	}

	select {
	case s.results <- res:
	default:
		// loop is gone or backed up, drop rather than block
		e.closeFrame(&res)
	}
}

// finishTick applies one detection result to the pipeline, emitting any
// newly confirmed violations and publishing the status change
func (e *Engine) finishTick(res tickResult) {

	defer e.closeFrame(&res)

	if res.err != nil {
		// a failed tick is skipped, never fatal to the loop
		e.cfg.Logger.Printf("monitor: detection failed: %v", res.err)

		e.mutateStatus(func(s *Status) {
			s.Err = res.err.Error()
		})
		e.pushStatus()
		return
	}

	signals, pose := e.classifier.Classify(res.faces)

	for _, sig := range e.tracker.Observe(signals) {
		e.emit(sig, &res)
	}

	e.mutateStatus(func(s *Status) {
		s.FaceCount = len(res.faces)
		s.HeadPose = pose
		s.RunLengths = e.tracker.RunLengths()
		s.TotalViolations = e.tracker.Total()
		s.Err = ""
	})
	e.pushStatus()
}

// applyReport feeds an out of band report through the tracker
func (e *Engine) applyReport(sig proctor.Signal) {

	if confirmed := e.tracker.Inject(sig); confirmed != nil {
		e.emit(*confirmed, nil)
	}

	e.mutateStatus(func(s *Status) {
		s.RunLengths = e.tracker.RunLengths()
		s.TotalViolations = e.tracker.Total()
	})
	e.pushStatus()
}

// emit builds and delivers a confirmed violation, scoring it into the
// session risk
func (e *Engine) emit(sig proctor.Signal, res *tickResult) {

	details := sig.Details
	details.Description = proctor.DescribeViolation(sig.Type, details)

	violation := proctor.Violation{
		ID:         uuid.NewString(),
		Type:       sig.Type,
		Timestamp:  time.Now(),
		Confidence: sig.Confidence,
		Severity:   proctor.GradeSeverity(sig.Type, sig.Confidence),
		Details:    details,
	}

	if e.cfg.CaptureSnapshots && res != nil && res.hasFrame {
		violation.Snapshot = e.encodeSnapshot(res, violation)
	}

	e.risk.Add(sig.Type)

	if e.cfg.OnViolation != nil {
		e.cfg.OnViolation(violation)
	}
}

// encodeSnapshot JPEG encodes the tick's frame, optionally annotated with
// the detection overlay
func (e *Engine) encodeSnapshot(res *tickResult, v proctor.Violation) []byte {

	if e.cfg.AnnotateSnapshots {
		annotated := res.frame.Clone()
		defer annotated.Close()

		render.FaceBoxes(&annotated, res.faces, render.DefaultFont(), 2)
		render.FaceLandmarks(&annotated, res.faces)

		if v.Details.HeadPose != nil && len(res.faces) == 1 {
			render.PoseAxes(&annotated, res.faces[0], *v.Details.HeadPose, 60)
		}

		render.Banner(&annotated, v.Details.Description, v.Severity,
			render.BannerFont())

		return encodeJPEG(annotated, e.cfg.Logger)
	}

	return encodeJPEG(res.frame, e.cfg.Logger)
}

// mutateStatus applies a change to the status under its lock
func (e *Engine) mutateStatus(apply func(*Status)) {

	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	apply(&e.status)
}

// pushStatus delivers the status through OnStatusChange when it differs
// from the previously pushed snapshot
func (e *Engine) pushStatus() {

	e.statusMu.Lock()

	if e.lastPushed != nil && e.status.equal(*e.lastPushed) {
		e.statusMu.Unlock()
		return
	}

	snapshot := e.status.clone()
	e.lastPushed = &snapshot

	e.statusMu.Unlock()

	if e.cfg.OnStatusChange != nil {
		// deliver a second copy so the callback owns its snapshot
		e.cfg.OnStatusChange(snapshot.clone())
	}
}

// closeFrame releases the frame carried by a tick result
func (e *Engine) closeFrame(res *tickResult) {

	if res.hasFrame {
		res.frame.Close()
		res.hasFrame = false
	}
}
