// Package app wires the capture, vision, control, and drive layers into the
// lane-following controller.
package app

import (
	"log"
	"sync"

	"github.com/evzhukov/lanekeeper/internal/capture"
	"github.com/evzhukov/lanekeeper/internal/config"
	"github.com/evzhukov/lanekeeper/internal/control"
	"github.com/evzhukov/lanekeeper/internal/drive"
	"github.com/evzhukov/lanekeeper/internal/telemetry"
	"github.com/evzhukov/lanekeeper/internal/vision"
)

// Options holds the collaborators and tunables for the controller.
type Options struct {
	Config    config.Config
	Camera    capture.Camera
	Detector  vision.Detector
	Driver    drive.Driver
	Store     *telemetry.Store    // optional
	Publisher telemetry.Publisher // optional
	Note      string              // free-form session note
}

// Snapshot is the most recent cycle's published output, kept for the debug
// server. The JPEG is the annotated frame; it is observational only and
// never read back by the controller.
type Snapshot struct {
	JPEG       []byte
	Command    control.SteeringCommand
	Wheels     control.WheelCommand
	TurnState  string
	FrameIndex int
	Stalled    bool
}

// App runs the single-consumer control cycle.
type App struct {
	opts Options

	tracker *control.Tracker
	shaper  *control.Shaper
	mapper  *control.Mapper
	state   *control.State
	stall   *capture.StallDetector

	sessionID  string
	frameIndex int

	enabled  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.RWMutex
	snapshot Snapshot
}

// New creates an App from the given options. The camera is opened by Start.
func New(opts Options) *App {
	return &App{
		opts:    opts,
		tracker: control.NewTracker(opts.Config.Tracker),
		shaper:  control.NewShaper(opts.Config.Shaper),
		mapper:  control.NewMapper(opts.Config.Drive),
		state:   control.NewState(),
		stall:   capture.NewStallDetector(opts.Config.Watchdog),
		enabled: true,
	}
}

// SetEnabled enables or disables steering output. While disabled, frames
// are still consumed but the wheels are held stopped.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether steering output is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Snapshot returns the most recent cycle's output.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// SessionID returns the telemetry session for this run, if any.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

// Start opens the camera, begins a telemetry session, and launches the
// control loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.opts.Camera.Open(); err != nil {
		return err
	}

	if a.opts.Store != nil {
		sess, err := a.opts.Store.Sessions().Create(a.opts.Note)
		if err != nil {
			log.Printf("Failed to create telemetry session: %v", err)
		} else {
			a.sessionID = sess.ID
		}
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runLoop(a.stopCh, a.doneCh)

	log.Println("Control loop started")
	return nil
}

// Stop halts the control loop, stops the wheels, and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh := a.stopCh
	doneCh := a.doneCh
	a.stopCh = nil
	a.doneCh = nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	if err := a.opts.Driver.Stop(); err != nil {
		log.Printf("Error stopping wheels: %v", err)
	}

	if err := a.opts.Camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	a.stall.Close()

	if err := a.opts.Detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}

	if a.opts.Store != nil && a.sessionID != "" {
		if err := a.opts.Store.Sessions().End(a.sessionID); err != nil {
			log.Printf("Error ending telemetry session: %v", err)
		}
	}

	log.Println("Control loop stopped")
}
