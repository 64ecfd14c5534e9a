package app

import (
	"log"
	"time"

	"github.com/evzhukov/lanekeeper/internal/control"
	"github.com/evzhukov/lanekeeper/internal/telemetry"
	"github.com/evzhukov/lanekeeper/internal/vision"
)

// runLoop drives one Cycle per tick. A cycle that overruns its tick simply
// causes the ticker to skip; the next cycle reads the camera's freshest
// frame, so stale frames are replaced rather than queued.
func (a *App) runLoop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	fps := a.opts.Config.Camera.FPS
	if fps <= 0 {
		fps = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.Cycle()
		}
	}
}

// Cycle processes exactly one frame through the pipeline: crop, segment,
// track, shape, map, publish. Cycles never overlap; the caller (loop or
// test) guarantees serialization.
//
// A malformed frame aborts the cycle without publishing or mutating state.
func (a *App) Cycle() {
	frame, err := a.opts.Camera.ReadFrame()
	if err != nil {
		log.Printf("Error reading frame: %v", err)
		return
	}
	defer frame.Close()

	if stalled, _ := a.stall.Observe(frame); stalled {
		log.Println("Camera feed stalled; holding wheels stopped")
		if err := a.opts.Driver.Stop(); err != nil {
			log.Printf("Error stopping wheels: %v", err)
		}
		a.mu.Lock()
		a.snapshot.Stalled = true
		a.mu.Unlock()
		return
	}

	if !a.IsEnabled() {
		if err := a.opts.Driver.Stop(); err != nil {
			log.Printf("Error stopping wheels: %v", err)
		}
		return
	}

	roi, top, left, err := vision.CropROI(frame, a.opts.Config.ROI)
	if err != nil {
		// Input defect: skip the cycle, publish nothing. The next frame
		// simply arrives.
		log.Printf("Skipping frame: %v", err)
		return
	}
	defer roi.Close()

	segments, err := a.opts.Detector.Detect(&roi)
	if err != nil {
		log.Printf("Error detecting lines: %v", err)
		return
	}

	// Map ROI-local segments back into frame coordinates.
	for i := range segments {
		segments[i] = segments[i].Translate(float64(left), float64(top))
	}

	decision := a.tracker.Update(a.state, segments, float64(frame.Cols()))
	shaped := a.shaper.Shape(a.state, decision)

	state := decision.State
	if shaped.Halted {
		state = control.StateNoLines
	}

	cmd := control.SteeringCommand{
		Angle:        shaped.Steering,
		LaneDetected: decision.LinesSeen,
		State:        state,
	}
	wheels := a.mapper.Map(shaped.Steering, state, shaped.Halted)

	// Publish failures are logged, never fatal: one dropped command is
	// recoverable, a crashed loop is not.
	if wheels == (control.WheelCommand{}) {
		if err := a.opts.Driver.Stop(); err != nil {
			log.Printf("Error stopping wheels: %v", err)
		}
	} else if err := a.opts.Driver.Drive(wheels); err != nil {
		log.Printf("Error driving wheels: %v", err)
	}

	a.publishTelemetry(cmd)

	jpeg := a.annotate(frame, segments, cmd)

	a.mu.Lock()
	a.snapshot = Snapshot{
		JPEG:       jpeg,
		Command:    cmd,
		Wheels:     wheels,
		TurnState:  state.String(),
		FrameIndex: a.frameIndex,
		Stalled:    false,
	}
	a.frameIndex++
	a.mu.Unlock()
}

// publishTelemetry records the cycle's scalar outputs to the store and any
// live publisher.
func (a *App) publishTelemetry(cmd control.SteeringCommand) {
	a.mu.RLock()
	sessionID := a.sessionID
	index := a.frameIndex
	a.mu.RUnlock()

	if a.opts.Store != nil && sessionID != "" {
		rec := telemetry.Record{
			SessionID:    sessionID,
			FrameIndex:   index,
			Steering:     cmd.Angle,
			LaneDetected: cmd.LaneDetected,
			TurnState:    cmd.State.String(),
		}
		if err := a.opts.Store.Frames().Record(rec); err != nil {
			log.Printf("Error recording telemetry: %v", err)
		}
	}

	if a.opts.Publisher != nil {
		sample := telemetry.Sample{
			SessionID:    sessionID,
			FrameIndex:   index,
			Steering:     cmd.Angle,
			LaneDetected: cmd.LaneDetected,
			TurnState:    cmd.State.String(),
			Timestamp:    time.Now().UnixMilli(),
		}
		if err := a.opts.Publisher.Publish(sample); err != nil {
			log.Printf("Error publishing telemetry: %v", err)
		}
	}
}
