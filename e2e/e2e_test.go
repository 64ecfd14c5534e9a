package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/evzhukov/lanekeeper/internal/app"
	"github.com/evzhukov/lanekeeper/internal/capture"
	"github.com/evzhukov/lanekeeper/internal/config"
	"github.com/evzhukov/lanekeeper/internal/control"
	"github.com/evzhukov/lanekeeper/internal/drive"
	"github.com/evzhukov/lanekeeper/internal/server"
	"github.com/evzhukov/lanekeeper/internal/telemetry"
	"github.com/evzhukov/lanekeeper/internal/testutil"
	"github.com/evzhukov/lanekeeper/internal/vision"
)

func TestE2E_StraightLaneThroughRealSegmenter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := config.Default()
	cfg.Watchdog.StallFrames = 100000 // a looping frame is frozen by design here

	frame := testutil.LaneFrame(640, 480, 160, 480)
	defer frame.Close()

	camera := capture.NewMockCamera([]*gocv.Mat{frame}, true)
	driver := drive.NewMockDriver()

	a := app.New(app.Options{
		Config:   cfg,
		Camera:   camera,
		Detector: vision.NewSegmenter(cfg.Segmenter),
		Driver:   driver,
	})
	if err := camera.Open(); err != nil {
		t.Fatalf("camera.Open() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		a.Cycle()
	}

	snap := a.Snapshot()
	if snap.TurnState != "NORMAL" {
		t.Errorf("TurnState = %q, want NORMAL on a centered lane", snap.TurnState)
	}
	if !snap.Command.LaneDetected {
		t.Error("LaneDetected = false with both lines painted")
	}
	// The painted lane is centered, so steering stays near zero.
	if snap.Command.Angle < -0.1 || snap.Command.Angle > 0.1 {
		t.Errorf("Angle = %f, want ~0", snap.Command.Angle)
	}

	last := driver.LastCommand()
	if last == (control.WheelCommand{}) {
		t.Error("wheels stopped on a clean lane")
	}
}

func TestE2E_TurnCommitContinueAndHalt(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := config.Default()
	cfg.Watchdog.StallFrames = 100000

	frame := testutil.RoadFrame(640, 480)
	defer frame.Close()

	camera := capture.NewMockCamera([]*gocv.Mat{frame}, true)
	detector := vision.NewMockDetector()
	driver := drive.NewMockDriver()

	a := app.New(app.Options{
		Config:   cfg,
		Camera:   camera,
		Detector: detector,
		Driver:   driver,
	})
	if err := camera.Open(); err != nil {
		t.Fatalf("camera.Open() error = %v", err)
	}

	rightOnly := []vision.Segment{{X1: 480, Y1: 20, X2: 480, Y2: 200}}

	// Phase 1: the left boundary is gone for the full disappear threshold.
	for i := 0; i < 5; i++ {
		detector.QueueSegments(rightOnly)
		a.Cycle()
	}
	if snap := a.Snapshot(); snap.TurnState != "RIGHT_TURN" {
		t.Fatalf("after commit: TurnState = %q, want RIGHT_TURN", snap.TurnState)
	}
	if last := driver.LastCommand(); last.Right <= last.Left {
		t.Fatalf("after commit: wheels = %+v, want Right > Left", driver.LastCommand())
	}

	// Phase 2: every line vanishes; the committed turn continues open-loop
	// for the whole tolerance window.
	for i := 0; i < 10; i++ {
		detector.QueueSegments(nil)
		a.Cycle()

		snap := a.Snapshot()
		if snap.TurnState != "CONTINUE_RIGHT" {
			t.Fatalf("blind frame %d: TurnState = %q, want CONTINUE_RIGHT", i+1, snap.TurnState)
		}
		if last := driver.LastCommand(); last == (control.WheelCommand{}) {
			t.Fatalf("blind frame %d: wheels stopped inside the tolerance window", i+1)
		}
	}

	// Phase 3: tolerance exhausted, full stop.
	detector.QueueSegments(nil)
	a.Cycle()

	snap := a.Snapshot()
	if snap.TurnState != "NO_LINES" {
		t.Errorf("after tolerance: TurnState = %q, want NO_LINES", snap.TurnState)
	}
	if snap.Command.Angle != 0 {
		t.Errorf("after tolerance: Angle = %f, want 0", snap.Command.Angle)
	}
	if last := driver.LastCommand(); last != (control.WheelCommand{}) {
		t.Errorf("after tolerance: wheels = %+v, want full stop", last)
	}
}

func TestE2E_RecoveryAfterBlindTurn(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := config.Default()
	cfg.Watchdog.StallFrames = 100000

	frame := testutil.RoadFrame(640, 480)
	defer frame.Close()

	camera := capture.NewMockCamera([]*gocv.Mat{frame}, true)
	detector := vision.NewMockDetector()
	driver := drive.NewMockDriver()

	a := app.New(app.Options{
		Config:   cfg,
		Camera:   camera,
		Detector: detector,
		Driver:   driver,
	})
	if err := camera.Open(); err != nil {
		t.Fatalf("camera.Open() error = %v", err)
	}

	rightOnly := []vision.Segment{{X1: 480, Y1: 20, X2: 480, Y2: 200}}
	bothLines := []vision.Segment{
		{X1: 160, Y1: 20, X2: 160, Y2: 200},
		{X1: 480, Y1: 20, X2: 480, Y2: 200},
	}

	for i := 0; i < 5; i++ {
		detector.QueueSegments(rightOnly)
		a.Cycle()
	}
	for i := 0; i < 3; i++ {
		detector.QueueSegments(nil)
		a.Cycle()
	}

	// The lane reappears; the controller must drop the commitment at once
	// and settle back to straight driving.
	detector.SetSegments(bothLines)
	for i := 0; i < 20; i++ {
		a.Cycle()
	}

	snap := a.Snapshot()
	if snap.TurnState != "NORMAL" {
		t.Errorf("TurnState = %q, want NORMAL after recovery", snap.TurnState)
	}
	if snap.Command.Angle < -0.01 || snap.Command.Angle > 0.01 {
		t.Errorf("Angle = %f, want ~0 after settling", snap.Command.Angle)
	}

	last := driver.LastCommand()
	if last == (control.WheelCommand{}) {
		t.Error("wheels stopped on a recovered lane")
	}
}

func TestE2E_DebugServerOverRunningController(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	store, err := telemetry.NewStore(filepath.Join(tmpDir, "telemetry.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	frame := testutil.LaneFrame(640, 480, 160, 480)
	defer frame.Close()

	cfg := config.Default()
	cfg.Watchdog.StallFrames = 100000

	camera := capture.NewMockCamera([]*gocv.Mat{frame}, true)
	a := app.New(app.Options{
		Config:   cfg,
		Camera:   camera,
		Detector: vision.NewMockDetector(),
		Driver:   drive.NewMockDriver(),
		Store:    store,
		Note:     "e2e",
	})

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ts := httptest.NewServer(server.New(server.Config{
		Store:      store,
		Controller: a,
	}))
	defer ts.Close()
	client := ts.Client()

	t.Run("Health", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("health request error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["enabled"] != true {
			t.Errorf("enabled = %v, want true", body["enabled"])
		}
		if body["session_id"] != a.SessionID() {
			t.Errorf("session_id = %v, want %q", body["session_id"], a.SessionID())
		}
	})

	a.Stop()

	t.Run("SessionsAfterStop", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/sessions")
		if err != nil {
			t.Fatalf("sessions request error = %v", err)
		}
		defer resp.Body.Close()

		var sessions []telemetry.Session
		if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(sessions) != 1 {
			t.Fatalf("sessions = %d, want 1", len(sessions))
		}
		if sessions[0].EndedAt == nil {
			t.Error("session not marked ended")
		}

		resp2, err := client.Get(ts.URL + "/api/sessions/" + sessions[0].ID + "/stats")
		if err != nil {
			t.Fatalf("stats request error = %v", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			t.Errorf("stats status = %d, want %d", resp2.StatusCode, http.StatusOK)
		}
	})
}
