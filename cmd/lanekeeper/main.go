package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/evzhukov/lanekeeper/internal/app"
	"github.com/evzhukov/lanekeeper/internal/capture"
	"github.com/evzhukov/lanekeeper/internal/config"
	"github.com/evzhukov/lanekeeper/internal/drive"
	"github.com/evzhukov/lanekeeper/internal/server"
	"github.com/evzhukov/lanekeeper/internal/telemetry"
	"github.com/evzhukov/lanekeeper/internal/tray"
	"github.com/evzhukov/lanekeeper/internal/vision"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to JSON config file (defaults apply if empty)")
		serialPort = flag.String("serial", "", "serial port of the motor board (e.g. /dev/ttyUSB0)")
		motorExec  = flag.String("motor-exec", "", "path to a motor helper binary driven over stdin")
		natsURL    = flag.String("nats", "", "NATS URL for live telemetry (optional)")
		httpAddr   = flag.String("http", ":8080", "debug server listen address")
		dbPath     = flag.String("db", "", "telemetry database path (default ~/.lanekeeper/telemetry.db)")
		note       = flag.String("note", "", "free-form note stored with the session")
		useTray    = flag.Bool("tray", false, "show a system tray toggle (bench runs)")
	)
	flag.Parse()

	fmt.Println("Lanekeeper - Visual Lane Following")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	store, err := telemetry.NewStore(resolveDBPath(*dbPath))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry store: %v", err)
	}
	defer store.Close()

	driver, err := buildDriver(*serialPort, *motorExec)
	if err != nil {
		log.Fatalf("Failed to initialize motor driver: %v", err)
	}
	defer driver.Close()

	var publisher telemetry.Publisher
	if *natsURL != "" {
		pub, err := telemetry.NewNATSPublisher(*natsURL, "lanekeeper.telemetry")
		if err != nil {
			log.Printf("NATS unavailable (%v), live telemetry disabled", err)
		} else {
			publisher = pub
			defer pub.Close()
		}
	}

	segmenter := vision.NewSegmenter(cfg.Segmenter)

	controller := app.New(app.Options{
		Config:    cfg,
		Camera:    capture.NewCamera(cfg.Camera),
		Detector:  segmenter,
		Driver:    driver,
		Store:     store,
		Publisher: publisher,
		Note:      *note,
	})

	if err := controller.Start(); err != nil {
		log.Fatalf("Failed to start controller: %v", err)
	}
	defer controller.Stop()

	srv := server.New(server.Config{
		Store:      store,
		Controller: controller,
	})
	go func() {
		log.Printf("Debug server listening on %s", *httpAddr)
		if err := srv.ListenAndServe(*httpAddr); err != nil {
			log.Printf("Debug server stopped: %v", err)
		}
	}()

	if *useTray {
		runTray(controller)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down")
}

// buildDriver picks the actuator backend: serial board, exec helper, or a
// mock when neither is configured (vision-only bench runs).
func buildDriver(serialPort, motorExec string) (drive.Driver, error) {
	switch {
	case serialPort != "":
		return drive.NewSerialDriver(serialPort)
	case motorExec != "":
		return drive.NewExecDriver(motorExec)
	default:
		log.Println("No motor backend configured, using mock driver")
		return drive.NewMockDriver(), nil
	}
}

func resolveDBPath(dbPath string) string {
	if dbPath != "" {
		return dbPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dir := filepath.Join(homeDir, ".lanekeeper")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	return filepath.Join(dir, "telemetry.db")
}

// runTray blocks on the system tray event loop, mirroring controller state
// into the menu.
func runTray(controller *app.App) {
	t := tray.New()
	t.OnToggle(controller.SetEnabled)
	t.OnQuit(func() {})

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			t.SetTurnState(controller.Snapshot().TurnState)
		}
	}()

	t.Run()
}
