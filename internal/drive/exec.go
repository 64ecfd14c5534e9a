package drive

import (
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/evzhukov/lanekeeper/internal/control"
)

// execDriver streams wheel commands to a long-lived helper process as JSON
// lines on its stdin. This suits motor stacks driven by an external script
// (a GPIO helper, a vendor tool) rather than a serial board; the motor-sim
// helper under plugins/ speaks the same protocol.
type execDriver struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *json.Encoder
	mu    sync.Mutex
}

// NewExecDriver launches the helper and returns a Driver writing to it.
func NewExecDriver(executable string, args ...string) (Driver, error) {
	cmd := exec.Command(executable, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("helper stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start motor helper %s: %w", executable, err)
	}

	return &execDriver{
		cmd:   cmd,
		stdin: stdin,
		enc:   json.NewEncoder(stdin),
	}, nil
}

// Drive sends one JSON command line to the helper.
func (d *execDriver) Drive(cmd control.WheelCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.enc.Encode(cmd); err != nil {
		return fmt.Errorf("write wheel command to helper: %w", err)
	}
	return nil
}

// Stop zeroes both wheels.
func (d *execDriver) Stop() error {
	return d.Drive(control.WheelCommand{})
}

// Close stops the wheels, closes the helper's stdin and waits for it to exit.
func (d *execDriver) Close() error {
	stopErr := d.Stop()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stdin.Close()
	waitErr := d.cmd.Wait()

	if stopErr != nil {
		return stopErr
	}
	return waitErr
}
