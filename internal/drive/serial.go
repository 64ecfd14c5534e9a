package drive

import (
	"fmt"
	"sync"

	"go.bug.st/serial"

	"github.com/evzhukov/lanekeeper/internal/control"
)

// serialDriver writes wheel commands to a motor controller board over a
// serial line. Command format is one ASCII line per update:
//
//	V <left> <right>\n
//
// with velocities in the robot's native units, three decimal places.
type serialDriver struct {
	port serial.Port
	mu   sync.Mutex
}

// NewSerialDriver opens the named serial port at 115200 8N1 and returns a
// Driver writing to it.
func NewSerialDriver(portName string) (Driver, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open motor port %s: %w", portName, err)
	}

	return &serialDriver{port: port}, nil
}

// Drive writes one velocity line to the board.
func (d *serialDriver) Drive(cmd control.WheelCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	line := fmt.Sprintf("V %.3f %.3f\n", cmd.Left, cmd.Right)
	if _, err := d.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("write wheel command: %w", err)
	}
	return nil
}

// Stop zeroes both wheels.
func (d *serialDriver) Stop() error {
	return d.Drive(control.WheelCommand{})
}

// Close stops the wheels and closes the port.
func (d *serialDriver) Close() error {
	if err := d.Stop(); err != nil {
		d.port.Close()
		return err
	}
	return d.port.Close()
}
