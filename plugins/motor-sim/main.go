// motor-sim is a reference motor helper: it reads JSON wheel commands from
// stdin, one per line, and prints what a motor board would apply. Useful
// for exercising the exec driver without hardware.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

type wheelCommand struct {
	Left  float64 `json:"velocity_left"`
	Right float64 `json:"velocity_right"`
}

func main() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var cmd wheelCommand
		if err := json.Unmarshal(line, &cmd); err != nil {
			fmt.Fprintf(os.Stderr, "motor-sim: bad command: %v\n", err)
			continue
		}

		fmt.Printf("motor-sim: L=%.3f R=%.3f\n", cmd.Left, cmd.Right)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "motor-sim: %v\n", err)
		os.Exit(1)
	}
}
