// chaos is the robot's brain: it listens for a wake phrase, understands the
// utterance that follows, and either talks back or drives the chassis.
package main

import (
	"fmt"
	"os"

	"github.com/chaosbotics/chaos/cmd/chaos/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
