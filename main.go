// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"runtime"

	"loopfx/cmd"
	"loopfx/internal/log"
	"loopfx/pkg/build"
)

// main wires the process-wide settings and hands over to the command tree.
// Everything that touches audio devices happens inside the commands, so
// "version" and "preset" work on machines without a sound card.
func main() {
	if err := build.Initialize(); err != nil {
		log.Debugf("Build metadata not stamped, using development placeholders: %v", err)
	}

	// One thread for the audio callback, one for the UI, feeds and I/O.
	runtime.GOMAXPROCS(2)

	if err := cmd.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
