// Command gones-inspect is a standalone entry point for the terminal
// debugger, for sessions that only ever want the inspector and would
// rather not pass -inspect to the main binary.
package main

import (
	"flag"
	"log"

	"gones/internal/bus"
	"gones/internal/cartridge"
	"gones/internal/inspector"
)

func main() {
	romFile := flag.String("rom", "", "path to an iNES ROM file")
	flag.Parse()

	if *romFile == "" {
		log.Fatal("-rom is required")
	}

	cart, err := cartridge.LoadFromFile(*romFile)
	if err != nil {
		log.Fatalf("loading %s: %v", *romFile, err)
	}

	b := bus.New()
	b.LoadCartridge(cart)

	if err := inspector.Run(b, *romFile); err != nil {
		log.Fatalf("inspector exited: %v", err)
	}
}
