// Command gones runs the NES emulator core, either in an Ebitengine
// window or, with -nogui, as a headless frame-stepping harness useful
// for scripted testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"gones/internal/bus"
	"gones/internal/cartridge"
	"gones/internal/inspector"
	"gones/internal/version"
	"gones/internal/video"
)

func main() {
	var (
		romFile = flag.String("rom", "", "path to an iNES ROM file")
		nogui   = flag.Bool("nogui", false, "run headlessly, stepping -frames frames then exiting")
		frames  = flag.Int("frames", 120, "frames to run in -nogui mode")
		inspect = flag.Bool("inspect", false, "launch the terminal inspector instead of the video window")
		trace   = flag.Bool("trace", false, "enable component diagnostic tracing")
		showVer = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *showVer {
		version.PrintBuildInfo()
		return
	}

	b := bus.New()
	b.EnableTrace(*trace)

	if *romFile != "" {
		cart, err := cartridge.LoadFromFile(*romFile)
		if err != nil {
			log.Fatalf("loading %s: %v", *romFile, err)
		}
		b.LoadCartridge(cart)
	}

	switch {
	case *inspect:
		if *romFile == "" {
			log.Fatal("-inspect requires -rom")
		}
		if err := inspector.Run(b, *romFile); err != nil {
			log.Fatalf("inspector exited: %v", err)
		}

	case *nogui:
		if *romFile == "" {
			log.Fatal("-nogui requires -rom")
		}
		runHeadless(b, *frames)

	default:
		if *romFile == "" {
			log.Fatal("-rom is required")
		}
		ebiten.SetWindowSize(bus.FrameWidth*video.Scale, bus.FrameHeight*video.Scale)
		ebiten.SetWindowTitle(fmt.Sprintf("gones - %s", *romFile))
		if err := ebiten.RunGame(video.New(b)); err != nil {
			log.Fatalf("video loop exited: %v", err)
		}
	}
}

// runHeadless steps the bus for a fixed number of frames with no
// presentation layer attached, for scripted or CI use.
func runHeadless(b *bus.Bus, frames int) {
	for i := 0; i < frames; i++ {
		if err := b.RunFrame(); err != nil {
			fmt.Fprintf(os.Stderr, "halted at frame %d: %v\n", i, err)
			os.Exit(1)
		}
	}
	fmt.Printf("ran %d frames, %d CPU cycles\n", frames, b.Cycles())
}
