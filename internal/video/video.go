// Package video presents the core's frame buffer and audio sample
// queue through Ebitengine, polls the keyboard into controller 1/2
// snapshots, and drives the Bus one video frame per Update call.
//
// This is a host-side presentation surface, not part of the core: it
// exists only as the reference frontend for cmd/gones.
package video

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gones/internal/bus"
	"gones/internal/input"
)

// Scale is the integer window-to-NES pixel ratio.
const Scale = 3

// keyMap is player 1's default layout: D-pad on arrows, A/B on J/K,
// Start/Select on Enter/Space.
var keyMap = map[ebiten.Key]input.Button{
	ebiten.KeyArrowUp:    input.ButtonUp,
	ebiten.KeyArrowDown:  input.ButtonDown,
	ebiten.KeyArrowLeft:  input.ButtonLeft,
	ebiten.KeyArrowRight: input.ButtonRight,
	ebiten.KeyJ:          input.ButtonA,
	ebiten.KeyK:          input.ButtonB,
	ebiten.KeyEnter:      input.ButtonStart,
	ebiten.KeySpace:      input.ButtonSelect,
}

// buttonOrder is the NES's own bit order: A,B,Select,Start,Up,Down,Left,Right.
var buttonOrder = [8]input.Button{
	input.ButtonA, input.ButtonB, input.ButtonSelect, input.ButtonStart,
	input.ButtonUp, input.ButtonDown, input.ButtonLeft, input.ButtonRight,
}

// Game adapts a *bus.Bus to ebiten.Game: one emulated frame per Update,
// one blit of the PPU's RGBA buffer per Draw.
type Game struct {
	Bus *bus.Bus

	frameImage *ebiten.Image
	pixels     []byte
	audio      *audioStream
	paused     bool
}

// New creates a Game around b, with audio routed through ebiten/audio
// at the APU's 44.1kHz output rate.
func New(b *bus.Bus) *Game {
	g := &Game{
		Bus:        b,
		frameImage: ebiten.NewImage(bus.FrameWidth, bus.FrameHeight),
		pixels:     make([]byte, bus.FrameWidth*bus.FrameHeight*4),
	}
	g.audio = newAudioStream(b)
	return g
}

// Update advances the emulator by exactly one video frame and samples
// the keyboard into controller 1's button snapshot, honoring spec's
// "per frame" input delivery contract.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.paused = !g.paused
	}
	if g.paused {
		return nil
	}

	pressed := make(map[input.Button]bool, len(keyMap))
	for key, button := range keyMap {
		if ebiten.IsKeyPressed(key) {
			pressed[button] = true
		}
	}
	var buttons [8]bool
	for i, b := range buttonOrder {
		buttons[i] = pressed[b]
	}
	g.Bus.SetButtons1(buttons)

	if err := g.Bus.RunFrame(); err != nil {
		return fmt.Errorf("core halted: %w", err)
	}
	g.audio.feed(g.Bus.AudioSamples())
	return nil
}

// Draw copies the PPU's packed-RGBA frame buffer into the window.
func (g *Game) Draw(screen *ebiten.Image) {
	frame := g.Bus.FrameBuffer()
	for i, px := range frame {
		o := i * 4
		g.pixels[o] = byte(px >> 16)   // R
		g.pixels[o+1] = byte(px >> 8)  // G
		g.pixels[o+2] = byte(px)       // B
		g.pixels[o+3] = byte(px >> 24) // A
	}
	g.frameImage.WritePixels(g.pixels)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(Scale, Scale)
	screen.DrawImage(g.frameImage, op)

	if g.paused {
		ebitenutil.DebugPrint(screen, "paused")
	}
}

// Layout reports the fixed scaled window size; the NES has no notion
// of a resizable viewport.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return bus.FrameWidth * Scale, bus.FrameHeight * Scale
}

