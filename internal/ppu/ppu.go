// Package ppu implements the NES Picture Processing Unit: a
// dot-accurate 262-scanline x 341-dot renderer driving shift-register
// background and sprite pipelines.
package ppu

import "gones/internal/diag"

const (
	ScanlinesPerFrame = 262
	DotsPerScanline   = 341
	VisibleScanlines  = 240
	VisibleDots       = 256

	preRenderScanline = 261
	vblankScanline    = 241
)

// Memory is the PPU's 14-bit address space: pattern tables (via the
// cartridge's CHR banking), nametables, and palette RAM.
type Memory interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// PPU renders one NTSC frame (256x240) into an RGBA-packed buffer,
// clocked one dot at a time by Step.
type PPU struct {
	mem Memory

	ctrl   uint8
	mask   uint8
	status uint8

	oamAddr uint8
	oam     [256]uint8

	// v/t/x/w per the well-known NES PPU scroll model: v and t are
	// 15-bit loopy registers, x is the 3-bit fine X scroll, w is the
	// shared write-toggle for $2005/$2006.
	v, t uint16
	x    uint8
	w    bool

	readBuffer uint8

	scanline int
	dot      int
	frame    uint64
	oddFrame bool

	// Background shift pipeline
	ntByte, atByte, patLowByte, patHighByte uint8
	bgPatternLo, bgPatternHi                uint16
	bgAttrLo, bgAttrHi                      uint16

	// Sprite pipeline for the scanline currently being drawn
	secondaryOAM     [32]uint8 // up to 8 sprites x 4 bytes
	spriteCount      int
	spritePatternLo  [8]uint8
	spritePatternHi  [8]uint8
	spriteAttr       [8]uint8
	spriteX          [8]uint8
	spriteIsZero     [8]bool
	spriteZeroOnLine bool

	frameBuffer [VisibleDots * VisibleScanlines]uint32

	nmiOutput bool
	onNMI     func(level bool)
	onFrame   func()

	Log *diag.Logger
}

// New creates a PPU with no memory attached; SetMemory must be called
// once a cartridge is loaded (mirroring depends on it).
func New() *PPU {
	return &PPU{}
}

// SetMemory installs the PPU's address space, usually a *memory.PPUMemory
// wired to the loaded cartridge.
func (p *PPU) SetMemory(mem Memory) { p.mem = mem }

// MemoryMap returns the PPU's currently installed address space, so
// the bus can refresh runtime-switchable nametable mirroring (MMC1,
// AOROM) by type-asserting it to its concrete *memory.PPUMemory.
func (p *PPU) MemoryMap() Memory { return p.mem }

// SetNMICallback registers a callback invoked whenever the PPU's NMI
// output line changes level, so the CPU can edge-latch it.
func (p *PPU) SetNMICallback(cb func(level bool)) { p.onNMI = cb }

// SetFrameCompleteCallback registers a callback invoked once per
// completed frame (at the frame/scanline wraparound).
func (p *PPU) SetFrameCompleteCallback(cb func()) { p.onFrame = cb }

// Reset returns the PPU to its power-up state.
func (p *PPU) Reset() {
	p.ctrl, p.mask, p.status = 0, 0, 0
	p.oamAddr = 0
	p.v, p.t, p.x = 0, 0, 0
	p.w = false
	p.readBuffer = 0
	p.scanline, p.dot = 0, 0
	p.frame = 0
	p.oddFrame = false
	p.setNMIOutput(false)
}

// FrameCount reports the number of completed frames.
func (p *PPU) FrameCount() uint64 { return p.frame }

// SetFrameCount overrides the frame counter, e.g. when synchronizing
// with a bus that owns the authoritative count.
func (p *PPU) SetFrameCount(n uint64) { p.frame = n }

// FrameBuffer returns the packed RGBA pixels of the most recently
// completed frame.
func (p *PPU) FrameBuffer() *[VisibleDots * VisibleScanlines]uint32 { return &p.frameBuffer }

// WriteOAM writes directly into OAM, used by the bus's OAM DMA transfer.
func (p *PPU) WriteOAM(index uint8, value uint8) { p.oam[index] = value }

// Snapshot captures every register, latch, and shift-pipeline byte
// needed to resume rendering from the exact dot it was stopped at.
func (p *PPU) Snapshot() PPU { return *p }

// Restore replaces register/pipeline state from a prior Snapshot,
// leaving the installed memory map, callbacks, and logger untouched.
func (p *PPU) Restore(s PPU) {
	mem, onNMI, onFrame, log := p.mem, p.onNMI, p.onFrame, p.Log
	*p = s
	p.mem, p.onNMI, p.onFrame, p.Log = mem, onNMI, onFrame, log
}

func (p *PPU) renderingEnabled() bool { return p.mask&0x18 != 0 }
func (p *PPU) nmiEnabled() bool       { return p.ctrl&0x80 != 0 }

// setNMIOutput updates the NMI line and notifies the CPU of any change.
func (p *PPU) setNMIOutput(level bool) {
	if level == p.nmiOutput {
		return
	}
	p.nmiOutput = level
	if p.onNMI != nil {
		p.onNMI(level)
	}
}

// Step advances the PPU by exactly one dot.
func (p *PPU) Step() {
	switch {
	case p.scanline < VisibleScanlines:
		p.visibleOrPrerenderDot(false)
	case p.scanline == vblankScanline:
		if p.dot == 1 {
			p.status |= 0x80
			p.setNMIOutput(p.nmiEnabled())
		}
	case p.scanline == preRenderScanline:
		if p.dot == 1 {
			p.status &^= 0x80 | 0x40 | 0x20 // clear vblank, sprite0 hit, overflow
			p.setNMIOutput(false)
		}
		p.visibleOrPrerenderDot(true)
	}

	p.advanceDot()
}

// advanceDot moves to the next dot, wrapping scanline/frame, and
// implements the odd-frame skipped pre-render dot.
func (p *PPU) advanceDot() {
	p.dot++
	if p.scanline == preRenderScanline && p.dot == 339 && p.oddFrame && p.renderingEnabled() {
		p.dot = 340 // skip the last idle dot on odd frames
	}
	if p.dot > 340 {
		p.dot = 0
		p.scanline++
		if p.scanline > preRenderScanline {
			p.scanline = 0
			p.frame++
			p.oddFrame = !p.oddFrame
			if p.onFrame != nil {
				p.onFrame()
			}
		}
	}
}

// visibleOrPrerenderDot runs the shared fetch/shift/scroll machinery
// that drives both the 240 visible scanlines and the pre-render line.
func (p *PPU) visibleOrPrerenderDot(preRender bool) {
	if !p.renderingEnabled() {
		if !preRender && p.dot >= 1 && p.dot <= VisibleDots {
			p.emitPixel(p.dot-1, p.scanline, p.backdropColor())
		}
		return
	}

	switch {
	case p.dot == 0:
		// idle dot

	case p.dot >= 1 && p.dot <= 256:
		p.shiftBackground()
		p.shiftSprites()
		if !preRender {
			p.renderPixel(p.dot - 1)
		}
		p.backgroundFetchCycle()
		if p.dot == 65 {
			p.evaluateSprites()
		}
		if p.dot == 256 {
			p.incrementY()
		}

	case p.dot == 257:
		p.copyHorizontalScroll()
		p.loadSpritePatterns()

	case p.dot >= 321 && p.dot <= 336:
		p.shiftBackground()
		p.backgroundFetchCycle()

	case p.dot == 338 || p.dot == 340:
		p.ntByte = p.readVRAM(0x2000 + (p.v & 0x0FFF))
	}

	if preRender && p.dot >= 280 && p.dot <= 304 {
		p.copyVerticalScroll()
	}
}

func (p *PPU) backdropColor() uint32 {
	return colorFor(p.readVRAM(0x3F00))
}

func (p *PPU) emitPixel(x, y int, color uint32) {
	p.frameBuffer[y*VisibleDots+x] = color
}

func (p *PPU) readVRAM(address uint16) uint8 {
	if p.mem == nil {
		return 0
	}
	return p.mem.Read(address)
}

func (p *PPU) writeVRAM(address uint16, value uint8) {
	if p.mem != nil {
		p.mem.Write(address, value)
	}
}
