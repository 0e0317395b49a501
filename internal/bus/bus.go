// Package bus wires the CPU, PPU, APU, cartridge/mapper, and
// controllers into the single deterministic clock that drives the
// NES: one CPU instruction per Step, with the PPU and APU advanced in
// lockstep behind it.
package bus

import (
	"gones/internal/apu"
	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/diag"
	"gones/internal/input"
	"gones/internal/memory"
	"gones/internal/ppu"
)

// FrameWidth and FrameHeight are the NES's fixed visible resolution.
const (
	FrameWidth  = 256
	FrameHeight = 240

	// samplesPerFrame is the audio host's contract: approximately
	// 44100/60 samples per emulated video frame.
	samplesPerFrame = 735
)

// Bus owns every core component and is the only thing in this package
// that advances simulated time: CPU.Step dictates the quantum, and the
// PPU/APU consume it at their fixed 3:1 and 1:1 ratios, per spec.
type Bus struct {
	CPU   *cpu.CPU
	PPU   *ppu.PPU
	APU   *apu.APU
	Input *input.InputState

	mem       *memory.Memory
	cartridge *cartridge.Cartridge

	dmaCyclesRemaining uint64
	dmaInProgress      bool
	cpuCycles          uint64

	Log *diag.Logger
}

// New creates a Bus with no cartridge loaded. LoadCartridge must be
// called before Step will do anything useful; Read/Write on the bare
// RAM and registers still work even before a ROM is chosen.
func New() *Bus {
	b := &Bus{
		PPU:   ppu.New(),
		APU:   apu.New(),
		Input: input.NewInputState(),
		Log:   diag.New(),
	}

	b.mem = memory.New(b.PPU, b.APU, nil)
	b.mem.SetInputSystem(b.Input)
	b.mem.SetDMACallback(b.beginOAMDMA)

	b.CPU = cpu.New(b.mem)
	b.APU.SetMemory(b.mem)
	b.APU.SetStallCallback(b.stallCPU)
	b.PPU.SetNMICallback(b.CPU.SetNMILine)
	b.wireLog()

	b.Reset()
	return b
}

// wireLog attaches the bus's shared diagnostic logger to every
// component that accepts one, so a single EnableTrace call lights up
// CPU instruction traces, PPU status reads, and controller shifts
// together instead of toggling each component separately.
func (b *Bus) wireLog() {
	b.CPU.Log = b.Log
	b.PPU.Log = b.Log
	b.APU.Log = b.Log
	b.Input.Controller1.Log = b.Log
	b.Input.Controller2.Log = b.Log
}

// EnableTrace turns the shared diagnostic logger on or off.
func (b *Bus) EnableTrace(on bool) { b.Log.Enable(on) }

// Read and Write expose the CPU memory map directly, e.g. for a host
// debugger inspecting RAM without going through Step.
func (b *Bus) Read(address uint16) uint8         { return b.mem.Read(address) }
func (b *Bus) Write(address uint16, value uint8) { b.mem.Write(address, value) }

// Reset re-initializes CPU/PPU/APU/controllers, preserving RAM and
// cartridge SRAM contents as real hardware does on a soft reset.
func (b *Bus) Reset() {
	b.CPU.Reset()
	b.PPU.Reset()
	b.APU.Reset()
	b.Input.Reset()
	b.dmaCyclesRemaining = 0
	b.dmaInProgress = false
	b.cpuCycles = 0
}

// LoadCartridge installs cart as the system's PRG/CHR source and
// rebuilds the PPU's nametable-mirroring memory map around it, then
// performs a full reset so the CPU starts at the new reset vector.
func (b *Bus) LoadCartridge(cart *cartridge.Cartridge) {
	b.cartridge = cart
	b.mem = memory.New(b.PPU, b.APU, cart)
	b.mem.SetInputSystem(b.Input)
	b.mem.SetDMACallback(b.beginOAMDMA)

	b.CPU = cpu.New(b.mem)
	b.APU.SetMemory(b.mem)
	b.PPU.SetMemory(memory.NewPPUMemory(cart, toMemoryMirror(cart.Mirroring())))
	b.PPU.SetNMICallback(b.CPU.SetNMILine)
	b.wireLog()

	b.Reset()
}

func toMemoryMirror(m cartridge.MirrorMode) memory.MirrorMode {
	switch m {
	case cartridge.MirrorVertical:
		return memory.MirrorVertical
	case cartridge.MirrorSingleScreen0:
		return memory.MirrorSingleScreen0
	case cartridge.MirrorSingleScreen1:
		return memory.MirrorSingleScreen1
	case cartridge.MirrorFourScreen:
		return memory.MirrorFourScreen
	default:
		return memory.MirrorHorizontal
	}
}

// Step executes one CPU instruction (or, while an OAM/DMC DMA stall is
// in progress, one stalled cycle standing in for it), then advances
// the PPU by 3x and the APU by 1x that many cycles, and finally
// samples the wired-OR IRQ line. It returns the DecodeError a bad
// opcode produces, which the host run loop should treat as fatal.
func (b *Bus) Step() (uint64, error) {
	var cycles uint64
	var err error

	if b.dmaCyclesRemaining > 0 {
		cycles = 1
		b.dmaCyclesRemaining--
		if b.dmaCyclesRemaining == 0 {
			b.dmaInProgress = false
		}
	} else {
		cycles, err = b.CPU.Step()
		if err != nil {
			return 0, err
		}
	}

	// PPU mirroring may have changed at runtime (MMC1, AOROM); refresh
	// it on the PPU's own memory map every step is wasteful, so the
	// mapper's Mirroring() is only re-read when a cartridge is present
	// and its bank registers may have shifted it.
	if pm, ok := b.PPU.MemoryMap().(*memory.PPUMemory); ok && b.cartridge != nil {
		pm.SetMirroring(toMemoryMirror(b.cartridge.Mirroring()))
	}

	for i := uint64(0); i < cycles*3; i++ {
		b.PPU.Step()
	}
	for i := uint64(0); i < cycles; i++ {
		b.APU.Step()
	}

	b.cpuCycles += cycles
	b.syncIRQLine()

	return cycles, nil
}

// syncIRQLine ORs together every maskable-IRQ source the bus arbitrates:
// the APU frame counter and DMC, and the cartridge mapper (MMC3).
func (b *Bus) syncIRQLine() {
	level := b.APU.IRQPending()
	if b.cartridge != nil && b.cartridge.IRQPending() {
		level = true
	}
	b.CPU.SetIRQLine(level)
}

// beginOAMDMA is the bus's DMA callback, invoked on a CPU write to
// $4014. The transfer itself happens immediately (there is no
// mid-transfer suspension point in this model); the CPU stall is
// accounted for as whole cycles consumed by subsequent Step calls.
func (b *Bus) beginOAMDMA(page uint8) {
	base := uint16(page) << 8
	start := b.PPU.OAMAddr()
	for i := 0; i < 256; i++ {
		b.PPU.WriteOAM(start+uint8(i), b.mem.Read(base+uint16(i)))
	}

	cycles := uint64(513)
	if b.cpuCycles%2 == 1 {
		cycles = 514
	}
	b.dmaCyclesRemaining += cycles
	b.dmaInProgress = true
}

// stallCPU is the APU's DMC stall callback: a sample-byte fetch steals
// whole CPU cycles rather than competing with the CPU for the bus at
// sub-instruction granularity, per spec's own Non-goals.
func (b *Bus) stallCPU(cycles int) {
	b.dmaCyclesRemaining += uint64(cycles)
	b.dmaInProgress = true
}

// IsDMAInProgress reports whether an OAM or DMC stall is currently
// consuming CPU cycles.
func (b *Bus) IsDMAInProgress() bool { return b.dmaInProgress }

// Cycles returns the running CPU cycle count since the last Reset.
func (b *Bus) Cycles() uint64 { return b.cpuCycles }

// FrameCount returns the number of frames the PPU has completed.
func (b *Bus) FrameCount() uint64 { return b.PPU.FrameCount() }

// FrameBuffer returns the most recently rendered 256x240 RGBA frame.
func (b *Bus) FrameBuffer() *[FrameWidth * FrameHeight]uint32 { return b.PPU.FrameBuffer() }

// AudioSamples drains and returns the APU's pending output queue.
// Approximately samplesPerFrame samples accumulate per video frame.
func (b *Bus) AudioSamples() []float32 { return b.APU.GetSamples() }

// RunFrame steps the bus until one additional PPU frame completes.
func (b *Bus) RunFrame() error {
	target := b.PPU.FrameCount() + 1
	for b.PPU.FrameCount() < target {
		if _, err := b.Step(); err != nil {
			return err
		}
	}
	return nil
}

// SetButtons1 and SetButtons2 set a controller's full 8-button state
// in NES bit order (A,B,Select,Start,Up,Down,Left,Right), the
// snapshot the host delivers once per frame.
func (b *Bus) SetButtons1(buttons [8]bool) { b.Input.Controller1.SetButtons(buttons) }
func (b *Bus) SetButtons2(buttons [8]bool) { b.Input.Controller2.SetButtons(buttons) }

// State is a full snapshot of the core: every component's register
// and pipeline state, plus the bus's own DMA-stall bookkeeping. It has
// no file encoding of its own; a host that wants persistence is
// expected to encode/decode this plain struct itself.
type State struct {
	CPU         cpu.CPU
	PPU         ppu.PPU
	APU         apu.APU
	RAM         [0x800]uint8
	PPUMem      memory.PPUMemoryState
	SRAM        []uint8
	Controller1 input.ControllerState
	Controller2 input.ControllerState

	DMACyclesRemaining uint64
	DMAInProgress      bool
	CPUCycles          uint64
}

// Snapshot captures the entire core state needed to resume execution
// bit-for-bit, per spec's save-state requirement. Mapper-internal bank
// registers (MMC1 shift register, MMC3 bank select) are not part of
// this snapshot; restoring mid-game on a bank-switching cartridge will
// resume with whatever banks are currently mapped in, not necessarily
// the ones active at snapshot time.
func (b *Bus) Snapshot() State {
	s := State{
		CPU:                b.CPU.Snapshot(),
		PPU:                b.PPU.Snapshot(),
		APU:                b.APU.Snapshot(),
		RAM:                b.mem.RAM(),
		Controller1:        b.Input.Controller1.Snapshot(),
		Controller2:        b.Input.Controller2.Snapshot(),
		DMACyclesRemaining: b.dmaCyclesRemaining,
		DMAInProgress:      b.dmaInProgress,
		CPUCycles:          b.cpuCycles,
	}
	if pm, ok := b.PPU.MemoryMap().(*memory.PPUMemory); ok {
		s.PPUMem = pm.Snapshot()
	}
	if b.cartridge != nil {
		s.SRAM = append([]uint8(nil), b.cartridge.SRAM()...)
	}
	return s
}

// Restore replaces the entire core state from a prior Snapshot taken
// against the same loaded cartridge.
func (b *Bus) Restore(s State) {
	b.CPU.Restore(s.CPU)
	b.PPU.Restore(s.PPU)
	b.APU.Restore(s.APU)
	b.mem.SetRAM(s.RAM)
	b.Input.Controller1.Restore(s.Controller1)
	b.Input.Controller2.Restore(s.Controller2)
	b.dmaCyclesRemaining = s.DMACyclesRemaining
	b.dmaInProgress = s.DMAInProgress
	b.cpuCycles = s.CPUCycles

	if pm, ok := b.PPU.MemoryMap().(*memory.PPUMemory); ok {
		pm.Restore(s.PPUMem)
	}
	if b.cartridge != nil && s.SRAM != nil {
		copy(b.cartridge.SRAM(), s.SRAM)
	}
}
