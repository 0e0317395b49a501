// Package memory implements the CPU and PPU memory maps: RAM/register
// mirroring, cartridge dispatch, and nametable/palette mirroring.
package memory

// Memory is the CPU's view of the NES address space.
type Memory struct {
	ram [0x800]uint8 // 2KB internal RAM, mirrored to $1FFF

	ppuRegisters PPUInterface
	apuRegisters APUInterface
	inputSystem  InputInterface
	cartridge    CartridgeInterface

	dmaCallback func(uint8)

	// openBusValue is the last byte driven onto the bus, returned by
	// reads from unmapped addresses the way real NES hardware floats.
	openBusValue uint8
}

// PPUMemory is the PPU's view of its own 14-bit address space.
type PPUMemory struct {
	vram       [0x1000]uint8 // 4KB VRAM backing up to four 1KB nametables
	paletteRAM [32]uint8
	cartridge  CartridgeInterface
	mirroring  MirrorMode
}

// MirrorMode is the nametable mirroring layout, mirrored here from
// package cartridge so this package has no import-time dependency on it.
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorSingleScreen0
	MirrorSingleScreen1
	MirrorFourScreen
)

// PPUInterface is the PPU register I/O the CPU memory map dispatches to.
type PPUInterface interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
}

// APUInterface is the APU register I/O the CPU memory map dispatches to.
type APUInterface interface {
	WriteRegister(address uint16, value uint8)
	ReadStatus() uint8
}

// InputInterface is the controller shift-register I/O.
type InputInterface interface {
	Read(address uint16) uint8
	Write(address uint16, value uint8)
}

// CartridgeInterface is the subset of *cartridge.Cartridge the memory
// maps need: PRG/CHR access through whatever mapper is installed.
type CartridgeInterface interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
}

// New creates the CPU memory map over the given PPU/APU/cartridge.
func New(ppu PPUInterface, apu APUInterface, cart CartridgeInterface) *Memory {
	return &Memory{ppuRegisters: ppu, apuRegisters: apu, cartridge: cart}
}

// SetInputSystem attaches the controller(s); the NES can run headless
// CPU/PPU/APU tests without one, so it isn't a constructor argument.
func (m *Memory) SetInputSystem(input InputInterface) {
	m.inputSystem = input
}

// SetDMACallback installs the bus's OAM DMA trigger, invoked on a
// write to $4014. Without one, DMA runs inline with no CPU stall,
// which is only acceptable for bus-less unit tests.
func (m *Memory) SetDMACallback(callback func(uint8)) {
	m.dmaCallback = callback
}

// RAM returns a copy of the 2KB internal RAM, for a bus save-state
// snapshot.
func (m *Memory) RAM() [0x800]uint8 { return m.ram }

// SetRAM restores the 2KB internal RAM from a prior snapshot.
func (m *Memory) SetRAM(ram [0x800]uint8) { m.ram = ram }

// PPUMemoryState is a snapshot of the PPU's own address space: its
// nametable VRAM, palette RAM, and current mirroring mode.
type PPUMemoryState struct {
	VRAM       [0x1000]uint8
	PaletteRAM [32]uint8
	Mirroring  MirrorMode
}

// Snapshot captures the PPU memory map's mutable contents.
func (pm *PPUMemory) Snapshot() PPUMemoryState {
	return PPUMemoryState{VRAM: pm.vram, PaletteRAM: pm.paletteRAM, Mirroring: pm.mirroring}
}

// Restore replaces VRAM/palette/mirroring state from a prior Snapshot,
// leaving the installed cartridge reference untouched.
func (pm *PPUMemory) Restore(s PPUMemoryState) {
	pm.vram, pm.paletteRAM, pm.mirroring = s.VRAM, s.PaletteRAM, s.Mirroring
}

// Read reads a byte from the CPU address space.
func (m *Memory) Read(address uint16) uint8 {
	var value uint8

	switch {
	case address < 0x2000:
		value = m.ram[address&0x07FF]

	case address < 0x4000:
		value = m.ppuRegisters.ReadRegister(0x2000 + (address & 0x0007))

	case address < 0x4020:
		switch {
		case address == 0x4015:
			value = m.apuRegisters.ReadStatus()
		case address == 0x4016 || address == 0x4017:
			if m.inputSystem != nil {
				value = m.inputSystem.Read(address)
			}
		default:
			value = m.openBusValue
		}

	case address >= 0x6000 && address < 0x8000:
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
		} else {
			value = m.openBusValue
		}

	case address < 0x8000:
		value = m.openBusValue

	default:
		if m.cartridge != nil {
			value = m.cartridge.ReadPRG(address)
		} else {
			value = m.openBusValue
		}
	}

	m.openBusValue = value
	return value
}

// Write writes a byte to the CPU address space.
func (m *Memory) Write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ram[address&0x07FF] = value

	case address < 0x4000:
		m.ppuRegisters.WriteRegister(0x2000+(address&0x0007), value)

	case address < 0x4020:
		switch {
		case address == 0x4014:
			if m.dmaCallback != nil {
				m.dmaCallback(value)
			} else {
				m.performOAMDMA(value)
			}
		case address == 0x4016:
			if m.inputSystem != nil {
				m.inputSystem.Write(address, value)
			}
		case address >= 0x4000 && address <= 0x4013, address == 0x4015, address == 0x4017:
			m.apuRegisters.WriteRegister(address, value)
		}
		// $4018-$401F (APU/IO test mode) are unimplemented on retail hardware.

	case address >= 0x6000 && address < 0x8000:
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
		}

	case address < 0x8000:
		// Cartridge expansion area, unmapped on every mapper this core supports.

	default:
		if m.cartridge != nil {
			m.cartridge.WritePRG(address, value)
		}
	}
}

// performOAMDMA is the fallback synchronous DMA path for tests that
// exercise Memory without a bus wired in to stall the CPU.
func (m *Memory) performOAMDMA(page uint8) {
	base := uint16(page) << 8
	for i := uint16(0); i < 256; i++ {
		m.ppuRegisters.WriteRegister(0x2004, m.Read(base+i))
	}
}

// NewPPUMemory creates the PPU's memory map over the given cartridge
// and initial mirroring mode.
func NewPPUMemory(cart CartridgeInterface, mirroring MirrorMode) *PPUMemory {
	pm := &PPUMemory{cartridge: cart, mirroring: mirroring}
	for i := 0; i < 32; i += 4 {
		pm.paletteRAM[i] = 0x0F // universal background color powers up black
	}
	return pm
}

// SetMirroring updates the nametable layout, for mappers (MMC1, AOROM)
// that switch it at runtime.
func (pm *PPUMemory) SetMirroring(mode MirrorMode) {
	pm.mirroring = mode
}

// Read reads from the PPU's 14-bit address space ($0000-$3FFF).
func (pm *PPUMemory) Read(address uint16) uint8 {
	address &= 0x3FFF

	switch {
	case address < 0x2000:
		return pm.cartridge.ReadCHR(address)
	case address < 0x3000:
		return pm.readNametable(address)
	case address < 0x3F00:
		return pm.readNametable(address - 0x1000)
	default:
		return pm.readPalette(address)
	}
}

// Write writes to the PPU's 14-bit address space ($0000-$3FFF).
func (pm *PPUMemory) Write(address uint16, value uint8) {
	address &= 0x3FFF

	switch {
	case address < 0x2000:
		pm.cartridge.WriteCHR(address, value)
	case address < 0x3000:
		pm.writeNametable(address, value)
	case address < 0x3F00:
		pm.writeNametable(address-0x1000, value)
	default:
		pm.writePalette(address, value)
	}
}

func (pm *PPUMemory) readNametable(address uint16) uint8 {
	return pm.vram[pm.nametableIndex(address)]
}

func (pm *PPUMemory) writeNametable(address uint16, value uint8) {
	pm.vram[pm.nametableIndex(address)] = value
}

// nametableIndex resolves a $2000-$2FFF address to a VRAM offset per
// the cartridge's mirroring mode.
func (pm *PPUMemory) nametableIndex(address uint16) uint16 {
	address &= 0x0FFF
	nametable := (address >> 10) & 3
	offset := address & 0x3FF

	switch pm.mirroring {
	case MirrorHorizontal:
		if nametable >= 2 {
			return 0x400 + offset
		}
		return offset
	case MirrorVertical:
		if nametable == 1 || nametable == 3 {
			return 0x400 + offset
		}
		return offset
	case MirrorSingleScreen0:
		return offset
	case MirrorSingleScreen1:
		return 0x400 + offset
	case MirrorFourScreen:
		return uint16(nametable)*0x400 + offset
	default:
		return offset
	}
}

func (pm *PPUMemory) readPalette(address uint16) uint8 {
	return pm.paletteRAM[paletteIndex(address)]
}

func (pm *PPUMemory) writePalette(address uint16, value uint8) {
	pm.paletteRAM[paletteIndex(address)] = value
}

// paletteIndex mirrors the four background-color-mirror addresses
// ($3F10/$3F14/$3F18/$3F1C) down onto their universal-background slot.
func paletteIndex(address uint16) uint16 {
	index := (address - 0x3F00) & 0x1F
	if index == 0x10 || index == 0x14 || index == 0x18 || index == 0x1C {
		index &= 0x0F
	}
	return index
}
