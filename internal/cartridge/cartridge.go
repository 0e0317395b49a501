// Package cartridge implements iNES ROM loading and the mapper family
// that translates CPU/PPU addresses into banked PRG/CHR storage.
package cartridge

import (
	"encoding/binary"
	"io"
	"os"
)

// Cartridge owns ROM/RAM storage and delegates all banked addressing
// to its Mapper.
type Cartridge struct {
	prgROM []uint8
	chrROM []uint8 // CHR RAM when hasCHRRAM

	mapperID uint8
	mapper   Mapper

	mirror MirrorMode

	hasBattery bool
	sram       [0x2000]uint8

	hasCHRRAM bool
}

// MirrorMode is the nametable mirroring layout.
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorSingleScreen0
	MirrorSingleScreen1
	MirrorFourScreen
)

type iNESHeader struct {
	Magic      [4]uint8
	PRGROMSize uint8 // 16KB units
	CHRROMSize uint8 // 8KB units
	Flags6     uint8
	Flags7     uint8
	PRGRAMSize uint8
	TVSystem1  uint8
	TVSystem2  uint8
	Padding    [5]uint8
}

// LoadFromFile loads a cartridge from an iNES (.nes) file on disk.
func LoadFromFile(filename string) (*Cartridge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, badRomError("opening ROM file", err)
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader parses an iNES image from r.
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	var header iNESHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, badRomError("reading iNES header", err)
	}

	if string(header.Magic[:]) != "NES\x1A" {
		return nil, badRomError("bad iNES magic", nil)
	}
	if header.PRGROMSize == 0 {
		return nil, badRomError("PRG ROM size cannot be zero", nil)
	}

	cart := &Cartridge{
		mapperID:   (header.Flags6 >> 4) | (header.Flags7 & 0xF0),
		hasBattery: (header.Flags6 & 0x02) != 0,
	}

	switch {
	case header.Flags6&0x08 != 0:
		cart.mirror = MirrorFourScreen
	case header.Flags6&0x01 != 0:
		cart.mirror = MirrorVertical
	default:
		cart.mirror = MirrorHorizontal
	}

	if header.Flags6&0x04 != 0 {
		trainer := make([]uint8, 512)
		if _, err := io.ReadFull(r, trainer); err != nil {
			return nil, badRomError("reading trainer", err)
		}
	}

	prgSize := int(header.PRGROMSize) * 0x4000
	cart.prgROM = make([]uint8, prgSize)
	if _, err := io.ReadFull(r, cart.prgROM); err != nil {
		return nil, badRomError("reading PRG ROM", err)
	}

	chrSize := int(header.CHRROMSize) * 0x2000
	if chrSize > 0 {
		cart.chrROM = make([]uint8, chrSize)
		if _, err := io.ReadFull(r, cart.chrROM); err != nil {
			return nil, badRomError("reading CHR ROM", err)
		}
	} else {
		cart.chrROM = make([]uint8, 0x2000)
		cart.hasCHRRAM = true
	}

	mapper, err := createMapper(cart.mapperID, cart)
	if err != nil {
		return nil, err
	}
	cart.mapper = mapper

	return cart, nil
}

func (c *Cartridge) ReadPRG(address uint16) uint8        { return c.mapper.ReadPRG(address) }
func (c *Cartridge) WritePRG(address uint16, value uint8) { c.mapper.WritePRG(address, value) }
func (c *Cartridge) ReadCHR(address uint16) uint8        { return c.mapper.ReadCHR(address) }
func (c *Cartridge) WriteCHR(address uint16, value uint8) { c.mapper.WriteCHR(address, value) }

// IRQPending reports the mapper's own IRQ line, OR'd into the bus's
// wired-OR IRQ source along with the frame counter and DMC.
func (c *Cartridge) IRQPending() bool { return c.mapper.IRQPending() }

// Mirroring reports the current nametable layout, which some mappers
// (MMC1, AOROM) can switch at runtime.
func (c *Cartridge) Mirroring() MirrorMode { return c.mapper.Mirroring() }

// HasBattery reports whether SRAM at $6000-$7FFF should be persisted.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// SRAM exposes the battery-backed work RAM for save-state snapshotting.
// The returned slice aliases the cartridge's backing array, so copying
// into it (via copy(cart.SRAM(), data)) both reads and restores it.
func (c *Cartridge) SRAM() []uint8 { return c.sram[:] }
