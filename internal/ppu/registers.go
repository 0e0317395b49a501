package ppu

// ReadRegister implements CPU reads of $2000-$2007 (mirrored every 8
// bytes by the caller). Only PPUSTATUS, OAMDATA and PPUDATA are
// readable; the rest return the last value latched onto the internal
// data bus.
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address & 0x07 {
	case 2: // PPUSTATUS
		value := p.status
		p.status &^= 0x80
		p.w = false
		if p.Log != nil {
			p.Log.Tracef("ppu: read PPUSTATUS = %#02x", value)
		}
		return value

	case 4: // OAMDATA
		return p.oam[p.oamAddr]

	case 7: // PPUDATA
		return p.readData()

	default:
		return 0
	}
}

// readData implements PPUDATA's buffered-read behavior: reads below
// the palette range return the previous read's value and prime the
// buffer with the new byte; palette reads bypass the buffer and
// return immediately, but still refill the buffer from the
// underlying nametable mirror.
func (p *PPU) readData() uint8 {
	address := p.v & 0x3FFF
	var value uint8
	if address >= 0x3F00 {
		value = p.readVRAM(address)
		p.readBuffer = p.readVRAM(address - 0x1000)
	} else {
		value = p.readBuffer
		p.readBuffer = p.readVRAM(address)
	}
	p.advanceVRAMAddress()
	return value
}

// WriteRegister implements CPU writes to $2000-$2007.
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address & 0x07 {
	case 0: // PPUCTRL
		wasEnabled := p.nmiEnabled()
		p.ctrl = value
		p.t = (p.t &^ 0x0C00) | (uint16(value&0x03) << 10)
		if p.nmiEnabled() && !wasEnabled && p.status&0x80 != 0 {
			p.setNMIOutput(true)
		}
		if !p.nmiEnabled() {
			p.setNMIOutput(false)
		}

	case 1: // PPUMASK
		p.mask = value

	case 3: // OAMADDR
		p.oamAddr = value

	case 4: // OAMDATA
		p.oam[p.oamAddr] = value
		p.oamAddr++

	case 5: // PPUSCROLL
		if !p.w {
			p.t = (p.t &^ 0x001F) | uint16(value>>3)
			p.x = value & 0x07
		} else {
			p.t = (p.t &^ 0x73E0) | (uint16(value&0x07) << 12) | (uint16(value&0xF8) << 2)
		}
		p.w = !p.w

	case 6: // PPUADDR
		if !p.w {
			p.t = (p.t &^ 0x7F00) | (uint16(value&0x3F) << 8)
		} else {
			p.t = (p.t &^ 0x00FF) | uint16(value)
			p.v = p.t
		}
		p.w = !p.w

	case 7: // PPUDATA
		p.writeVRAM(p.v&0x3FFF, value)
		p.advanceVRAMAddress()
	}

	if p.Log != nil {
		p.Log.Tracef("ppu: write %#04x = %#02x", address, value)
	}
}

func (p *PPU) advanceVRAMAddress() {
	if p.ctrl&0x04 != 0 {
		p.v += 32
	} else {
		p.v++
	}
}

// Status reports the raw PPUSTATUS byte without the read-side effects
// of ReadRegister, for diagnostic/save-state use.
func (p *PPU) Status() uint8 { return p.status }

// OAMAddr reports the current OAMADDR cursor, which OAM DMA copies
// into starting at this offset (wrapping through the 256-byte table).
func (p *PPU) OAMAddr() uint8 { return p.oamAddr }

// Scanline and Dot report the PPU's current raster position.
func (p *PPU) Scanline() int { return p.scanline }
func (p *PPU) Dot() int      { return p.dot }
