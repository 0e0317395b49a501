package ppu

// backgroundFetchCycle implements the well-known 8-dot tile fetch
// sequence (nametable byte, attribute byte, pattern low, pattern
// high), reloading the shift registers and advancing coarse X every
// eighth dot.
func (p *PPU) backgroundFetchCycle() {
	switch p.dot % 8 {
	case 1:
		p.loadBackgroundShifters()
		p.ntByte = p.readVRAM(0x2000 + (p.v & 0x0FFF))
	case 3:
		p.atByte = p.fetchAttributeBits()
	case 5:
		p.patLowByte = p.readVRAM(p.patternAddress(false))
	case 7:
		p.patHighByte = p.readVRAM(p.patternAddress(true))
	case 0:
		p.incrementCoarseX()
	}
}

func (p *PPU) patternAddress(high bool) uint16 {
	var base uint16
	if p.ctrl&0x10 != 0 {
		base = 0x1000
	}
	fineY := (p.v >> 12) & 0x07
	addr := base + uint16(p.ntByte)*16 + fineY
	if high {
		addr += 8
	}
	return addr
}

// fetchAttributeBits reads the attribute byte for the tile at v and
// resolves the 2-bit palette selector for the quadrant v is in.
func (p *PPU) fetchAttributeBits() uint8 {
	addr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
	b := p.readVRAM(addr)
	shift := ((p.v >> 4) & 0x04) | (p.v & 0x02)
	return (b >> shift) & 0x03
}

func (p *PPU) loadBackgroundShifters() {
	p.bgPatternLo = (p.bgPatternLo & 0xFF00) | uint16(p.patLowByte)
	p.bgPatternHi = (p.bgPatternHi & 0xFF00) | uint16(p.patHighByte)

	var loFill, hiFill uint16
	if p.atByte&0x01 != 0 {
		loFill = 0x00FF
	}
	if p.atByte&0x02 != 0 {
		hiFill = 0x00FF
	}
	p.bgAttrLo = (p.bgAttrLo & 0xFF00) | loFill
	p.bgAttrHi = (p.bgAttrHi & 0xFF00) | hiFill
}

func (p *PPU) shiftBackground() {
	p.bgPatternLo <<= 1
	p.bgPatternHi <<= 1
	p.bgAttrLo <<= 1
	p.bgAttrHi <<= 1
}

// incrementCoarseX implements the standard coarse-X increment with
// horizontal nametable wraparound.
func (p *PPU) incrementCoarseX() {
	if p.v&0x001F == 31 {
		p.v &^= 0x001F
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

// incrementY implements the standard fine/coarse Y increment with
// vertical nametable wraparound, including the 240-attic-rows quirk
// (coarse Y 30-31 wrap to 0 without flipping the nametable bit when
// software has set an out-of-range scroll value).
func (p *PPU) incrementY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v & 0x03E0) >> 5
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = (p.v &^ 0x03E0) | (y << 5)
}

func (p *PPU) copyHorizontalScroll() {
	p.v = (p.v &^ 0x041F) | (p.t & 0x041F)
}

func (p *PPU) copyVerticalScroll() {
	p.v = (p.v &^ 0x7BE0) | (p.t & 0x7BE0)
}

// backgroundPixel resolves the current fine-X-selected background
// pixel: (paletteIndex, colorIndex), colorIndex==0 meaning transparent.
func (p *PPU) backgroundPixel() (color uint8, transparent bool) {
	shift := uint(15 - p.x)
	lo := uint8((p.bgPatternLo >> shift) & 1)
	hi := uint8((p.bgPatternHi >> shift) & 1)
	pixel := (hi << 1) | lo

	palLo := uint8((p.bgAttrLo >> shift) & 1)
	palHi := uint8((p.bgAttrHi >> shift) & 1)
	palette := (palHi << 1) | palLo

	if pixel == 0 {
		return 0, true
	}
	return p.readVRAM(0x3F00 + uint16(palette)*4 + uint16(pixel)), false
}
