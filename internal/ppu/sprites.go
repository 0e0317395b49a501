package ppu

// evaluateSprites scans primary OAM for up to 8 sprites visible on the
// NEXT scanline, reproducing the hardware's diagonal-stride overflow
// bug: once 8 sprites are found, the evaluation continues scanning
// with a misaligned stride that walks through a sprite's non-Y bytes
// as if they were Y coordinates, eventually setting the overflow flag
// on a false-positive match.
func (p *PPU) evaluateSprites() {
	targetLine := p.scanline
	spriteHeight := 8
	if p.ctrl&0x20 != 0 {
		spriteHeight = 16
	}

	p.spriteCount = 0
	p.spriteZeroOnLine = false
	for i := range p.secondaryOAM {
		p.secondaryOAM[i] = 0xFF
	}

	n := 0
	for n < 64 && p.spriteCount < 8 {
		y := int(p.oam[n*4])
		if targetLine >= y && targetLine < y+spriteHeight {
			base := p.spriteCount * 4
			copy(p.secondaryOAM[base:base+4], p.oam[n*4:n*4+4])
			if n == 0 {
				p.spriteZeroOnLine = true
			}
			p.spriteCount++
		}
		n++
	}

	if !p.renderingEnabled() {
		return
	}

	// Overflow detection with the hardware's buggy diagonal stride:
	// once the sprite evaluator has latched 8 sprites it keeps
	// scanning OAM but increments both the sprite index and the
	// in-sprite byte offset together, so it drifts across
	// unrelated bytes while still testing them as if they were Y
	// coordinates.
	m := uint8(0)
	for n < 64 {
		y := int(p.oam[n*4+int(m)])
		if targetLine >= y && targetLine < y+spriteHeight {
			p.status |= 0x20
			break
		}
		n++
		m = (m + 1) & 0x03
	}
}

// loadSpritePatterns fetches pattern data for the sprites found by
// evaluateSprites and seeds their X counters, run once at dot 257.
func (p *PPU) loadSpritePatterns() {
	spriteHeight := 8
	if p.ctrl&0x20 != 0 {
		spriteHeight = 16
	}

	for i := 0; i < p.spriteCount; i++ {
		y := p.secondaryOAM[i*4]
		tile := p.secondaryOAM[i*4+1]
		attr := p.secondaryOAM[i*4+2]
		x := p.secondaryOAM[i*4+3]

		row := uint8(p.scanline) - y
		flipV := attr&0x80 != 0
		flipH := attr&0x40 != 0
		if flipV {
			row = uint8(spriteHeight-1) - row
		}

		var addr uint16
		if spriteHeight == 16 {
			table := uint16(tile&0x01) * 0x1000
			tileIndex := uint16(tile &^ 0x01)
			if row >= 8 {
				tileIndex++
				row -= 8
			}
			addr = table + tileIndex*16 + uint16(row)
		} else {
			var base uint16
			if p.ctrl&0x08 != 0 {
				base = 0x1000
			}
			addr = base + uint16(tile)*16 + uint16(row)
		}

		lo := p.readVRAM(addr)
		hi := p.readVRAM(addr + 8)
		if flipH {
			lo = reverseBits(lo)
			hi = reverseBits(hi)
		}

		p.spritePatternLo[i] = lo
		p.spritePatternHi[i] = hi
		p.spriteAttr[i] = attr
		p.spriteX[i] = x
		p.spriteIsZero[i] = p.spriteZeroOnLine && i == 0
	}
	for i := p.spriteCount; i < 8; i++ {
		p.spritePatternLo[i] = 0
		p.spritePatternHi[i] = 0
		p.spriteIsZero[i] = false
	}
}

func reverseBits(b uint8) uint8 {
	var r uint8
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

// shiftSprites counts down each active sprite's X delay and, once it
// reaches zero, shifts out its pattern bits one pixel per dot.
func (p *PPU) shiftSprites() {
	for i := 0; i < 8; i++ {
		if p.spriteX[i] > 0 {
			p.spriteX[i]--
			continue
		}
		p.spritePatternLo[i] <<= 1
		p.spritePatternHi[i] <<= 1
	}
}

// spritePixel resolves the highest-priority active sprite pixel for
// the current dot: (colorIndex, transparent, spriteIndex,
// behindBackground, isSpriteZero). transparent is driven by the
// sprite's 2-bit pattern value being zero, the same convention
// backgroundPixel uses, not by the resolved palette byte (which is a
// legitimate color and may itself be zero).
func (p *PPU) spritePixel() (color uint8, transparent bool, index int, behind bool, isZero bool) {
	for i := 0; i < p.spriteCount; i++ {
		if p.spriteX[i] > 0 {
			continue
		}
		lo := (p.spritePatternLo[i] >> 7) & 1
		hi := (p.spritePatternHi[i] >> 7) & 1
		pixel := (hi << 1) | lo
		if pixel == 0 {
			continue
		}
		attr := p.spriteAttr[i]
		palette := attr & 0x03
		colorIndex := p.readVRAM(0x3F10 + uint16(palette)*4 + uint16(pixel))
		return colorIndex, false, i, attr&0x20 != 0, p.spriteIsZero[i]
	}
	return 0, true, -1, false, false
}

// renderPixel composites the background and sprite pipelines for dot
// x (0-based) of the current visible scanline and writes the result
// into the frame buffer, detecting sprite-0 hit along the way.
func (p *PPU) renderPixel(x int) {
	bgColor, bgTransparent := p.backgroundPixel()
	if p.mask&0x02 == 0 && x < 8 {
		bgTransparent = true
	}

	spriteColor, spriteTransparent, _, behind, isZero := p.spritePixel()
	if p.mask&0x04 == 0 && x < 8 {
		spriteTransparent = true
	}

	if !bgTransparent && !spriteTransparent && isZero && x != 0 && x != 255 {
		p.status |= 0x40
	}

	var final uint8
	switch {
	case bgTransparent && spriteTransparent:
		final = p.readVRAM(0x3F00)
	case bgTransparent:
		final = spriteColor
	case spriteTransparent:
		final = bgColor
	case behind:
		final = bgColor
	default:
		final = spriteColor
	}

	p.emitPixel(x, p.scanline, colorFor(final))
}
