package cartridge

// Mapper dispatches PRG/CHR accesses and nametable mirroring through
// whatever banking hardware a cartridge carries. Every mapper family
// is a distinct implementation of this same small interface rather
// than a single struct with a switch on mapper number.
type Mapper interface {
	ReadPRG(address uint16) uint8
	WritePRG(address uint16, value uint8)
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)

	// Mirroring reports the nametable layout, which on some mappers
	// (MMC1, AOROM) is runtime-switchable rather than fixed by the header.
	Mirroring() MirrorMode

	// IRQPending reports whether the mapper's own IRQ source (only MMC3
	// has one) is currently asserted. MMC3 watches the PPU's A12 line
	// for its rising edge directly inside ReadCHR/WriteCHR, and
	// acknowledges its own IRQ on a $E000 WritePRG, so neither needs a
	// separate interface method of its own.
	IRQPending() bool
}

// romBanks holds the PRG/CHR storage shared by every mapper
// implementation; each mapper embeds this and layers its own bank
// registers and address translation over it.
type romBanks struct {
	prgROM []uint8
	chrROM []uint8 // CHR RAM when cart.hasCHRRAM
	sram   []uint8

	prgBankCount16k int
	chrBankCount8k  int
}

func newRomBanks(cart *Cartridge) romBanks {
	return romBanks{
		prgROM:          cart.prgROM,
		chrROM:          cart.chrROM,
		sram:            cart.sram[:],
		prgBankCount16k: len(cart.prgROM) / 0x4000,
		chrBankCount8k:  max(1, len(cart.chrROM)/0x2000),
	}
}

// createMapper dispatches on the iNES mapper number. An unsupported
// mapper number is a BadRom condition the caller reports; it is never
// silently coerced to NROM.
func createMapper(id uint8, cart *Cartridge) (Mapper, error) {
	switch id {
	case 0:
		return newNROM(cart), nil
	case 1:
		return newMMC1(cart), nil
	case 2:
		return newUxROM(cart), nil
	case 3:
		return newCNROM(cart), nil
	case 4:
		return newMMC3(cart), nil
	case 7:
		return newAOROM(cart), nil
	default:
		return nil, unsupportedMapperError(id)
	}
}
