package bus

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gones/internal/cartridge"
	"gones/internal/input"
)

// buildINES assembles a minimal NROM iNES image with the given PRG
// bytes placed at $8000 and the reset vector pointed at $8000.
func buildINES(prg []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("NES\x1A")
	buf.WriteByte(1) // 16KB PRG
	buf.WriteByte(1) // 8KB CHR
	buf.Write(make([]byte, 6))

	prgBank := make([]byte, 0x4000)
	copy(prgBank, prg)
	prgBank[0x3FFC] = 0x00 // reset vector low -> $8000
	prgBank[0x3FFD] = 0x80 // reset vector high
	buf.Write(prgBank)
	buf.Write(make([]byte, 0x2000)) // CHR ROM

	return buf.Bytes()
}

func newTestBus(t *testing.T, prg []byte) *Bus {
	t.Helper()
	cart, err := cartridge.LoadFromReader(bytes.NewReader(buildINES(prg)))
	require.NoError(t, err)
	b := New()
	b.LoadCartridge(cart)
	return b
}

// TestResetVectorAndStoreSequence reproduces spec section 8 scenario 1:
// LDA #$42; STA $0200; BRK after 13 cycles leaves RAM[$0200] == $42.
func TestResetVectorAndStoreSequence(t *testing.T) {
	b := newTestBus(t, []byte{0xA9, 0x42, 0x8D, 0x00, 0x02, 0x00})

	totalCycles := b.Cycles() // 7 from reset
	for totalCycles < 7+2+4 {
		cycles, err := b.Step()
		require.NoError(t, err, spew.Sdump(b.CPU))
		totalCycles += cycles
	}

	assert.EqualValues(t, 0x42, b.Read(0x0200))
}

// TestPPUAdvancesThreeTimesPerCPUCycle is the quantified invariant from
// spec section 8: ppu.steps == 3 * cpu.cycles after every instruction.
// Three single-cycle-pair NOPs starting fresh off reset never approach
// a scanline wraparound (341 dots), so a flat dot count is safe here.
func TestPPUAdvancesThreeTimesPerCPUCycle(t *testing.T) {
	b := newTestBus(t, []byte{0xEA, 0xEA, 0xEA}) // NOP NOP NOP

	for i := 0; i < 3; i++ {
		before := b.PPU.Scanline()*341 + b.PPU.Dot()
		cycles, err := b.Step()
		require.NoError(t, err)
		after := b.PPU.Scanline()*341 + b.PPU.Dot()
		assert.EqualValues(t, cycles*3, uint64(after-before), spew.Sdump(b.PPU))
	}
}

// TestOAMDMATakes513CyclesOnEvenStart reproduces spec section 8
// scenario 4: a $4014 write on an even CPU cycle stalls the CPU for
// exactly 513 cycles and copies the source page into OAM.
func TestOAMDMATakes513CyclesOnEvenStart(t *testing.T) {
	b := newTestBus(t, []byte{0xEA})

	b.Write(0x0200, 0x99)
	require.EqualValues(t, 0, b.Cycles()%2, "DMA must start on an even CPU cycle for this assertion")
	b.Write(0x4014, 0x02)

	total := uint64(0)
	for b.IsDMAInProgress() {
		cycles, err := b.Step()
		require.NoError(t, err)
		total += cycles
	}

	assert.EqualValues(t, 513, total)

	b.PPU.WriteRegister(0x2003, 0) // OAMADDR = 0
	assert.EqualValues(t, 0x99, b.PPU.ReadRegister(0x2004))
}

// TestControllerShiftOrder reproduces spec section 8 scenario 6: A and
// Right pressed shift out 1,0,0,0,0,0,0,1 LSB-first after strobing.
func TestControllerShiftOrder(t *testing.T) {
	b := New()
	b.SetButtons1([8]bool{true, false, false, false, false, false, false, true})

	b.Write(0x4016, 1)
	b.Write(0x4016, 0)

	want := []uint8{1, 0, 0, 0, 0, 0, 0, 1}
	for i, w := range want {
		got := b.Read(0x4016) & 0x01
		assert.EqualValues(t, w, got, "bit %d", i)
	}
}

// TestWiredORIRQIncludesMapper checks that an MMC3 IRQ is visible on
// the CPU's IRQ line once the mapper asserts it and I is clear.
func TestWiredORIRQIncludesMapper(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NES\x1A")
	buf.WriteByte(2) // 32KB PRG
	buf.WriteByte(2) // 16KB CHR
	flags6 := uint8(4 << 4) // mapper 4 (MMC3)
	buf.WriteByte(flags6)
	buf.WriteByte(4 & 0xF0)
	buf.Write(make([]byte, 8))
	prg := make([]byte, 2*0x4000)
	prg[0x7FFC] = 0x00
	prg[0x7FFD] = 0x80
	// CLI at reset so IRQ isn't masked, then spin on NOPs.
	prg[0] = 0x58 // CLI
	for i := 1; i < 0x400; i++ {
		prg[i] = 0xEA // NOP
	}
	buf.Write(prg)
	buf.Write(make([]byte, 2*0x2000))

	cart, err := cartridge.LoadFromReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	b := New()
	b.LoadCartridge(cart)

	cart.WritePRG(0xC000, 1)
	cart.WritePRG(0xC001, 0)
	cart.WritePRG(0xE001, 0)

	for i := 0; i < 4; i++ {
		cart.ReadCHR(0x0000)
	}
	cart.ReadCHR(0x1000)
	for i := 0; i < 4; i++ {
		cart.ReadCHR(0x0000)
	}
	cart.ReadCHR(0x1000)
	require.True(t, cart.IRQPending())

	// Step 1 executes the CLI at the reset vector and, at its end,
	// latches the mapper's asserted IRQ onto the CPU's IRQ line.
	_, err = b.Step()
	require.NoError(t, err)
	spBeforeIRQ := b.CPU.SP

	// Step 2 samples that line with I now clear and services the IRQ:
	// PC and P are pushed (SP drops by 3) and PC vectors through $FFFE.
	_, err = b.Step()
	require.NoError(t, err)
	assert.EqualValues(t, spBeforeIRQ-3, b.CPU.SP, spew.Sdump(b.CPU))
	assert.EqualValues(t, 0x0000, b.CPU.PC, "IRQ vector bytes are zero in this test ROM")
}

// TestSnapshotRestoreRoundTrip checks that diverging a bus from a
// snapshot and then restoring it lands exactly back on the snapshotted
// register and RAM state.
func TestSnapshotRestoreRoundTrip(t *testing.T) {
	b := newTestBus(t, []byte{0xA9, 0x10, 0x8D, 0x00, 0x02, 0xE8, 0xE8, 0x4C, 0x02, 0x80})

	for i := 0; i < 4; i++ {
		_, err := b.Step()
		require.NoError(t, err)
	}
	snap := b.Snapshot()
	snapPC, snapX, snapRAM, snapCycles := b.CPU.PC, b.CPU.X, b.Read(0x0200), b.Cycles()

	for i := 0; i < 21; i++ {
		_, err := b.Step()
		require.NoError(t, err, spew.Sdump(b.CPU))
	}
	require.NotEqual(t, snapCycles, b.Cycles(), "cycle count must have advanced past the snapshot")

	b.Restore(snap)
	assert.EqualValues(t, snapPC, b.CPU.PC)
	assert.EqualValues(t, snapX, b.CPU.X)
	assert.EqualValues(t, snapRAM, b.Read(0x0200))
	assert.EqualValues(t, snapCycles, b.Cycles())
}

func TestButtonBitOrderMatchesNESLayout(t *testing.T) {
	is := input.NewInputState()
	is.Controller1.SetButtons([8]bool{true, true, false, false, false, false, false, false})
	assert.True(t, is.Controller1.IsPressed(input.ButtonA))
	assert.True(t, is.Controller1.IsPressed(input.ButtonB))
}
