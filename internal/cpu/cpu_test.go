package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gones/internal/neserr"
)

// flatBus is a 64KB flat RAM used to exercise the CPU in isolation,
// the way a unit test stands in for the full system bus.
type flatBus struct {
	mem [0x10000]uint8
}

func (b *flatBus) Read(addr uint16) uint8       { return b.mem[addr] }
func (b *flatBus) Write(addr uint16, v uint8)   { b.mem[addr] = v }
func (b *flatBus) load(addr uint16, bytes ...uint8) {
	for i, v := range bytes {
		b.mem[int(addr)+i] = v
	}
}
func (b *flatBus) setResetVector(addr uint16) {
	b.mem[resetVector] = uint8(addr & 0xFF)
	b.mem[resetVector+1] = uint8(addr >> 8)
}

func newTestCPU(t *testing.T) (*CPU, *flatBus) {
	t.Helper()
	bus := &flatBus{}
	bus.setResetVector(0x8000)
	c := New(bus)
	c.Reset()
	require.Equal(t, uint16(0x8000), c.PC)
	require.Equal(t, uint8(0xFD), c.SP)
	require.True(t, c.I)
	return c, bus
}

func TestResetSequence(t *testing.T) {
	c, _ := newTestCPU(t)
	assert.EqualValues(t, 7, c.Cycles())
}

func TestLDAImmediateSetsFlags(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x8000, 0xA9, 0x00) // LDA #$00
	cycles, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 2, cycles)
	assert.True(t, c.Z)
	assert.False(t, c.N)

	c.PC = 0x8000
	bus.load(0x8000, 0xA9, 0x80) // LDA #$80
	_, err = c.Step()
	require.NoError(t, err)
	assert.False(t, c.Z)
	assert.True(t, c.N)
	assert.EqualValues(t, 0x80, c.A)
}

func TestAbsoluteXPageCrossExtraCycle(t *testing.T) {
	c, bus := newTestCPU(t)
	c.X = 0xFF
	bus.load(0x8000, 0xBD, 0x01, 0x00) // LDA $0001,X -> $0100, crosses page
	bus.mem[0x0100] = 0x42
	cycles, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 5, cycles) // base 4 + 1 page-cross
	assert.EqualValues(t, 0x42, c.A)
}

func TestAbsoluteXNoPageCross(t *testing.T) {
	c, bus := newTestCPU(t)
	c.X = 0x01
	bus.load(0x8000, 0xBD, 0x00, 0x01) // LDA $0100,X -> $0101
	bus.mem[0x0101] = 0x07
	cycles, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 4, cycles)
	assert.EqualValues(t, 0x07, c.A)
}

func TestAdcCarryAndOverflow(t *testing.T) {
	c, bus := newTestCPU(t)
	c.A = 0x50
	bus.load(0x8000, 0x69, 0x50) // ADC #$50 -> overflow (0x50+0x50=0xA0, signed overflow)
	_, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 0xA0, c.A)
	assert.True(t, c.V)
	assert.False(t, c.C)
	assert.True(t, c.N)
}

func TestSbcBorrow(t *testing.T) {
	c, bus := newTestCPU(t)
	c.A = 0x00
	c.C = true // no borrow going in
	bus.load(0x8000, 0xE9, 0x01) // SBC #$01 -> 0xFF, carry clear (borrow occurred)
	_, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 0xFF, c.A)
	assert.False(t, c.C)
	assert.True(t, c.N)
}

func TestBranchTakenCyclePenalties(t *testing.T) {
	c, bus := newTestCPU(t)
	c.Z = true
	bus.load(0x8000, 0xF0, 0x02) // BEQ +2, no page cross from $8002 -> $8004
	cycles, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 3, cycles) // base 2 + 1 taken
	assert.EqualValues(t, 0x8004, c.PC)
}

func TestBranchNotTaken(t *testing.T) {
	c, bus := newTestCPU(t)
	c.Z = false
	bus.load(0x8000, 0xF0, 0x02) // BEQ, not taken
	cycles, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 2, cycles)
	assert.EqualValues(t, 0x8002, c.PC)
}

func TestJsrRtsRoundTrip(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x8000, 0x20, 0x00, 0x90) // JSR $9000
	bus.load(0x9000, 0x60)            // RTS
	_, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 0x9000, c.PC)

	_, err = c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 0x8003, c.PC)
}

func TestBrkPushesBWithUnsetAndRtiRestores(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.mem[irqVector] = 0x00
	bus.mem[irqVector+1] = 0x90
	bus.load(0x8000, 0x00, 0x00) // BRK, padding byte
	bus.load(0x9000, 0x40)       // RTI

	_, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 0x9000, c.PC)
	assert.True(t, c.I)

	pushedStatus := bus.mem[stackBase+uint16(c.SP)+1]
	assert.NotZero(t, pushedStatus&bFlagMask, "B flag must be set on a software BRK push")

	_, err = c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 0x8002, c.PC)
}

func TestNmiServicingPushesBClear(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.mem[nmiVector] = 0x00
	bus.mem[nmiVector+1] = 0xA0
	bus.load(0x8000, 0xEA) // NOP, never executed: NMI preempts it

	c.SetNMILine(true)
	cycles, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 7, cycles)
	assert.EqualValues(t, 0xA000, c.PC)

	pushedStatus := bus.mem[stackBase+uint16(c.SP)+1]
	assert.Zero(t, pushedStatus&bFlagMask, "B flag must be clear on a hardware NMI push")
}

func TestIrqIgnoredWhenIFlagSet(t *testing.T) {
	c, bus := newTestCPU(t)
	c.I = true
	bus.load(0x8000, 0xA9, 0x01) // LDA #$01
	c.SetIRQLine(true)
	_, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 0x01, c.A, "IRQ must not preempt while I is set")
}

func TestJmpIndirectPageWrapBug(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x8000, 0x6C, 0xFF, 0x20) // JMP ($20FF)
	bus.mem[0x20FF] = 0x34
	bus.mem[0x2000] = 0x12 // high byte fetched from $2000, not $2100
	bus.mem[0x2100] = 0xFF
	_, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 0x1234, c.PC)
}

func TestUnimplementedOpcodeIsDecodeError(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x8000, 0x02) // no official or NOP opcode uses $02 (illegal KIL)
	_, err := c.Step()
	require.Error(t, err)
	assert.True(t, neserr.Is(err, neserr.DecodeError))
}

func TestMultiByteNopConsumesOperandAndCycles(t *testing.T) {
	c, bus := newTestCPU(t)
	bus.load(0x8000, 0x1C, 0x00, 0x01) // unofficial NOP absolute,X
	cycles, err := c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 4, cycles)
	assert.EqualValues(t, 0x8003, c.PC)
}

func TestStackPushPullRoundTrip(t *testing.T) {
	c, bus := newTestCPU(t)
	c.A = 0x42
	bus.load(0x8000, 0x48, 0xA9, 0x00, 0x68) // PHA; LDA #$00; PLA
	_, err := c.Step()
	require.NoError(t, err)
	_, err = c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 0, c.A)
	_, err = c.Step()
	require.NoError(t, err)
	assert.EqualValues(t, 0x42, c.A)
}
