package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPPU struct {
	regs [8]uint8
}

func (p *stubPPU) ReadRegister(address uint16) uint8 { return p.regs[address&0x07] }
func (p *stubPPU) WriteRegister(address uint16, value uint8) {
	p.regs[address&0x07] = value
}

type stubAPU struct{ status uint8 }

func (a *stubAPU) WriteRegister(address uint16, value uint8) {}
func (a *stubAPU) ReadStatus() uint8                         { return a.status }

type stubCart struct {
	prg [0x10000]uint8
	chr [0x2000]uint8
}

func (c *stubCart) ReadPRG(a uint16) uint8         { return c.prg[a] }
func (c *stubCart) WritePRG(a uint16, v uint8)     { c.prg[a] = v }
func (c *stubCart) ReadCHR(a uint16) uint8         { return c.chr[a] }
func (c *stubCart) WriteCHR(a uint16, v uint8)     { c.chr[a] = v }

func TestRAMMirroring(t *testing.T) {
	mem := New(&stubPPU{}, &stubAPU{}, &stubCart{})
	mem.Write(0x0000, 0x42)
	assert.EqualValues(t, 0x42, mem.Read(0x0800))
	assert.EqualValues(t, 0x42, mem.Read(0x1800))
}

func TestPPURegisterMirroringEvery8Bytes(t *testing.T) {
	ppu := &stubPPU{}
	mem := New(ppu, &stubAPU{}, &stubCart{})
	mem.Write(0x2001, 0x11)
	assert.EqualValues(t, 0x11, mem.Read(0x2009))
}

func TestOpenBusOnUnmappedRead(t *testing.T) {
	mem := New(&stubPPU{}, &stubAPU{}, &stubCart{})
	mem.Read(0x2000) // pulls whatever the stub PPU register holds onto the bus
	value := mem.Read(0x4020)
	assert.Equal(t, mem.Read(0x4020), value)
}

func TestOAMDMAFallbackCopiesPage(t *testing.T) {
	ppu := &stubPPU{}
	mem := New(ppu, &stubAPU{}, &stubCart{})
	mem.Write(0x0200, 0x99)
	mem.Write(0x4014, 0x02)
	assert.EqualValues(t, 0x99, ppu.regs[0x2004&0x07])
}

func TestNametableMirroringHorizontal(t *testing.T) {
	pm := NewPPUMemory(&stubCart{}, MirrorHorizontal)
	pm.Write(0x2000, 0xAB)
	assert.EqualValues(t, 0xAB, pm.Read(0x2400), "horizontal mirrors top two quadrants together")
	assert.NotEqual(t, uint8(0xAB), pm.Read(0x2800))
}

func TestPaletteBackgroundMirroring(t *testing.T) {
	pm := NewPPUMemory(&stubCart{}, MirrorVertical)
	pm.Write(0x3F00, 0x20)
	assert.EqualValues(t, 0x20, pm.Read(0x3F10))
}

func TestPPUMemoryCHRPassesThroughToCartridge(t *testing.T) {
	cart := &stubCart{}
	pm := NewPPUMemory(cart, MirrorVertical)
	pm.Write(0x0010, 0x55)
	require.EqualValues(t, 0x55, cart.chr[0x0010])
	assert.EqualValues(t, 0x55, pm.Read(0x0010))
}
