package cpu

// readOnlyPageCrossMnemonics lists mnemonics that incur the well-known
// +1 cycle penalty when an indexed read (absolute,X / absolute,Y /
// (zp),Y) crosses a page boundary. Write and read-modify-write
// instructions on the same addressing modes always take the fixed,
// longer cycle count and never get this bonus.
var readOnlyPageCross = map[string]bool{
	"ADC": true, "AND": true, "CMP": true, "EOR": true,
	"LDA": true, "LDX": true, "LDY": true, "ORA": true, "SBC": true,
	"NOP": true,
}

// execute runs the decoded opcode and returns any cycle penalty beyond
// the instruction's base cost (page-crossing reads, taken branches).
func (c *CPU) execute(opcode uint8, address uint16, pageCrossed bool) uint8 {
	inst := c.instructions[opcode]
	name := inst.Name

	var extra uint8
	if pageCrossed && readOnlyPageCross[name] {
		extra = 1
	}

	switch name {
	case "NOP":
		// operand already consumed by operandAddress; nothing to do.

	case "LDA":
		c.A = c.bus.Read(address)
		c.setZN(c.A)
	case "LDX":
		c.X = c.bus.Read(address)
		c.setZN(c.X)
	case "LDY":
		c.Y = c.bus.Read(address)
		c.setZN(c.Y)
	case "STA":
		c.bus.Write(address, c.A)
	case "STX":
		c.bus.Write(address, c.X)
	case "STY":
		c.bus.Write(address, c.Y)

	case "TAX":
		c.X = c.A
		c.setZN(c.X)
	case "TAY":
		c.Y = c.A
		c.setZN(c.Y)
	case "TXA":
		c.A = c.X
		c.setZN(c.A)
	case "TYA":
		c.A = c.Y
		c.setZN(c.A)
	case "TSX":
		c.X = c.SP
		c.setZN(c.X)
	case "TXS":
		c.SP = c.X

	case "PHA":
		c.push(c.A)
	case "PHP":
		c.push(c.statusByte(true))
	case "PLA":
		c.A = c.pop()
		c.setZN(c.A)
	case "PLP":
		c.setStatusByte(c.pop())

	case "ADC":
		c.adc(c.bus.Read(address))
	case "SBC":
		c.adc(^c.bus.Read(address))

	case "AND":
		c.A &= c.bus.Read(address)
		c.setZN(c.A)
	case "ORA":
		c.A |= c.bus.Read(address)
		c.setZN(c.A)
	case "EOR":
		c.A ^= c.bus.Read(address)
		c.setZN(c.A)

	case "BIT":
		value := c.bus.Read(address)
		c.Z = (c.A & value) == 0
		c.V = value&vFlagMask != 0
		c.N = value&nFlagMask != 0

	case "INC":
		value := c.bus.Read(address) + 1
		c.bus.Write(address, value)
		c.setZN(value)
	case "DEC":
		value := c.bus.Read(address) - 1
		c.bus.Write(address, value)
		c.setZN(value)
	case "INX":
		c.X++
		c.setZN(c.X)
	case "INY":
		c.Y++
		c.setZN(c.Y)
	case "DEX":
		c.X--
		c.setZN(c.X)
	case "DEY":
		c.Y--
		c.setZN(c.Y)

	case "ASL":
		c.shift(opcode, address, true, false)
	case "LSR":
		c.shift(opcode, address, false, false)
	case "ROL":
		c.shift(opcode, address, true, true)
	case "ROR":
		c.shift(opcode, address, false, true)

	case "CMP":
		c.compare(c.A, c.bus.Read(address))
	case "CPX":
		c.compare(c.X, c.bus.Read(address))
	case "CPY":
		c.compare(c.Y, c.bus.Read(address))

	case "JMP":
		c.PC = address
	case "JSR":
		c.pushWord(c.PC - 1)
		c.PC = address
	case "RTS":
		c.PC = c.popWord() + 1
	case "RTI":
		c.setStatusByte(c.pop())
		c.PC = c.popWord()

	case "BRK":
		// BRK is a 2-byte instruction: the byte after the opcode is a
		// padding signature byte, skipped over in the pushed return address.
		c.PC++
		c.pushWord(c.PC)
		c.push(c.statusByte(true))
		c.I = true
		low := uint16(c.bus.Read(irqVector))
		high := uint16(c.bus.Read(irqVector + 1))
		c.PC = (high << 8) | low

	case "BPL":
		extra += c.branch(!c.N, address)
	case "BMI":
		extra += c.branch(c.N, address)
	case "BVC":
		extra += c.branch(!c.V, address)
	case "BVS":
		extra += c.branch(c.V, address)
	case "BCC":
		extra += c.branch(!c.C, address)
	case "BCS":
		extra += c.branch(c.C, address)
	case "BNE":
		extra += c.branch(!c.Z, address)
	case "BEQ":
		extra += c.branch(c.Z, address)

	case "CLC":
		c.C = false
	case "SEC":
		c.C = true
	case "CLI":
		c.I = false
	case "SEI":
		c.I = true
	case "CLD":
		c.D = false
	case "SED":
		c.D = true
	case "CLV":
		c.V = false
	}

	return extra
}

// adc implements both ADC and SBC (SBC passes the bitwise-complemented
// operand so the same add-with-carry math produces subtraction).
func (c *CPU) adc(operand uint8) {
	sum := uint16(c.A) + uint16(operand)
	if c.C {
		sum++
	}
	result := uint8(sum)

	c.C = sum > 0xFF
	c.V = (c.A^operand)&0x80 == 0 && (c.A^result)&0x80 != 0
	c.A = result
	c.setZN(c.A)
}

func (c *CPU) compare(reg, value uint8) {
	c.C = reg >= value
	diff := reg - value
	c.setZN(diff)
}

// branch applies the relative jump when taken and accounts for the
// 6502's branch cycle penalties: +1 if taken, +1 more if the branch
// crosses a page boundary. address is the already-resolved target;
// operandAddress reported the page-cross relative to PC before the
// jump, which this re-derives from the old PC.
func (c *CPU) branch(taken bool, target uint16) uint8 {
	if !taken {
		return 0
	}
	oldPC := c.PC
	crossed := (oldPC & pageMask) != (target & pageMask)
	c.PC = target
	if crossed {
		return 2
	}
	return 1
}

// shift implements ASL/LSR/ROL/ROR on either the accumulator or a
// memory operand. left selects ASL/ROL vs LSR/ROR; rotate selects
// ROL/ROR vs ASL/LSR.
func (c *CPU) shift(opcode uint8, address uint16, left, rotate bool) {
	mode := c.instructions[opcode].Mode
	var value uint8
	if mode == Accumulator {
		value = c.A
	} else {
		value = c.bus.Read(address)
	}

	oldCarry := c.C
	var result uint8
	if left {
		c.C = value&0x80 != 0
		result = value << 1
		if rotate && oldCarry {
			result |= 0x01
		}
	} else {
		c.C = value&0x01 != 0
		result = value >> 1
		if rotate && oldCarry {
			result |= 0x80
		}
	}

	if mode == Accumulator {
		c.A = result
	} else {
		c.bus.Write(address, result)
	}
	c.setZN(result)
}
