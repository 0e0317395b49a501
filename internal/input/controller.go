// Package input implements the NES controller's serial shift-register
// protocol over $4016/$4017.
package input

import "gones/internal/diag"

// Button is one bit of a controller's state byte.
type Button uint8

const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// Controller is a single NES gamepad: an 8-bit button latch read out
// one bit at a time through a shift register.
type Controller struct {
	buttons uint8

	shiftRegister uint8
	strobe        bool

	Log *diag.Logger
}

// New creates a Controller with no buttons pressed.
func New() *Controller {
	return &Controller{}
}

// SetButton updates one button's pressed state.
func (c *Controller) SetButton(button Button, pressed bool) {
	if pressed {
		c.buttons |= uint8(button)
	} else {
		c.buttons &^= uint8(button)
	}
}

// SetButtons replaces all eight button states at once, in NES order:
// A, B, Select, Start, Up, Down, Left, Right.
func (c *Controller) SetButtons(buttons [8]bool) {
	var state uint8
	for i, pressed := range buttons {
		if pressed {
			state |= 1 << uint(i)
		}
	}
	c.buttons = state
}

// IsPressed reports whether button is currently held.
func (c *Controller) IsPressed(button Button) bool {
	return c.buttons&uint8(button) != 0
}

// Write handles a write to $4016: bit 0 is the strobe line. While
// strobe is held high the shift register continuously reloads from
// the live button state; releasing it latches whatever was loaded
// last so Read can shift it out one bit per call.
func (c *Controller) Write(value uint8) {
	c.strobe = value&0x01 != 0
	if c.strobe {
		c.shiftRegister = c.buttons
	}
	c.Log.Tracef("controller write strobe=%t buttons=%02X", c.strobe, c.buttons)
}

// Read shifts out the next button bit (LSB first: A,B,Select,Start,
// Up,Down,Left,Right), then ones thereafter, per the real shift
// register's behavior once it has emptied past bit 7.
func (c *Controller) Read() uint8 {
	if c.strobe {
		c.shiftRegister = c.buttons
		return c.shiftRegister & 0x01
	}

	result := c.shiftRegister & 0x01
	c.shiftRegister = (c.shiftRegister >> 1) | 0x80
	return result
}

// Reset clears all button and shift-register state.
func (c *Controller) Reset() {
	c.buttons = 0
	c.shiftRegister = 0
	c.strobe = false
}

// ControllerState is a snapshot of one controller's latch and shift
// register, independent of the host's currently-held keys.
type ControllerState struct {
	Buttons       uint8
	ShiftRegister uint8
	Strobe        bool
}

// Snapshot captures the controller's button latch and shift state.
func (c *Controller) Snapshot() ControllerState {
	return ControllerState{Buttons: c.buttons, ShiftRegister: c.shiftRegister, Strobe: c.strobe}
}

// Restore replaces latch/shift state from a prior Snapshot.
func (c *Controller) Restore(s ControllerState) {
	c.buttons, c.shiftRegister, c.strobe = s.Buttons, s.ShiftRegister, s.Strobe
}

// InputState owns both controller ports.
type InputState struct {
	Controller1 *Controller
	Controller2 *Controller
}

// NewInputState creates both controller ports, unpressed.
func NewInputState() *InputState {
	return &InputState{Controller1: New(), Controller2: New()}
}

// Reset clears both controllers.
func (is *InputState) Reset() {
	is.Controller1.Reset()
	is.Controller2.Reset()
}

// Read reads $4016 (controller 1) or $4017 (controller 2). Bit 6 of
// every read is set, reflecting the NES's open-bus behavior on these
// two registers.
func (is *InputState) Read(address uint16) uint8 {
	switch address {
	case 0x4016:
		return is.Controller1.Read() | 0x40
	case 0x4017:
		return is.Controller2.Read() | 0x40
	default:
		return 0
	}
}

// Write handles $4016: both controllers share the same strobe line.
func (is *InputState) Write(address uint16, value uint8) {
	if address == 0x4016 {
		is.Controller1.Write(value)
		is.Controller2.Write(value)
	}
}
