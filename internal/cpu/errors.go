package cpu

import (
	"fmt"

	"gones/internal/neserr"
)

func decodeError(opcode uint8, pc uint16) error {
	return neserr.Wrap(neserr.DecodeError, fmt.Sprintf("unimplemented opcode $%02X", opcode),
		fmt.Errorf("at PC=$%04X", pc))
}
