package cartridge

import (
	"fmt"

	"gones/internal/neserr"
)

func badRomError(msg string, cause error) error {
	if cause != nil {
		return neserr.Wrap(neserr.BadRom, msg, cause)
	}
	return neserr.New(neserr.BadRom, msg)
}

func unsupportedMapperError(id uint8) error {
	return neserr.New(neserr.BadRom, fmt.Sprintf("unsupported mapper %d", id))
}
