package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const (
	ExitFailure = 1
	// ExitMismatch is returned when the device or the cross-check disagrees.
	ExitMismatch = 2
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}
