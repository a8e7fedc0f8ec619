package console

import (
	"fmt"
	"io"

	"github.com/mattn/go-colorable"
)

const PictoThermometer = "🌡"
const PictoCycle = "🔁"
const PictoStop = "🚫"

var writer io.Writer
var errWriter io.Writer

func init() {
	writer = colorable.NewColorableStdout()
	errWriter = colorable.NewColorableStderr()
}

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

// Writer is the colored standard output.
func Writer() io.Writer {
	return writer
}

func Errorf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), fmt.Sprintf(msg, args...))
}

func Warnf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func Infof(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", White("..."), fmt.Sprintf(msg, args...))
}

func PInfof(picto, msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}
