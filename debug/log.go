package debug

import (
	"fmt"
	"io"
	"os"
)

var out io.Writer = os.Stderr

// Logf writes a trace line to stderr.
func Logf(msg string, args ...any) {
	fmt.Fprintf(out, msg, args...)
}
