package process

import (
	"io"
	"time"
)

// DefaultGracePeriod is the time between SIGTERM and SIGKILL when a
// running command is canceled.
const DefaultGracePeriod = 5 * time.Second

// Command configures a subprocess to execute.
type Command struct {
	// Binary is the executable path or name, resolved via PATH.
	Binary string
	Args   []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra key=value pairs appended to the parent environment.
	Env []string
	// Stdin feeds the process. May be nil.
	Stdin io.Reader
	// Timeout bounds the run on top of the caller's context. Zero means no
	// extra bound.
	Timeout time.Duration
	// GracePeriod defaults to DefaultGracePeriod.
	GracePeriod time.Duration
}
