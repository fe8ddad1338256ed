package process

import (
	"strconv"
	"strings"
	"time"
)

// Result holds the output and status of a completed subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process was killed or never started.
	ExitCode int
	Duration time.Duration
}

// StderrText returns stderr trimmed, or "exit code N" when stderr is empty.
func (r *Result) StderrText() string {
	if r == nil {
		return ""
	}
	if s := strings.TrimSpace(string(r.Stderr)); s != "" {
		return s
	}
	return "exit code " + strconv.Itoa(r.ExitCode)
}
