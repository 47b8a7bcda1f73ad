package runner

import (
	"fmt"
	"io"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

// WriteLine writes text followed by a newline to the process's standard
// input. Once a write fails the input is considered closed for good.
func (process *Process) WriteLine(text string) error {
	process.stdinMu.Lock()
	defer process.stdinMu.Unlock()

	if process.stdinClosed || process.stdin == nil {
		return lib.ErrInputClosed
	}

	if _, err := io.WriteString(process.stdin, text+"\n"); err != nil {
		process.stdinClosed = true
		_ = process.stdin.Close()
		return fmt.Errorf("%w: %v", lib.ErrInputClosed, err)
	}
	return nil
}

// InputWritable reports whether WriteLine can still succeed.
func (process *Process) InputWritable() bool {
	process.stdinMu.Lock()
	defer process.stdinMu.Unlock()
	return !process.stdinClosed && process.stdin != nil
}

func (process *Process) closeInput() {
	process.stdinMu.Lock()
	defer process.stdinMu.Unlock()

	if process.stdinClosed || process.stdin == nil {
		return
	}
	process.stdinClosed = true
	_ = process.stdin.Close()
}
