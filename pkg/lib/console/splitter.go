package console

import (
	"bytes"
	"sync"
)

// DefaultMaxLineLength bounds a buffered partial line before it is emitted
// as is.
const DefaultMaxLineLength = 64 * 1024

// LineSplitter implements io.Writer for a process output stream. Arbitrary
// chunks go in; complete lines come out through emit, in order, without the
// trailing newline. A partial line is buffered across writes until its
// newline arrives or Flush is called.
//
// emit is called with the splitter's lock held, so lines of one stream are
// never reordered.
type LineSplitter struct {
	mu      sync.Mutex
	partial []byte
	maxLine int
	emit    func(line string)
}

func NewLineSplitter(maxLine int, emit func(line string)) *LineSplitter {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineLength
	}
	return &LineSplitter{maxLine: maxLine, emit: emit}
}

// Write never fails; it returns len(p), nil to satisfy io.Writer so the
// process's copy loop keeps draining the pipe.
func (splitter *LineSplitter) Write(p []byte) (int, error) {
	if splitter == nil || len(p) == 0 {
		return len(p), nil
	}

	splitter.mu.Lock()
	defer splitter.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			splitter.partial = append(splitter.partial, data...)
			if len(splitter.partial) >= splitter.maxLine {
				splitter.emitLocked(splitter.partial)
				splitter.partial = nil
			}
			break
		}

		if len(splitter.partial) > 0 {
			line := append(splitter.partial, data[:i]...)
			splitter.partial = nil
			splitter.emitLocked(line)
		} else {
			splitter.emitLocked(data[:i])
		}
		data = data[i+1:]
	}

	return len(p), nil
}

// Flush emits any buffered partial line.
func (splitter *LineSplitter) Flush() {
	if splitter == nil {
		return
	}

	splitter.mu.Lock()
	defer splitter.mu.Unlock()

	if len(splitter.partial) > 0 {
		splitter.emitLocked(splitter.partial)
		splitter.partial = nil
	}
}

func (splitter *LineSplitter) emitLocked(line []byte) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if splitter.emit != nil {
		splitter.emit(string(line))
	}
}
