package display

import (
	"fmt"
	"io"
	"sync"

	"github.com/zabeloliver/wethermo-remote/wethermo-api/wethermoStructs"
)

// Region is an area of the UI whose whole content is swapped at once.
type Region interface {
	Name() string
	Replace(lines []string)
	Empty()
	Lines() []string
}

// RenderLines lists every field of the report as "name:value", skipping
// the hidden field.
func RenderLines(report wethermoStructs.StatusReport) []string {
	lines := make([]string, 0, len(report.Fields))
	for _, f := range report.Fields {
		if f.Name == wethermoStructs.HiddenField {
			continue
		}
		lines = append(lines, f.Name+":"+wethermoStructs.FormatValue(f.Value))
	}
	return lines
}

// Buffer is an in-memory Region. onChange, if set, is called with a copy of
// the new content while the buffer is locked, so it must not call back into
// the buffer.
type Buffer struct {
	name     string
	mu       sync.RWMutex
	lines    []string
	onChange func(name string, lines []string)
}

func NewBuffer(name string, onChange func(name string, lines []string)) *Buffer {
	return &Buffer{name: name, onChange: onChange}
}

func (b *Buffer) Name() string { return b.name }

func (b *Buffer) Replace(lines []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append([]string(nil), lines...)
	b.notify()
}

func (b *Buffer) Empty() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
	b.notify()
}

func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.lines...)
}

func (b *Buffer) notify() {
	if b.onChange != nil {
		b.onChange(b.name, append([]string(nil), b.lines...))
	}
}

// NewTerminal returns a Buffer that also prints each new content to out,
// one line per field.
func NewTerminal(name string, out io.Writer) *Buffer {
	return NewBuffer(name, func(_ string, lines []string) {
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
	})
}
