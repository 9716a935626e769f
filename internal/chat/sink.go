package chat

import (
	"fmt"
	"io"
)

type flusher interface {
	Flush() error
}

// Sink writes user-visible output and flushes after every write when the
// underlying writer is buffered.
type Sink struct {
	w io.Writer
}

func NewSink(w io.Writer) *Sink { return &Sink{w: w} }

func (s *Sink) WriteString(text string) error {
	if _, err := io.WriteString(s.w, text); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if f, ok := s.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}
	}
	return nil
}

func (s *Sink) Printf(format string, args ...any) error {
	return s.WriteString(fmt.Sprintf(format, args...))
}
