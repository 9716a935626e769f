package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfchat/internal/ai"
	"github.com/local/pdfchat/internal/document"
	"github.com/local/pdfchat/internal/metrics"
)

const (
	PromptMarker = "> "
	LoadedNotice = "PDF was Successfully loaded. Now " + Placeholder + " will be replaced by the content of the PDF.\n"
)

// DocumentLoader turns a user supplied path into extracted text.
type DocumentLoader interface {
	Load(ctx context.Context, rawPath string) (document.Document, error)
}

// Session is one interactive chat. It owns the current document and the
// continuation token and is not safe for concurrent use.
type Session struct {
	id     string
	model  string
	client ai.Client
	loader DocumentLoader
	out    *Sink

	doc    *document.Document
	genCtx ai.Context
	turns  int
}

func NewSession(model string, client ai.Client, loader DocumentLoader, out io.Writer) *Session {
	return &Session{
		id:     uuid.NewString(),
		model:  model,
		client: client,
		loader: loader,
		out:    NewSink(out),
	}
}

// Run reads lines from in until :exit or end of input. It returns nil on a
// normal exit and an error when the backend fails or output cannot be written.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	log.Debug().Str("session", s.id).Str("model", s.model).Msg("chat session started")
	defer func() {
		log.Debug().Str("session", s.id).Int("turns", s.turns).Msg("chat session ended")
	}()

	r := bufio.NewReader(in)
	for {
		if err := s.out.WriteString(PromptMarker); err != nil {
			return err
		}
		line, err := r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("read input: %w", err)
			}
			if line == "" {
				return nil
			}
		}
		exit, err := s.handle(ctx, line)
		if err != nil || exit {
			return err
		}
	}
}

func (s *Session) handle(ctx context.Context, line string) (bool, error) {
	cmd, err := ParseCommand(line)
	if err != nil {
		metrics.IncTurn("parse_failed")
		return false, s.out.Printf("Failed to load PDF: %v\n", err)
	}
	switch cmd.Kind {
	case CommandExit:
		return true, nil
	case CommandEmpty:
		metrics.IncTurn("skipped")
		return false, nil
	case CommandLoad:
		return false, s.load(ctx, cmd.Arg)
	default:
		return false, s.ask(ctx, cmd.Arg)
	}
}

// load replaces the current document only when loading succeeds.
func (s *Session) load(ctx context.Context, path string) error {
	doc, err := s.loader.Load(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("session", s.id).Str("path", path).Msg("document load failed")
		metrics.IncTurn("load_failed")
		return s.out.Printf("Failed to load PDF: %v\n", err)
	}
	s.doc = &doc
	metrics.IncTurn("loaded")
	log.Info().Str("session", s.id).Str("path", doc.Path).Int("chars", len(doc.Text)).Bool("cached", doc.Cached).Msg("document loaded")
	return s.out.WriteString(LoadedNotice)
}

func (s *Session) ask(ctx context.Context, text string) error {
	prompt, err := Substitute(text, s.doc)
	if err != nil {
		metrics.IncTurn("substitution_failed")
		return s.out.WriteString(err.Error() + "\n")
	}

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.turns++
	start := time.Now()
	chunks, errs := s.client.GenerateStream(turnCtx, ai.Request{
		Model:   s.model,
		Prompt:  prompt,
		Context: s.genCtx,
	})

	var next ai.Context
	var written int
	for chunk := range chunks {
		if err := s.out.WriteString(chunk.Text); err != nil {
			return err
		}
		written += len(chunk.Text)
		if !chunk.Context.IsZero() {
			next = chunk.Context
		}
	}
	if err := <-errs; err != nil {
		log.Error().Err(err).Str("session", s.id).Int("turn", s.turns).Msg("generation failed")
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}

	if !next.IsZero() {
		s.genCtx = next
	}
	metrics.IncTurn("generated")
	log.Debug().
		Str("session", s.id).
		Int("turn", s.turns).
		Int("prompt_chars", len(prompt)).
		Int("response_chars", written).
		Bool("templated", strings.Contains(text, Placeholder)).
		Dur("took", time.Since(start)).
		Msg("turn complete")
	return s.out.WriteString("\n")
}
