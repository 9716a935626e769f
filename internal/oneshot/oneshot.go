// Package oneshot implements the non-interactive commands: load one document,
// send one templated prompt and print the answer.
package oneshot

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfchat/internal/ai"
	"github.com/local/pdfchat/internal/chat"
)

// Runner executes one-shot commands against a single backend.
type Runner struct {
	client ai.Client
	loader chat.DocumentLoader
	out    *chat.Sink
	model  string
	stream bool
}

// Options configures a Runner. Stream selects incremental output.
type Options struct {
	Client ai.Client
	Loader chat.DocumentLoader
	Out    io.Writer
	Model  string
	Stream bool
}

func New(opts Options) *Runner {
	return &Runner{
		client: opts.Client,
		loader: opts.Loader,
		out:    chat.NewSink(opts.Out),
		model:  opts.Model,
		stream: opts.Stream,
	}
}

// Summarize prints a summary of the document at path.
func (r *Runner) Summarize(ctx context.Context, path string) error {
	if err := r.run(ctx, path, chat.SummarizeTemplate); err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}
	return nil
}

// Name prints a suggested title for the document at path.
func (r *Runner) Name(ctx context.Context, path string) error {
	if err := r.run(ctx, path, chat.NameTemplate); err != nil {
		return fmt.Errorf("name failed: %w", err)
	}
	return nil
}

// Extract prints the document's text without calling the backend.
func (r *Runner) Extract(ctx context.Context, path string) error {
	doc, err := r.loader.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	return r.out.WriteString(doc.Text + "\n")
}

func (r *Runner) run(ctx context.Context, path, template string) error {
	doc, err := r.loader.Load(ctx, path)
	if err != nil {
		return err
	}
	prompt, err := chat.Substitute(template, &doc)
	if err != nil {
		return err
	}

	start := time.Now()
	req := ai.Request{Model: r.model, Prompt: prompt}
	if r.stream {
		err = r.streamTo(ctx, req)
	} else {
		err = r.blocking(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", chat.ErrBackend, err)
	}
	log.Debug().Str("path", doc.Path).Str("model", r.model).Bool("stream", r.stream).Dur("took", time.Since(start)).Msg("one-shot complete")
	return r.out.WriteString("\n")
}

func (r *Runner) blocking(ctx context.Context, req ai.Request) error {
	resp, err := r.client.Generate(ctx, req)
	if err != nil {
		return err
	}
	return r.out.WriteString(resp.Text)
}

func (r *Runner) streamTo(ctx context.Context, req ai.Request) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, errs := r.client.GenerateStream(ctx, req)
	for chunk := range chunks {
		if err := r.out.WriteString(chunk.Text); err != nil {
			return err
		}
	}
	return <-errs
}
