package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog/log"

	mpkg "github.com/local/pdfchat/internal/metrics"
)

// DefaultOllamaBaseURL is the default base URL for a local Ollama server.
const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaClient talks to the Ollama /api/generate endpoint through the
// official api package.
type OllamaClient struct {
	api     *api.Client
	http    *http.Client
	baseURL string
}

// NewOllamaClient returns a client for the server at baseURL. A zero timeout
// means no client-side deadline, which long streamed answers need.
func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	raw := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(raw)
	if raw == "" || err != nil || u.Host == "" {
		if raw != "" {
			log.Warn().Str("host", raw).Msg("invalid ollama host, using default")
		}
		raw = DefaultOllamaBaseURL
		u, _ = url.Parse(raw)
	}
	hc := &http.Client{Timeout: timeout}
	return &OllamaClient{api: api.NewClient(u, hc), http: hc, baseURL: raw}
}

func (c *OllamaClient) Name() string { return "ollama" }

// BaseURL returns the server address the client was built with.
func (c *OllamaClient) BaseURL() string { return c.baseURL }

// ListModels returns the names of locally pulled models.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.api.List(ctx)
	if err != nil {
		return nil, c.wrapErr(err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
		if m.Model != "" && m.Model != m.Name {
			names = append(names, m.Model)
		}
	}
	return names, nil
}

func (c *OllamaClient) request(req Request, stream bool) *api.GenerateRequest {
	return &api.GenerateRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Context: req.Context,
		Stream:  &stream,
	}
}

func toResponse(r api.GenerateResponse) Response {
	out := Response{Text: r.Response, Done: r.Done}
	if r.Done && len(r.Context) > 0 {
		out.Context = Context(r.Context)
	}
	return out
}

// wrapErr maps api.StatusError onto HTTPError so the classifier applies.
func (c *OllamaClient) wrapErr(err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		return &HTTPError{StatusCode: se.StatusCode, Body: strings.TrimSpace(se.ErrorMessage), Provider: c.Name()}
	}
	return fmt.Errorf("ollama request failed: %w", err)
}

// Generate performs a blocking completion.
func (c *OllamaClient) Generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	out, err := c.generate(ctx, req)
	mpkg.ObserveProvider(c.Name(), req.Model, "blocking", Classify(err), time.Since(start))
	if err != nil {
		log.Warn().Err(err).Str("model", req.Model).Dur("duration", time.Since(start)).Msg("generate failed")
		return Response{}, err
	}
	log.Debug().
		Str("model", req.Model).
		Int("prompt_chars", len(req.Prompt)).
		Int("response_chars", len(out.Text)).
		Dur("duration", time.Since(start)).
		Msg("generate finished")
	return out, nil
}

func (c *OllamaClient) generate(ctx context.Context, req Request) (Response, error) {
	var out Response
	err := c.api.Generate(ctx, c.request(req, false), func(r api.GenerateResponse) error {
		out.Text += r.Response
		if r.Done {
			r.Response = out.Text
			out = toResponse(r)
		}
		return nil
	})
	if err != nil {
		return Response{}, c.wrapErr(err)
	}
	out.Done = true
	return out, nil
}

// GenerateStream performs a streaming completion. Chunks are delivered in the
// order the server produced them.
func (c *OllamaClient) GenerateStream(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	chunks := make(chan Response)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(chunks)

		start := time.Now()
		n, err := c.stream(ctx, req, chunks)
		mpkg.ObserveProvider(c.Name(), req.Model, "stream", Classify(err), time.Since(start))
		if err != nil {
			log.Warn().Err(err).Str("model", req.Model).Int("chunks", n).Msg("stream failed")
			errs <- err
			return
		}
		log.Debug().
			Str("model", req.Model).
			Int("chunks", n).
			Dur("duration", time.Since(start)).
			Msg("stream finished")
	}()

	return chunks, errs
}

func (c *OllamaClient) stream(ctx context.Context, req Request, chunks chan<- Response) (int, error) {
	n := 0
	done := false
	err := c.api.Generate(ctx, c.request(req, true), func(r api.GenerateResponse) error {
		select {
		case chunks <- toResponse(r):
			n++
		case <-ctx.Done():
			return ctx.Err()
		}
		done = r.Done
		return nil
	})
	if done && err == nil {
		return n, nil
	}
	if ctx.Err() != nil {
		return n, ctx.Err()
	}
	if err != nil {
		return n, c.wrapErr(err)
	}
	return n, ErrEmptyStream
}
