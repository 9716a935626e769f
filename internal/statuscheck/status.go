package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/local/pdfchat/internal/ai"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// ModelLister lists the models available on the inference server.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// BucketChecker reports whether the configured S3 bucket is reachable.
type BucketChecker interface {
	CheckBucket(ctx context.Context) error
}

// Checker aggregates health checks for the backend and optional dependencies.
type Checker struct {
	redis  RedisPinger
	s3     BucketChecker
	ollama ModelLister
	model  string
	mupdf  func() bool
}

// Options configures the Checker. Nil Redis or S3 report "not configured".
type Options struct {
	Redis  RedisPinger
	S3     BucketChecker
	Ollama ModelLister
	Model  string
	MuPDF  func() bool
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK       bool   `json:"ok"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Ollama Status `json:"ollama"`
	Model  Status `json:"model"`
	MuPDF  Status `json:"mupdf"`
	Redis  Status `json:"redis"`
	S3     Status `json:"s3"`
}

// Healthy reports whether every required subsystem is ready. Optional ones
// that are unconfigured or down do not count.
func (s Summary) Healthy() bool {
	for _, st := range s.rows() {
		if !st.status.OK && !st.status.Optional {
			return false
		}
	}
	return true
}

type row struct {
	name   string
	status Status
}

func (s Summary) rows() []row {
	return []row{
		{"ollama", s.Ollama},
		{"model", s.Model},
		{"mupdf", s.MuPDF},
		{"redis", s.Redis},
		{"s3", s.S3},
	}
}

// String renders one aligned line per subsystem.
func (s Summary) String() string {
	var b strings.Builder
	for _, r := range s.rows() {
		state := "ok"
		if !r.status.OK {
			state = "FAIL"
			if r.status.Optional {
				state = "skip"
			}
		}
		fmt.Fprintf(&b, "%-7s %-5s %s\n", r.name, state, r.status.Message)
	}
	return b.String()
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	return &Checker{
		redis:  opts.Redis,
		s3:     opts.S3,
		ollama: opts.Ollama,
		model:  strings.TrimSpace(opts.Model),
		mupdf:  opts.MuPDF,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	ollama, model := c.checkOllama(ctx)
	return Summary{
		Ollama: ollama,
		Model:  model,
		MuPDF:  c.checkMuPDF(),
		Redis:  c.checkRedis(ctx),
		S3:     c.checkS3(ctx),
	}
}

// checkOllama lists local models and reports whether the configured one is
// pulled. A model given without a tag matches ":latest".
func (c *Checker) checkOllama(ctx context.Context) (Status, Status) {
	unknown := Status{OK: false, Message: "unknown"}
	if c.ollama == nil {
		return Status{OK: false, Message: "host not configured"}, unknown
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	names, err := c.ollama.ListModels(ctx)
	if err != nil {
		var httpErr *ai.HTTPError
		if errors.As(err, &httpErr) {
			return Status{OK: false, Message: fmt.Sprintf("HTTP %d", httpErr.StatusCode)}, unknown
		}
		return Status{OK: false, Message: trimError(err)}, unknown
	}
	ollama := Status{OK: true, Message: fmt.Sprintf("Connected (%d models)", len(names))}

	if c.model == "" {
		return ollama, Status{OK: false, Message: "model not configured"}
	}
	want := c.model
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, name := range names {
		if name == want {
			return ollama, Status{OK: true, Message: c.model + " available"}
		}
	}
	return ollama, Status{OK: false, Message: fmt.Sprintf("%s not pulled (ollama pull %s)", c.model, c.model)}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{OK: false, Optional: true, Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Optional: true, Message: trimError(err)}
	}
	return Status{OK: true, Optional: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
	if c.s3 == nil {
		return Status{OK: false, Optional: true, Message: "Bucket not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.s3.CheckBucket(ctx); err != nil {
		return Status{OK: false, Optional: true, Message: trimError(err)}
	}
	return Status{OK: true, Optional: true, Message: "Connected"}
}

func (c *Checker) checkMuPDF() Status {
	if c.mupdf == nil || !c.mupdf() {
		return Status{OK: false, Message: "library unavailable"}
	}
	return Status{OK: true, Message: "Available"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
