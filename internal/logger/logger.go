package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Init. The zero value logs warnings to stderr.
type Options struct {
	Level  string
	Pretty bool
	// Console defaults to stderr. Stdout carries model output only.
	Console io.Writer
	File    FileOptions
	Axiom   AxiomOptions
}

// FileOptions enables a rotated log file when Path is set.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomOptions enables event shipping when Token is set.
type AxiomOptions struct {
	Token      string
	OrgID      string
	Dataset    string
	FlushEvery time.Duration
}

const (
	service     = "pdfchat"
	maxBatch    = 200
	queueLength = 1000
)

var active *shipper

// Init replaces the global zerolog logger.
func Init(opts Options) error {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
	}
	outputs := []io.Writer{console}

	if f := opts.File; f.Path != "" {
		if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
		outputs = append(outputs, &lumberjack.Logger{
			Filename:   f.Path,
			MaxSize:    f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAge:     f.MaxAgeDays,
			Compress:   f.Compress,
		})
	}

	if opts.Axiom.Token != "" {
		s, err := newAxiomShipper(opts.Axiom)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			active = s
			outputs = append(outputs, s)
		}
	}

	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(outputs...)).Level(lvl).With().Timestamp().Logger()
	return nil
}

// Close flushes shipped events and stops the background sender.
func Close() {
	if active != nil {
		active.Close()
		active = nil
	}
}

type ingester interface {
	IngestEvents(ctx context.Context, id string, events []axiom.Event, options ...ingest.Option) (*ingest.Status, error)
}

// shipper batches log lines at info level and above and sends them to a
// dataset. Lines are dropped when the queue is full or the shipper is closed.
type shipper struct {
	to      ingester
	dataset string
	every   time.Duration
	queue   chan axiom.Event
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newAxiomShipper(o AxiomOptions) (*shipper, error) {
	opts := []axiom.Option{axiom.SetToken(o.Token)}
	if o.OrgID != "" {
		opts = append(opts, axiom.SetOrganizationID(o.OrgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return newShipper(c, o.Dataset, o.FlushEvery), nil
}

func newShipper(to ingester, dataset string, every time.Duration) *shipper {
	if dataset == "" {
		dataset = "dev_" + service
	}
	if every <= 0 {
		every = 10 * time.Second
	}
	s := &shipper{
		to:      to,
		dataset: dataset,
		every:   every,
		queue:   make(chan axiom.Event, queueLength),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *shipper) Write(p []byte) (int, error) {
	return s.WriteLevel(zerolog.NoLevel, p)
}

func (s *shipper) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < zerolog.InfoLevel {
		return len(p), nil
	}
	ev := axiom.Event{}
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = axiom.Event{zerolog.MessageFieldName: string(p)}
	}
	ev["service"] = service
	if ts, ok := ev[zerolog.TimestampFieldName]; ok {
		ev[ingest.TimestampField] = ts
		delete(ev, zerolog.TimestampFieldName)
	} else {
		ev[ingest.TimestampField] = time.Now()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return len(p), nil
	}
	select {
	case s.queue <- ev:
	default:
	}
	return len(p), nil
}

func (s *shipper) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	var batch []axiom.Event
	send := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		_, _ = s.to.IngestEvents(ctx, s.dataset, batch)
		cancel()
		batch = nil
	}
	for {
		select {
		case ev, ok := <-s.queue:
			if !ok {
				send()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= maxBatch {
				send()
			}
		case <-ticker.C:
			send()
		}
	}
}

// Close sends what is queued and waits for the sender to stop.
func (s *shipper) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}
