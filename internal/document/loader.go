package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfchat/internal/filetype"
	mpkg "github.com/local/pdfchat/internal/metrics"
	"github.com/local/pdfchat/internal/mupdf"
	"github.com/local/pdfchat/internal/store"
)

// Document is the extracted text of one PDF.
type Document struct {
	Path   string
	Text   string
	Pages  int
	Hash   string
	Cached bool
}

// Extractor turns a local PDF into text.
type Extractor interface {
	ExtractText(pdfPath string) (string, error)
	PageCount(pdfPath string) (int, error)
}

// Sniffer rejects files that are not PDFs.
type Sniffer interface {
	RequirePDF(filePath string) error
}

// Cache stores extracted text by content hash.
type Cache interface {
	Get(ctx context.Context, hash string) (store.CachedText, bool, error)
	Put(ctx context.Context, hash string, entry store.CachedText) error
}

// RemoteFetcher downloads s3:// references.
type RemoteFetcher interface {
	DownloadToTemp(ctx context.Context, ref string) (string, error)
}

// Options configures a Loader. Zero values select go-fitz, mimetype sniffing,
// no cache, no S3 and http.DefaultClient.
type Options struct {
	Extractor  Extractor
	Sniffer    Sniffer
	Cache      Cache
	S3         RemoteFetcher
	HTTPClient *http.Client
}

// Loader resolves a user supplied path and extracts its text.
type Loader struct {
	extractor Extractor
	sniffer   Sniffer
	cache     Cache
	s3        RemoteFetcher
	http      *http.Client
	lookupEnv func(string) (string, bool)
}

func NewLoader(opts Options) *Loader {
	l := &Loader{
		extractor: opts.Extractor,
		sniffer:   opts.Sniffer,
		cache:     opts.Cache,
		s3:        opts.S3,
		http:      opts.HTTPClient,
		lookupEnv: os.LookupEnv,
	}
	if l.extractor == nil {
		l.extractor = mupdf.NewExtractor()
	}
	if l.sniffer == nil {
		l.sniffer = filetype.New()
	}
	if l.http == nil {
		l.http = http.DefaultClient
	}
	return l
}

// Load normalizes rawPath, fetches remote references to a temp file and
// returns the extracted text. Errors wrap ErrConfiguration or ErrExtraction.
func (l *Loader) Load(ctx context.Context, rawPath string) (Document, error) {
	path, err := normalizePath(rawPath, l.lookupEnv)
	if err != nil {
		return Document{}, err
	}

	localPath, tmp, err := l.ensureLocalPDF(ctx, path)
	if err != nil {
		return Document{}, fmt.Errorf("%w: fetch %s: %w", ErrExtraction, path, err)
	}
	if tmp != "" {
		defer os.Remove(tmp)
	}

	if err := l.sniffer.RequirePDF(localPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Document{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	doc := Document{Path: path}
	if l.cache != nil {
		if doc.Hash, err = hashFile(localPath); err != nil {
			return Document{}, fmt.Errorf("%w: read %s: %w", ErrExtraction, path, err)
		}
		entry, ok, err := l.cache.Get(ctx, doc.Hash)
		if err != nil {
			log.Warn().Err(err).Str("hash", doc.Hash).Msg("text cache lookup failed")
		} else if ok {
			doc.Text, doc.Pages, doc.Cached = entry.Text, entry.Pages, true
			log.Debug().Str("pdf", path).Str("hash", doc.Hash).Msg("text cache hit")
			mpkg.ObserveDocument("cache", len(doc.Text))
			return doc, nil
		}
	}

	start := time.Now()
	text, err := l.extractor.ExtractText(localPath)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	doc.Text = text

	if n, err := l.extractor.PageCount(localPath); err != nil {
		log.Warn().Err(err).Str("pdf", path).Msg("page count unavailable")
	} else {
		doc.Pages = n
	}
	if strings.TrimSpace(text) == "" {
		log.Warn().Str("pdf", path).Int("pages", doc.Pages).Msg("PDF has no extractable text (scanned?)")
	}

	if l.cache != nil {
		if err := l.cache.Put(ctx, doc.Hash, store.CachedText{Text: text, Source: path, Pages: doc.Pages}); err != nil {
			log.Warn().Err(err).Str("hash", doc.Hash).Msg("text cache store failed")
		}
	}

	log.Info().
		Str("pdf", path).
		Int("pages", doc.Pages).
		Int("chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("document loaded")
	mpkg.ObserveDocument("extracted", len(text))
	return doc, nil
}

// ensureLocalPDF returns a local file path for ref and an optional temp path to remove.
func (l *Loader) ensureLocalPDF(ctx context.Context, ref string) (string, string, error) {
	switch {
	case strings.HasPrefix(ref, "file://"):
		return strings.TrimPrefix(ref, "file://"), "", nil
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		p, err := l.downloadHTTPToTemp(ctx, ref)
		return p, p, err
	case strings.HasPrefix(ref, "s3://"):
		if l.s3 == nil {
			return "", "", errors.New("s3 references are not configured")
		}
		p, err := l.s3.DownloadToTemp(ctx, ref)
		return p, p, err
	default:
		return ref, "", nil
	}
}

func (l *Loader) downloadHTTPToTemp(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	f, err := os.CreateTemp("", "pdfdl-*.pdf")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
