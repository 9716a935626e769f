package document

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfchat/internal/pdftest"
	"github.com/local/pdfchat/internal/store"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractText(pdfPath string) (string, error) {
	args := m.Called(pdfPath)
	return args.String(0), args.Error(1)
}

func (m *MockExtractor) PageCount(pdfPath string) (int, error) {
	args := m.Called(pdfPath)
	return args.Int(0), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, hash string) (store.CachedText, bool, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(store.CachedText), args.Bool(1), args.Error(2)
}

func (m *MockCache) Put(ctx context.Context, hash string, entry store.CachedText) error {
	args := m.Called(ctx, hash, entry)
	return args.Error(0)
}

type fakeS3 struct {
	path string
	refs []string
}

func (f *fakeS3) DownloadToTemp(ctx context.Context, ref string) (string, error) {
	f.refs = append(f.refs, ref)
	return f.path, nil
}

func TestNormalizePath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	got, err := NormalizePath("~/a/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/a/b.pdf", got)

	got, err = NormalizePath("~")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester", got)

	for _, p := range []string{"a/b.pdf", "/abs/b.pdf", "~other/b.pdf", "./~/b.pdf", "s3://bucket/~/b.pdf"} {
		got, err := NormalizePath(p)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestNormalizePathWithoutHome(t *testing.T) {
	unset := func(string) (string, bool) { return "", false }

	_, err := normalizePath("~/a/b.pdf", unset)
	assert.ErrorIs(t, err, ErrConfiguration)

	got, err := normalizePath("a/b.pdf", unset)
	require.NoError(t, err)
	assert.Equal(t, "a/b.pdf", got)
}

func TestLoadExtractsRealPDF(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "dummy.pdf"), pdftest.Build("Dummy PDF file"), 0o644))

	doc, err := NewLoader(Options{}).Load(context.Background(), "~/dummy.pdf")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Dummy PDF file")
	assert.Equal(t, 1, doc.Pages)
	assert.Equal(t, filepath.Join(home, "dummy.pdf"), doc.Path)
	assert.False(t, doc.Cached)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(Options{}).Load(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestLoadRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text pretending"), 0o644))

	_, err := NewLoader(Options{}).Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLoadWrapsExtractorFailure(t *testing.T) {
	path := pdftest.Write(t, "x.pdf", "x")
	ex := new(MockExtractor)
	ex.On("ExtractText", path).Return("", errors.New("mupdf exploded"))

	_, err := NewLoader(Options{Extractor: ex}).Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorContains(t, err, "mupdf exploded")
	ex.AssertExpectations(t)
}

func TestLoadPageCountFailureIsNotFatal(t *testing.T) {
	path := pdftest.Write(t, "x.pdf", "x")
	ex := new(MockExtractor)
	ex.On("ExtractText", path).Return("body", nil)
	ex.On("PageCount", path).Return(0, errors.New("pdfcpu disagrees"))

	doc, err := NewLoader(Options{Extractor: ex}).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "body", doc.Text)
	assert.Zero(t, doc.Pages)
}

func TestLoadCacheHitSkipsExtraction(t *testing.T) {
	path := pdftest.Write(t, "x.pdf", "x")
	ex := new(MockExtractor)
	cache := new(MockCache)
	cache.On("Get", mock.Anything, mock.AnythingOfType("string")).
		Return(store.CachedText{Text: "cached body", Pages: 9}, true, nil)

	doc, err := NewLoader(Options{Extractor: ex, Cache: cache}).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "cached body", doc.Text)
	assert.Equal(t, 9, doc.Pages)
	assert.True(t, doc.Cached)
	assert.Len(t, doc.Hash, 64)
	ex.AssertNotCalled(t, "ExtractText", mock.Anything)
}

func TestLoadCacheMissStoresText(t *testing.T) {
	path := pdftest.Write(t, "x.pdf", "x")
	ex := new(MockExtractor)
	ex.On("ExtractText", path).Return("fresh body", nil)
	ex.On("PageCount", path).Return(2, nil)
	cache := new(MockCache)
	cache.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(store.CachedText{}, false, nil)
	cache.On("Put", mock.Anything, mock.AnythingOfType("string"), store.CachedText{Text: "fresh body", Source: path, Pages: 2}).Return(nil)

	doc, err := NewLoader(Options{Extractor: ex, Cache: cache}).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "fresh body", doc.Text)
	cache.AssertExpectations(t)
}

func TestLoadCacheErrorsAreIgnored(t *testing.T) {
	path := pdftest.Write(t, "x.pdf", "x")
	ex := new(MockExtractor)
	ex.On("ExtractText", path).Return("body", nil)
	ex.On("PageCount", path).Return(1, nil)
	cache := new(MockCache)
	cache.On("Get", mock.Anything, mock.Anything).Return(store.CachedText{}, false, errors.New("redis down"))
	cache.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	doc, err := NewLoader(Options{Extractor: ex, Cache: cache}).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "body", doc.Text)
}

func TestLoadOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/paper.pdf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(pdftest.Build("served over http"))
	}))
	defer srv.Close()

	l := NewLoader(Options{HTTPClient: srv.Client()})
	doc, err := l.Load(context.Background(), srv.URL+"/paper.pdf")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "served over http")

	_, err = l.Load(context.Background(), srv.URL+"/missing.pdf")
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorContains(t, err, "http 404")
}

func TestLoadFromS3RemovesTempFile(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "s3pdf-1.pdf")
	require.NoError(t, os.WriteFile(tmp, pdftest.Build("from s3"), 0o644))
	s3 := &fakeS3{path: tmp}

	doc, err := NewLoader(Options{S3: s3}).Load(context.Background(), "s3://papers/a.pdf")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "from s3")
	assert.Equal(t, []string{"s3://papers/a.pdf"}, s3.refs)
	assert.NoFileExists(t, tmp)
}

func TestLoadS3WithoutClient(t *testing.T) {
	_, err := NewLoader(Options{}).Load(context.Background(), "s3://papers/a.pdf")
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorContains(t, err, "not configured")
}

func TestLoadFileURL(t *testing.T) {
	path := pdftest.Write(t, "local.pdf", "file url")

	doc, err := NewLoader(Options{}).Load(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "file url")
}
