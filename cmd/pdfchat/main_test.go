package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfchat/internal/chat"
	cfgpkg "github.com/local/pdfchat/internal/config"
	"github.com/local/pdfchat/internal/pdftest"
)

type stubOllama struct {
	mu     sync.Mutex
	models []string
	prompt []string
}

func (s *stubOllama) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"orca-mini:latest"}]}`)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.mu.Lock()
		s.models = append(s.models, req.Model)
		s.prompt = append(s.prompt, req.Prompt)
		s.mu.Unlock()

		if !req.Stream {
			fmt.Fprint(w, `{"response":"Dummy Response","done":true,"context":[1]}`)
			return
		}
		fmt.Fprintln(w, `{"response":"Dummy ","done":false}`)
		fmt.Fprintln(w, `{"response":"Response","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true,"context":[1]}`)
	})
	return mux
}

func execute(t *testing.T, stdin string, args ...string) (*stubOllama, string, error) {
	t.Helper()
	stub, _, out, err := executeApp(t, stdin, args...)
	return stub, out, err
}

func executeApp(t *testing.T, stdin string, args ...string) (*stubOllama, *app, string, error) {
	t.Helper()
	stub := &stubOllama{}
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	a := newApp(cfgpkg.Config{Ollama: cfgpkg.OllamaConfig{Host: srv.URL, Model: cfgpkg.DefaultModel}})
	t.Cleanup(a.Close)
	cmd := a.rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stub, a, out.String(), err
}

func TestChatCommand(t *testing.T) {
	path := pdftest.Write(t, "dummy.pdf", "Dummy PDF file")

	stub, out, err := execute(t, ":use "+path+"\n{pdf}\n:exit\n", "chat")
	require.NoError(t, err)
	assert.Equal(t, "> "+chat.LoadedNotice+"> Dummy Response\n> ", out)
	require.Len(t, stub.prompt, 1)
	assert.Contains(t, stub.prompt[0], "Dummy PDF file")
	assert.Equal(t, []string{cfgpkg.DefaultModel}, stub.models)
}

func TestSummarizeCommandHonoursModelFlag(t *testing.T) {
	path := pdftest.Write(t, "dummy.pdf", "Dummy PDF file")

	stub, out, err := execute(t, "", "summarize", "--path", path, "-m", "llama3:8b")
	require.NoError(t, err)
	assert.Equal(t, "Dummy Response\n", out)
	assert.Equal(t, []string{"llama3:8b"}, stub.models)
	assert.True(t, strings.HasPrefix(stub.prompt[0], "Summarize the following text"))
}

func TestSummarizeCommandStreaming(t *testing.T) {
	path := pdftest.Write(t, "dummy.pdf", "Dummy PDF file")

	_, out, err := execute(t, "", "summarize", "--stream", "-p", path)
	require.NoError(t, err)
	assert.Equal(t, "Dummy Response\n", out)
}

func TestNameCommand(t *testing.T) {
	path := pdftest.Write(t, "dummy.pdf", "Dummy PDF file")

	stub, out, err := execute(t, "", "name", "-p", path)
	require.NoError(t, err)
	assert.Equal(t, "Dummy Response\n", out)
	assert.Contains(t, stub.prompt[0], "concise title")
}

func TestExtractCommand(t *testing.T) {
	path := pdftest.Write(t, "dummy.pdf", "Dummy PDF file")

	stub, out, err := execute(t, "", "extract", "-p", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Dummy PDF file")
	assert.Empty(t, stub.prompt)
}

func TestPathIsRequired(t *testing.T) {
	for _, sub := range []string{"summarize", "name", "extract"} {
		_, _, err := execute(t, "", sub)
		assert.ErrorContains(t, err, `required flag(s) "path" not set`, sub)
	}
}

func TestSummarizeMissingFile(t *testing.T) {
	stub, _, err := execute(t, "", "summarize", "-p", "/nonexistent/x.pdf")
	assert.ErrorContains(t, err, "summarize failed")
	assert.Empty(t, stub.prompt)
}

func TestStatusCommand(t *testing.T) {
	_, out, err := execute(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "ollama  ok")
	assert.Contains(t, out, "model   ok")
	assert.Contains(t, out, "redis   skip")
}

func TestStatusCommandUnknownModel(t *testing.T) {
	_, out, err := execute(t, "", "status", "-m", "mistral")
	assert.ErrorContains(t, err, "not ready")
	assert.Contains(t, out, "mistral not pulled")
}

func TestDepsReleasedAfterFailedCommand(t *testing.T) {
	_, a, _, err := executeApp(t, "", "status", "-m", "mistral")
	require.Error(t, err)
	require.NotNil(t, a.deps)
	assert.False(t, a.deps.closed)

	a.Close()
	assert.True(t, a.deps.closed)
	a.Close()
}

func TestDepsNotBuiltForHelp(t *testing.T) {
	_, a, out, err := executeApp(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "summarize")
	assert.Nil(t, a.deps)
	a.Close()
}
