package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTextCacheRejectsBadURL(t *testing.T) {
	_, err := NewTextCache("http://not-redis", "", 0)
	assert.ErrorContains(t, err, "parse redis url")
}

func TestNewTextCacheUnreachable(t *testing.T) {
	_, err := NewTextCache("redis://127.0.0.1:1/0", "", 0)
	assert.ErrorContains(t, err, "redis ping")
}

func TestKeyLayout(t *testing.T) {
	s := &TextCache{prefix: "pdfchat"}
	assert.Equal(t, "pdfchat:text:abc123", s.key("abc123"))
}
