package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// CachedText is an extracted document as stored in Redis.
type CachedText struct {
	Text   string
	Source string
	Pages  int
}

// TextCache keeps extracted PDF text keyed by the SHA-256 of the file bytes,
// so the same document is only run through MuPDF once.
type TextCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewTextCache(redisURL, prefix string, ttl time.Duration) (*TextCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if prefix == "" {
		prefix = "pdfchat"
	}
	return &TextCache{client: c, prefix: prefix, ttl: ttl}, nil
}

func (s *TextCache) Close() error { return s.client.Close() }

// Ping checks redis connectivity.
func (s *TextCache) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *TextCache) key(hash string) string {
	return fmt.Sprintf("%s:text:%s", s.prefix, hash)
}

// Get returns the cached entry for hash; ok is false on a miss.
func (s *TextCache) Get(ctx context.Context, hash string) (CachedText, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(hash)).Result()
	if err != nil {
		return CachedText{}, false, err
	}
	text, ok := res["text"]
	if !ok {
		return CachedText{}, false, nil
	}
	pages, _ := strconv.Atoi(res["pages"])
	return CachedText{Text: text, Source: res["source"], Pages: pages}, true, nil
}

// Put stores an entry and refreshes its TTL.
func (s *TextCache) Put(ctx context.Context, hash string, entry CachedText) error {
	key := s.key(hash)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, map[string]interface{}{
			"text":   entry.Text,
			"source": entry.Source,
			"pages":  entry.Pages,
		})
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return err
}
