// Package embedcache caches embeddings in Redis in front of any rag.Embedder.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/agentapis/log"
	"github.com/smallnest/agentapis/rag"
)

// DefaultPrefix is the key prefix used when Options.Prefix is empty.
const DefaultPrefix = "agentapis:embedding:"

// Options configures the cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default DefaultPrefix
	TTL      time.Duration // Expiration for cached vectors, default 0 (no expiration)
	Model    string        // Embedding model name, part of every key
	Logger   log.Logger
}

// Cache is a rag.Embedder that serves repeated texts from Redis.
// Redis failures are logged and fall through to the wrapped embedder.
type Cache struct {
	embedder rag.Embedder
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	model    string
	logger   log.Logger
}

var _ rag.Embedder = (*Cache)(nil)

// New wraps embedder with a cache held in client.
func New(embedder rag.Embedder, client *redis.Client, opts Options) *Cache {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Cache{
		embedder: embedder,
		client:   client,
		prefix:   prefix,
		ttl:      opts.TTL,
		model:    opts.Model,
		logger:   log.OrNoop(opts.Logger),
	}
}

// Dial creates a Redis client from opts and wraps embedder with it.
func Dial(embedder rag.Embedder, opts Options) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return New(embedder, client, opts)
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Key returns the cache key for text.
func (c *Cache) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s%s:%s", c.prefix, c.model, hex.EncodeToString(sum[:]))
}

// EmbedQuery returns the cached vector for text, embedding it on a miss.
func (c *Cache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.Key(text)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if v, err := decode(data); err == nil {
			return v, nil
		}
		c.logger.Warn("embedcache: discarding corrupt entry %s", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("embedcache: get %s: %v", key, err)
	}

	v, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(ctx, map[string][]float32{key: v})
	return v, nil
}

// EmbedDocuments serves cached vectors and embeds all misses in one batch.
func (c *Cache) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.Key(text)
	}

	result := make([][]float32, len(texts))
	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("embedcache: mget: %v", err)
		cached = nil
	}
	for i, val := range cached {
		s, ok := val.(string)
		if !ok {
			continue
		}
		if v, err := decode([]byte(s)); err == nil {
			result[i] = v
		}
	}

	// Embed each distinct missing text once.
	var missTexts []string
	missIndex := make(map[string][]int)
	for i, v := range result {
		if v != nil {
			continue
		}
		if _, seen := missIndex[keys[i]]; !seen {
			missTexts = append(missTexts, texts[i])
		}
		missIndex[keys[i]] = append(missIndex[keys[i]], i)
	}
	if len(missTexts) == 0 {
		c.logger.Debug("embedcache: %d/%d hits", len(texts), len(texts))
		return result, nil
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	fresh := make(map[string][]float32, len(missTexts))
	for j, text := range missTexts {
		key := c.Key(text)
		fresh[key] = vectors[j]
		for _, i := range missIndex[key] {
			result[i] = vectors[j]
		}
	}
	c.store(ctx, fresh)

	c.logger.Debug("embedcache: %d/%d hits", len(texts)-len(missTexts), len(texts))
	return result, nil
}

func (c *Cache) store(ctx context.Context, entries map[string][]float32) {
	pipe := c.client.Pipeline()
	for key, v := range entries {
		data, err := json.Marshal(v)
		if err != nil {
			continue
		}
		pipe.Set(ctx, key, data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("embedcache: failed to write %d entries: %v", len(entries), err)
	}
}

func decode(data []byte) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, errors.New("empty vector")
	}
	return v, nil
}
