package models

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Protocol-Lattice/cursor-agent/src/cache"
	"github.com/Protocol-Lattice/cursor-agent/src/logging"
)

// CachedProvider wraps a Provider and memoises identical requests.
// Responses carrying tool calls are cached too; replaying them re-runs the
// tools on the caller side.
type CachedProvider struct {
	Provider Provider
	Cache    *cache.LRU[ChatResponse]
	FilePath string

	log    *logging.Logger
	saveMu sync.Mutex
}

// NewCachedProvider wraps p with an LRU of the given size and TTL. A non-empty
// filePath persists the cache as JSON and restores it now.
func NewCachedProvider(p Provider, size int, ttl time.Duration, filePath string, log *logging.Logger) *CachedProvider {
	c := &CachedProvider{
		Provider: p,
		Cache:    cache.New[ChatResponse](size, ttl),
		FilePath: filePath,
		log:      log.Sub("cache"),
	}
	if filePath != "" {
		c.load()
	}
	return c
}

func (c *CachedProvider) Name() string { return c.Provider.Name() }

func (c *CachedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}
	key := cache.HashKey(append([]byte(c.Provider.Name()+"\x00"), raw...))
	if hit, ok := c.Cache.Get(key); ok {
		c.log.Debug().Str("key", key[:12]).Msg("hit")
		return &hit, nil
	}

	resp, err := c.Provider.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	c.Cache.Set(key, *resp)
	c.save()
	return resp, nil
}

// Close closes the wrapped provider when it holds resources.
func (c *CachedProvider) Close() error {
	if cl, ok := c.Provider.(interface{ Close() error }); ok {
		return cl.Close()
	}
	return nil
}

func (c *CachedProvider) load() {
	f, err := os.Open(c.FilePath)
	if err != nil {
		return
	}
	defer f.Close()

	var dump map[string]cache.Entry[ChatResponse]
	if err := json.NewDecoder(f).Decode(&dump); err != nil {
		c.log.Warn().Err(err).Str("path", c.FilePath).Msg("ignoring unreadable cache file")
		return
	}
	c.Cache.Restore(dump)
}

// save writes to a temp file and renames it over the target.
func (c *CachedProvider) save() {
	if c.FilePath == "" {
		return
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	if dir := filepath.Dir(c.FilePath); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	tmp := c.FilePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		c.log.Warn().Err(err).Msg("cache save failed")
		return
	}
	if err := json.NewEncoder(f).Encode(c.Cache.Dump()); err != nil {
		f.Close()
		os.Remove(tmp)
		c.log.Warn().Err(err).Msg("cache save failed")
		return
	}
	f.Close()
	if err := os.Rename(tmp, c.FilePath); err != nil {
		c.log.Warn().Err(err).Msg("cache save failed")
	}
}

var _ Provider = (*CachedProvider)(nil)
