// Package ocr reads the text printed on story images.
//
// An Extractor preprocesses the image, hands it to a local Engine (or a
// cloud Engine when the local one is not installed on this host), cleans the
// result and caches it per story.
package ocr

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Engine recognizes text in a preprocessed PNG image.
type Engine interface {
	Name() string
	// Available is a cheap capability check.
	Available(ctx context.Context) bool
	Recognize(ctx context.Context, png []byte) (string, error)
}

// Options configures an Extractor.
type Options struct {
	Preprocess PreprocessOptions
	CacheSize  int
	CacheTTL   time.Duration
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Preprocess: DefaultPreprocessOptions(),
		CacheSize:  100,
		CacheTTL:   time.Hour,
	}
}

type Extractor struct {
	local  Engine
	cloud  Engine
	opts   Options
	cache  *Cache
	logger *slog.Logger

	mu          sync.Mutex
	checked     bool
	localUsable bool
}

// NewExtractor builds an Extractor. Either engine may be nil.
func NewExtractor(local, cloud Engine, opts Options, logger *slog.Logger) *Extractor {
	return &Extractor{
		local:  local,
		cloud:  cloud,
		opts:   opts,
		cache:  NewCache(opts.CacheSize, opts.CacheTTL),
		logger: logger,
	}
}

// LocalAvailable reports whether the local engine is usable. The check runs
// once per process.
func (e *Extractor) LocalAvailable(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.checked {
		e.localUsable = e.local != nil && e.local.Available(ctx)
		e.checked = true
		e.logger.Info("local ocr check", "available", e.localUsable)
	}
	return e.localUsable
}

// Available reports whether any engine can serve requests.
func (e *Extractor) Available(ctx context.Context) bool {
	return e.LocalAvailable(ctx) || (e.cloud != nil && e.cloud.Available(ctx))
}

// Cache exposes the result cache for status reporting.
func (e *Extractor) Cache() *Cache {
	return e.cache
}

// ExtractText returns the text in image, or "" if nothing could be read.
// key identifies the story for caching; an empty key disables the cache.
// Failures are logged, never returned.
func (e *Extractor) ExtractText(ctx context.Context, key string, image []byte) string {
	if key != "" {
		if text, ok := e.cache.Get(key); ok {
			e.logger.Debug("ocr cache hit", "story_id", key)
			return text
		}
	}

	engine := e.engine(ctx)
	if engine == nil {
		e.logger.Warn("no ocr engine available", "story_id", key)
		return ""
	}

	processed, err := Preprocess(image, e.opts.Preprocess)
	if err != nil {
		e.logger.Error("failed to preprocess image", "story_id", key, "error", err)
		return ""
	}

	start := time.Now()
	raw, err := engine.Recognize(ctx, processed)
	if err != nil {
		e.logger.Error("ocr failed", "engine", engine.Name(), "story_id", key, "error", err)
		return ""
	}

	text := Clean(raw)
	e.logger.Debug("ocr done",
		"engine", engine.Name(),
		"story_id", key,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if key != "" && text != "" {
		e.cache.Add(key, text)
	}
	return text
}

func (e *Extractor) engine(ctx context.Context) Engine {
	if e.LocalAvailable(ctx) {
		return e.local
	}
	if e.cloud != nil && e.cloud.Available(ctx) {
		return e.cloud
	}
	return nil
}
