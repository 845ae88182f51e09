package ocr

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	name      string
	available bool
	text      string
	err       error

	mu     sync.Mutex
	checks int
	calls  int
	last   []byte
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Available(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	return s.available
}

func (s *stubEngine) Recognize(_ context.Context, png []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = png
	return s.text, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 20, 10))
	return encodePNG(t, img)
}

func TestExtractTextUsesLocalEngine(t *testing.T) {
	local := &stubEngine{name: "local", available: true, text: "  Primi | piatti [pasta]  \n"}
	cloud := &stubEngine{name: "cloud", available: true, text: "cloud"}
	e := NewExtractor(local, cloud, DefaultOptions(), discardLogger())

	got := e.ExtractText(context.Background(), "story-1", testImage(t))

	assert.Equal(t, "Primi I piatti (pasta)", got)
	assert.Equal(t, 1, local.calls)
	assert.Zero(t, cloud.calls)
	assert.Equal(t, "\x89PNG", string(local.last[:4]), "engines receive the preprocessed PNG")
}

func TestExtractTextCachesByStory(t *testing.T) {
	local := &stubEngine{name: "local", available: true, text: "menu"}
	e := NewExtractor(local, nil, DefaultOptions(), discardLogger())
	img := testImage(t)

	assert.Equal(t, "menu", e.ExtractText(context.Background(), "story-1", img))
	assert.Equal(t, "menu", e.ExtractText(context.Background(), "story-1", img))
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, 1, e.Cache().Len())

	// An empty key bypasses the cache.
	e.ExtractText(context.Background(), "", img)
	e.ExtractText(context.Background(), "", img)
	assert.Equal(t, 3, local.calls)
}

func TestExtractTextCacheExpires(t *testing.T) {
	local := &stubEngine{name: "local", available: true, text: "menu"}
	opts := DefaultOptions()
	opts.CacheTTL = 20 * time.Millisecond
	e := NewExtractor(local, nil, opts, discardLogger())
	img := testImage(t)

	e.ExtractText(context.Background(), "story-1", img)
	time.Sleep(60 * time.Millisecond)
	e.ExtractText(context.Background(), "story-1", img)

	assert.Equal(t, 2, local.calls)
}

func TestExtractTextFallsBackToCloud(t *testing.T) {
	local := &stubEngine{name: "local", available: false}
	cloud := &stubEngine{name: "cloud", available: true, text: "Secondi piatti"}
	e := NewExtractor(local, cloud, DefaultOptions(), discardLogger())

	assert.False(t, e.LocalAvailable(context.Background()))
	assert.True(t, e.Available(context.Background()))
	assert.Equal(t, "Secondi piatti", e.ExtractText(context.Background(), "s", testImage(t)))
	assert.Equal(t, 1, cloud.calls)
	assert.Equal(t, 1, local.checks, "local check runs once")
}

func TestExtractTextNeverFails(t *testing.T) {
	tests := []struct {
		name  string
		local Engine
		cloud Engine
		image []byte
	}{
		{name: "no engines", image: []byte{1}},
		{name: "nothing available", local: &stubEngine{name: "l"}, cloud: &stubEngine{name: "c"}},
		{name: "engine error", local: &stubEngine{name: "l", available: true, err: errors.New("boom")}},
		{name: "undecodable image", local: &stubEngine{name: "l", available: true, text: "x"}, image: []byte("nope")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.local, tt.cloud, DefaultOptions(), discardLogger())
			img := tt.image
			if img == nil {
				img = testImage(t)
			}
			assert.Equal(t, "", e.ExtractText(context.Background(), "k", img))
			assert.Zero(t, e.Cache().Len())
		})
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "Iasagne (al forno) 2o", Clean(" |asagne {al forno] 2° "))
}

func TestCacheBound(t *testing.T) {
	c := NewCache(2, time.Hour)
	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")
	require.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}
