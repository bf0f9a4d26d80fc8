package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docscan/internal/pdf"
	"github.com/MeKo-Tech/docscan/internal/pipeline"
	"github.com/MeKo-Tech/docscan/internal/presets"
)

func TestNewServer_Defaults(t *testing.T) {
	s := newServerWithScanner(Config{}, &mockScanner{}, quietLogger())

	assert.Equal(t, int64(20), s.maxUploadMB)
	assert.Equal(t, 60*time.Second, s.timeout)
	assert.Equal(t, 4, cap(s.sem))
	assert.Equal(t, "*", s.corsOrigin)
	assert.Equal(t, pipeline.DefaultOptions(), s.defaults)
	assert.Equal(t, pdf.DefaultPageOptions(), s.page)
	assert.Nil(t, s.rateLimiter)
	assert.Len(t, s.presets.Names(), 4)
}

func TestNewServer_Config(t *testing.T) {
	reg := presets.Builtin()
	require.NoError(t, reg.Add(presets.Preset{Name: "blueprint", BlockSize: 21, Offset: 8}))
	opts := pipeline.DefaultOptions()
	opts.Mode = pipeline.ModeColor

	s := newTestServer(t, func(c *Config) {
		c.CORSOrigin = "https://example.org"
		c.Presets = reg
		c.Defaults = opts
		c.Page = pdf.PageOptions{Size: pdf.PageLetter, Margin: 18}
		c.RateLimit = RateLimitConfig{Enabled: true, RequestsPerMinute: 30, Burst: 5, MaxDataPerDay: 1 << 20}
	})

	assert.Equal(t, "https://example.org", s.corsOrigin)
	assert.Equal(t, pipeline.ModeColor, s.defaults.Mode)
	assert.Equal(t, pdf.PageLetter, s.page.Size)
	require.NotNil(t, s.rateLimiter)
	assert.Equal(t, 5, s.rateLimiter.burst)

	got, err := s.parseOptions(func(k string) string {
		if k == "preset" {
			return "blueprint"
		}
		return ""
	})
	require.NoError(t, err)
	assert.Equal(t, 21, got.BlockSize)
	assert.Equal(t, pipeline.ModeColor, got.Mode)
}

func TestNewServer_InvalidOverlay(t *testing.T) {
	cfg := Config{Scanner: pipeline.DefaultConfig(), Logger: quietLogger()}
	cfg.Scanner.Rectification.OverlayColor = "not-a-color"
	_, err := NewServer(cfg)
	assert.Error(t, err)
}

func TestAcquire(t *testing.T) {
	s := newServerWithScanner(Config{MaxConcurrent: 1}, &mockScanner{}, quietLogger())

	release, err := s.acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := s.acquire(context.Background())
	require.NoError(t, err)
	release2()
}
