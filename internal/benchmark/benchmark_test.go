package benchmark

import (
	"bytes"
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docscan/internal/pipeline"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

func newScanner(t *testing.T) *pipeline.Scanner {
	t.Helper()
	s, err := pipeline.NewBuilder().WithWorkers(2).Build()
	require.NoError(t, err)
	return s
}

func TestSyntheticCases(t *testing.T) {
	cases := SyntheticCases([]testutil.ImageSize{{Width: 320, Height: 240}})
	require.Len(t, cases, 2)
	assert.Equal(t, "320x240/bw", cases[0].Name)
	assert.Equal(t, "320x240/color", cases[1].Name)
	assert.Equal(t, image.Rect(0, 0, 320, 240), cases[0].Image.Bounds())
	assert.Equal(t, pipeline.ModeColor, cases[1].Options.Mode)
}

func TestRun(t *testing.T) {
	s := newScanner(t)
	c := SyntheticCases([]testutil.ImageSize{{Width: 320, Height: 240}})[0]

	res := Run(context.Background(), s, c, 3)
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 320, res.Width)
	assert.Equal(t, 240, res.Height)
	assert.Positive(t, res.Total)
	assert.LessOrEqual(t, res.Min, res.Average())
	assert.GreaterOrEqual(t, res.Max, res.Average())
	assert.Positive(t, res.Throughput())
	assert.Contains(t, res.String(), "3 iterations")
}

func TestRunErrors(t *testing.T) {
	s := newScanner(t)

	res := Run(context.Background(), s, Case{Name: "empty"}, 2)
	require.Error(t, res.Err)
	assert.Contains(t, res.String(), "ERROR")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := SyntheticCases([]testutil.ImageSize{{Width: 160, Height: 120}})[0]
	res = Run(ctx, s, c, 2)
	require.Error(t, res.Err)
	assert.Zero(t, res.Iterations)
	assert.Zero(t, res.Min)
	assert.Zero(t, res.Average())
}

func TestRunAllStopsOnCancel(t *testing.T) {
	s := newScanner(t)
	cases := SyntheticCases([]testutil.ImageSize{{Width: 160, Height: 120}})

	results := RunAll(context.Background(), s, cases, 1)
	assert.Len(t, results, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, RunAll(ctx, s, cases, 1))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTable(&buf, []Result{
		{Name: "a", Width: 1000, Height: 1000, Iterations: 2, Total: 2 * time.Second, Min: time.Second, Max: time.Second},
		{Name: "b", Err: assert.AnError},
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "CASE")
	assert.Contains(t, out, "1.0")
	assert.Contains(t, out, "ERROR")
}
