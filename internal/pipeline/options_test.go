package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/geometry"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 15, o.BlockSize)
	assert.Equal(t, 10, o.Offset)
	assert.Equal(t, 2048, o.MaxOutputSize)
	assert.Equal(t, ModeBinary, o.Mode)
	assert.Equal(t, codec.FormatPNG, o.Format)
	assert.Equal(t, 90, o.Quality)
	assert.Equal(t, ThresholdBradley, o.Threshold)
	assert.Equal(t, 128, o.GlobalLevel)
	assert.Nil(t, o.Corners)
	assert.NoError(t, o.Validate())
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeBinary, "bw": ModeBinary, "Binary": ModeBinary, "color": ModeColor, "COLOUR": ModeColor} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("sepia")
	assert.Error(t, err)
}

func TestParseThresholdMethod(t *testing.T) {
	got, err := ParseThresholdMethod("Global")
	require.NoError(t, err)
	assert.Equal(t, ThresholdGlobal, got)
	got, err = ParseThresholdMethod("")
	require.NoError(t, err)
	assert.Equal(t, ThresholdBradley, got)
	_, err = ParseThresholdMethod("sauvola")
	assert.Error(t, err)
}

func TestParseCorners(t *testing.T) {
	pts, err := ParseCorners("10,20; 300,25;310.5,400;5,390")
	require.NoError(t, err)
	assert.Equal(t, geometry.Point{X: 10, Y: 20}, pts[0])
	assert.Equal(t, geometry.Point{X: 310.5, Y: 400}, pts[2])

	for _, bad := range []string{"", "1,2;3,4;5,6", "1,2;3,4;5,6;x,y", "1,2;3,4;5,6;7,8;9,10"} {
		_, err := ParseCorners(bad)
		assert.Error(t, err, bad)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"zero values", func(o *Options) { *o = Options{} }, false},
		{"even block size", func(o *Options) { o.BlockSize = 8 }, false},
		{"negative block size", func(o *Options) { o.BlockSize = -1 }, true},
		{"offset too high", func(o *Options) { o.Offset = 101 }, true},
		{"negative offset", func(o *Options) { o.Offset = -5 }, true},
		{"negative max size", func(o *Options) { o.MaxOutputSize = -1 }, true},
		{"quality too high", func(o *Options) { o.Quality = 101 }, true},
		{"global level too high", func(o *Options) { o.GlobalLevel = 256 }, true},
		{"unknown mode", func(o *Options) { o.Mode = "sepia" }, true},
		{"unknown threshold", func(o *Options) { o.Threshold = "otsu" }, true},
		{"unknown format", func(o *Options) { o.Format = "gif" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			err := o.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOptionsValidate_QualityMessage(t *testing.T) {
	o := DefaultOptions()
	o.Quality = 0
	require.NoError(t, o.Validate(), "zero quality selects the default")

	o.Quality = -3
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 for the default")
	assert.Contains(t, err.Error(), "got -3")
}

func TestOptionsWithDefaults_ZeroMaxSizeUsesDefault(t *testing.T) {
	o := Options{MaxOutputSize: 0}.withDefaults()
	assert.Equal(t, DefaultMaxOutputSize, o.MaxOutputSize)
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{Mode: "colour", Format: "jpg", Offset: 0}.withDefaults()
	assert.Equal(t, 15, o.BlockSize)
	assert.Equal(t, 0, o.Offset, "zero offset is a valid setting")
	assert.Equal(t, DefaultMaxOutputSize, o.MaxOutputSize)
	assert.Equal(t, ModeColor, o.Mode)
	assert.Equal(t, codec.FormatJPEG, o.Format)
	assert.Equal(t, ThresholdBradley, o.Threshold)
	assert.Equal(t, codec.DefaultQuality, o.Quality)
}
