package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "small size gets minimum", input: 1, expected: 1024},
		{name: "exactly one step", input: 1024, expected: 1024},
		{name: "just over one step", input: 1025, expected: 2048},
		{name: "large size", input: 10000, expected: 10240},
		{name: "zero size", input: 0, expected: 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetFloat32_LengthAndZeroed(t *testing.T) {
	buf := GetFloat32(3000)
	require.Len(t, buf, 3000)
	assert.GreaterOrEqual(t, cap(buf), 3000)
	for i := range buf {
		buf[i] = 7
	}
	PutFloat32(buf)

	again := GetFloat32(2500)
	require.Len(t, again, 2500)
	for _, v := range again {
		assert.Zero(t, v)
	}
	PutFloat32(again)
}

func TestGetFloat64_LengthAndZeroed(t *testing.T) {
	buf := GetFloat64(10)
	require.Len(t, buf, 10)
	buf[3] = 1.5
	PutFloat64(buf)

	again := GetFloat64(10)
	assert.Equal(t, make([]float64, 10), again)
}

func TestPut_NilAndForeignSlices(t *testing.T) {
	assert.NotPanics(t, func() {
		PutFloat32(nil)
		PutFloat64(nil)
		PutFloat32(make([]float32, 10))
		PutFloat64(make([]float64, 5000))
	})
	assert.Len(t, GetFloat64(4096), 4096)
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b := GetFloat32(n*100 + j)
				b[0] = float32(j)
				PutFloat32(b)
			}
		}(i + 1)
	}
	wg.Wait()
}
