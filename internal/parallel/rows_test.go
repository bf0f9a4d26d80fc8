package parallel

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkers(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), Workers(0))
	assert.Equal(t, runtime.NumCPU(), Workers(-3))
	assert.Equal(t, 5, Workers(5))
}

func TestRows_CoversEveryRowOnce(t *testing.T) {
	tests := []struct {
		name    string
		height  int
		workers int
	}{
		{"single worker", 100, 1},
		{"small input", 10, 8},
		{"many workers", 1000, 8},
		{"uneven split", 517, 3},
		{"default workers", 333, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			seen := make([]int, tt.height)
			Rows(tt.height, tt.workers, func(y0, y1 int) {
				mu.Lock()
				defer mu.Unlock()
				for y := y0; y < y1; y++ {
					seen[y]++
				}
			})
			for y, n := range seen {
				assert.Equal(t, 1, n, "row %d", y)
			}
		})
	}
}

func TestRows_EmptyHeight(t *testing.T) {
	called := false
	Rows(0, 4, func(int, int) { called = true })
	assert.False(t, called)
}
