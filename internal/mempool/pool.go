// Package mempool keeps size-classed pools of float buffers for the
// per-pixel maps built on every scan (luminance, blur, edges, integral image).
package mempool

import "sync"

const classStep = 1024

// sizeClass rounds n up to the next multiple of classStep.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	return (n + classStep - 1) / classStep * classStep
}

type sizedPool[T any] struct {
	pools sync.Map // key: size class (int), value: *sync.Pool
}

func (sp *sizedPool[T]) pool(cls int) *sync.Pool {
	pAny, _ := sp.pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	return pAny.(*sync.Pool)
}

// get returns a zeroed slice of length n.
func (sp *sizedPool[T]) get(n int) []T {
	cls := sizeClass(n)
	buf, ok := sp.pool(cls).Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

func (sp *sizedPool[T]) put(buf []T) {
	if buf == nil || cap(buf) < classStep {
		return
	}
	// Buffers are filed under the class their capacity fully covers.
	cls := cap(buf) / classStep * classStep
	sp.pool(cls).Put(buf[:cap(buf)]) //nolint:staticcheck
}

var (
	float32Pool sizedPool[float32]
	float64Pool sizedPool[float64]
)

// GetFloat32 retrieves a zeroed []float32 of length n.
// Return it with PutFloat32 when done.
func GetFloat32(n int) []float32 { return float32Pool.get(n) }

// PutFloat32 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat32(buf []float32) { float32Pool.put(buf) }

// GetFloat64 retrieves a zeroed []float64 of length n.
// Return it with PutFloat64 when done.
func GetFloat64(n int) []float64 { return float64Pool.get(n) }

// PutFloat64 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat64(buf []float64) { float64Pool.put(buf) }
