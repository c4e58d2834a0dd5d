// Package mempool recycles the large per-request buffers of the corner stage:
// the model input tensor, heatmap planes and binary masks.
package mempool

import "sync"

// sizeClass rounds n up to a multiple of 1024 so nearby sizes share a pool.
func sizeClass(n int) int {
	const step = 1024
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

type slicePool[T any] struct {
	pools sync.Map // size class -> *sync.Pool
}

func (sp *slicePool[T]) pool(cls int) *sync.Pool {
	p, _ := sp.pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]T, cls)
		return &buf
	}})
	return p.(*sync.Pool) //nolint:forcetypeassert
}

// get returns a zeroed slice of length n.
func (sp *slicePool[T]) get(n int) []T {
	cls := sizeClass(n)
	bp, _ := sp.pool(cls).Get().(*[]T)
	if bp == nil || cap(*bp) < cls {
		return make([]T, n)
	}
	buf := (*bp)[:n]
	clear(buf)
	return buf
}

func (sp *slicePool[T]) put(buf []T) {
	if cap(buf) == 0 {
		return
	}
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		// Not one of ours; dropping it keeps class sizes exact.
		return
	}
	buf = buf[:cap(buf)]
	sp.pool(cls).Put(&buf)
}

var (
	float32s slicePool[float32]
	bools    slicePool[bool]
)

// GetFloat32 returns a zeroed []float32 of length n.
// Return it with PutFloat32 when done.
func GetFloat32(n int) []float32 { return float32s.get(n) }

// PutFloat32 returns a buffer to the pool. Nil is accepted.
func PutFloat32(buf []float32) { float32s.put(buf) }

// GetBool returns a zeroed []bool of length n.
func GetBool(n int) []bool { return bools.get(n) }

// PutBool returns a buffer to the pool. Nil is accepted.
func PutBool(buf []bool) { bools.put(buf) }
