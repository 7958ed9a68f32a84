// Package alloc provides the sync.Pool pre-warming helper used by the
// ingress adapter's task buffers.
package alloc

import "sync"

// PreAllocate draws qty items from pool and immediately returns them,
// forcing pool.New to run qty times up front instead of on the hot path.
func PreAllocate[T any](pool *sync.Pool, qty int) {
	items := make([]*T, qty)
	for i := 0; i < qty; i++ {
		items[i] = pool.Get().(*T)
	}
	for i := 0; i < qty; i++ {
		pool.Put(items[i])
	}
}
