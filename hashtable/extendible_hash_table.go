package hashtable

import (
	"sync"

	"golang.org/x/exp/constraints"
)

// ExtendibleHashTable is a thread safe associative map built on an extendible
// hash directory. The directory keeps shared references to buckets; a bucket
// with local depth d is aliased by every directory slot whose low d bits match
// its split image. When a bucket overflows it is split, and when its local
// depth equals the global depth the directory doubles first.
//
// The directory has a read write latch and every bucket has its own, so
// lookups on different buckets proceed concurrently.
type ExtendibleHashTable[K constraints.Integer, V any] struct {
	globalDepth int
	bucketSize  int
	numBuckets  int
	dir         []*bucket[K, V]
	latch       sync.RWMutex
}

func NewExtendibleHashTable[K constraints.Integer, V any](bucketSize int) *ExtendibleHashTable[K, V] {
	return &ExtendibleHashTable[K, V]{
		bucketSize: bucketSize,
		numBuckets: 1,
		dir:        []*bucket[K, V]{newBucket[K, V](bucketSize, 0)},
	}
}

// hashOf is the identity. Keys are page ids, which are already uniformly
// assigned small integers, and the identity keeps directory splits
// deterministic.
func hashOf[K constraints.Integer](key K) uint64 {
	return uint64(key)
}

func (h *ExtendibleHashTable[K, V]) indexOf(key K) int {
	mask := uint64(1)<<h.globalDepth - 1
	return int(hashOf(key) & mask)
}

func (h *ExtendibleHashTable[K, V]) GetGlobalDepth() int {
	h.latch.RLock()
	defer h.latch.RUnlock()
	return h.globalDepth
}

func (h *ExtendibleHashTable[K, V]) GetLocalDepth(dirIndex int) int {
	h.latch.RLock()
	defer h.latch.RUnlock()
	return h.dir[dirIndex].depth
}

func (h *ExtendibleHashTable[K, V]) GetNumBuckets() int {
	h.latch.RLock()
	defer h.latch.RUnlock()
	return h.numBuckets
}

func (h *ExtendibleHashTable[K, V]) Find(key K) (V, bool) {
	h.latch.RLock()
	defer h.latch.RUnlock()
	return h.dir[h.indexOf(key)].find(key)
}

func (h *ExtendibleHashTable[K, V]) Remove(key K) bool {
	h.latch.RLock()
	defer h.latch.RUnlock()
	return h.dir[h.indexOf(key)].remove(key)
}

// Insert puts key into the table, replacing the value in place if the key
// already exists.
func (h *ExtendibleHashTable[K, V]) Insert(key K, value V) {
	h.latch.RLock()
	if h.dir[h.indexOf(key)].insert(key, value) {
		h.latch.RUnlock()
		return
	}
	h.latch.RUnlock()

	// target bucket is full. retry under the directory's exclusive latch,
	// splitting until the insert fits.
	h.latch.Lock()
	defer h.latch.Unlock()
	for {
		idx := h.indexOf(key)
		b := h.dir[idx]
		if b.insert(key, value) {
			return
		}

		if b.depth == h.globalDepth {
			// double the directory. dir[i] and dir[i+oldSize] alias the same
			// bucket until a split separates them.
			h.globalDepth++
			h.dir = append(h.dir, h.dir...)
		}

		// split b into two buckets with local depth incremented and
		// redistribute its items by the new discriminator bit.
		mask := uint64(1) << b.depth
		lowBucket := newBucket[K, V](h.bucketSize, b.depth+1)
		highBucket := newBucket[K, V](h.bucketSize, b.depth+1)
		h.numBuckets++
		for k, v := range b.items {
			if hashOf(k)&mask != 0 {
				highBucket.items[k] = v
			} else {
				lowBucket.items[k] = v
			}
		}

		for i := idx & int(mask-1); i < len(h.dir); i += int(mask) {
			if uint64(i)&mask != 0 {
				h.dir[i] = highBucket
			} else {
				h.dir[i] = lowBucket
			}
		}
	}
}

type bucket[K constraints.Integer, V any] struct {
	size  int
	depth int
	items map[K]V
	latch sync.RWMutex
}

func newBucket[K constraints.Integer, V any](size, depth int) *bucket[K, V] {
	return &bucket[K, V]{size: size, depth: depth, items: make(map[K]V, size)}
}

func (b *bucket[K, V]) find(key K) (V, bool) {
	b.latch.RLock()
	defer b.latch.RUnlock()
	v, ok := b.items[key]
	return v, ok
}

func (b *bucket[K, V]) remove(key K) bool {
	b.latch.Lock()
	defer b.latch.Unlock()
	if _, ok := b.items[key]; !ok {
		return false
	}
	delete(b.items, key)
	return true
}

// insert returns false if the bucket is full and key is not present. Existing
// keys are updated in place even when the bucket is full.
func (b *bucket[K, V]) insert(key K, value V) bool {
	b.latch.Lock()
	defer b.latch.Unlock()
	if _, ok := b.items[key]; ok {
		b.items[key] = value
		return true
	}
	if len(b.items) >= b.size {
		return false
	}
	b.items[key] = value
	return true
}
