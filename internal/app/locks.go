package app

import (
	"hash/fnv"
	"sync"
)

// keyedMutexShards is the number of lock shards. Different meme IDs are
// fully independent, so contention only matters within a shard; 64
// shards keeps cross-meme collisions rare without a per-key map.
const keyedMutexShards = 64

// KeyedMutex serializes work per key. The auction and vote services
// hold a meme's lock across the store's conditional update and the
// event publish, so publish order matches commit order per meme. The
// lock is never held across external I/O other than the record store
// operation it protects.
type KeyedMutex struct {
	shards [keyedMutexShards]sync.Mutex
}

// NewKeyedMutex creates a keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the shard for key and returns its unlock function.
//
//	unlock := locks.Lock(memeID)
//	defer unlock()
func (k *KeyedMutex) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	shard := &k.shards[h.Sum32()%keyedMutexShards]
	shard.Lock()

	return shard.Unlock
}
