package syncutil

import (
	"sync"
	"testing"
)

func TestShardedMutex_SameKeySerializes(t *testing.T) {
	var m ShardedMutex
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("user-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
}

func TestShardedMutex_ShardIsStable(t *testing.T) {
	var m ShardedMutex
	if m.shard("alice") != m.shard("alice") {
		t.Fatal("same key must map to the same shard")
	}
}
