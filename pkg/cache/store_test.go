package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestStoreGetPut(t *testing.T) {
	s := NewStore(time.Minute, 100)

	if _, ok := s.Get("abc12"); ok {
		t.Fatal("Get on empty store should miss")
	}

	s.Put("abc12", []byte(`{"code":0}`))

	data, ok := s.Get("abc12")
	if !ok {
		t.Fatal("Get after Put should hit")
	}
	if string(data) != `{"code":0}` {
		t.Errorf("Get returned %q, want %q", data, `{"code":0}`)
	}

	// Different identifier stays a miss.
	if _, ok := s.Get("other"); ok {
		t.Error("Get for a different identifier should miss")
	}
}

func TestStoreOverwrite(t *testing.T) {
	s := NewStore(time.Minute, 100)

	s.Put("abc12", []byte("old"))
	s.Put("abc12", []byte("new"))

	data, ok := s.Get("abc12")
	if !ok || string(data) != "new" {
		t.Errorf("Get = %q, %v; want new, true", data, ok)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d after overwrite, want 1", s.Len())
	}
}

func TestStoreTTLExpiry(t *testing.T) {
	s := NewStore(30*time.Millisecond, 100)

	s.Put("abc12", []byte("payload"))
	if _, ok := s.Get("abc12"); !ok {
		t.Fatal("entry should be live immediately after Put")
	}

	time.Sleep(50 * time.Millisecond)

	if _, ok := s.Get("abc12"); ok {
		t.Error("expired entry must not be returned")
	}
	// The discovering read purges the entry.
	if s.Len() != 0 {
		t.Errorf("Len() = %d after lazy purge, want 0", s.Len())
	}
}

func TestStoreEvictionSweep(t *testing.T) {
	capacity := 50
	s := NewStore(time.Minute, capacity)

	for i := 0; i <= capacity; i++ {
		s.Put(fmt.Sprintf("user%04d", i), []byte("x"))
	}

	if got := s.Len(); got > capacity {
		t.Errorf("Len() = %d after sweep, want <= capacity %d", got, capacity)
	}

	// Oldest fifth of capacity is gone, newest entries survive.
	expectedEvicted := capacity / evictFraction
	if got := s.Len(); got != capacity+1-expectedEvicted {
		t.Errorf("Len() = %d, want %d", got, capacity+1-expectedEvicted)
	}
	if _, ok := s.Get("user0000"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := s.Get(fmt.Sprintf("user%04d", capacity)); !ok {
		t.Error("newest entry must survive the sweep")
	}
}

func TestStoreDelete(t *testing.T) {
	s := NewStore(time.Minute, 100)

	s.Put("abc12", []byte("payload"))
	s.Delete("abc12")

	if _, ok := s.Get("abc12"); ok {
		t.Error("Get after Delete should miss")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Delete, want 0", s.Len())
	}

	// Deleting an absent identifier is a no-op.
	s.Delete("ghost")
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore(time.Minute, 100)
	s.Put("abc12", []byte(`{"code":0}`))

	data, ok := s.Get("abc12")
	if !ok {
		t.Fatal("Get should hit")
	}
	data[0] = 'X'

	fresh, ok := s.Get("abc12")
	if !ok {
		t.Fatal("Get should still hit")
	}
	if string(fresh) != `{"code":0}` {
		t.Errorf("stored payload mutated through returned slice: %q", fresh)
	}
}

func TestStoreDefaults(t *testing.T) {
	s := NewStore(0, 0)
	if s.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want default %v", s.ttl, DefaultTTL)
	}
	if s.capacity != DefaultCapacity {
		t.Errorf("capacity = %d, want default %d", s.capacity, DefaultCapacity)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore(time.Minute, 1000)

	var wg sync.WaitGroup
	for w := 0; w < 20; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("user-%d-%d", w, i)
				s.Put(id, []byte("payload"))
				if data, ok := s.Get(id); !ok || string(data) != "payload" {
					t.Errorf("Get(%q) = %q, %v; want payload, true", id, data, ok)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
