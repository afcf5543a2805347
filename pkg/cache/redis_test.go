package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis returns a client against a local Redis, skipping the
// test when none is available. Container-backed coverage lives in
// tests/integration.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestRedisStoreGetPut(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	if _, err := store.Get(ctx, "abc12"); err != ErrCacheMiss {
		t.Fatalf("Get on empty store = %v, want ErrCacheMiss", err)
	}

	if err := store.Put(ctx, "abc12", []byte(`{"code":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := store.Get(ctx, "abc12")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != `{"code":1}` {
		t.Errorf("Get = %q, want %q", data, `{"code":1}`)
	}
}

func TestRedisStoreTTL(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client, 100*time.Millisecond)
	ctx := context.Background()

	if err := store.Put(ctx, "abc12", []byte("payload")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	if _, err := store.Get(ctx, "abc12"); err != ErrCacheMiss {
		t.Errorf("Get after TTL = %v, want ErrCacheMiss", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, "abc12", []byte("payload")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "abc12"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "abc12"); err != ErrCacheMiss {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}
}
