package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewStore(rdb, "test"), mr
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store, _ := newSessionStoreTest(t)

	if _, err := store.Get(context.Background(), "nobody@example.com"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSetThenGet(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()

	if err := store.Set(ctx, "alice@example.com", "tok-1", time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, err := store.Get(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != "tok-1" {
		t.Fatalf("expected tok-1, got %q", got)
	}
	if ttl := mr.TTL("test:alice@example.com"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestSetOverwritesPreviousToken(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	if err := store.Set(ctx, "alice@example.com", "first", time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := store.Set(ctx, "alice@example.com", "second", time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	got, err := store.Get(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != "second" {
		t.Fatalf("expected last write to win, got %q", got)
	}
}

func TestKeyIgnoresEmailCaseAndSpace(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	if err := store.Set(ctx, " Alice@Example.com", "tok", time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if got, err := store.Get(ctx, "alice@example.com"); err != nil || got != "tok" {
		t.Fatalf("expected normalized lookup to hit, got %q, %v", got, err)
	}
}

func TestEntryExpiresWithTTL(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()

	if err := store.Set(ctx, "alice@example.com", "tok", time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "alice@example.com"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired entry to be gone, got %v", err)
	}
}

func TestConcurrentSetLastWriteWins(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	tokens := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	wg.Add(len(tokens))
	for _, tok := range tokens {
		go func(tok string) {
			defer wg.Done()
			if err := store.Set(ctx, "race@example.com", tok, time.Hour); err != nil {
				t.Errorf("Set error: %v", err)
			}
		}(tok)
	}
	wg.Wait()

	got, err := store.Get(ctx, "race@example.com")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	found := false
	for _, tok := range tokens {
		if tok == got {
			found = true
		}
	}
	if !found {
		t.Fatalf("stored token %q is not one of the written tokens", got)
	}
}

func TestDeleteAndPing(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()

	if err := store.Set(ctx, "alice@example.com", "tok", 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := store.Delete(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := store.Delete(ctx, "alice@example.com"); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
	if _, err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping error: %v", err)
	}

	mr.Close()
	if _, err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable after shutdown, got %v", err)
	}
}
