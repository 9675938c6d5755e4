package slotlock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLock(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRedis(client, ttl, logger, WithRetryInterval(5*time.Millisecond)), server
}

func TestRedis_LockAndRelease(t *testing.T) {
	locker, server := newTestRedisLock(t, time.Minute)

	unlock, err := locker.Lock(context.Background(), "slot:2025-03-10:a-101")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}
	if !server.Exists(defaultKeyPrefix + "slot:2025-03-10:a-101") {
		t.Fatalf("expected lock key to exist")
	}
	if ttl := server.TTL(defaultKeyPrefix + "slot:2025-03-10:a-101"); ttl <= 0 {
		t.Fatalf("expected lock key to carry a ttl, got %v", ttl)
	}

	unlock()
	if server.Exists(defaultKeyPrefix + "slot:2025-03-10:a-101") {
		t.Fatalf("expected lock key to be removed")
	}
}

func TestRedis_WaitsForHolder(t *testing.T) {
	locker, _ := newTestRedisLock(t, time.Minute)

	unlock, err := locker.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		next, err := locker.Lock(context.Background(), "a")
		if err == nil {
			next()
		}
		acquired <- err
	}()

	unlock()
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("waiter returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("waiter never acquired the lock")
	}
}

func TestRedis_StaleHolderCannotRelease(t *testing.T) {
	locker, server := newTestRedisLock(t, time.Second)

	stale, err := locker.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}

	server.FastForward(2 * time.Second)

	fresh, err := locker.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("expected expired lock to be reacquired, got %v", err)
	}
	defer fresh()

	stale()
	if !server.Exists(defaultKeyPrefix + "a") {
		t.Fatalf("stale unlock removed the new holder's lock")
	}
}

func TestRedis_ServerDown(t *testing.T) {
	locker, server := newTestRedisLock(t, time.Second)
	server.Close()

	if _, err := locker.Lock(context.Background(), "a"); err == nil {
		t.Fatalf("expected error when redis is unreachable")
	}
}
