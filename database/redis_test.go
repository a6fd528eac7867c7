package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

func newTestLocker(t *testing.T, retries int) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, LockConfig{Retries: retries, RetryDelay: 10 * time.Millisecond, TTL: time.Second}), mr
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t, 1)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, PatientLockKey(7))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !mr.Exists("patient_lock:7") {
		t.Fatal("expected lock key in redis")
	}
	lock.Release(ctx)
	if mr.Exists("patient_lock:7") {
		t.Fatal("expected lock key to be released")
	}
}

func TestLocker_HeldLockFailsAfterRetries(t *testing.T) {
	locker, _ := newTestLocker(t, 2)
	ctx := context.Background()

	held, err := locker.Acquire(ctx, "patient_lock:1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release(ctx)

	_, err = locker.Acquire(ctx, "patient_lock:1")
	if !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired, got %v", err)
	}
}

func TestLocker_ReleaseRejectsForeignOwner(t *testing.T) {
	locker, _ := newTestLocker(t, 1)
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "k"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := locker.ReleaseLock(ctx, "k", "someone-else"); err == nil {
		t.Fatal("expected release by a non-owner to fail")
	}
}
