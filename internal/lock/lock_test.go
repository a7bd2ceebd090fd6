package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLocalLockerExcludes(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "job", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first TryLock: ok=%v err=%v", ok, err)
	}

	if _, ok, _ := l.TryLock(ctx, "job", time.Minute); ok {
		t.Fatalf("second TryLock should fail while held")
	}
	if _, ok, _ := l.TryLock(ctx, "other", time.Minute); !ok {
		t.Fatalf("different key should be lockable")
	}

	unlock()
	unlock()

	if _, ok, _ := l.TryLock(ctx, "job", time.Minute); !ok {
		t.Fatalf("TryLock after unlock should succeed")
	}
}

func TestLocalLockerExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	staleUnlock, ok, _ := l.TryLock(ctx, "job", time.Minute)
	if !ok {
		t.Fatalf("first TryLock failed")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := l.TryLock(ctx, "job", time.Minute); !ok {
		t.Fatalf("expired lock should be re-acquirable")
	}

	// Releasing the stale handle must not free the new holder's lock.
	staleUnlock()
	if _, ok, _ := l.TryLock(ctx, "job", time.Minute); ok {
		t.Fatalf("stale unlock released a lock it no longer owns")
	}
}

func TestRedisLockerReportsConnectionErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	_, ok, err := NewRedisLocker(rdb).TryLock(context.Background(), "job", time.Minute)
	if err == nil || ok {
		t.Fatalf("expected connection error, got ok=%v err=%v", ok, err)
	}
}
