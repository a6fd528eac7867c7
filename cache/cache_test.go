package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

type entry struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c, err := NewCache(client, time.Hour)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return c, mr
}

func TestNewCache_RequiresClient(t *testing.T) {
	if _, err := NewCache(nil, time.Minute); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestCache_JSONRoundTripAndMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var got []entry
	hit, err := c.GetJSON(ctx, "patients_cache:hospital:1", &got)
	if err != nil || hit {
		t.Fatalf("expected a clean miss, got hit=%v err=%v", hit, err)
	}

	want := []entry{{ID: 1, Name: "Asha"}, {ID: 2, Name: "Ravi"}}
	if err := c.SetJSON(ctx, "patients_cache:hospital:1", want); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	if ttl := mr.TTL("patients_cache:hospital:1"); ttl != time.Hour {
		t.Errorf("TTL = %s, want 1h", ttl)
	}

	hit, err = c.GetJSON(ctx, "patients_cache:hospital:1", &got)
	if err != nil || !hit {
		t.Fatalf("expected a hit, got hit=%v err=%v", hit, err)
	}
	if len(got) != 2 || got[1].Name != "Ravi" {
		t.Errorf("unexpected cached value %+v", got)
	}
}

func TestCache_CorruptEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t)
	if err := mr.Set("k", "{not json"); err != nil {
		t.Fatal(err)
	}
	var got entry
	hit, err := c.GetJSON(context.Background(), "k", &got)
	if err != nil || hit {
		t.Errorf("expected miss, got hit=%v err=%v", hit, err)
	}
}

func TestCache_DeleteAllByPattern(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	for _, k := range []string{"treatment_plans_cache:patient:1", "treatment_plans_cache:patient:2", "other"} {
		if err := mr.Set(k, "x"); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.DeleteAll(ctx, "treatment_plans_cache:*"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if mr.Exists("treatment_plans_cache:patient:1") || mr.Exists("treatment_plans_cache:patient:2") {
		t.Error("expected pattern keys removed")
	}
	if !mr.Exists("other") {
		t.Error("unrelated key removed")
	}
}

func TestCache_NilIsAlwaysEmpty(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	if err := c.SetJSON(ctx, "k", entry{ID: 1}); err != nil {
		t.Fatalf("SetJSON on nil cache: %v", err)
	}
	var got entry
	if hit, err := c.GetJSON(ctx, "k", &got); hit || err != nil {
		t.Errorf("expected miss on nil cache, got hit=%v err=%v", hit, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete on nil cache: %v", err)
	}
}
