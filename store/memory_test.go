package store

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/scoutkit/core"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if _, err := ms.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	if err := ms.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := ms.Get(ctx, "k")
	if err != nil || string(v) != "v" {
		t.Fatalf("get = (%q, %v)", v, err)
	}

	if err := ms.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ms.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Fatalf("after delete: %v", err)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.Set(ctx, "short", []byte("x"), 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := ms.Get(ctx, "short"); err != nil {
		t.Fatalf("before expiry: %v", err)
	}

	// Expiry is checked on read, not only by the cleanup ticker.
	time.Sleep(1100 * time.Millisecond)
	if _, err := ms.Get(ctx, "short"); !core.IsStoreNotFound(err) {
		t.Fatalf("after expiry: %v", err)
	}
}

func TestMemoryStoreBatch(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.BatchSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatalf("batch set: %v", err)
	}
	got, err := ms.BatchGet(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("batch get: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Fatalf("got %v", got)
	}
}

func TestMemoryStoreZSet(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	ms.ZAdd(ctx, "board", 88.5, "ath-1")
	ms.ZAdd(ctx, "board", 95.0, "ath-2")
	ms.ZAdd(ctx, "board", 71.2, "ath-3")

	members, err := ms.ZRange(ctx, "board", 0, -1)
	if err != nil {
		t.Fatalf("zrange: %v", err)
	}
	want := []string{"ath-2", "ath-1", "ath-3"}
	if len(members) != len(want) {
		t.Fatalf("members = %v", members)
	}
	for i := range want {
		if members[i] != want[i] {
			t.Fatalf("members = %v, want %v", members, want)
		}
	}

	top, err := ms.ZRange(ctx, "board", 0, 0)
	if err != nil || len(top) != 1 || top[0] != "ath-2" {
		t.Fatalf("top = (%v, %v)", top, err)
	}

	score, err := ms.ZScore(ctx, "board", "ath-1")
	if err != nil || score != 88.5 {
		t.Fatalf("zscore = (%v, %v)", score, err)
	}
	if _, err := ms.ZScore(ctx, "board", "nobody"); !core.IsStoreNotFound(err) {
		t.Fatalf("missing member: %v", err)
	}
}

func TestMemoryStoreHash(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	ms.HSet(ctx, "ath-1", "position", []byte("qb"))
	ms.HSet(ctx, "ath-1", "state", []byte("TX"))

	v, err := ms.HGet(ctx, "ath-1", "position")
	if err != nil || string(v) != "qb" {
		t.Fatalf("hget = (%q, %v)", v, err)
	}
	if _, err := ms.HGet(ctx, "ath-1", "missing"); !core.IsStoreNotFound(err) {
		t.Fatalf("missing field: %v", err)
	}

	all, err := ms.HGetAll(ctx, "ath-1")
	if err != nil || len(all) != 2 {
		t.Fatalf("hgetall = (%v, %v)", all, err)
	}
	empty, err := ms.HGetAll(ctx, "ath-2")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty hash = (%v, %v)", empty, err)
	}
}
