package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/krishna-kudari/llmgate/store"
	"github.com/krishna-kudari/llmgate/store/memory"
)

func TestMemoryStore_GetSetDel(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	// Get non-existent key
	_, err := s.Get(ctx, "missing")
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, ok := err.(*store.ErrKeyNotFound); !ok {
		t.Fatalf("expected ErrKeyNotFound, got %T", err)
	}

	// Set and Get
	if err := s.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatal(err)
	}
	val, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if val != "v1" {
		t.Errorf("expected v1, got %q", val)
	}

	// Del
	if err := s.Del(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	_, err = s.Get(ctx, "k1")
	if _, ok := err.(*store.ErrKeyNotFound); !ok {
		t.Error("expected ErrKeyNotFound after Del")
	}
}

func TestMemoryStore_SetWithTTL(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "ttl-key", "val", 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	val, err := s.Get(ctx, "ttl-key")
	if err != nil {
		t.Fatal(err)
	}
	if val != "val" {
		t.Error("expected val before expiry")
	}

	time.Sleep(150 * time.Millisecond)

	_, err = s.Get(ctx, "ttl-key")
	if _, ok := err.(*store.ErrKeyNotFound); !ok {
		t.Error("expected key to be expired")
	}
}

func TestMemoryStore_IncrBy(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	val, err := s.IncrBy(ctx, "counter", 5)
	if err != nil {
		t.Fatal(err)
	}
	if val != 5 {
		t.Errorf("expected 5, got %d", val)
	}

	val, err = s.IncrBy(ctx, "counter", 3)
	if err != nil {
		t.Fatal(err)
	}
	if val != 8 {
		t.Errorf("expected 8, got %d", val)
	}
}

func TestMemoryStore_Expire(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	s.Set(ctx, "exp-key", "val", 0)
	s.Expire(ctx, "exp-key", 100*time.Millisecond)

	ttl, _ := s.TTL(ctx, "exp-key")
	if ttl <= 0 {
		t.Errorf("expected positive TTL, got %v", ttl)
	}

	time.Sleep(150 * time.Millisecond)

	_, err := s.Get(ctx, "exp-key")
	if _, ok := err.(*store.ErrKeyNotFound); !ok {
		t.Error("expected key to be expired after Expire()")
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	// Non-existent key
	ttl, _ := s.TTL(ctx, "nope")
	if ttl != -2*time.Second {
		t.Errorf("expected -2s for missing key, got %v", ttl)
	}

	// Key with no TTL
	s.Set(ctx, "no-ttl", "val", 0)
	ttl, _ = s.TTL(ctx, "no-ttl")
	if ttl != -1*time.Second {
		t.Errorf("expected -1s for no TTL, got %v", ttl)
	}

	// Key with TTL
	s.Set(ctx, "with-ttl", "val", 10*time.Second)
	ttl, _ = s.TTL(ctx, "with-ttl")
	if ttl < 9*time.Second || ttl > 11*time.Second {
		t.Errorf("expected ~10s TTL, got %v", ttl)
	}
}

func TestMemoryStore_SortedSet(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	// ZAdd and ZCard
	s.ZAdd(ctx, "zset", 1.0, "a")
	s.ZAdd(ctx, "zset", 2.0, "b")
	s.ZAdd(ctx, "zset", 3.0, "c")

	count, _ := s.ZCard(ctx, "zset")
	if count != 3 {
		t.Errorf("expected 3 members, got %d", count)
	}

	// ZRangeWithScores
	entries, _ := s.ZRangeWithScores(ctx, "zset", 0, 0)
	if len(entries) != 1 || entries[0].Member != "a" {
		t.Errorf("expected first entry to be 'a', got %v", entries)
	}

	entries, _ = s.ZRangeWithScores(ctx, "zset", 0, -1)
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}

	// ZRemRangeByScore
	s.ZRemRangeByScore(ctx, "zset", "0", "1.5")
	count, _ = s.ZCard(ctx, "zset")
	if count != 2 {
		t.Errorf("expected 2 members after remove, got %d", count)
	}
}

func TestMemoryStore_ZRemRangeByScoreInfBounds(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	// The admission path evicts with ("-inf", windowStart).
	s.ZAdd(ctx, "zset", 100, "old")
	s.ZAdd(ctx, "zset", 200, "mid")
	s.ZAdd(ctx, "zset", 300, "new")

	s.ZRemRangeByScore(ctx, "zset", "-inf", "200")
	count, _ := s.ZCard(ctx, "zset")
	if count != 1 {
		t.Errorf("expected 1 member after -inf eviction, got %d", count)
	}

	s.ZRemRangeByScore(ctx, "zset", "-inf", "+inf")
	count, _ = s.ZCard(ctx, "zset")
	if count != 0 {
		t.Errorf("expected empty set after full eviction, got %d", count)
	}
}

func TestMemoryStore_SortedSetExpire(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	// Event-log zsets get their record TTL via Expire; an idle key's
	// sets must be reclaimed, not persist until Del.
	s.ZAdd(ctx, "zset", 1.0, "a")
	s.ZAdd(ctx, "zset", 2.0, "b")
	s.Expire(ctx, "zset", 100*time.Millisecond)

	ttl, _ := s.TTL(ctx, "zset")
	if ttl <= 0 {
		t.Errorf("expected positive TTL on sorted set, got %v", ttl)
	}

	time.Sleep(150 * time.Millisecond)

	count, _ := s.ZCard(ctx, "zset")
	if count != 0 {
		t.Errorf("expected expired sorted set to be empty, got %d members", count)
	}
	entries, _ := s.ZRangeWithScores(ctx, "zset", 0, -1)
	if len(entries) != 0 {
		t.Errorf("expected no entries after expiry, got %v", entries)
	}
}

func TestMemoryStore_SortedSetExpireRefreshed(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	s.ZAdd(ctx, "zset", 1.0, "a")
	s.Expire(ctx, "zset", 60*time.Millisecond)

	// Re-arming the TTL before it lapses keeps the set alive.
	time.Sleep(30 * time.Millisecond)
	s.Expire(ctx, "zset", 10*time.Second)
	time.Sleep(60 * time.Millisecond)

	count, _ := s.ZCard(ctx, "zset")
	if count != 1 {
		t.Errorf("expected refreshed sorted set to survive, got %d members", count)
	}
}

func TestMemoryStore_ZAddReplacesMember(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	s.ZAdd(ctx, "zset", 1.0, "m")
	s.ZAdd(ctx, "zset", 9.0, "m")

	count, _ := s.ZCard(ctx, "zset")
	if count != 1 {
		t.Fatalf("expected 1 member, got %d", count)
	}
	entries, _ := s.ZRangeWithScores(ctx, "zset", 0, -1)
	if entries[0].Score != 9.0 {
		t.Errorf("expected score 9.0 after re-add, got %v", entries[0].Score)
	}
}

func TestMemoryStore_EvalReturnsError(t *testing.T) {
	s := memory.New()
	defer s.Close()
	ctx := context.Background()

	_, err := s.Eval(ctx, "return 1", nil)
	if _, ok := err.(*store.ErrScriptNotSupported); !ok {
		t.Errorf("expected ErrScriptNotSupported, got %T: %v", err, err)
	}
}

func TestMemoryStore_InterfaceCompliance(t *testing.T) {
	var _ store.Store = (*memory.Store)(nil)
}
