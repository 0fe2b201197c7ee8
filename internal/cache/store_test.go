package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"predictmax/internal/apperr"
	"predictmax/internal/config"
)

func TestMemoryStore_TTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.Now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"), time.Minute)
	_ = s.Set(ctx, "b", []byte("2"), 0)

	if v, ok, _ := s.Get(ctx, "a"); !ok || string(v) != "1" {
		t.Fatalf("a=%q ok=%v", v, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("a should have expired")
	}
	if _, ok, _ := s.Get(ctx, "b"); !ok {
		t.Fatalf("b has no ttl and should persist")
	}
	if s.Len() != 1 {
		t.Fatalf("len=%d want=1", s.Len())
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	in := []byte("abc")
	_ = s.Set(ctx, "k", in, 0)
	in[0] = 'x'
	out, _, _ := s.Get(ctx, "k")
	out[1] = 'y'
	again, _, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated: %q", again)
	}
}

func TestJSONHelpers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	type odds struct {
		Home float64 `json:"home"`
	}
	if err := SetJSON(ctx, s, "odds", odds{Home: 0.61}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got odds
	if ok, err := GetJSON(ctx, s, "odds", &got); !ok || err != nil || got.Home != 0.61 {
		t.Fatalf("got=%+v ok=%v err=%v", got, ok, err)
	}

	_ = s.Set(ctx, "bad", []byte("{"), 0)
	if ok, err := GetJSON(ctx, s, "bad", &got); ok || err != nil {
		t.Fatalf("corrupt entry should miss: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := s.Get(ctx, "bad"); ok {
		t.Fatalf("corrupt entry should be evicted")
	}
}

func TestNew(t *testing.T) {
	if s, err := New(config.CacheConfig{}); err != nil {
		t.Fatalf("memory: %v", err)
	} else if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("default backend=%T", s)
	}
	if _, err := New(config.CacheConfig{Backend: "redis"}); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("redis without addr err=%v", err)
	}
	if s, err := New(config.CacheConfig{Backend: "redis", Redis: config.RedisConfig{Addr: "127.0.0.1:6379"}}); err != nil {
		t.Fatalf("redis: %v", err)
	} else {
		_ = s.(*RedisStore).Close()
	}
	if _, err := New(config.CacheConfig{Backend: "memcached"}); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("unknown backend err=%v", err)
	}
}

func TestWrap_ComputesOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) ([]string, error) {
		calls++
		return []string{"nba", "nfl"}, nil
	}
	for i := 0; i < 3; i++ {
		got, err := Wrap(ctx, s, "sports", time.Minute, compute)
		if err != nil || len(got) != 2 {
			t.Fatalf("got=%v err=%v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("calls=%d want=1", calls)
	}

	_, err := Wrap(ctx, s, "boom", time.Minute, func(context.Context) (int, error) { return 0, errors.New("down") })
	if err == nil {
		t.Fatalf("compute error should propagate")
	}
	if _, ok, _ := s.Get(ctx, "boom"); ok {
		t.Fatalf("failed compute must not be cached")
	}
}
