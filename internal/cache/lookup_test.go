package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLookupGetSet(t *testing.T) {
	ctx := context.Background()
	l := NewLookup(4, time.Minute)

	if _, ok, _ := l.Get(ctx, "missing"); ok {
		t.Fatal("expected miss")
	}
	if err := l.Set(ctx, "a", []byte("1")); err != nil {
		t.Fatal(err)
	}
	v, ok, err := l.Get(ctx, "a")
	if err != nil || !ok || string(v) != "1" {
		t.Fatalf("Get(a)=%q,%v,%v", v, ok, err)
	}
	s := l.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Sets != 1 || s.Size != 1 || s.Capacity != 4 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.HitRate() != 0.5 {
		t.Fatalf("hit rate=%v", s.HitRate())
	}
}

func TestLookupEvictsOldestInsertedNotLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	l := NewLookup(2, time.Minute)
	_ = l.Set(ctx, "a", []byte("1"))
	_ = l.Set(ctx, "b", []byte("2"))

	// reading a does not protect it: eviction is by insertion order
	if _, ok, _ := l.Get(ctx, "a"); !ok {
		t.Fatal("expected a present")
	}
	_ = l.Set(ctx, "c", []byte("3"))

	if _, ok, _ := l.Get(ctx, "a"); ok {
		t.Fatal("a should have been evicted")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok, _ := l.Get(ctx, k); !ok {
			t.Fatalf("%s should be present", k)
		}
	}
	if got := l.Stats().Evictions; got != 1 {
		t.Fatalf("evictions=%d", got)
	}
}

func TestLookupResetCountsAsFreshInsertion(t *testing.T) {
	ctx := context.Background()
	l := NewLookup(2, time.Minute)
	_ = l.Set(ctx, "a", []byte("1"))
	_ = l.Set(ctx, "b", []byte("2"))
	_ = l.Set(ctx, "a", []byte("1b"))
	_ = l.Set(ctx, "c", []byte("3"))

	if _, ok, _ := l.Get(ctx, "b"); ok {
		t.Fatal("b is now the oldest insertion and should be evicted")
	}
	v, ok, _ := l.Get(ctx, "a")
	if !ok || string(v) != "1b" {
		t.Fatalf("a=%q,%v", v, ok)
	}
}

func TestLookupExpiresLazily(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var events []string
	l := NewLookup(4, 10*time.Second, WithClock(clock.Now), WithObserver(func(e string) { events = append(events, e) }))

	_ = l.Set(ctx, "a", []byte("1"))
	clock.Advance(9 * time.Second)
	if _, ok, _ := l.Get(ctx, "a"); !ok {
		t.Fatal("expected hit before expiry")
	}
	clock.Advance(time.Second)
	if _, ok, _ := l.Get(ctx, "a"); ok {
		t.Fatal("expected miss at expiry")
	}
	s := l.Stats()
	if s.Expirations != 1 || s.Size != 0 {
		t.Fatalf("unexpected stats after expiry: %+v", s)
	}
	want := []string{EventSet, EventHit, EventExpiration, EventMiss}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Fatalf("events=%v want %v", events, want)
	}
}

func TestLookupReadsAreSnapshots(t *testing.T) {
	ctx := context.Background()
	l := NewLookup(2, time.Minute)
	src := []byte("abc")
	_ = l.Set(ctx, "k", src)
	src[0] = 'X'

	v, _, _ := l.Get(ctx, "k")
	v[1] = 'Y'
	again, _, _ := l.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated: %q", again)
	}
}

func TestLookupDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	l := NewLookup(4, time.Minute)
	_ = l.Set(ctx, "a", []byte("1"))
	_ = l.Set(ctx, "b", []byte("2"))
	_ = l.Delete(ctx, "a", "nope")
	if _, ok, _ := l.Get(ctx, "a"); ok {
		t.Fatal("a should be deleted")
	}
	_ = l.Clear(ctx)
	if l.Stats().Size != 0 {
		t.Fatal("expected empty cache after clear")
	}
	// capacity still enforced after clear
	for i := 0; i < 10; i++ {
		_ = l.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"))
	}
	if got := l.Stats().Size; got != 4 {
		t.Fatalf("size=%d", got)
	}
}

func TestLookupConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	l := NewLookup(16, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%20)
			_ = l.Set(ctx, key, []byte(key))
			if v, ok, _ := l.Get(ctx, key); ok && string(v) != key {
				t.Errorf("got %q for %s", v, key)
			}
		}(i)
	}
	wg.Wait()
	if got := l.Stats().Size; got > 16 {
		t.Fatalf("size %d exceeds capacity", got)
	}
}

type point struct {
	X, Y int
}

func TestFetchReadThrough(t *testing.T) {
	ctx := context.Background()
	l := NewLookup(4, time.Minute)
	loads := 0
	load := func(context.Context) (point, bool, error) {
		loads++
		return point{X: 1, Y: 2}, true, nil
	}
	for i := 0; i < 3; i++ {
		p, ok, err := Fetch(ctx, l, "p", load)
		if err != nil || !ok || p.X != 1 || p.Y != 2 {
			t.Fatalf("Fetch=%+v,%v,%v", p, ok, err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected one load, got %d", loads)
	}
}

func TestFetchDoesNotCacheAbsenceOrErrors(t *testing.T) {
	ctx := context.Background()
	l := NewLookup(4, time.Minute)

	_, ok, err := Fetch(ctx, l, "gone", func(context.Context) (point, bool, error) { return point{}, false, nil })
	if ok || err != nil {
		t.Fatalf("absent load: ok=%v err=%v", ok, err)
	}
	boom := errors.New("boom")
	if _, _, err := Fetch(ctx, l, "err", func(context.Context) (point, bool, error) { return point{}, false, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if l.Stats().Size != 0 {
		t.Fatal("nothing should have been cached")
	}
}

func TestFetchNilStoreLoads(t *testing.T) {
	p, ok, err := Fetch(context.Background(), nil, "p", func(context.Context) (point, bool, error) {
		return point{X: 9}, true, nil
	})
	if err != nil || !ok || p.X != 9 {
		t.Fatalf("Fetch nil store=%+v,%v,%v", p, ok, err)
	}
}

type failingStore struct{ *Lookup }

func (f *failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}

func TestFetchFallsThroughOnCacheError(t *testing.T) {
	s := &failingStore{Lookup: NewLookup(2, time.Minute)}
	p, ok, err := Fetch(context.Background(), s, "p", func(context.Context) (point, bool, error) {
		return point{Y: 5}, true, nil
	})
	if err != nil || !ok || p.Y != 5 {
		t.Fatalf("Fetch=%+v,%v,%v", p, ok, err)
	}
}
