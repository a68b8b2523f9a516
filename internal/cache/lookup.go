package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Lookup is a size-bounded in-memory Store. When full it evicts the oldest
// inserted entry (FIFO, reads do not refresh position). Every entry expires at
// insertion time + TTL; expiry is checked lazily on read.
type Lookup struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List // front is the oldest insertion
	now      func() time.Time
	observe  func(event string)

	hits, misses, sets, evictions, expirations int64
}

type lookupEntry struct {
	key     string
	val     []byte
	expires time.Time
}

type Option func(*Lookup)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Lookup) {
		if now != nil {
			l.now = now
		}
	}
}

// WithObserver receives every cache event (hit, miss, set, eviction, expiration).
func WithObserver(fn func(event string)) Option {
	return func(l *Lookup) { l.observe = fn }
}

func NewLookup(capacity int, ttl time.Duration, opts ...Option) *Lookup {
	if capacity <= 0 {
		capacity = 1
	}
	l := &Lookup{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lookup) Get(_ context.Context, key string) ([]byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.items[key]
	if !ok {
		l.misses++
		l.emit(EventMiss)
		return nil, false, nil
	}
	e := el.Value.(*lookupEntry)
	if !l.now().Before(e.expires) {
		l.removeElement(el)
		l.expirations++
		l.misses++
		l.emit(EventExpiration)
		l.emit(EventMiss)
		return nil, false, nil
	}
	l.hits++
	l.emit(EventHit)
	out := make([]byte, len(e.val))
	copy(out, e.val)
	return out, true, nil
}

func (l *Lookup) Set(_ context.Context, key string, val []byte) error {
	snapshot := make([]byte, len(val))
	copy(snapshot, val)

	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.items[key]; ok {
		l.removeElement(el)
	}
	for l.order.Len() >= l.capacity {
		l.removeElement(l.order.Front())
		l.evictions++
		l.emit(EventEviction)
	}
	e := &lookupEntry{key: key, val: snapshot, expires: l.now().Add(l.ttl)}
	l.items[key] = l.order.PushBack(e)
	l.sets++
	l.emit(EventSet)
	return nil
}

func (l *Lookup) Delete(_ context.Context, keys ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range keys {
		if el, ok := l.items[k]; ok {
			l.removeElement(el)
		}
	}
	return nil
}

// Clear drops every entry. Counters are kept.
func (l *Lookup) Clear(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make(map[string]*list.Element, l.capacity)
	l.order.Init()
	return nil
}

func (l *Lookup) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Backend:     "memory",
		Hits:        l.hits,
		Misses:      l.misses,
		Sets:        l.sets,
		Evictions:   l.evictions,
		Expirations: l.expirations,
		Size:        l.order.Len(),
		Capacity:    l.capacity,
		TTL:         l.ttl,
	}
}

func (l *Lookup) removeElement(el *list.Element) {
	e := l.order.Remove(el).(*lookupEntry)
	delete(l.items, e.key)
}

func (l *Lookup) emit(event string) {
	if l.observe != nil {
		l.observe(event)
	}
}
