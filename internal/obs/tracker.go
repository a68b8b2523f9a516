package obs

import (
	"sort"
	"sync"
	"time"
)

// OpStats summarizes one engine operation.
type OpStats struct {
	Op        string  `json:"op"`
	Calls     int64   `json:"calls"`
	Errors    int64   `json:"errors"`
	AvgMillis float64 `json:"avgMillis"`
	MaxMillis float64 `json:"maxMillis"`
}

type opCounters struct {
	calls  int64
	errors int64
	total  time.Duration
	max    time.Duration
}

// Tracker records per-operation call counts and latencies for diagnostics and
// forwards every observation to the prometheus histograms.
type Tracker struct {
	mu      sync.Mutex
	ops     map[string]*opCounters
	metrics *Metrics
	now     func() time.Time
}

func NewTracker(m *Metrics) *Tracker {
	return &Tracker{ops: make(map[string]*opCounters), metrics: m, now: time.Now}
}

// Start begins timing op; call the returned func with the operation's error.
func (t *Tracker) Start(op string) func(err error) {
	started := t.now()
	return func(err error) {
		t.Record(op, t.now().Sub(started), err)
	}
}

func (t *Tracker) Record(op string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.metrics.ObserveOp(op, outcome, d.Seconds())

	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.ops[op]
	if !ok {
		c = &opCounters{}
		t.ops[op] = c
	}
	c.calls++
	if err != nil {
		c.errors++
	}
	c.total += d
	if d > c.max {
		c.max = d
	}
}

// Snapshot returns stats sorted by operation name.
func (t *Tracker) Snapshot() []OpStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]OpStats, 0, len(t.ops))
	for op, c := range t.ops {
		s := OpStats{Op: op, Calls: c.calls, Errors: c.errors, MaxMillis: millis(c.max)}
		if c.calls > 0 {
			s.AvgMillis = millis(c.total) / float64(c.calls)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Op < out[j].Op })
	return out
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	t.ops = make(map[string]*opCounters)
	t.mu.Unlock()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
