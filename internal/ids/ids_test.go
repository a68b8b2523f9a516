package ids

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestOrderNoFormat(t *testing.T) {
	no := OrderNo()
	if !strings.HasPrefix(no, "PO") || len(no) != 28 {
		t.Fatalf("unexpected order number %q", no)
	}
	if no != strings.ToUpper(no) {
		t.Fatalf("order number must be uppercase: %q", no)
	}
}

func TestOrderNoMonotonicWithinTimestamp(t *testing.T) {
	at := time.Now()
	a := OrderNoAt(at)
	b := OrderNoAt(at)
	if a >= b {
		t.Fatalf("expected increasing order numbers: %s >= %s", a, b)
	}
}

func TestOrderNoUniqueConcurrent(t *testing.T) {
	const n = 200
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			no := OrderNo()
			mu.Lock()
			seen[no] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("expected %d unique order numbers, got %d", n, len(seen))
	}
}
