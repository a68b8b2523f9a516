package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const orderNoPrefix = "PO"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// OrderNo returns a globally unique, uppercase order number built from the
// current timestamp and monotonic randomness, e.g. PO01J9Z3K8Q2W4X5Y6Z7A8B9C0D.
func OrderNo() string {
	return OrderNoAt(time.Now())
}

func OrderNoAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return orderNoPrefix + ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// New returns a random identifier for stored records.
func New() string {
	return uuid.NewString()
}
