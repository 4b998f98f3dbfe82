package scheduler

import (
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AutoCancel holds one cancellable timer per unpaid preorder. The fire
// callback must re-check persisted state before cancelling; the timer only
// decides when to look, never whether to cancel.
type AutoCancel struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	ttl    time.Duration
	fire   func(id primitive.ObjectID)
}

func NewAutoCancel(ttl time.Duration, fire func(id primitive.ObjectID)) *AutoCancel {
	return &AutoCancel{
		timers: make(map[string]*time.Timer),
		ttl:    ttl,
		fire:   fire,
	}
}

// Schedule arms the auto-cancel timer for a freshly created preorder.
// Re-scheduling the same id resets the deadline.
func (a *AutoCancel) Schedule(id primitive.ObjectID) {
	key := id.Hex()

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.timers[key]; ok {
		existing.Stop()
	}
	a.timers[key] = time.AfterFunc(a.ttl, func() {
		a.mu.Lock()
		delete(a.timers, key)
		a.mu.Unlock()

		log.Println("[PREORDER] [INFO] auto-cancel deadline reached:", key)
		a.fire(id)
	})
}

// Stop disarms the timer, typically because the deposit was confirmed. A
// timer that already fired is a no-op here, just as a fired timer that finds
// a paid preorder is a no-op there.
func (a *AutoCancel) Stop(id primitive.ObjectID) {
	key := id.Hex()

	a.mu.Lock()
	defer a.mu.Unlock()

	if t, ok := a.timers[key]; ok {
		t.Stop()
		delete(a.timers, key)
	}
}

// Pending reports how many timers are armed.
func (a *AutoCancel) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.timers)
}
