package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fireRecorder struct {
	mu    sync.Mutex
	fired []primitive.ObjectID
}

func (r *fireRecorder) fire(id primitive.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, id)
}

func (r *fireRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestScheduleFires(t *testing.T) {
	rec := &fireRecorder{}
	ac := NewAutoCancel(10*time.Millisecond, rec.fire)
	id := primitive.NewObjectID()

	ac.Schedule(id)
	assert.Equal(t, 1, ac.Pending())

	waitFor(t, func() bool { return rec.count() == 1 })
	assert.Equal(t, 0, ac.Pending())
	assert.Equal(t, id, rec.fired[0])
}

func TestStopDisarms(t *testing.T) {
	rec := &fireRecorder{}
	ac := NewAutoCancel(30*time.Millisecond, rec.fire)
	id := primitive.NewObjectID()

	ac.Schedule(id)
	ac.Stop(id)
	assert.Equal(t, 0, ac.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestStopUnknownIDIsNoop(t *testing.T) {
	ac := NewAutoCancel(time.Minute, func(primitive.ObjectID) {})
	ac.Stop(primitive.NewObjectID())
	assert.Equal(t, 0, ac.Pending())
}

func TestRescheduleResetsDeadline(t *testing.T) {
	rec := &fireRecorder{}
	ac := NewAutoCancel(40*time.Millisecond, rec.fire)
	id := primitive.NewObjectID()

	ac.Schedule(id)
	time.Sleep(25 * time.Millisecond)
	ac.Schedule(id)
	assert.Equal(t, 1, ac.Pending())

	// the original deadline passes without firing
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	waitFor(t, func() bool { return rec.count() == 1 })
}
