package dispatch

import (
	dberror "stratum/pkg/error"
	"stratum/pkg/primitives"
)

// permitLedger is the dispatcher's accounting: total capacity, how much of
// it is currently acquired, and how many permits each actor holds. It has no
// locking of its own; every method is called under the dispatcher's mutex.
//
// Invariants (checked by tests after every operation):
//   - 0 <= acquired <= capacity
//   - acquired equals the sum of all perActor values
//   - no perActor entry is zero
type permitLedger struct {
	capacity int
	acquired int
	perActor map[primitives.ActorID]int
}

func newPermitLedger(capacity int) permitLedger {
	return permitLedger{
		capacity: capacity,
		perActor: make(map[primitives.ActorID]int),
	}
}

// held returns the number of permits the actor currently holds.
func (l *permitLedger) held(actor primitives.ActorID) int {
	return l.perActor[actor]
}

// heldToAcquire returns the actor's current permit count, failing if the
// actor already holds the entire capacity and so cannot acquire more.
func (l *permitLedger) heldToAcquire(actor primitives.ActorID) (int, error) {
	current := l.perActor[actor]
	if current == l.capacity {
		return 0, dberror.New(dberror.ErrCategoryUser, dberror.CodeCapacityExhausted,
			"no more permits are available to acquire a transaction").
			WithDetail("%s holds %d of %d", actor, current, l.capacity)
	}
	return current, nil
}

// grant credits n permits to the actor.
func (l *permitLedger) grant(actor primitives.ActorID, n int) {
	l.acquired += n
	l.perActor[actor] += n
}

// debit removes n permits from the actor, failing if the actor does not
// hold that many. The actor's entry is dropped when it reaches zero.
func (l *permitLedger) debit(actor primitives.ActorID, n int) error {
	current := l.perActor[actor]
	if n > current {
		return dberror.New(dberror.ErrCategoryUser, dberror.CodeOverRelease,
			"can't release more permits than were acquired").
			WithDetail("%s holds %d, tried to release %d", actor, current, n)
	}
	l.acquired -= n
	current -= n
	if current == 0 {
		delete(l.perActor, actor)
	} else {
		l.perActor[actor] = current
	}
	return nil
}

// available returns the unacquired capacity.
func (l *permitLedger) available() int {
	return l.capacity - l.acquired
}

// full reports whether every permit is acquired.
func (l *permitLedger) full() bool {
	return l.acquired == l.capacity
}
