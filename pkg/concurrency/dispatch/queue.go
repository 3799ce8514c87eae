package dispatch

import (
	"github.com/google/btree"

	"stratum/pkg/primitives"
)

// permitTicket records one parked waiter: the actor that is waiting and the
// order value it drew when it joined the line. Tickets exist only while the
// waiter sleeps; they are created on enqueue and destroyed on dequeue.
//
// Order values come from the dispatcher's single monotonic counter, so a
// ticket's key is unique across both queues and a ticket moved between
// queues keeps its place relative to other waiters of its class.
type permitTicket struct {
	order uint64
	actor primitives.ActorID
}

func ticketLess(a, b permitTicket) bool {
	return a.order < b.order
}

// waiterQueue is an ordered map from acquire order to waiting actor — the
// dispatcher's analogue of a navigable map. The dispatcher keeps two: one
// for regular waiters and one for exclusive waiters that have been promoted
// out of the regular line.
type waiterQueue struct {
	tree *btree.BTreeG[permitTicket]
}

func newWaiterQueue() *waiterQueue {
	return &waiterQueue{tree: btree.NewG(4, ticketLess)}
}

// enqueue inserts a ticket. Order keys are issued by a monotonic counter, so
// an insert never displaces an existing entry.
func (q *waiterQueue) enqueue(t permitTicket) {
	q.tree.ReplaceOrInsert(t)
}

// firstOrder returns the smallest order key in the queue.
func (q *waiterQueue) firstOrder() (uint64, bool) {
	t, ok := q.tree.Min()
	if !ok {
		return 0, false
	}
	return t.order, true
}

// popFirst removes and returns the ticket with the smallest order key.
func (q *waiterQueue) popFirst() (permitTicket, bool) {
	return q.tree.DeleteMin()
}

// remove deletes the ticket with the given order key, wherever it sits in
// the queue. Used when a waiter gives up (timeout, cancellation).
func (q *waiterQueue) remove(order uint64) bool {
	_, ok := q.tree.Delete(permitTicket{order: order})
	return ok
}

// size returns the number of parked waiters.
func (q *waiterQueue) size() int {
	return q.tree.Len()
}
