package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dberror "stratum/pkg/error"
	"stratum/pkg/logging"
	"stratum/pkg/primitives"
)

// Dispatcher is a reentrant, fair admission controller for transactions
// against a shared storage environment. It owns a fixed pool of permits:
// a regular transaction costs one permit, an exclusive transaction costs
// every permit its actor does not already hold. Acquisitions under the same
// actor are reentrant — they stack instead of deadlocking.
//
// All state is guarded by a single mutex with one broadcast condition
// variable. The critical sections are a handful of map and tree operations,
// so coarse locking is cheap; correctness comes from the predicate loops
// around every wait.
type Dispatcher struct {
	mu   sync.Mutex
	cond *sync.Cond

	ledger         permitLedger
	regularQueue   *waiterQueue
	exclusiveQueue *waiterQueue
	acquireOrder   uint64

	log *slog.Logger
}

// NewDispatcher creates a dispatcher with the given total permit capacity.
func NewDispatcher(maxSimultaneousTransactions int) (*Dispatcher, error) {
	if maxSimultaneousTransactions < 1 {
		return nil, dberror.New(dberror.ErrCategoryUser, dberror.CodeInvalidCapacity,
			"maxSimultaneousTransactions < 1").
			WithDetail("got %d", maxSimultaneousTransactions).
			WithContext("NewDispatcher", "Dispatcher")
	}

	d := &Dispatcher{
		ledger:         newPermitLedger(maxSimultaneousTransactions),
		regularQueue:   newWaiterQueue(),
		exclusiveQueue: newWaiterQueue(),
		log:            logging.WithComponent("dispatcher"),
	}
	d.cond = sync.NewCond(&d.mu)
	return d, nil
}

// AvailablePermits returns the unacquired capacity at call time.
func (d *Dispatcher) AvailablePermits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ledger.available()
}

// RegularWaiterCount returns the number of waiters parked in the regular
// queue.
func (d *Dispatcher) RegularWaiterCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regularQueue.size()
}

// ExclusiveWaiterCount returns the number of promoted exclusive waiters.
func (d *Dispatcher) ExclusiveWaiterCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exclusiveQueue.size()
}

// Acquire grants one permit to the actor, blocking until one is available
// and the actor is first in line. Acquisition is reentrant with respect to
// permits the actor already holds.
//
// A caller that finds the regular queue non-empty always enqueues behind it,
// even when permits are free — arrival order is never barged.
func (d *Dispatcher) Acquire(ctx context.Context, actor primitives.ActorID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.ledger.heldToAcquire(actor); err != nil {
		return dberror.Wrap(err, dberror.CodeCapacityExhausted, "Acquire", "Dispatcher")
	}

	if d.ledger.full() || d.regularQueue.size() > 0 {
		order := d.nextOrder()
		d.regularQueue.enqueue(permitTicket{order: order, actor: actor})
		for {
			if err := d.waitLocked(ctx); err != nil {
				d.abandon(d.regularQueue, order)
				return interrupted(err, "Acquire")
			}
			if first, ok := d.regularQueue.firstOrder(); ok && first == order && !d.ledger.full() {
				break
			}
		}
		d.regularQueue.popFirst()
	}

	d.ledger.grant(actor, 1)
	return nil
}

// AcquireExclusive grants the actor every permit it does not already hold,
// blocking until the rest of the capacity drains. It returns the number of
// permits granted, which is always capacity minus the actor's prior holding.
//
// An exclusive waiter starts in the regular queue so its arrival order is
// respected. Once it reaches the head but still cannot be granted, it is
// shuffled to the exclusive queue (keeping its order key) so that regular
// traffic behind it is not blocked while it waits for a full drain.
func (d *Dispatcher) AcquireExclusive(ctx context.Context, actor primitives.ActorID) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.ledger.heldToAcquire(actor)
	if err != nil {
		return 0, dberror.Wrap(err, dberror.CodeCapacityExhausted, "AcquireExclusive", "Dispatcher")
	}
	need := d.ledger.capacity - current

	if d.ledger.acquired > d.ledger.capacity-need || d.regularQueue.size() > 0 {
		order := d.nextOrder()
		queue := d.regularQueue
		queue.enqueue(permitTicket{order: order, actor: actor})
		for {
			if err := d.waitLocked(ctx); err != nil {
				d.abandon(queue, order)
				return 0, interrupted(err, "AcquireExclusive")
			}
			if first, ok := queue.firstOrder(); !ok || first != order {
				continue
			}
			if d.ledger.acquired <= d.ledger.capacity-need {
				break
			}
			// An exclusive waiter parked at the regular head blocks everyone
			// behind it. Shuffle it to the exclusive queue, keeping its order
			// key, and let the regular line advance.
			if queue == d.regularQueue {
				d.cond.Broadcast()
				queue.popFirst()
				queue = d.exclusiveQueue
				queue.enqueue(permitTicket{order: order, actor: actor})
				d.log.Debug("exclusive waiter promoted", "actor", actor.String(), "order", order)
			}
		}
		queue.popFirst()
	}

	d.ledger.grant(actor, need)
	return need, nil
}

// TryAcquireExclusive attempts an exclusive acquisition within a wall-clock
// budget. It returns the number of permits granted: the full need on
// success, 1 if the request downgraded to a regular acquisition, or 0 if
// the budget expired without any grant.
//
// The request downgrades rather than promotes when it finds the exclusive
// queue already occupied, so timed exclusives cannot pile up behind each
// other. When the budget runs out while more than one permit is still
// needed, the request downgrades and makes a final best-effort attempt at a
// single permit before giving up.
func (d *Dispatcher) TryAcquireExclusive(ctx context.Context, actor primitives.ActorID, timeout time.Duration) (int, error) {
	started := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.ledger.heldToAcquire(actor)
	if err != nil {
		return 0, dberror.Wrap(err, dberror.CodeCapacityExhausted, "TryAcquireExclusive", "Dispatcher")
	}
	need := d.ledger.capacity - current

	if d.ledger.acquired > d.ledger.capacity-need || d.regularQueue.size() > 0 {
		order := d.nextOrder()
		queue := d.regularQueue
		queue.enqueue(permitTicket{order: order, actor: actor})
		for {
			// Budget rule: remaining is always recomputed from the single
			// started baseline, never carried across iterations.
			if remaining := timeout - time.Since(started); remaining > 0 {
				if err := d.waitTimedLocked(ctx, remaining); err != nil {
					d.abandon(queue, order)
					return 0, interrupted(err, "TryAcquireExclusive")
				}
			}

			if first, ok := queue.firstOrder(); ok && first == order {
				if d.ledger.acquired <= d.ledger.capacity-need {
					break
				}
				if need > 1 && queue == d.regularQueue {
					if d.exclusiveQueue.size() > 0 {
						// Another exclusive is already parked; settle for a
						// single permit instead of piling up behind it.
						need = 1
						d.log.Debug("exclusive request downgraded", "actor", actor.String(), "order", order)
					} else {
						queue.popFirst()
						queue = d.exclusiveQueue
						queue.enqueue(permitTicket{order: order, actor: actor})
						d.cond.Broadcast()
						d.log.Debug("exclusive waiter promoted", "actor", actor.String(), "order", order)
					}
					continue
				}
			}

			if time.Since(started) < timeout {
				continue
			}
			if need == 1 {
				d.abandon(queue, order)
				d.log.Debug("exclusive acquisition timed out", "actor", actor.String(), "order", order)
				return 0, nil
			}
			// The budget bounds the exclusive acquisition only; a single
			// permit is still attempted best-effort before giving up.
			need = 1
		}
		queue.popFirst()
	}

	d.ledger.grant(actor, need)
	return need, nil
}

// Release returns permits previously granted to the actor and wakes every
// waiter so the queues can re-evaluate.
func (d *Dispatcher) Release(actor primitives.ActorID, permits int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ledger.debit(actor, permits); err != nil {
		return dberror.Wrap(err, dberror.CodeOverRelease, "Release", "Dispatcher")
	}
	d.cond.Broadcast()
	return nil
}

// nextOrder issues the next arrival-order key. Caller must hold d.mu.
func (d *Dispatcher) nextOrder() uint64 {
	order := d.acquireOrder
	d.acquireOrder++
	return order
}

// abandon removes a parked ticket after a non-success exit and wakes the
// remaining waiters, which may now be eligible. Caller must hold d.mu.
func (d *Dispatcher) abandon(queue *waiterQueue, order uint64) {
	queue.remove(order)
	d.cond.Broadcast()
}

// waitLocked parks the caller on the condition variable until the next
// broadcast, waking early if ctx is cancelled. Caller must hold d.mu; the
// lock is released while parked and reacquired before returning.
func (d *Dispatcher) waitLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		d.mu.Lock()
		d.cond.Broadcast()
		d.mu.Unlock()
	})
	d.cond.Wait()
	stop()
	return ctx.Err()
}

// waitTimedLocked is waitLocked with an upper bound on the park time. The
// timer only broadcasts; the caller re-checks the clock itself, so a wake
// from someone else's timer is indistinguishable from a spurious one.
func (d *Dispatcher) waitTimedLocked(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.AfterFunc(timeout, func() {
		d.mu.Lock()
		d.cond.Broadcast()
		d.mu.Unlock()
	})
	stop := context.AfterFunc(ctx, func() {
		d.mu.Lock()
		d.cond.Broadcast()
		d.mu.Unlock()
	})
	d.cond.Wait()
	timer.Stop()
	stop()
	return ctx.Err()
}

// interrupted wraps a context error as a dispatcher wait interruption.
func interrupted(err error, operation string) error {
	engErr := dberror.New(dberror.ErrCategoryConcurrency, dberror.CodeWaitInterrupted,
		"wait interrupted").
		WithContext(operation, "Dispatcher")
	engErr.Cause = err
	return engErr
}
