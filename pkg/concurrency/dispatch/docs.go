// Package dispatch implements the reentrant transaction dispatcher — the
// admission-control layer that bounds how many transactions may run against
// a storage environment at once.
//
// # Overview
//
// The dispatcher owns a fixed pool of permits, sized at construction. A
// regular transaction costs one permit; an exclusive transaction costs every
// permit its actor does not already hold. Acquisitions are reentrant per
// actor: an actor already holding permits may acquire more, up to the total
// capacity, without deadlocking against itself. The dispatcher only counts —
// actually honouring exclusivity (not running other work concurrently with
// an exclusive transaction) is the caller's contract.
//
// # Components
//
// [Dispatcher] is the single public entry point. Internally it coordinates:
//
//   - permitLedger — capacity, total acquired count, and per-actor permit
//     counts. Plain data guarded by the dispatcher's mutex.
//   - waiterQueue  — two ordered queues of parked waiters keyed by a shared
//     monotonic arrival counter: the regular queue, where everyone starts,
//     and the exclusive queue, holding exclusive waiters promoted out of the
//     regular line.
//
// All operations serialize on one mutex; waiters park on one broadcast
// condition variable. Every state-advancing event (release, promotion,
// ticket removal on failure) broadcasts, and every wait sits in a predicate
// loop, so spurious and thundering-herd wakes are benign.
//
// # Fairness
//
// Regular acquirers are strictly FIFO: a new arrival that finds the regular
// queue non-empty enqueues behind it even when permits are free. An
// exclusive acquirer also joins the regular queue, so its arrival order is
// respected; once it reaches the head and still cannot be granted (the
// capacity has not drained), it is promoted — moved to the exclusive queue
// under the same order key — so the regular line behind it can advance.
// Promoted exclusives are served FIFO among themselves by original arrival.
//
// # Timed acquisition
//
// [Dispatcher.TryAcquireExclusive] bounds the exclusive acquisition by a
// wall-clock budget measured from a single start timestamp. While blocked at
// the regular head it downgrades to a single-permit request instead of
// promoting when the exclusive queue is already occupied. When the budget
// expires it downgrades once more and makes a final best-effort attempt at
// one permit; only a single-permit request that still cannot be served
// returns zero.
//
// # Cleanup
//
// Any exit between enqueue and grant — context cancellation, timeout —
// removes the caller's ticket and broadcasts, so no waiter is left pointing
// at a dead head entry and no permit is leaked.
package dispatch
