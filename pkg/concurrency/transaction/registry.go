package transaction

import (
	"sync"
	"time"

	dberror "stratum/pkg/error"
	"stratum/pkg/primitives"
)

// Registry tracks every active transaction of an environment.
// It is the single source of truth for what is currently running: the
// environment consults it to refuse closing while transactions are live and
// the garbage collector uses the oldest start time to bound what it may
// reclaim.
type Registry struct {
	mutex        sync.RWMutex
	transactions map[*TransactionID]*Transaction
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transactions: make(map[*TransactionID]*Transaction),
	}
}

// Begin creates a transaction for the given actor and registers it.
func (r *Registry) Begin(actor primitives.ActorID, exclusive, gc bool) *Transaction {
	txn := New(actor, exclusive, gc)

	r.mutex.Lock()
	r.transactions[txn.ID()] = txn
	r.mutex.Unlock()

	return txn
}

// Get retrieves an active transaction by ID.
func (r *Registry) Get(tid *TransactionID) (*Transaction, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	txn, exists := r.transactions[tid]
	if !exists {
		return nil, dberror.New(dberror.ErrCategoryUser, dberror.CodeTxnNotFound,
			"transaction not found").
			WithDetail("id %s", tid).
			WithContext("Get", "Registry")
	}
	return txn, nil
}

// Remove removes a transaction from the registry. Removing an unknown
// transaction is a no-op.
func (r *Registry) Remove(tid *TransactionID) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.transactions, tid)
}

// ActiveCount returns the number of registered transactions.
func (r *Registry) ActiveCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.transactions)
}

// OldestStart returns the start time of the longest-running registered
// transaction. The second return value is false when the registry is empty.
func (r *Registry) OldestStart() (time.Time, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var oldest time.Time
	found := false
	for _, txn := range r.transactions {
		if !found || txn.StartTime().Before(oldest) {
			oldest = txn.StartTime()
			found = true
		}
	}
	return oldest, found
}

// ForEach calls fn for every registered transaction. The registry lock is
// held for the duration; fn must not call back into the registry.
func (r *Registry) ForEach(fn func(*Transaction)) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, txn := range r.transactions {
		fn(txn)
	}
}
