package dispatch

import (
	"context"

	"stratum/pkg/concurrency/transaction"
	"stratum/pkg/config"
)

// AcquireFor admits a transaction according to its flags and records the
// granted permits on it.
//
// A transaction that was created exclusive, and is not a GC transaction,
// blocks until it owns the whole capacity. Every other exclusive request —
// GC transactions and transactions re-acquiring exclusivity during replay —
// is best-effort under the matching configured timeout: full success records
// the whole grant, a downgrade to one permit clears the transaction's
// exclusive flag, and a timeout falls through to a regular single-permit
// acquisition.
func (d *Dispatcher) AcquireFor(ctx context.Context, txn *transaction.Transaction, cfg *config.EnvironmentConfig) error {
	actor := txn.CreatingActor()

	if txn.IsExclusive() {
		isGC := txn.IsGC()
		if txn.WasCreatedExclusive() && !isGC {
			granted, err := d.AcquireExclusive(ctx, actor)
			if err != nil {
				return err
			}
			txn.SetAcquiredPermits(granted)
			return nil
		}

		timeout := cfg.TxnReplayTimeout
		if isGC {
			timeout = cfg.GCTransactionAcquireTimeout
		}
		granted, err := d.TryAcquireExclusive(ctx, actor, timeout)
		if err != nil {
			return err
		}
		if granted > 0 {
			if granted == 1 {
				txn.SetExclusive(false)
			}
			txn.SetAcquiredPermits(granted)
			return nil
		}
	}

	if err := d.Acquire(ctx, actor); err != nil {
		return err
	}
	txn.SetAcquiredPermits(1)
	return nil
}

// ReleaseFor returns every permit recorded on the transaction and zeroes
// the record.
func (d *Dispatcher) ReleaseFor(txn *transaction.Transaction) error {
	permits := txn.AcquiredPermits()
	if permits == 0 {
		return nil
	}
	if err := d.Release(txn.CreatingActor(), permits); err != nil {
		return err
	}
	txn.SetAcquiredPermits(0)
	return nil
}
