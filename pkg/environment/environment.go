package environment

import (
	"context"
	"log/slog"

	"stratum/pkg/concurrency/dispatch"
	"stratum/pkg/concurrency/transaction"
	"stratum/pkg/config"
	dberror "stratum/pkg/error"
	"stratum/pkg/logging"
	"stratum/pkg/primitives"
)

// Environment owns the shared transaction machinery of one storage
// environment: the dispatcher that bounds concurrency, the registry of
// active transactions, and the validated configuration. One Environment
// instance is created per opened environment and passed by reference;
// nothing here is a process singleton.
type Environment struct {
	cfg        config.EnvironmentConfig
	dispatcher *dispatch.Dispatcher
	registry   *transaction.Registry
	log        *slog.Logger
}

// Open validates the configuration and builds the environment.
func Open(cfg config.EnvironmentConfig) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Log != (logging.Config{}) {
		if err := logging.Init(cfg.Log); err != nil {
			return nil, err
		}
	}

	d, err := dispatch.NewDispatcher(cfg.MaxSimultaneousTransactions)
	if err != nil {
		return nil, err
	}

	env := &Environment{
		cfg:        cfg,
		dispatcher: d,
		registry:   transaction.NewRegistry(),
		log:        logging.WithEnv(cfg.EnvName),
	}
	env.log.Info("environment opened",
		"max_simultaneous_transactions", cfg.MaxSimultaneousTransactions)
	return env, nil
}

// BeginTransaction starts a regular transaction for the actor, blocking
// until the dispatcher admits it.
func (e *Environment) BeginTransaction(ctx context.Context, actor primitives.ActorID) (*transaction.Transaction, error) {
	return e.begin(ctx, actor, false, false)
}

// BeginExclusiveTransaction starts a transaction that owns the whole
// environment, blocking until the remaining capacity drains.
func (e *Environment) BeginExclusiveTransaction(ctx context.Context, actor primitives.ActorID) (*transaction.Transaction, error) {
	return e.begin(ctx, actor, true, false)
}

// BeginGCTransaction starts a garbage-collector transaction. It tries to
// become exclusive within the configured GC timeout and settles for a
// regular permit otherwise.
func (e *Environment) BeginGCTransaction(ctx context.Context, actor primitives.ActorID) (*transaction.Transaction, error) {
	return e.begin(ctx, actor, true, true)
}

func (e *Environment) begin(ctx context.Context, actor primitives.ActorID, exclusive, gc bool) (*transaction.Transaction, error) {
	txn := e.registry.Begin(actor, exclusive, gc)
	if err := e.dispatcher.AcquireFor(ctx, txn, &e.cfg); err != nil {
		e.registry.Remove(txn.ID())
		return nil, err
	}
	logging.WithTx(txn.ID().ID()).Debug("transaction admitted",
		"actor", actor.String(), "permits", txn.AcquiredPermits(), "exclusive", txn.IsExclusive())
	return txn, nil
}

// Commit finishes the transaction successfully and returns its permits.
func (e *Environment) Commit(txn *transaction.Transaction) error {
	return e.finish(txn, transaction.TxCommitted)
}

// Abort finishes the transaction unsuccessfully and returns its permits.
func (e *Environment) Abort(txn *transaction.Transaction) error {
	return e.finish(txn, transaction.TxAborted)
}

func (e *Environment) finish(txn *transaction.Transaction, status transaction.TransactionStatus) error {
	if !txn.IsActive() {
		return dberror.New(dberror.ErrCategoryUser, dberror.CodeTxnFinished,
			"transaction already finished").
			WithDetail("id %s is %s", txn.ID(), txn.Status()).
			WithContext("finish", "Environment")
	}
	txn.SetStatus(status)
	if err := e.dispatcher.ReleaseFor(txn); err != nil {
		return err
	}
	e.registry.Remove(txn.ID())
	logging.WithTx(txn.ID().ID()).Debug("transaction finished",
		"status", status.String(), "duration", txn.Duration())
	return nil
}

// Close shuts the environment down. It refuses while transactions are
// still active.
func (e *Environment) Close() error {
	if active := e.registry.ActiveCount(); active > 0 {
		return dberror.New(dberror.ErrCategoryUser, dberror.CodeEnvBusy,
			"environment has active transactions").
			WithDetail("%d still active", active).
			WithContext("Close", "Environment")
	}
	e.log.Info("environment closed")
	return nil
}

// Dispatcher exposes the admission controller, mainly for introspection.
func (e *Environment) Dispatcher() *dispatch.Dispatcher {
	return e.dispatcher
}

// Registry exposes the active-transaction registry.
func (e *Environment) Registry() *transaction.Registry {
	return e.registry
}

// Config returns the environment's validated configuration.
func (e *Environment) Config() config.EnvironmentConfig {
	return e.cfg
}

// ActiveTransactions returns the number of transactions currently admitted.
func (e *Environment) ActiveTransactions() int {
	return e.registry.ActiveCount()
}
