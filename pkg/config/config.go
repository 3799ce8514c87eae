package config

import (
	"time"

	dberror "stratum/pkg/error"
	"stratum/pkg/logging"
)

// Default dispatcher settings. The capacity default bounds how many
// transactions may run against one environment at once; the timeouts bound
// how long best-effort exclusive acquisitions wait before settling for less.
const (
	DefaultMaxSimultaneousTransactions = 20
	DefaultGCTransactionAcquireTimeout = 1 * time.Second
	DefaultTxnReplayTimeout            = 2 * time.Second
)

// EnvironmentConfig holds the tunable settings of a storage environment.
// Values are plain Go data; the environment validates them once at Open and
// treats them as immutable afterwards.
type EnvironmentConfig struct {
	// EnvName names the environment in logs.
	EnvName string

	// MaxSimultaneousTransactions is the dispatcher's total permit capacity.
	// Must be at least 1.
	MaxSimultaneousTransactions int

	// GCTransactionAcquireTimeout is the wall-clock budget a garbage-collector
	// transaction spends trying to become exclusive before it settles for a
	// regular permit.
	GCTransactionAcquireTimeout time.Duration

	// TxnReplayTimeout is the wall-clock budget a replaying transaction
	// spends trying to re-acquire exclusivity before it downgrades.
	TxnReplayTimeout time.Duration

	// Log configures the process-wide logger; zero value means stderr text
	// logging at INFO.
	Log logging.Config
}

// DefaultConfig returns a configuration with production defaults.
func DefaultConfig() EnvironmentConfig {
	return EnvironmentConfig{
		EnvName:                     "stratum",
		MaxSimultaneousTransactions: DefaultMaxSimultaneousTransactions,
		GCTransactionAcquireTimeout: DefaultGCTransactionAcquireTimeout,
		TxnReplayTimeout:            DefaultTxnReplayTimeout,
	}
}

// Validate checks the configuration for values the environment cannot run
// with. It returns the first problem found.
func (c *EnvironmentConfig) Validate() error {
	if c.MaxSimultaneousTransactions < 1 {
		return dberror.New(dberror.ErrCategoryUser, dberror.CodeInvalidCapacity,
			"maxSimultaneousTransactions < 1").
			WithDetail("got %d", c.MaxSimultaneousTransactions).
			WithContext("Validate", "EnvironmentConfig")
	}
	if c.GCTransactionAcquireTimeout < 0 {
		return dberror.New(dberror.ErrCategoryUser, dberror.CodeInvalidCapacity,
			"gcTransactionAcquireTimeout must not be negative").
			WithDetail("got %v", c.GCTransactionAcquireTimeout).
			WithContext("Validate", "EnvironmentConfig")
	}
	if c.TxnReplayTimeout < 0 {
		return dberror.New(dberror.ErrCategoryUser, dberror.CodeInvalidCapacity,
			"txnReplayTimeout must not be negative").
			WithDetail("got %v", c.TxnReplayTimeout).
			WithContext("Validate", "EnvironmentConfig")
	}
	return nil
}
