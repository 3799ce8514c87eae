package logging

import (
	"log/slog"

	"stratum/pkg/primitives"
)

// WithActor creates a logger with actor context.
// Use this so every log line from an acquisition path carries the identity
// of the execution performing it.
//
// Example:
//
//	log := logging.WithActor(actor)
//	log.Debug("permit granted", "held", held)
func WithActor(actor primitives.ActorID) *slog.Logger {
	return GetLogger().With("actor", actor.String())
}

// WithTx creates a logger with transaction context.
//
// Example:
//
//	log := logging.WithTx(txn.ID().ID())
//	log.Info("transaction committed")
func WithTx(txID int64) *slog.Logger {
	return GetLogger().With("tx_id", txID)
}

// WithEnv creates a logger with environment context.
// Use this for environment lifecycle operations.
//
// Example:
//
//	log := logging.WithEnv("orders-env")
//	log.Info("environment opened")
func WithEnv(name string) *slog.Logger {
	return GetLogger().With("env", name)
}

// WithComponent creates a logger tagged with a subsystem name, e.g.
// "dispatcher" or "registry".
func WithComponent(name string) *slog.Logger {
	return GetLogger().With("component", name)
}
