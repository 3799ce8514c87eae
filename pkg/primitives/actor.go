package primitives

import (
	"fmt"

	"github.com/google/uuid"
)

// ActorID identifies an isolated concurrent execution — a worker goroutine,
// a session, a replay job. It is the reentrancy key of the transaction
// dispatcher: permits acquired under the same ActorID stack on top of each
// other instead of deadlocking against each other.
//
// ActorID is an opaque value type. It is comparable, usable as a map key,
// and stable for the lifetime of whatever execution it names. Callers mint
// one identity per concurrent execution and thread it through every
// acquisition and release they perform.
type ActorID struct {
	id uuid.UUID
}

// NewActorID mints a fresh actor identity.
func NewActorID() ActorID {
	return ActorID{id: uuid.New()}
}

// ActorIDFromString parses an identity previously rendered with Raw.
// This is primarily used when an identity crosses a process-internal
// boundary as text (debug tooling, test fixtures).
func ActorIDFromString(s string) (ActorID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ActorID{}, fmt.Errorf("invalid actor id %q: %w", s, err)
	}
	return ActorID{id: id}, nil
}

// IsValid reports whether the identity has been minted. The zero ActorID is
// invalid and is never issued by NewActorID.
func (a ActorID) IsValid() bool {
	return a.id != uuid.Nil
}

// Raw returns the full textual form of the identity.
func (a ActorID) Raw() string {
	return a.id.String()
}

// String returns a short human-readable form used in logs.
func (a ActorID) String() string {
	return fmt.Sprintf("Actor(%s)", a.id.String()[:8])
}

// Equals checks if two actor identities name the same execution.
func (a ActorID) Equals(other ActorID) bool {
	return a.id == other.id
}
