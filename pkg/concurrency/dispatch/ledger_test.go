package dispatch

import (
	"testing"

	dberror "stratum/pkg/error"
	"stratum/pkg/primitives"
)

// checkLedger verifies the ledger invariants: acquired within bounds,
// acquired equals the per-actor sum, and no zero entries retained.
func checkLedger(t *testing.T, l *permitLedger) {
	t.Helper()

	if l.acquired < 0 || l.acquired > l.capacity {
		t.Fatalf("acquired %d out of bounds [0, %d]", l.acquired, l.capacity)
	}

	sum := 0
	for actor, n := range l.perActor {
		if n == 0 {
			t.Fatalf("zero entry retained for %s", actor)
		}
		if n > l.capacity {
			t.Fatalf("%s holds %d > capacity %d", actor, n, l.capacity)
		}
		sum += n
	}
	if sum != l.acquired {
		t.Fatalf("acquired %d != per-actor sum %d", l.acquired, sum)
	}
}

func TestLedger_GrantDebit(t *testing.T) {
	l := newPermitLedger(3)
	actor := primitives.NewActorID()

	l.grant(actor, 2)
	checkLedger(t, &l)
	if l.held(actor) != 2 {
		t.Errorf("held = %d, want 2", l.held(actor))
	}
	if l.available() != 1 {
		t.Errorf("available = %d, want 1", l.available())
	}

	if err := l.debit(actor, 1); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	checkLedger(t, &l)
	if l.held(actor) != 1 {
		t.Errorf("held = %d, want 1", l.held(actor))
	}

	if err := l.debit(actor, 1); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	checkLedger(t, &l)
	if _, exists := l.perActor[actor]; exists {
		t.Error("entry should be dropped at zero")
	}
}

func TestLedger_HeldToAcquire(t *testing.T) {
	l := newPermitLedger(2)
	actor := primitives.NewActorID()

	tests := []struct {
		name    string
		prepare func()
		want    int
		wantErr bool
	}{
		{"no permits held", func() {}, 0, false},
		{"one permit held", func() { l.grant(actor, 1) }, 1, false},
		{"at capacity", func() { l.grant(actor, 1) }, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepare()
			got, err := l.heldToAcquire(actor)
			if tt.wantErr {
				if !dberror.HasCode(err, dberror.CodeCapacityExhausted) {
					t.Fatalf("expected CAPACITY_EXHAUSTED, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("heldToAcquire = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLedger_OverDebit(t *testing.T) {
	l := newPermitLedger(3)
	actor := primitives.NewActorID()
	l.grant(actor, 1)

	err := l.debit(actor, 2)
	if !dberror.HasCode(err, dberror.CodeOverRelease) {
		t.Fatalf("expected OVER_RELEASE, got %v", err)
	}
	// Failed debit must not change state.
	checkLedger(t, &l)
	if l.held(actor) != 1 {
		t.Errorf("held = %d after failed debit, want 1", l.held(actor))
	}
}

func TestLedger_DebitUnknownActor(t *testing.T) {
	l := newPermitLedger(3)

	err := l.debit(primitives.NewActorID(), 1)
	if !dberror.HasCode(err, dberror.CodeOverRelease) {
		t.Fatalf("expected OVER_RELEASE, got %v", err)
	}
	checkLedger(t, &l)
}

func TestLedger_MultipleActors(t *testing.T) {
	l := newPermitLedger(5)
	a := primitives.NewActorID()
	b := primitives.NewActorID()

	l.grant(a, 2)
	l.grant(b, 3)
	checkLedger(t, &l)

	if !l.full() {
		t.Error("ledger should be full")
	}
	if l.available() != 0 {
		t.Errorf("available = %d, want 0", l.available())
	}

	if err := l.debit(b, 3); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	checkLedger(t, &l)
	if l.held(a) != 2 || l.held(b) != 0 {
		t.Errorf("held a=%d b=%d, want 2 and 0", l.held(a), l.held(b))
	}
}
