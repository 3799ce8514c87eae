package dispatch

import (
	"testing"

	"stratum/pkg/primitives"
)

func TestWaiterQueue_FIFOByOrder(t *testing.T) {
	q := newWaiterQueue()
	a := primitives.NewActorID()
	b := primitives.NewActorID()
	c := primitives.NewActorID()

	// Insert out of order; the queue orders by key, not insertion sequence.
	q.enqueue(permitTicket{order: 7, actor: c})
	q.enqueue(permitTicket{order: 3, actor: a})
	q.enqueue(permitTicket{order: 5, actor: b})

	if q.size() != 3 {
		t.Fatalf("size = %d, want 3", q.size())
	}

	first, ok := q.firstOrder()
	if !ok || first != 3 {
		t.Fatalf("firstOrder = %d/%v, want 3", first, ok)
	}

	want := []struct {
		order uint64
		actor primitives.ActorID
	}{{3, a}, {5, b}, {7, c}}

	for _, w := range want {
		ticket, ok := q.popFirst()
		if !ok {
			t.Fatal("popFirst on non-empty queue failed")
		}
		if ticket.order != w.order || !ticket.actor.Equals(w.actor) {
			t.Errorf("popped (%d, %s), want (%d, %s)", ticket.order, ticket.actor, w.order, w.actor)
		}
	}

	if _, ok := q.popFirst(); ok {
		t.Error("popFirst on empty queue should report empty")
	}
}

func TestWaiterQueue_Empty(t *testing.T) {
	q := newWaiterQueue()
	if q.size() != 0 {
		t.Errorf("size = %d, want 0", q.size())
	}
	if _, ok := q.firstOrder(); ok {
		t.Error("firstOrder on empty queue should report empty")
	}
	if q.remove(1) {
		t.Error("remove on empty queue should report not found")
	}
}

func TestWaiterQueue_RemoveByOrder(t *testing.T) {
	q := newWaiterQueue()
	for order := uint64(0); order < 5; order++ {
		q.enqueue(permitTicket{order: order, actor: primitives.NewActorID()})
	}

	tests := []struct {
		name      string
		order     uint64
		found     bool
		wantSize  int
		wantFirst uint64
	}{
		{"remove middle", 2, true, 4, 0},
		{"remove head", 0, true, 3, 1},
		{"remove missing", 2, false, 3, 1},
		{"remove tail", 4, true, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := q.remove(tt.order); got != tt.found {
				t.Errorf("remove(%d) = %v, want %v", tt.order, got, tt.found)
			}
			if q.size() != tt.wantSize {
				t.Errorf("size = %d, want %d", q.size(), tt.wantSize)
			}
			first, _ := q.firstOrder()
			if first != tt.wantFirst {
				t.Errorf("firstOrder = %d, want %d", first, tt.wantFirst)
			}
		})
	}
}

func TestWaiterQueue_TicketMovesBetweenQueuesKeepingKey(t *testing.T) {
	regular := newWaiterQueue()
	exclusive := newWaiterQueue()
	actor := primitives.NewActorID()

	regular.enqueue(permitTicket{order: 11, actor: actor})
	ticket, ok := regular.popFirst()
	if !ok {
		t.Fatal("expected a ticket")
	}
	exclusive.enqueue(ticket)

	first, ok := exclusive.firstOrder()
	if !ok || first != 11 {
		t.Errorf("moved ticket should keep its order key, got %d/%v", first, ok)
	}
}
