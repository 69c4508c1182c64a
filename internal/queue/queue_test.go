package queue

import (
	"testing"
	"time"
)

func TestQueueSortOrdersByPositionThenCreation(t *testing.T) {
	q := newQueue("t", 3)
	base := time.Now()
	q.push(&Item{ID: "b", QueuePosition: 1, CreatedAt: base.Add(time.Second)})
	q.push(&Item{ID: "a", QueuePosition: 1, CreatedAt: base})
	q.push(&Item{ID: "c", QueuePosition: 2, CreatedAt: base})

	if q.pending[0].ID != "a" || q.pending[1].ID != "b" || q.pending[2].ID != "c" {
		t.Fatalf("unexpected order: %v %v %v", q.pending[0].ID, q.pending[1].ID, q.pending[2].ID)
	}
}

func TestTakeEligibleLeavesIneligibleInPlace(t *testing.T) {
	q := newQueue("t", 3)
	q.push(&Item{ID: "paused", QueuePosition: 1, Status: StatusPaused})
	q.push(&Item{ID: "pending", QueuePosition: 2, Status: StatusPending})

	taken := q.takeEligible(5)
	if len(taken) != 1 || taken[0].ID != "pending" {
		t.Fatalf("expected only the pending item taken, got %v", taken)
	}
	if len(q.pending) != 1 || q.pending[0].ID != "paused" {
		t.Fatalf("expected the paused item to remain queued, got %v", q.pending)
	}
}

func TestMoveToFirstAndRenumber(t *testing.T) {
	q := newQueue("t", 3)
	q.push(&Item{ID: "a", QueuePosition: 1})
	q.push(&Item{ID: "b", QueuePosition: 2})
	q.push(&Item{ID: "c", QueuePosition: 3})

	if !q.moveToFirst("c") {
		t.Fatalf("expected moveToFirst to succeed")
	}
	if q.pending[0].ID != "c" || q.pending[0].QueuePosition != 1 {
		t.Errorf("expected c first with position 1, got %v at %d", q.pending[0].ID, q.pending[0].QueuePosition)
	}
	if q.pending[1].QueuePosition != 2 || q.pending[2].QueuePosition != 3 {
		t.Errorf("expected renumbered sequential positions, got %d %d", q.pending[1].QueuePosition, q.pending[2].QueuePosition)
	}
}

func TestMoveToNextAndPrev(t *testing.T) {
	q := newQueue("t", 3)
	q.push(&Item{ID: "a", QueuePosition: 1})
	q.push(&Item{ID: "b", QueuePosition: 2})

	if !q.moveToNext("a") {
		t.Fatalf("expected moveToNext to succeed")
	}
	if q.pending[0].ID != "b" {
		t.Errorf("expected b first after moving a next, got %v", q.pending[0].ID)
	}

	if !q.moveToPrev("a") {
		t.Fatalf("expected moveToPrev to succeed")
	}
	if q.pending[0].ID != "a" {
		t.Errorf("expected a first after moving it back, got %v", q.pending[0].ID)
	}
}

func TestNextPositionIsOneMoreThanMax(t *testing.T) {
	q := newQueue("t", 3)
	if q.nextPosition() != 1 {
		t.Errorf("expected first position to be 1, got %d", q.nextPosition())
	}
	q.push(&Item{ID: "a", QueuePosition: 5})
	if q.nextPosition() != 6 {
		t.Errorf("expected next position 6, got %d", q.nextPosition())
	}
}
