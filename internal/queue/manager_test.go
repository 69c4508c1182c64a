package queue

import (
	"sync"
	"testing"
	"time"
)

func TestEnqueueDispatchesWithinQueueAndGlobalCap(t *testing.T) {
	var mu sync.Mutex
	var dispatched []string
	m := NewManager(nil, 3, func(item *Item) {
		mu.Lock()
		dispatched = append(dispatched, item.ID)
		mu.Unlock()
	})
	m.AddQueue("Q1", 2)
	m.AddQueue("Q2", 2)

	for i := 0; i < 3; i++ {
		m.Enqueue(&Item{ID: itemID("q1", i), QueueName: "Q1", CreatedAt: time.Now()})
	}
	for i := 0; i < 2; i++ {
		m.Enqueue(&Item{ID: itemID("q2", i), QueueName: "Q2", CreatedAt: time.Now()})
	}

	mu.Lock()
	got := len(dispatched)
	mu.Unlock()
	if got != 3 {
		t.Fatalf("expected exactly 3 dispatched items (global cap), got %d", got)
	}

	inFlightQ1, pendingQ1, _ := m.Snapshot("Q1")
	inFlightQ2, pendingQ2, _ := m.Snapshot("Q2")
	if inFlightQ1 != 2 || pendingQ1 != 1 {
		t.Errorf("Q1: want inFlight=2 pending=1, got inFlight=%d pending=%d", inFlightQ1, pendingQ1)
	}
	if inFlightQ2 != 1 || pendingQ2 != 1 {
		t.Errorf("Q2: want inFlight=1 pending=1, got inFlight=%d pending=%d", inFlightQ2, pendingQ2)
	}
}

func TestOnItemCompleteFreesSlotAndRedispatches(t *testing.T) {
	var dispatchCount int
	var mu sync.Mutex
	var lastDispatched *Item
	m := NewManager(nil, 1, func(item *Item) {
		mu.Lock()
		dispatchCount++
		lastDispatched = item
		mu.Unlock()
	})

	m.Enqueue(&Item{ID: "a", QueueName: MainQueue, CreatedAt: time.Now()})
	m.Enqueue(&Item{ID: "b", QueueName: MainQueue, CreatedAt: time.Now().Add(time.Second)})

	mu.Lock()
	if dispatchCount != 1 || lastDispatched.ID != "a" {
		mu.Unlock()
		t.Fatalf("expected only item a dispatched under global cap 1, got count=%d last=%v", dispatchCount, lastDispatched)
	}
	mu.Unlock()

	m.OnItemComplete(&Item{ID: "a", QueueName: MainQueue})

	mu.Lock()
	defer mu.Unlock()
	if dispatchCount != 2 || lastDispatched.ID != "b" {
		t.Errorf("expected item b dispatched after a completes, got count=%d last=%v", dispatchCount, lastDispatched)
	}
}

func TestDispatchOrderIsQueuePositionThenCreationTime(t *testing.T) {
	var order []string
	var mu sync.Mutex
	m := NewManager(nil, 10, func(item *Item) {
		mu.Lock()
		order = append(order, item.ID)
		mu.Unlock()
	})
	m.StopQueue(MainQueue)

	base := time.Now()
	m.Enqueue(&Item{ID: "second", QueueName: MainQueue, QueuePosition: 2, CreatedAt: base})
	m.Enqueue(&Item{ID: "first", QueueName: MainQueue, QueuePosition: 1, CreatedAt: base.Add(time.Minute)})

	m.StartQueue(MainQueue)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected dispatch order [first second], got %v", order)
	}
}

func TestMainQueueCannotBeRemoved(t *testing.T) {
	m := NewManager(nil, 3, func(*Item) {})
	if err := m.RemoveQueue(MainQueue); err != ErrMainQueueProtected {
		t.Errorf("expected ErrMainQueueProtected, got %v", err)
	}
}

func TestIneligibleItemsAreSkippedNotDispatched(t *testing.T) {
	var dispatched []string
	m := NewManager(nil, 10, func(item *Item) {
		dispatched = append(dispatched, item.ID)
	})
	m.StopQueue(MainQueue)
	m.Enqueue(&Item{ID: "completed", QueueName: MainQueue, CreatedAt: time.Now()})
	m.queues[MainQueue].pending[0].Status = StatusCompleted
	m.Enqueue(&Item{ID: "pending", QueueName: MainQueue, CreatedAt: time.Now()})

	m.StartQueue(MainQueue)

	if len(dispatched) != 1 || dispatched[0] != "pending" {
		t.Errorf("expected only the pending item dispatched, got %v", dispatched)
	}
}

func TestSetHostLimitCapsConcurrentItemsFromSameHost(t *testing.T) {
	var mu sync.Mutex
	var dispatched []string
	m := NewManager(nil, 10, func(item *Item) {
		mu.Lock()
		dispatched = append(dispatched, item.ID)
		mu.Unlock()
	})
	m.StopQueue(MainQueue)
	if err := m.SetHostLimit(MainQueue, "cdn.example.com", 1); err != nil {
		t.Fatalf("SetHostLimit: %v", err)
	}
	for i := 0; i < 3; i++ {
		m.Enqueue(&Item{ID: itemID("cdn", i), QueueName: MainQueue, Host: "cdn.example.com", CreatedAt: time.Now()})
	}
	m.StartQueue(MainQueue)

	mu.Lock()
	got := len(dispatched)
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected exactly 1 item dispatched under a per-host limit of 1, got %d", got)
	}

	m.OnItemComplete(&Item{ID: dispatched[0], QueueName: MainQueue, Host: "cdn.example.com"})

	mu.Lock()
	got = len(dispatched)
	mu.Unlock()
	if got != 2 {
		t.Fatalf("expected a second item to dispatch once the host slot freed, got %d", got)
	}
}

func itemID(prefix string, i int) string {
	return prefix + "-" + string(rune('a'+i))
}
