// internal/eventhub/hub_test.go
package eventhub

import "testing"

func TestHubSubscribeEmit(t *testing.T) {
	hub := New()

	var received []Event
	hub.Subscribe(func(e Event) {
		received = append(received, e)
	})

	hub.EmitVersionsChanged([]string{"v1", "v2"})
	hub.EmitBranchesChanged(nil)

	if len(received) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(received))
	}
	if received[0].Type != EventVersionsChanged {
		t.Errorf("Expected %s, got %s", EventVersionsChanged, received[0].Type)
	}
	if received[1].Type != EventBranchesChanged {
		t.Errorf("Expected %s, got %s", EventBranchesChanged, received[1].Type)
	}
}

func TestHubMultipleSubscribers(t *testing.T) {
	hub := New()

	count1, count2 := 0, 0
	hub.Subscribe(func(Event) { count1++ })
	hub.Subscribe(func(Event) { count2++ })

	hub.Emit(EventVersionsChanged, nil)

	if count1 != 1 || count2 != 1 {
		t.Errorf("Expected both subscribers notified, got %d and %d", count1, count2)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := New()

	count := 0
	unsubscribe := hub.Subscribe(func(Event) { count++ })

	hub.Emit(EventVersionsChanged, nil)
	unsubscribe()
	hub.Emit(EventVersionsChanged, nil)

	if count != 1 {
		t.Errorf("Expected 1 delivery after unsubscribe, got %d", count)
	}

	// Unsubscribing twice is harmless
	unsubscribe()
}
