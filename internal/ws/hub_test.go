package ws

import (
	"encoding/json"
	"testing"
	"time"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, facility string) *Client {
	return &Client{
		hub:      hub,
		facility: facility,
		send:     make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, "A동")

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms["A동"] == nil {
		t.Fatal("facility room not created")
	}
	if !hub.rooms["A동"][client] {
		t.Fatal("client not registered in facility room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, "A동")

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms["A동"] != nil {
		t.Fatal("facility room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleFacility(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	clientA := mockClient(hub, "A동")
	clientB := mockClient(hub, "B동")

	hub.register <- clientA
	hub.register <- clientB
	time.Sleep(10 * time.Millisecond)

	testPayload := json.RawMessage(`{"header_id":"test-123"}`)
	hub.BroadcastToFacility("A동", Event{Type: "order_created", Payload: testPayload})

	select {
	case msg := <-clientA.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "order_created" {
			t.Errorf("expected type 'order_created', got '%s'", received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("A동 client did not receive message")
	}

	select {
	case <-clientB.send:
		t.Fatal("B동 client should not have received message for a different facility")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestCatchAllRoomReceivesEveryFacility(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	watcher := mockClient(hub, RoomAll)
	hub.register <- watcher
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToFacility("A동", Event{Type: "order_created"})
	hub.BroadcastToFacility("B동", Event{Type: "line_completed"})

	for _, want := range []string{"order_created", "line_completed"} {
		select {
		case msg := <-watcher.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if received.Type != want {
				t.Errorf("event type: got %s, want %s", received.Type, want)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("catch-all client did not receive %s", want)
		}
	}
}

func TestBroadcastToAllOnlyHitsCatchAll(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	watcher := mockClient(hub, RoomAll)
	clientA := mockClient(hub, "A동")

	hub.register <- watcher
	hub.register <- clientA
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToFacility(RoomAll, Event{Type: "order_updated"})

	select {
	case <-watcher.send:
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Fatal("catch-all client did not receive message")
	}

	select {
	case <-clientA.send:
		t.Fatal("facility client should not receive a catch-all-only event")
	case <-time.After(50 * time.Millisecond):
		// Expected
	}
}

func TestBroadcastToMultipleClientsInSameFacility(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, "구운란동")
	client2 := mockClient(hub, "구운란동")
	client3 := mockClient(hub, "구운란동")

	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToFacility("구운란동", Event{Type: "line_updated", Payload: json.RawMessage(`{"status":"COMPLETED"}`)})

	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "line_updated" {
				t.Errorf("client%d: expected type 'line_updated', got '%s'", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, "B동")
	client2 := mockClient(hub, "B동")

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms["B동"]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms["B동"]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms["B동"]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms["B동"]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms["B동"] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToUnknownFacility(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	clientA := mockClient(hub, "A동")
	hub.register <- clientA
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToFacility("관리동", Event{Type: "order_created"})

	select {
	case <-clientA.send:
		t.Fatal("client should not receive message for a different facility")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}
