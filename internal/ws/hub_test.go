package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pasticeri/api/internal/auth"
	"github.com/pasticeri/api/internal/enum"
	"github.com/pasticeri/api/internal/events"
)

const testSecret = "test-secret"

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, room string) *Client {
	return &Client{
		hub:  hub,
		room: room,
		send: make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub
}

func orderEvent(email, status string) events.OrderEvent {
	return events.OrderEvent{
		Type:       enum.EventOrderUpdated,
		OccurredAt: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
		Order: events.OrderSnapshot{
			ID:            uuid.New(),
			CustomerName:  "Anna",
			CustomerEmail: email,
			ProductName:   "Croissant",
			Status:        status,
			TotalPrice:    "7.00",
			Version:       2,
		},
	}
}

func receive(t *testing.T, c *Client) events.OrderEvent {
	t.Helper()
	select {
	case msg := <-c.send:
		var got events.OrderEvent
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		return got
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("client in %s did not receive message", c.room)
	}
	return events.OrderEvent{}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.send:
		t.Fatalf("client in %s should not have received a message", c.room)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCustomerRoom(t *testing.T) {
	if got := CustomerRoom("  Anna@Example.COM "); got != "customer:anna@example.com" {
		t.Errorf("unexpected room %q", got)
	}
}

func TestRoomFor(t *testing.T) {
	admin := &auth.Claims{Email: "owner@bakery.example", Role: enum.UserRoleAdmin}
	user := &auth.Claims{Email: "Anna@example.com", Role: enum.UserRoleUser}

	if got := RoomFor(admin); got != AdminRoom {
		t.Errorf("admin room = %q", got)
	}
	if got := RoomFor(user); got != CustomerRoom("anna@example.com") {
		t.Errorf("user room = %q", got)
	}
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, AdminRoom)

	if !hub.join(client) {
		t.Fatal("join failed on running hub")
	}
	time.Sleep(10 * time.Millisecond)

	if n := hub.ClientCount(AdminRoom); n != 1 {
		t.Fatalf("expected 1 client in admin room, got %d", n)
	}
}

func TestHubUnregistrationCleansRoom(t *testing.T) {
	hub := startHub(t)
	room := CustomerRoom("anna@example.com")
	client := mockClient(hub, room)

	hub.join(client)
	hub.leave(client)
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[room] != nil {
		t.Fatal("room not cleaned up after last client left")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed")
	}
}

func TestPublish_RoutesToAdminAndOwner(t *testing.T) {
	hub := startHub(t)

	admin1 := mockClient(hub, AdminRoom)
	admin2 := mockClient(hub, AdminRoom)
	owner := mockClient(hub, CustomerRoom("anna@example.com"))
	stranger := mockClient(hub, CustomerRoom("bob@example.com"))
	for _, c := range []*Client{admin1, admin2, owner, stranger} {
		hub.join(c)
	}

	event := orderEvent("Anna@Example.com", enum.OrderStatusCanceled)
	hub.Publish(context.Background(), event)

	for _, c := range []*Client{admin1, admin2, owner} {
		got := receive(t, c)
		if got.Type != enum.EventOrderUpdated {
			t.Errorf("expected type %s, got %s", enum.EventOrderUpdated, got.Type)
		}
		if got.Order.ID != event.Order.ID || got.Order.Status != enum.OrderStatusCanceled {
			t.Errorf("unexpected order in event: %+v", got.Order)
		}
	}
	expectSilence(t, stranger)
}

func TestPublish_NoSubscribers(t *testing.T) {
	hub := startHub(t)
	// Should not panic or block
	hub.Publish(context.Background(), orderEvent("nobody@example.com", enum.OrderStatusPending))
	time.Sleep(10 * time.Millisecond)
}

func TestPublish_DropsSlowClient(t *testing.T) {
	hub := startHub(t)
	slow := &Client{hub: hub, room: AdminRoom, send: make(chan []byte)} // unbuffered, never read
	hub.join(slow)

	hub.Publish(context.Background(), orderEvent("anna@example.com", enum.OrderStatusPending))
	time.Sleep(20 * time.Millisecond)

	if n := hub.ClientCount(AdminRoom); n != 0 {
		t.Fatalf("slow client should be dropped, room has %d", n)
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	client := mockClient(hub, AdminRoom)
	hub.join(client)
	cancel()
	<-hub.done

	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed on shutdown")
	}
	if hub.join(mockClient(hub, AdminRoom)) {
		t.Fatal("join should fail after shutdown")
	}
	hub.leave(client) // must not block
}

func TestServeWS_Auth(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, testSecret, w, r)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws/orders")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/ws/orders?token=garbage")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", resp.StatusCode)
	}
}

func TestServeWS_CustomerReceivesOwnOrders(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, testSecret, w, r)
	}))
	defer srv.Close()

	token, err := auth.GenerateToken(testSecret, uuid.New(), "anna@example.com", enum.UserRoleUser)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	room := CustomerRoom("anna@example.com")
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount(room) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	event := orderEvent("anna@example.com", enum.OrderStatusPending)
	hub.Publish(context.Background(), event)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got events.OrderEvent
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Order.ID != event.Order.ID {
		t.Errorf("unexpected order %s", got.Order.ID)
	}
}
