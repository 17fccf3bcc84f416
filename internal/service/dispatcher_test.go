package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/enum"
	"github.com/pasticeri/api/internal/mail"
)

// mockOutboxStore implements OutboxStore with configurable behavior.
type mockOutboxStore struct {
	claimFn func(ctx context.Context, batchSize int32) ([]database.NotificationOutbox, error)

	sent    []int64
	retried []database.MarkOutboxRetryParams
	failed  []database.MarkOutboxFailedParams
}

func (m *mockOutboxStore) ClaimOutboxMessages(ctx context.Context, batchSize int32) ([]database.NotificationOutbox, error) {
	return m.claimFn(ctx, batchSize)
}
func (m *mockOutboxStore) MarkOutboxSent(ctx context.Context, id int64) error {
	m.sent = append(m.sent, id)
	return nil
}
func (m *mockOutboxStore) MarkOutboxRetry(ctx context.Context, arg database.MarkOutboxRetryParams) error {
	m.retried = append(m.retried, arg)
	return nil
}
func (m *mockOutboxStore) MarkOutboxFailed(ctx context.Context, arg database.MarkOutboxFailedParams) error {
	m.failed = append(m.failed, arg)
	return nil
}

// fakeSender fails for recipients listed in failFor.
type fakeSender struct {
	failFor  map[string]bool
	messages map[string]mail.Message
}

func (f *fakeSender) Send(_ context.Context, to string, msg mail.Message) error {
	if f.failFor[to] {
		return errors.New("421 service not available")
	}
	if f.messages == nil {
		f.messages = make(map[string]mail.Message)
	}
	f.messages[to] = msg
	return nil
}

func outboxRow(t *testing.T, id int64, kind, to string, attempts int32) database.NotificationOutbox {
	t.Helper()
	payload, err := json.Marshal(mail.Payload{Order: &mail.OrderView{
		ID:              "o-1",
		CustomerName:    "Anna",
		CustomerEmail:   "anna@example.com",
		ProductName:     "Croissant",
		NumberOfPersons: 2,
		OrderType:       enum.OrderTypeMenu,
		OrderDate:       "2025-06-12",
		TotalPrice:      "7.00",
		Status:          enum.OrderStatusPending,
	}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return database.NotificationOutbox{ID: id, Kind: kind, Recipient: to, Payload: payload, Attempts: attempts}
}

func newTestDispatcher(t *testing.T, store OutboxStore, sender mail.Sender) *Dispatcher {
	t.Helper()
	renderer, err := mail.NewRenderer("https://bakery.example")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return NewDispatcher(store, renderer, sender, DispatcherConfig{BatchSize: 10, MaxAttempts: 3})
}

func TestDispatchOnce(t *testing.T) {
	store := &mockOutboxStore{}
	store.claimFn = func(ctx context.Context, batchSize int32) ([]database.NotificationOutbox, error) {
		if batchSize != 10 {
			t.Errorf("expected batch size 10, got %d", batchSize)
		}
		return []database.NotificationOutbox{
			outboxRow(t, 1, enum.NotificationConfirmation, "anna@example.com", 0),
			outboxRow(t, 2, enum.NotificationAdminNewOrder, "down@example.com", 0),
			outboxRow(t, 3, enum.NotificationCancelled, "flaky@example.com", 2),
			{ID: 4, Kind: enum.NotificationPriceSet, Recipient: "anna@example.com", Payload: []byte("{not json")},
			{ID: 5, Kind: "birthday", Recipient: "anna@example.com", Payload: []byte(`{"order":{"id":"x"}}`)},
		}, nil
	}
	sender := &fakeSender{failFor: map[string]bool{"down@example.com": true, "flaky@example.com": true}}
	d := newTestDispatcher(t, store, sender)

	sent, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 1 {
		t.Errorf("expected 1 sent, got %d", sent)
	}

	if len(store.sent) != 1 || store.sent[0] != 1 {
		t.Errorf("expected message 1 marked sent, got %v", store.sent)
	}
	msg, ok := sender.messages["anna@example.com"]
	if !ok || !strings.Contains(msg.HTML, "Croissant") || msg.Subject != "Your order confirmation" {
		t.Errorf("unexpected message: %+v", msg)
	}

	// Send failure under the attempt limit is retried.
	if len(store.retried) != 1 || store.retried[0].ID != 2 || !store.retried[0].LastError.Valid {
		t.Errorf("expected message 2 scheduled for retry, got %+v", store.retried)
	}

	// Message 3 reached the limit; 4 and 5 can never render.
	failedIDs := map[int64]bool{}
	for _, f := range store.failed {
		failedIDs[f.ID] = true
	}
	if len(store.failed) != 3 || !failedIDs[3] || !failedIDs[4] || !failedIDs[5] {
		t.Errorf("expected messages 3, 4 and 5 failed, got %+v", store.failed)
	}
}

func TestDispatchOnce_PasswordReset(t *testing.T) {
	payload, _ := json.Marshal(mail.Payload{ResetLink: "https://bakery.example/reset-password?token=abc"})
	store := &mockOutboxStore{
		claimFn: func(ctx context.Context, batchSize int32) ([]database.NotificationOutbox, error) {
			return []database.NotificationOutbox{{ID: 9, Kind: enum.NotificationPasswordReset, Recipient: "anna@example.com", Payload: payload}}, nil
		},
	}
	sender := &fakeSender{}
	d := newTestDispatcher(t, store, sender)

	if sent, err := d.DispatchOnce(context.Background()); err != nil || sent != 1 {
		t.Fatalf("sent=%d err=%v", sent, err)
	}
	if !strings.Contains(sender.messages["anna@example.com"].HTML, "token=abc") {
		t.Error("reset link missing from email body")
	}
}

func TestDispatchOnce_ClaimError(t *testing.T) {
	store := &mockOutboxStore{
		claimFn: func(ctx context.Context, batchSize int32) ([]database.NotificationOutbox, error) {
			return nil, errors.New("db down")
		},
	}
	d := newTestDispatcher(t, store, &fakeSender{})

	if _, err := d.DispatchOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewDispatcher_Defaults(t *testing.T) {
	d := NewDispatcher(&mockOutboxStore{}, nil, &fakeSender{}, DispatcherConfig{})
	if d.cfg.BatchSize != 20 || d.cfg.MaxAttempts != 5 || d.cfg.PollInterval <= 0 {
		t.Errorf("unexpected defaults: %+v", d.cfg)
	}
}
