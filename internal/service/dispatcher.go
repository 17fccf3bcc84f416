package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/mail"
)

// OutboxStore defines the DB methods needed to deliver queued notifications.
// Satisfied by *database.Queries.
type OutboxStore interface {
	ClaimOutboxMessages(ctx context.Context, batchSize int32) ([]database.NotificationOutbox, error)
	MarkOutboxSent(ctx context.Context, id int64) error
	MarkOutboxRetry(ctx context.Context, arg database.MarkOutboxRetryParams) error
	MarkOutboxFailed(ctx context.Context, arg database.MarkOutboxFailedParams) error
}

// MessageRenderer is satisfied by *mail.Renderer.
type MessageRenderer interface {
	Render(kind string, p mail.Payload) (mail.Message, error)
}

type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Dispatcher delivers outbox notifications by email.
type Dispatcher struct {
	store    OutboxStore
	renderer MessageRenderer
	sender   mail.Sender
	cfg      DispatcherConfig

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewDispatcher(store OutboxStore, renderer MessageRenderer, sender mail.Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Dispatcher{store: store, renderer: renderer, sender: sender, cfg: cfg}
}

// DispatchOnce claims one batch and returns how many messages were sent.
// Each message is handled independently.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	messages, err := d.store.ClaimOutboxMessages(ctx, int32(d.cfg.BatchSize))
	if err != nil {
		return 0, fmt.Errorf("claim outbox messages: %w", err)
	}

	sent := 0
	for _, msg := range messages {
		if err := d.deliver(ctx, msg); err != nil {
			log.Printf("WARN: notification %d (%s to %s): %v", msg.ID, msg.Kind, msg.Recipient, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg database.NotificationOutbox) error {
	var payload mail.Payload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return d.fail(ctx, msg, fmt.Errorf("decode payload: %w", err))
	}

	rendered, err := d.renderer.Render(msg.Kind, payload)
	if err != nil {
		return d.fail(ctx, msg, err)
	}

	if err := d.sender.Send(ctx, msg.Recipient, rendered); err != nil {
		if int(msg.Attempts)+1 >= d.cfg.MaxAttempts {
			return d.fail(ctx, msg, fmt.Errorf("giving up after %d attempts: %w", msg.Attempts+1, err))
		}
		if markErr := d.store.MarkOutboxRetry(ctx, database.MarkOutboxRetryParams{
			ID:        msg.ID,
			LastError: pgtype.Text{String: err.Error(), Valid: true},
		}); markErr != nil {
			log.Printf("ERROR: mark notification %d for retry: %v", msg.ID, markErr)
		}
		return err
	}

	if err := d.store.MarkOutboxSent(ctx, msg.ID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// fail marks msg as permanently failed and returns cause.
func (d *Dispatcher) fail(ctx context.Context, msg database.NotificationOutbox, cause error) error {
	if err := d.store.MarkOutboxFailed(ctx, database.MarkOutboxFailedParams{
		ID:        msg.ID,
		LastError: pgtype.Text{String: cause.Error(), Valid: true},
	}); err != nil {
		log.Printf("ERROR: mark notification %d failed: %v", msg.ID, err)
	}
	return cause
}

// Start polls the outbox every PollInterval until Stop or ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.running = true

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop(ctx)
	}()

	log.Printf("INFO: notification dispatcher started (interval %s, batch %d)", d.cfg.PollInterval, d.cfg.BatchSize)
}

func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	d.cancel()
	d.wg.Wait()
	d.running = false

	log.Println("INFO: notification dispatcher stopped")
}

func (d *Dispatcher) loop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				log.Printf("ERROR: notification dispatch: %v", err)
			}
		}
	}
}
