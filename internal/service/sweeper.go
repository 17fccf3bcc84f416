package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pasticeri/api/internal/database"
)

const DefaultSweepInterval = 5 * time.Minute

// OverdueCompleter is satisfied by *OrderService.
type OverdueCompleter interface {
	ListOverdueOrders(ctx context.Context, now time.Time) ([]database.Order, error)
	AutoComplete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Sweeper periodically completes pending orders whose delivery time has passed.
type Sweeper struct {
	orders   OverdueCompleter
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewSweeper(orders OverdueCompleter, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{orders: orders, interval: interval, now: time.Now}
}

// SweepOnce completes every overdue order and returns how many changed.
// A failure on one order is logged and does not stop the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	overdue, err := s.orders.ListOverdueOrders(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list overdue orders: %w", err)
	}

	completed := 0
	for _, o := range overdue {
		changed, err := s.orders.AutoComplete(ctx, o.ID)
		if err != nil {
			log.Printf("WARN: auto-complete order %s: %v", o.ID, err)
			continue
		}
		if changed {
			completed++
		}
	}
	return completed, nil
}

// Start runs a sweep immediately and then every interval until Stop or ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()

	log.Printf("INFO: order sweeper started (interval %s)", s.interval)
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.running = false

	log.Println("INFO: order sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.SweepOnce(ctx)
	if err != nil {
		log.Printf("ERROR: order sweep: %v", err)
		return
	}
	if n > 0 {
		log.Printf("INFO: auto-completed %d overdue orders", n)
	}
}
