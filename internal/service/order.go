package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/enum"
	"github.com/pasticeri/api/internal/events"
	"github.com/pasticeri/api/internal/mail"
	"github.com/pasticeri/api/internal/storage"
	"github.com/shopspring/decimal"
)

const (
	maxTransitionRetries = 3

	defaultListLimit  = 50
	maxListLimit      = 200
	defaultCustomName = "Custom cake"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OutboxWriter enqueues notifications. Satisfied by *database.Queries.
type OutboxWriter interface {
	CreateOutboxMessage(ctx context.Context, arg database.CreateOutboxMessageParams) (database.NotificationOutbox, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	ProductReader
	OutboxWriter
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderPrice(ctx context.Context, arg database.UpdateOrderPriceParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrdersByCustomerEmail(ctx context.Context, email string) ([]database.Order, error)
	ListOverdueMenuOrders(ctx context.Context, cutoff time.Time) ([]database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

type Customer struct {
	Name  string
	Email string
	Phone string
}

type PlaceMenuOrderRequest struct {
	Customer         Customer
	ProductID        string
	Quantity         int32
	DeliveryDateTime string // RFC3339 or local "2006-01-02T15:04"
}

type CartItem struct {
	ProductID string
	Quantity  int32
}

type PlaceCartOrderRequest struct {
	Customer         Customer
	Items            []CartItem
	DeliveryDateTime string
}

// ImageUpload is a reference image attached to a custom order.
type ImageUpload struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

type PlaceCustomOrderRequest struct {
	Customer         Customer
	ProductName      string
	NumberOfPersons  int32
	Note             string
	Flavour          string
	OrderDate        string // 2006-01-02, defaults to today
	DeliveryDateTime string
	Images           []ImageUpload
}

type ListOrdersFilter struct {
	Status    string
	OrderType string
	Limit     int32
	Offset    int32
}

type OrderServiceConfig struct {
	AdminEmail string
	Location   *time.Location
	Now        func() time.Time
}

// OrderService owns every order state change.
type OrderService struct {
	pool       TxBeginner
	newStore   NewOrderStore
	storage    storage.Storage
	publisher  events.Publisher
	adminEmail string
	loc        *time.Location
	now        func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, files storage.Storage, publisher events.Publisher, cfg OrderServiceConfig) *OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &OrderService{
		pool:       pool,
		newStore:   newStore,
		storage:    files,
		publisher:  publisher,
		adminEmail: cfg.AdminEmail,
		loc:        cfg.Location,
		now:        cfg.Now,
	}
}

// transition is the write produced by a decision over the current row.
type transition struct {
	status string
	price  *decimal.Decimal
	notify []string
}

// decideFunc inspects the current row. A nil transition means nothing to write.
type decideFunc func(current database.Order, now time.Time) (*transition, error)

// --- Placement ---

// PlaceMenuOrder prices a single catalog product and records it as pending.
func (s *OrderService) PlaceMenuOrder(ctx context.Context, req PlaceMenuOrderRequest) (database.Order, error) {
	customer, err := validateCustomer(req.Customer)
	if err != nil {
		return database.Order{}, err
	}
	if req.Quantity <= 0 {
		return database.Order{}, ErrInvalidQuantity
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return database.Order{}, ErrInvalidProductID
	}
	delivery, err := s.parseDelivery(req.DeliveryDateTime)
	if err != nil {
		return database.Order{}, err
	}

	return s.createOrder(ctx, func(store OrderStore) (database.CreateOrderParams, error) {
		quote, err := NewPriceResolver(store).PriceFor(ctx, productID, req.Quantity)
		if err != nil {
			return database.CreateOrderParams{}, err
		}
		return s.menuOrderParams(customer, quote.Product.Name, req.Quantity, quote.Total, delivery), nil
	})
}

// PlaceCartOrder prices every line from the catalog and records one combined order.
func (s *OrderService) PlaceCartOrder(ctx context.Context, req PlaceCartOrderRequest) (database.Order, error) {
	customer, err := validateCustomer(req.Customer)
	if err != nil {
		return database.Order{}, err
	}
	if len(req.Items) == 0 {
		return database.Order{}, ErrEmptyItems
	}

	ids := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return database.Order{}, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return database.Order{}, fmt.Errorf("items[%d]: %w", i, ErrInvalidProductID)
		}
		ids[i] = id
	}

	delivery, err := s.parseDelivery(req.DeliveryDateTime)
	if err != nil {
		return database.Order{}, err
	}

	return s.createOrder(ctx, func(store OrderStore) (database.CreateOrderParams, error) {
		resolver := NewPriceResolver(store)
		names := make([]string, 0, len(req.Items))
		total := decimal.Zero
		var quantity int32

		for i, item := range req.Items {
			quote, err := resolver.PriceFor(ctx, ids[i], item.Quantity)
			if err != nil {
				return database.CreateOrderParams{}, fmt.Errorf("items[%d]: %w", i, err)
			}
			names = append(names, quote.Product.Name)
			total = total.Add(quote.Total)
			quantity += item.Quantity
		}

		return s.menuOrderParams(customer, strings.Join(names, ", "), quantity, total, delivery), nil
	})
}

// PlaceCustomOrder stores reference images and records a request awaiting a quote.
// Failed uploads are logged and skipped.
func (s *OrderService) PlaceCustomOrder(ctx context.Context, req PlaceCustomOrderRequest) (database.Order, error) {
	customer, err := validateCustomer(req.Customer)
	if err != nil {
		return database.Order{}, err
	}
	if req.NumberOfPersons <= 0 {
		return database.Order{}, ErrInvalidQuantity
	}

	orderDate := dateOf(s.now(), s.loc)
	if strings.TrimSpace(req.OrderDate) != "" {
		t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.OrderDate), time.UTC)
		if err != nil {
			return database.Order{}, ErrInvalidOrderDate
		}
		orderDate = pgtype.Date{Time: t, Valid: true}
	}

	delivery, err := s.parseDelivery(req.DeliveryDateTime)
	if err != nil {
		return database.Order{}, err
	}

	productName := strings.TrimSpace(req.ProductName)
	if productName == "" {
		productName = defaultCustomName
	}

	urls := s.storeImages(ctx, req.Images)

	order, err := s.createOrder(ctx, func(store OrderStore) (database.CreateOrderParams, error) {
		return database.CreateOrderParams{
			CustomerName:     customer.Name,
			CustomerEmail:    customer.Email,
			CustomerPhone:    textOrNull(customer.Phone),
			ProductName:      productName,
			NumberOfPersons:  req.NumberOfPersons,
			OrderType:        enum.OrderTypeCustom,
			CustomNote:       textOrNull(req.Note),
			Flavour:          textOrNull(req.Flavour),
			ImageUrls:        textOrNull(strings.Join(urls, ",")),
			OrderDate:        orderDate,
			DeliveryDateTime: delivery,
			TotalPrice:       decimalToNumeric(decimal.Zero),
			Status:           enum.OrderStatusPendingQuote,
		}, nil
	})
	if err != nil {
		s.discardImages(ctx, urls)
		return database.Order{}, err
	}
	return order, nil
}

func (s *OrderService) storeImages(ctx context.Context, images []ImageUpload) []string {
	var urls []string
	for _, img := range images {
		if s.storage == nil {
			log.Printf("WARN: no file storage configured, dropping image %q", img.Filename)
			continue
		}

		url, err := s.storeImage(ctx, img)
		if err != nil {
			log.Printf("WARN: upload of %q failed: %v", img.Filename, err)
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

// discardImages removes images stored for an order that was never recorded.
func (s *OrderService) discardImages(ctx context.Context, urls []string) {
	ctx = context.WithoutCancel(ctx)
	for _, u := range urls {
		if err := s.storage.Remove(ctx, u); err != nil {
			log.Printf("WARN: remove orphaned image %s: %v", u, err)
		}
	}
}

func (s *OrderService) storeImage(ctx context.Context, img ImageUpload) (string, error) {
	rc, err := img.Open()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer rc.Close()
	return s.storage.Store(ctx, img.Filename, img.ContentType, rc)
}

func (s *OrderService) menuOrderParams(c Customer, productName string, quantity int32, total decimal.Decimal, delivery pgtype.Timestamptz) database.CreateOrderParams {
	orderDate := dateOf(s.now(), s.loc)
	if delivery.Valid {
		orderDate = dateOf(delivery.Time, s.loc)
	}
	return database.CreateOrderParams{
		CustomerName:     c.Name,
		CustomerEmail:    c.Email,
		CustomerPhone:    textOrNull(c.Phone),
		ProductName:      productName,
		NumberOfPersons:  quantity,
		OrderType:        enum.OrderTypeMenu,
		OrderDate:        orderDate,
		DeliveryDateTime: delivery,
		TotalPrice:       decimalToNumeric(total),
		Status:           enum.OrderStatusPending,
	}
}

// createOrder inserts the order and its placement notifications atomically.
func (s *OrderService) createOrder(ctx context.Context, build func(store OrderStore) (database.CreateOrderParams, error)) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	params, err := build(store)
	if err != nil {
		return database.Order{}, err
	}

	order, err := store.CreateOrder(ctx, params)
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	for _, kind := range []string{enum.NotificationConfirmation, enum.NotificationAdminNewOrder} {
		if err := s.enqueue(ctx, store, kind, order); err != nil {
			return database.Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.publish(ctx, enum.EventOrderCreated, order)
	return order, nil
}

// --- Transitions ---

// SetPrice records an admin quote on a custom order and moves it to pending.
// A quoted custom order may be re-quoted until it is completed or canceled.
// Menu orders keep the catalog price they were placed at.
func (s *OrderService) SetPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (database.Order, error) {
	if price.IsNegative() {
		return database.Order{}, ErrInvalidPrice
	}
	price = price.Round(2)

	order, _, err := s.mutate(ctx, id, func(current database.Order, _ time.Time) (*transition, error) {
		if _, err := nextStatus(current.Status, enum.OrderStatusPending, actorAdmin); err != nil {
			return nil, err
		}
		if !isCustomOrder(current) {
			return nil, fmt.Errorf("%w: menu orders are priced from the catalog", ErrInvalidState)
		}
		return &transition{
			status: enum.OrderStatusPending,
			price:  &price,
			notify: []string{enum.NotificationPriceSet},
		}, nil
	})
	return order, err
}

// MarkComplete completes an order. Completing a completed order is a no-op.
func (s *OrderService) MarkComplete(ctx context.Context, id uuid.UUID) (database.Order, error) {
	order, _, err := s.mutate(ctx, id, func(current database.Order, _ time.Time) (*transition, error) {
		noop, err := nextStatus(current.Status, enum.OrderStatusCompleted, actorAdmin)
		if err != nil || noop {
			return nil, err
		}
		return &transition{status: enum.OrderStatusCompleted}, nil
	})
	return order, err
}

// CancelAsAdmin cancels regardless of the customer window. Cancelling a canceled order is a no-op.
func (s *OrderService) CancelAsAdmin(ctx context.Context, id uuid.UUID) (database.Order, error) {
	order, _, err := s.mutate(ctx, id, func(current database.Order, _ time.Time) (*transition, error) {
		noop, err := nextStatus(current.Status, enum.OrderStatusCanceled, actorAdmin)
		if err != nil || noop {
			return nil, err
		}
		return &transition{
			status: enum.OrderStatusCanceled,
			notify: []string{enum.NotificationCancelled},
		}, nil
	})
	return order, err
}

// CancelAsCustomer cancels an order on behalf of its owner, subject to the
// cancellation windows.
func (s *OrderService) CancelAsCustomer(ctx context.Context, id uuid.UUID, requesterEmail string) (database.Order, error) {
	order, _, err := s.mutate(ctx, id, func(current database.Order, now time.Time) (*transition, error) {
		if err := checkCustomerCancel(current, requesterEmail, now, s.loc); err != nil {
			return nil, err
		}
		if _, err := nextStatus(current.Status, enum.OrderStatusCanceled, actorCustomer); err != nil {
			return nil, err
		}
		return &transition{
			status: enum.OrderStatusCanceled,
			notify: []string{enum.NotificationCancelled, enum.NotificationAdminCancelled},
		}, nil
	})
	return order, err
}

// AutoComplete completes a pending menu order whose delivery time has passed.
// Custom orders are left for the admin. It reports whether the order was changed.
func (s *OrderService) AutoComplete(ctx context.Context, id uuid.UUID) (bool, error) {
	_, changed, err := s.mutate(ctx, id, func(current database.Order, now time.Time) (*transition, error) {
		if isCustomOrder(current) ||
			current.Status != enum.OrderStatusPending ||
			!current.DeliveryDateTime.Valid ||
			!current.DeliveryDateTime.Time.Before(now) {
			return nil, nil
		}
		if _, err := nextStatus(current.Status, enum.OrderStatusCompleted, actorSweeper); err != nil {
			return nil, err
		}
		return &transition{status: enum.OrderStatusCompleted}, nil
	})
	return changed, err
}

// mutate re-reads and re-decides on a lost version race, up to maxTransitionRetries times.
func (s *OrderService) mutate(ctx context.Context, id uuid.UUID, decide decideFunc) (database.Order, bool, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		order, changed, err := s.mutateTx(ctx, id, decide)
		if errors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return database.Order{}, false, err
		}
		if changed {
			s.publish(ctx, enum.EventOrderUpdated, order)
		}
		return order, changed, nil
	}
	return database.Order{}, false, ErrConcurrentUpdate
}

func (s *OrderService) mutateTx(ctx context.Context, id uuid.UUID, decide decideFunc) (database.Order, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, false, ErrNotFound
		}
		return database.Order{}, false, fmt.Errorf("get order: %w", err)
	}

	t, err := decide(current, s.now())
	if err != nil {
		return database.Order{}, false, err
	}
	if t == nil {
		return current, false, nil
	}

	var updated database.Order
	if t.price != nil {
		updated, err = store.UpdateOrderPrice(ctx, database.UpdateOrderPriceParams{
			ID:         id,
			Version:    current.Version,
			TotalPrice: decimalToNumeric(*t.price),
			Status:     t.status,
		})
	} else {
		updated, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:      id,
			Version: current.Version,
			Status:  t.status,
		})
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, false, errVersionConflict
		}
		return database.Order{}, false, fmt.Errorf("update order: %w", err)
	}

	for _, kind := range t.notify {
		if err := s.enqueue(ctx, store, kind, updated); err != nil {
			return database.Order{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, false, fmt.Errorf("commit tx: %w", err)
	}
	return updated, true, nil
}

// --- Reads ---

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	var order database.Order
	err := s.read(ctx, func(store OrderStore) error {
		o, err := store.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("get order: %w", err)
		}
		order = o
		return nil
	})
	return order, err
}

// ListOrders returns orders newest first, optionally filtered by status and type.
func (s *OrderService) ListOrders(ctx context.Context, f ListOrdersFilter) ([]database.Order, error) {
	params := database.ListOrdersParams{Limit: f.Limit, Offset: f.Offset}
	if f.Status != "" {
		if !isValidOrderStatus(f.Status) {
			return nil, ErrInvalidFilter
		}
		params.Status = pgtype.Text{String: f.Status, Valid: true}
	}
	if f.OrderType != "" {
		if f.OrderType != enum.OrderTypeMenu && f.OrderType != enum.OrderTypeCustom {
			return nil, ErrInvalidFilter
		}
		params.OrderType = pgtype.Text{String: f.OrderType, Valid: true}
	}
	if params.Limit <= 0 {
		params.Limit = defaultListLimit
	}
	if params.Limit > maxListLimit {
		params.Limit = maxListLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	var orders []database.Order
	err := s.read(ctx, func(store OrderStore) error {
		list, err := store.ListOrders(ctx, params)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		orders = list
		return nil
	})
	return orders, err
}

func (s *OrderService) ListOrdersByCustomer(ctx context.Context, email string) ([]database.Order, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrMissingCustomer
	}

	var orders []database.Order
	err := s.read(ctx, func(store OrderStore) error {
		list, err := store.ListOrdersByCustomerEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("list customer orders: %w", err)
		}
		orders = list
		return nil
	})
	return orders, err
}

// ListOverdueOrders returns pending menu orders whose delivery time is before now.
func (s *OrderService) ListOverdueOrders(ctx context.Context, now time.Time) ([]database.Order, error) {
	var orders []database.Order
	err := s.read(ctx, func(store OrderStore) error {
		list, err := store.ListOverdueMenuOrders(ctx, now)
		if err != nil {
			return fmt.Errorf("list overdue orders: %w", err)
		}
		orders = list
		return nil
	})
	return orders, err
}

func (s *OrderService) read(ctx context.Context, fn func(store OrderStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- Side effects ---

func (s *OrderService) enqueue(ctx context.Context, store OutboxWriter, kind string, o database.Order) error {
	recipient := o.CustomerEmail
	if kind == enum.NotificationAdminNewOrder || kind == enum.NotificationAdminCancelled {
		if s.adminEmail == "" {
			log.Printf("WARN: no admin email configured, skipping %s for order %s", kind, o.ID)
			return nil
		}
		recipient = s.adminEmail
	}

	payload, err := json.Marshal(mail.Payload{Order: orderView(o, s.loc)})
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	_, err = store.CreateOutboxMessage(ctx, database.CreateOutboxMessageParams{
		OrderID:   pgtype.UUID{Bytes: o.ID, Valid: true},
		Kind:      kind,
		Recipient: recipient,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, o database.Order) {
	s.publisher.Publish(ctx, events.OrderEvent{
		Type:       eventType,
		OccurredAt: s.now(),
		Order:      Snapshot(o),
	})
}

// EnqueuePasswordReset queues the forgot-password email for email.
func EnqueuePasswordReset(ctx context.Context, store OutboxWriter, email, resetLink string) error {
	payload, err := json.Marshal(mail.Payload{ResetLink: resetLink})
	if err != nil {
		return fmt.Errorf("marshal reset payload: %w", err)
	}
	_, err = store.CreateOutboxMessage(ctx, database.CreateOutboxMessageParams{
		Kind:      enum.NotificationPasswordReset,
		Recipient: email,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("enqueue password reset: %w", err)
	}
	return nil
}

// --- Validation ---

func validateCustomer(c Customer) (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" || c.Email == "" {
		return Customer{}, ErrMissingCustomer
	}
	return c, nil
}

var deliveryLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseDelivery accepts RFC3339 or a wall-clock time in the business timezone.
// An empty value means no delivery time. Past times are rejected.
func (s *OrderService) parseDelivery(v string) (pgtype.Timestamptz, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return pgtype.Timestamptz{}, nil
	}

	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		parsed := false
		for _, layout := range deliveryLayouts {
			if t, err = time.ParseInLocation(layout, v, s.loc); err == nil {
				parsed = true
				break
			}
		}
		if !parsed {
			return pgtype.Timestamptz{}, ErrInvalidDeliveryTime
		}
	}

	if !t.After(s.now()) {
		return pgtype.Timestamptz{}, fmt.Errorf("%w: must be in the future", ErrInvalidDeliveryTime)
	}
	return pgtype.Timestamptz{Time: t, Valid: true}, nil
}

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPendingQuote, enum.OrderStatusPending, enum.OrderStatusCompleted, enum.OrderStatusCanceled:
		return true
	}
	return false
}
