package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/enum"
	"github.com/pasticeri/api/internal/events"
	"github.com/pasticeri/api/internal/storage"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getProductFn                func(ctx context.Context, id uuid.UUID) (database.Product, error)
	createOrderFn               func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	getOrderFn                  func(ctx context.Context, id uuid.UUID) (database.Order, error)
	updateOrderStatusFn         func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	updateOrderPriceFn          func(ctx context.Context, arg database.UpdateOrderPriceParams) (database.Order, error)
	listOrdersFn                func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	listOrdersByCustomerEmailFn func(ctx context.Context, email string) ([]database.Order, error)
	listOverdueMenuOrdersFn     func(ctx context.Context, cutoff time.Time) ([]database.Order, error)
	createOutboxMessageFn       func(ctx context.Context, arg database.CreateOutboxMessageParams) (database.NotificationOutbox, error)
}

func (m *mockOrderStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	return m.getProductFn(ctx, id)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockOrderStore) UpdateOrderPrice(ctx context.Context, arg database.UpdateOrderPriceParams) (database.Order, error) {
	return m.updateOrderPriceFn(ctx, arg)
}
func (m *mockOrderStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrdersFn(ctx, arg)
}
func (m *mockOrderStore) ListOrdersByCustomerEmail(ctx context.Context, email string) ([]database.Order, error) {
	return m.listOrdersByCustomerEmailFn(ctx, email)
}
func (m *mockOrderStore) ListOverdueMenuOrders(ctx context.Context, cutoff time.Time) ([]database.Order, error) {
	return m.listOverdueMenuOrdersFn(ctx, cutoff)
}
func (m *mockOrderStore) CreateOutboxMessage(ctx context.Context, arg database.CreateOutboxMessageParams) (database.NotificationOutbox, error) {
	return m.createOutboxMessageFn(ctx, arg)
}

// memDB backs a mockOrderStore with maps so lifecycle tests can chain operations.
type memDB struct {
	products map[uuid.UUID]database.Product
	orders   map[uuid.UUID]database.Order
	outbox   []database.CreateOutboxMessageParams
	listArgs []database.ListOrdersParams
	now      time.Time
}

func newMemDB(now time.Time) *memDB {
	return &memDB{
		products: make(map[uuid.UUID]database.Product),
		orders:   make(map[uuid.UUID]database.Order),
		now:      now,
	}
}

func (db *memDB) addProduct(name, price string) database.Product {
	p := database.Product{ID: uuid.New(), Name: name, Price: makeNumeric(price)}
	db.products[p.ID] = p
	return p
}

func (db *memDB) addOrder(o database.Order) database.Order {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Version == 0 {
		o.Version = 1
	}
	if o.CustomerName == "" {
		o.CustomerName = "Anna"
	}
	if o.CustomerEmail == "" {
		o.CustomerEmail = "anna@example.com"
	}
	if o.NumberOfPersons == 0 {
		o.NumberOfPersons = 1
	}
	if !o.OrderDate.Valid {
		o.OrderDate = dateOf(db.now, time.UTC)
	}
	db.orders[o.ID] = o
	return o
}

func (db *memDB) outboxKinds() []string {
	kinds := make([]string, len(db.outbox))
	for i, m := range db.outbox {
		kinds[i] = m.Kind
	}
	return kinds
}

func (db *memDB) store() *mockOrderStore {
	return &mockOrderStore{
		getProductFn: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			p, ok := db.products[id]
			if !ok {
				return database.Product{}, pgx.ErrNoRows
			}
			return p, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			o := database.Order{
				ID:               uuid.New(),
				CustomerName:     arg.CustomerName,
				CustomerEmail:    arg.CustomerEmail,
				CustomerPhone:    arg.CustomerPhone,
				ProductName:      arg.ProductName,
				NumberOfPersons:  arg.NumberOfPersons,
				OrderType:        arg.OrderType,
				CustomNote:       arg.CustomNote,
				Flavour:          arg.Flavour,
				ImageUrls:        arg.ImageUrls,
				OrderDate:        arg.OrderDate,
				DeliveryDateTime: arg.DeliveryDateTime,
				TotalPrice:       arg.TotalPrice,
				Status:           arg.Status,
				Version:          1,
				CreatedAt:        db.now,
				UpdatedAt:        db.now,
			}
			db.orders[o.ID] = o
			return o, nil
		},
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			o, ok := db.orders[id]
			if !ok {
				return database.Order{}, pgx.ErrNoRows
			}
			return o, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			o, ok := db.orders[arg.ID]
			if !ok || o.Version != arg.Version {
				return database.Order{}, pgx.ErrNoRows
			}
			o.Status = arg.Status
			o.Version++
			db.orders[o.ID] = o
			return o, nil
		},
		updateOrderPriceFn: func(ctx context.Context, arg database.UpdateOrderPriceParams) (database.Order, error) {
			o, ok := db.orders[arg.ID]
			if !ok || o.Version != arg.Version {
				return database.Order{}, pgx.ErrNoRows
			}
			o.TotalPrice = arg.TotalPrice
			o.Status = arg.Status
			o.Version++
			db.orders[o.ID] = o
			return o, nil
		},
		listOrdersFn: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			db.listArgs = append(db.listArgs, arg)
			var out []database.Order
			for _, o := range db.orders {
				out = append(out, o)
			}
			return out, nil
		},
		listOrdersByCustomerEmailFn: func(ctx context.Context, email string) ([]database.Order, error) {
			var out []database.Order
			for _, o := range db.orders {
				if strings.EqualFold(o.CustomerEmail, email) {
					out = append(out, o)
				}
			}
			return out, nil
		},
		listOverdueMenuOrdersFn: func(ctx context.Context, cutoff time.Time) ([]database.Order, error) {
			var out []database.Order
			for _, o := range db.orders {
				if o.Status == enum.OrderStatusPending && o.OrderType != enum.OrderTypeCustom &&
					o.DeliveryDateTime.Valid && o.DeliveryDateTime.Time.Before(cutoff) {
					out = append(out, o)
				}
			}
			return out, nil
		},
		createOutboxMessageFn: func(ctx context.Context, arg database.CreateOutboxMessageParams) (database.NotificationOutbox, error) {
			db.outbox = append(db.outbox, arg)
			return database.NotificationOutbox{ID: int64(len(db.outbox)), Kind: arg.Kind, Recipient: arg.Recipient, Payload: arg.Payload}, nil
		},
	}
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	events []events.OrderEvent
}

func (r *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) {
	r.events = append(r.events, e)
}

// --- Test helpers ---

const testAdminEmail = "owner@bakery.example"

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func date(y int, m time.Month, d int) pgtype.Date {
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

// newTestService creates an OrderService with mocked dependencies.
// store is the mock OrderStore that will be returned by the NewOrderStore factory.
func newTestService(store *mockOrderStore, files storage.Storage) (*OrderService, *mockTx, *recordingPublisher) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	pub := &recordingPublisher{}
	newStore := func(db database.DBTX) OrderStore { return store }

	svc := NewOrderService(pool, newStore, files, pub, OrderServiceConfig{
		AdminEmail: testAdminEmail,
		Location:   time.UTC,
		Now:        func() time.Time { return testNow },
	})
	return svc, tx, pub
}

// fakeStorage records stored names and fails for names listed in failFor.
type fakeStorage struct {
	failFor map[string]bool
	stored  []string
	removed []string
}

func (f *fakeStorage) Remove(_ context.Context, url string) error {
	f.removed = append(f.removed, url)
	return nil
}

func (f *fakeStorage) Store(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if f.failFor[name] {
		return "", errors.New("disk full")
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.stored = append(f.stored, name)
	return "/uploads/" + name, nil
}
