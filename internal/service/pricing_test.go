package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pasticeri/api/internal/database"
)

func TestPriceFor(t *testing.T) {
	db := newMemDB(testNow)
	eclair := db.addProduct("Eclair", "2.333")
	resolver := NewPriceResolver(db.store())

	quote, err := resolver.PriceFor(context.Background(), eclair.ID, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Product.Name != "Eclair" {
		t.Errorf("unexpected product %q", quote.Product.Name)
	}
	if quote.UnitPrice.String() != "2.333" {
		t.Errorf("unit price = %s", quote.UnitPrice)
	}
	// 6.999 rounds to 7.00
	if quote.Total.StringFixed(2) != "7.00" {
		t.Errorf("total = %s, want 7.00", quote.Total.StringFixed(2))
	}
}

func TestPriceFor_ReadsLiveCatalog(t *testing.T) {
	db := newMemDB(testNow)
	p := db.addProduct("Focaccia", "5.00")
	resolver := NewPriceResolver(db.store())

	first, err := resolver.PriceFor(context.Background(), p.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.Price = makeNumeric("6.50")
	db.products[p.ID] = p

	second, err := resolver.PriceFor(context.Background(), p.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Total.Equal(second.Total) || second.Total.StringFixed(2) != "6.50" {
		t.Errorf("expected updated price, got %s then %s", first.Total, second.Total)
	}
}

func TestPriceFor_Errors(t *testing.T) {
	db := newMemDB(testNow)
	p := db.addProduct("Focaccia", "5.00")
	resolver := NewPriceResolver(db.store())

	if _, err := resolver.PriceFor(context.Background(), p.ID, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got: %v", err)
	}
	if _, err := resolver.PriceFor(context.Background(), uuid.New(), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}

	store := db.store()
	store.getProductFn = func(ctx context.Context, id uuid.UUID) (database.Product, error) {
		return database.Product{}, errors.New("timeout")
	}
	_, err := NewPriceResolver(store).PriceFor(context.Background(), p.ID, 1)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected wrapped store error, got: %v", err)
	}
}
