package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pasticeri/api/internal/database"
	"github.com/shopspring/decimal"
)

// ProductReader loads catalog entries. Satisfied by *database.Queries.
type ProductReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
}

// Quote is the resolved price of a quantity of one product.
type Quote struct {
	Product   database.Product
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// PriceResolver computes totals from the live catalog. Prices are never cached.
type PriceResolver struct {
	products ProductReader
}

func NewPriceResolver(products ProductReader) *PriceResolver {
	return &PriceResolver{products: products}
}

// PriceFor returns unit price times quantity, rounded to cents.
func (r *PriceResolver) PriceFor(ctx context.Context, productID uuid.UUID, quantity int32) (Quote, error) {
	if quantity <= 0 {
		return Quote{}, ErrInvalidQuantity
	}

	product, err := r.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return Quote{}, fmt.Errorf("get product %s: %w", productID, err)
	}

	unit := numericToDecimal(product.Price)
	return Quote{
		Product:   product,
		UnitPrice: unit,
		Total:     unit.Mul(decimal.NewFromInt32(quantity)).Round(2),
	}, nil
}
