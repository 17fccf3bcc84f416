package service

import "errors"

// Errors returned by the order service.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("order belongs to another customer")
	ErrInvalidState     = errors.New("invalid order state")
	ErrPolicyViolation  = errors.New("cancellation not allowed")
	ErrConcurrentUpdate = errors.New("order was modified concurrently, please retry")

	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidPrice        = errors.New("price must be >= 0")
	ErrInvalidProductID    = errors.New("invalid product_id")
	ErrInvalidDeliveryTime = errors.New("invalid delivery_date_time")
	ErrInvalidOrderDate    = errors.New("invalid order_date")
	ErrMissingCustomer     = errors.New("customer name and email are required")
	ErrInvalidFilter       = errors.New("invalid status or order_type filter")
)

// errVersionConflict signals a lost compare-and-set on the order version.
var errVersionConflict = errors.New("order version conflict")

// IsValidationError reports whether err is caused by bad client input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyItems) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidProductID) ||
		errors.Is(err, ErrInvalidDeliveryTime) ||
		errors.Is(err, ErrInvalidOrderDate) ||
		errors.Is(err, ErrMissingCustomer) ||
		errors.Is(err, ErrInvalidFilter)
}
