package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/enum"
)

const (
	customCancelWindow = 24 * time.Hour
	menuCancelWindow   = 5 * time.Hour
)

// actor identifies who requests a status change.
type actor int

const (
	actorCustomer actor = iota
	actorAdmin
	actorSweeper
)

func (a actor) String() string {
	switch a {
	case actorCustomer:
		return "customer"
	case actorAdmin:
		return "admin"
	case actorSweeper:
		return "sweeper"
	default:
		return "unknown"
	}
}

// allowedTransitions lists, per current status, the targets each actor may request.
// Terminal statuses have no entry.
var allowedTransitions = map[string]map[actor][]string{
	enum.OrderStatusPendingQuote: {
		actorCustomer: {enum.OrderStatusCanceled},
		actorAdmin:    {enum.OrderStatusPending, enum.OrderStatusCompleted, enum.OrderStatusCanceled},
	},
	enum.OrderStatusPending: {
		actorCustomer: {enum.OrderStatusCanceled},
		actorAdmin:    {enum.OrderStatusPending, enum.OrderStatusCompleted, enum.OrderStatusCanceled},
		actorSweeper:  {enum.OrderStatusCompleted},
	},
}

// nextStatus checks whether actor a may move an order from current to target.
// noop is true when an admin repeats a terminal transition that already happened.
func nextStatus(current, target string, a actor) (noop bool, err error) {
	if enum.IsTerminalOrderStatus(current) {
		if current == target && a == actorAdmin {
			return true, nil
		}
		return false, fmt.Errorf("%w: order is already %s", ErrInvalidState, current)
	}

	for _, allowed := range allowedTransitions[current][a] {
		if allowed == target {
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: %s cannot move order from %q to %q", ErrInvalidState, a, current, target)
}

// isCustomOrder classifies an order. The stored order_type is authoritative;
// rows without one fall back to the content of the order.
func isCustomOrder(o database.Order) bool {
	if o.OrderType != "" {
		return o.OrderType == enum.OrderTypeCustom
	}
	return nonEmpty(o.CustomNote) ||
		nonEmpty(o.Flavour) ||
		nonEmpty(o.ImageUrls) ||
		o.Status == enum.OrderStatusPendingQuote
}

// checkCustomerCancel applies the customer cancellation policy at instant now.
func checkCustomerCancel(o database.Order, requesterEmail string, now time.Time, loc *time.Location) error {
	if !sameEmail(o.CustomerEmail, requesterEmail) {
		return ErrForbidden
	}

	if enum.IsTerminalOrderStatus(o.Status) {
		return fmt.Errorf("%w: order is already %s", ErrInvalidState, o.Status)
	}

	if isCustomOrder(o) {
		if !o.OrderDate.Valid {
			return fmt.Errorf("%w: order date required to cancel", ErrPolicyViolation)
		}
		due := startOfDay(o.OrderDate, loc)
		if due.Sub(now) <= customCancelWindow {
			return fmt.Errorf("%w: custom orders can only be cancelled at least 1 day before the due date", ErrPolicyViolation)
		}
		return nil
	}

	if !o.DeliveryDateTime.Valid {
		return fmt.Errorf("%w: delivery date/time required to cancel", ErrPolicyViolation)
	}
	if o.DeliveryDateTime.Time.Sub(now) <= menuCancelWindow {
		return fmt.Errorf("%w: menu orders can only be cancelled at least 5 hours before delivery", ErrPolicyViolation)
	}
	return nil
}

// startOfDay returns midnight of the stored calendar date in loc.
func startOfDay(d pgtype.Date, loc *time.Location) time.Time {
	y, m, day := d.Time.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

func sameEmail(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func nonEmpty(t pgtype.Text) bool {
	return t.Valid && strings.TrimSpace(t.String) != ""
}
