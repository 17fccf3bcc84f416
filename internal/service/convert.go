package service

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/enum"
	"github.com/pasticeri/api/internal/events"
	"github.com/pasticeri/api/internal/mail"
	"github.com/shopspring/decimal"
)

const (
	dateLayout        = "2006-01-02"
	displayTimeLayout = "Mon 2 Jan 2006, 15:04"
)

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func textOrNull(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func dateOf(t time.Time, loc *time.Location) pgtype.Date {
	y, m, d := t.In(loc).Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

func splitImageURLs(t pgtype.Text) []string {
	if !t.Valid || t.String == "" {
		return nil
	}
	var urls []string
	for _, u := range strings.Split(t.String, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// isUnpriced reports whether the order total is still waiting for a quote.
func isUnpriced(o database.Order) bool {
	if o.Status == enum.OrderStatusPendingQuote {
		return true
	}
	return isCustomOrder(o) && numericToDecimal(o.TotalPrice).IsZero()
}

// Snapshot converts an order row into its event representation.
func Snapshot(o database.Order) events.OrderSnapshot {
	snap := events.OrderSnapshot{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		ProductName:     o.ProductName,
		NumberOfPersons: o.NumberOfPersons,
		OrderType:       o.OrderType,
		Status:          o.Status,
		TotalPrice:      numericToDecimal(o.TotalPrice).StringFixed(2),
		Version:         o.Version,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.OrderDate.Valid {
		snap.OrderDate = o.OrderDate.Time.Format(dateLayout)
	}
	if o.DeliveryDateTime.Valid {
		t := o.DeliveryDateTime.Time
		snap.DeliveryDateTime = &t
	}
	return snap
}

func orderView(o database.Order, loc *time.Location) *mail.OrderView {
	v := &mail.OrderView{
		ID:              o.ID.String(),
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone.String,
		ProductName:     o.ProductName,
		NumberOfPersons: o.NumberOfPersons,
		OrderType:       o.OrderType,
		CustomNote:      o.CustomNote.String,
		Flavour:         o.Flavour.String,
		ImageURLs:       splitImageURLs(o.ImageUrls),
		Status:          o.Status,
	}
	if v.OrderType == "" {
		v.OrderType = enum.OrderTypeMenu
		if isCustomOrder(o) {
			v.OrderType = enum.OrderTypeCustom
		}
	}
	if o.OrderDate.Valid {
		v.OrderDate = o.OrderDate.Time.Format(dateLayout)
	}
	if o.DeliveryDateTime.Valid {
		v.DeliveryDateTime = o.DeliveryDateTime.Time.In(loc).Format(displayTimeLayout)
	}
	if !isUnpriced(o) {
		v.TotalPrice = numericToDecimal(o.TotalPrice).StringFixed(2)
	}
	return v
}
