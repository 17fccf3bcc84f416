package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/pasticeri/api/internal/enum"
)

//go:embed templates/*.html
var templateFS embed.FS

// OrderView is the order snapshot stored in the outbox payload.
// Values are preformatted so rendering does no lookups.
type OrderView struct {
	ID               string   `json:"id"`
	CustomerName     string   `json:"customer_name"`
	CustomerEmail    string   `json:"customer_email"`
	CustomerPhone    string   `json:"customer_phone,omitempty"`
	ProductName      string   `json:"product_name"`
	NumberOfPersons  int32    `json:"number_of_persons"`
	OrderType        string   `json:"order_type"`
	CustomNote       string   `json:"custom_note,omitempty"`
	Flavour          string   `json:"flavour,omitempty"`
	ImageURLs        []string `json:"image_urls,omitempty"`
	OrderDate        string   `json:"order_date"`
	DeliveryDateTime string   `json:"delivery_date_time,omitempty"`
	// TotalPrice is empty while the order awaits a quote.
	TotalPrice string `json:"total_price,omitempty"`
	Status     string `json:"status"`
}

type Payload struct {
	Order     *OrderView `json:"order,omitempty"`
	ResetLink string     `json:"reset_link,omitempty"`
}

type Message struct {
	Subject string
	HTML    string
}

// Renderer turns an outbox payload into an email for a notification kind.
type Renderer struct {
	tmpl    *template.Template
	baseURL string
}

// NewRenderer parses the embedded templates. baseURL prefixes relative image links.
func NewRenderer(baseURL string) (*Renderer, error) {
	r := &Renderer{baseURL: strings.TrimRight(baseURL, "/")}

	tmpl, err := template.New("mail").Funcs(template.FuncMap{
		"absURL": r.absURL,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

func (r *Renderer) Render(kind string, p Payload) (Message, error) {
	subject, err := subjectFor(kind, p)
	if err != nil {
		return Message{}, err
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, kind, p); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", kind, err)
	}
	return Message{Subject: subject, HTML: buf.String()}, nil
}

func (r *Renderer) absURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return r.baseURL + "/" + strings.TrimLeft(u, "/")
}

func subjectFor(kind string, p Payload) (string, error) {
	if kind == enum.NotificationPasswordReset {
		if p.ResetLink == "" {
			return "", fmt.Errorf("%s: reset link missing", kind)
		}
		return "Reset your password", nil
	}

	if p.Order == nil {
		return "", fmt.Errorf("%s: order snapshot missing", kind)
	}
	o := p.Order

	switch kind {
	case enum.NotificationConfirmation:
		if o.OrderType == enum.OrderTypeCustom {
			return "We received your custom cake request", nil
		}
		return "Your order confirmation", nil
	case enum.NotificationAdminNewOrder:
		return fmt.Sprintf("New %s order from %s", o.OrderType, o.CustomerName), nil
	case enum.NotificationCancelled:
		return "Your order has been cancelled", nil
	case enum.NotificationAdminCancelled:
		return fmt.Sprintf("Order cancelled by %s", o.CustomerName), nil
	case enum.NotificationPriceSet:
		return "Your order has been priced", nil
	default:
		return "", fmt.Errorf("unknown notification kind %q", kind)
	}
}
