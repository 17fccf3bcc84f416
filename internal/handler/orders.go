package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pasticeri/api/internal/database"
	"github.com/pasticeri/api/internal/middleware"
	"github.com/pasticeri/api/internal/service"
	"github.com/shopspring/decimal"
)

const maxCustomImages = 10

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceMenuOrder(ctx context.Context, req service.PlaceMenuOrderRequest) (database.Order, error)
	PlaceCartOrder(ctx context.Context, req service.PlaceCartOrderRequest) (database.Order, error)
	PlaceCustomOrder(ctx context.Context, req service.PlaceCustomOrderRequest) (database.Order, error)
	SetPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (database.Order, error)
	MarkComplete(ctx context.Context, id uuid.UUID) (database.Order, error)
	CancelAsAdmin(ctx context.Context, id uuid.UUID) (database.Order, error)
	CancelAsCustomer(ctx context.Context, id uuid.UUID, requesterEmail string) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, f service.ListOrdersFilter) ([]database.Order, error)
	ListOrdersByCustomer(ctx context.Context, email string) ([]database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc       OrderServicer
	maxUpload int64
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, maxUpload int64) *OrderHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &OrderHandler{svc: svc, maxUpload: maxUpload}
}

// RegisterRoutes registers endpoints for any signed-in user.
// Expected to be mounted at /orders behind Authenticate.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/menu", h.PlaceMenu)
	r.Post("/cart", h.PlaceCart)
	r.Post("/custom", h.PlaceCustom)
	r.Get("/mine", h.ListMine)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cancel", h.CancelMine)
}

// RegisterAdminRoutes registers order management endpoints.
// Expected to be mounted at /orders behind RequireRole(ADMIN).
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/{id}/price", h.SetPrice)
	r.Put("/{id}/complete", h.Complete)
	r.Put("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type menuOrderRequest struct {
	CustomerName     string `json:"customer_name"`
	CustomerPhone    string `json:"customer_phone"`
	ProductID        string `json:"product_id"`
	Quantity         int32  `json:"quantity"`
	DeliveryDateTime string `json:"delivery_date_time"`
}

type cartOrderRequest struct {
	CustomerName     string            `json:"customer_name"`
	CustomerPhone    string            `json:"customer_phone"`
	Items            []cartItemRequest `json:"items"`
	DeliveryDateTime string            `json:"delivery_date_time"`
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type setPriceRequest struct {
	Price *decimal.Decimal `json:"price"`
}

type orderResponse struct {
	ID               uuid.UUID  `json:"id"`
	CustomerName     string     `json:"customer_name"`
	CustomerEmail    string     `json:"customer_email"`
	CustomerPhone    *string    `json:"customer_phone"`
	ProductName      string     `json:"product_name"`
	NumberOfPersons  int32      `json:"number_of_persons"`
	OrderType        string     `json:"order_type"`
	CustomNote       *string    `json:"custom_note"`
	Flavour          *string    `json:"flavour"`
	ImageURLs        []string   `json:"image_urls"`
	OrderDate        *string    `json:"order_date"`
	DeliveryDateTime *time.Time `json:"delivery_date_time"`
	TotalPrice       string     `json:"total_price"`
	Status           string     `json:"status"`
	Version          int32      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   textPtr(o.CustomerPhone),
		ProductName:     o.ProductName,
		NumberOfPersons: o.NumberOfPersons,
		OrderType:       o.OrderType,
		CustomNote:      textPtr(o.CustomNote),
		Flavour:         textPtr(o.Flavour),
		ImageURLs:       []string{},
		TotalPrice:      formatMoney(o.TotalPrice),
		Status:          o.Status,
		Version:         o.Version,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.ImageUrls.Valid {
		for _, u := range strings.Split(o.ImageUrls.String, ",") {
			if u = strings.TrimSpace(u); u != "" {
				resp.ImageURLs = append(resp.ImageURLs, u)
			}
		}
	}
	if o.OrderDate.Valid {
		d := o.OrderDate.Time.Format("2006-01-02")
		resp.OrderDate = &d
	}
	if o.DeliveryDateTime.Valid {
		t := o.DeliveryDateTime.Time
		resp.DeliveryDateTime = &t
	}
	return resp
}

func toOrderListResponse(orders []database.Order) []orderResponse {
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	return resp
}

// --- Placement ---

// PlaceMenu orders a single catalog product.
func (h *OrderHandler) PlaceMenu(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req menuOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.PlaceMenuOrder(r.Context(), service.PlaceMenuOrderRequest{
		Customer:         service.Customer{Name: req.CustomerName, Email: claims.Email, Phone: req.CustomerPhone},
		ProductID:        req.ProductID,
		Quantity:         req.Quantity,
		DeliveryDateTime: req.DeliveryDateTime,
	})
	if err != nil {
		writeServiceError(w, "place menu order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// PlaceCart orders several catalog products as one order.
func (h *OrderHandler) PlaceCart(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req cartOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CartItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CartItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := h.svc.PlaceCartOrder(r.Context(), service.PlaceCartOrderRequest{
		Customer:         service.Customer{Name: req.CustomerName, Email: claims.Email, Phone: req.CustomerPhone},
		Items:            items,
		DeliveryDateTime: req.DeliveryDateTime,
	})
	if err != nil {
		writeServiceError(w, "place cart order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// PlaceCustom records a custom cake request. Multipart fields: customer_name,
// customer_phone, product_name, number_of_persons, custom_note, flavour,
// order_date, delivery_date_time and up to 10 "images" files.
func (h *OrderHandler) PlaceCustom(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	if err := parseMultipart(w, r, h.maxUpload*maxCustomImages); err != nil {
		writeUploadError(w, err)
		return
	}

	persons, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("number_of_persons")), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "number_of_persons must be a number"})
		return
	}

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["images"]
	}
	if len(files) > maxCustomImages {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at most 10 images are allowed"})
		return
	}

	images := make([]service.ImageUpload, 0, len(files))
	for _, fh := range files {
		contentType, err := checkUpload(fh, h.maxUpload, "image/")
		if err != nil {
			writeUploadError(w, err)
			return
		}
		fh := fh
		images = append(images, service.ImageUpload{
			Filename:    fh.Filename,
			ContentType: contentType,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	order, err := h.svc.PlaceCustomOrder(r.Context(), service.PlaceCustomOrderRequest{
		Customer: service.Customer{
			Name:  r.FormValue("customer_name"),
			Email: claims.Email,
			Phone: r.FormValue("customer_phone"),
		},
		ProductName:      r.FormValue("product_name"),
		NumberOfPersons:  int32(persons),
		Note:             r.FormValue("custom_note"),
		Flavour:          r.FormValue("flavour"),
		OrderDate:        r.FormValue("order_date"),
		DeliveryDateTime: r.FormValue("delivery_date_time"),
		Images:           images,
	})
	if err != nil {
		writeServiceError(w, "place custom order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// --- Customer reads and cancellation ---

// ListMine returns the caller's orders newest first.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.svc.ListOrdersByCustomer(r.Context(), claims.Email)
	if err != nil {
		writeServiceError(w, "list my orders", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

// Get returns one order to an admin or to the customer who placed it.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}

	if !middleware.CanViewOrder(claims, order.CustomerEmail) {
		writeServiceError(w, "get order", service.ErrForbidden)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// CancelMine cancels the caller's own order within the cancellation window.
func (h *OrderHandler) CancelMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.svc.CancelAsCustomer(r.Context(), orderID, claims.Email)
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// --- Admin ---

// List returns orders, optionally filtered. Query: status, order_type, limit, offset.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.ListOrdersFilter{
		Status:    q.Get("status"),
		OrderType: q.Get("order_type"),
	}

	for name, dst := range map[string]*int32{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
			return
		}
		*dst = int32(n)
	}

	orders, err := h.svc.ListOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

// SetPrice quotes a custom order and moves it to pending. Menu orders get 409.
func (h *OrderHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req setPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Price == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}

	order, err := h.svc.SetPrice(r.Context(), orderID, *req.Price)
	if err != nil {
		writeServiceError(w, "set price", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Complete marks an order as completed.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.svc.MarkComplete(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "complete order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// Cancel cancels an order regardless of the customer window.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.svc.CancelAsAdmin(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "cancel order (admin)", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// --- Helpers ---

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps order service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConcurrentUpdate):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrPolicyViolation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case service.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
