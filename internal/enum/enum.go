package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPendingQuote = "pending-quote"
	OrderStatusPending      = "pending"
	OrderStatusCompleted    = "completed"
	OrderStatusCanceled     = "canceled"
)

const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusSent       = "sent"
	OutboxStatusFailed     = "failed"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleUser  = "USER"
	UserRoleAdmin = "ADMIN"
)

const (
	OrderTypeMenu   = "menu"
	OrderTypeCustom = "custom"
)

const (
	FeedTypeImage = "image"
	FeedTypeVideo = "video"
)

const (
	NotificationConfirmation   = "confirmation"
	NotificationAdminNewOrder  = "admin_new_order"
	NotificationCancelled      = "cancelled"
	NotificationAdminCancelled = "admin_cancelled"
	NotificationPriceSet       = "price_set"
	NotificationPasswordReset  = "password_reset"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	StorageBackendLocal = "local"
	StorageBackendNoop  = "noop"
)

const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)

// IsTerminalOrderStatus reports whether no further transition is allowed.
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}
