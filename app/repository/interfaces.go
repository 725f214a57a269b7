package repository

import (
	"time"

	"github.com/vastrahub/vastrahub/app/models"
	"gorm.io/gorm"
)

// WebhookRepository defines the persistence operations for raw provider
// webhook deliveries. Record and Claim are the dedup linchpin: Record is an
// insert-or-ignore on the dedup key, Claim a single conditional update that
// exactly one concurrent caller can win.
type WebhookRepository interface {
	// RecordIfNotExists inserts the delivery unless a row with the same dedup
	// key already exists. Returns created=true when this call inserted the row,
	// plus the stored row either way.
	RecordIfNotExists(w *models.PaymentWebhook) (bool, *models.PaymentWebhook, error)
	// Claim marks the record processed and owned by claimedBy, but only if it
	// was unprocessed and signature-valid. Returns won=true for the single
	// caller whose update took effect.
	Claim(dedupKey, claimedBy string) (bool, error)
	// SetResult writes the terminal result code on a record the caller has
	// claimed.
	SetResult(dedupKey, result string) error
	// MarkRejected records a rejection on an unclaimed record. A no-op once a
	// concurrent worker claimed the key, so a rejected duplicate can never
	// overwrite the genuine delivery's outcome.
	MarkRejected(dedupKey string) error
	// ReleaseClaim reverts claimedBy's claim after a transient failure so the
	// reconcile drain can claim the record again. Records resolved by another
	// worker are left untouched.
	ReleaseClaim(dedupKey, claimedBy string) error
	// MarkSignatureValid upgrades a record first seen with a bad signature, so
	// a forged early delivery cannot block the genuine one forever.
	MarkSignatureValid(dedupKey string) error
	GetByDedupKey(dedupKey string) (*models.PaymentWebhook, error)
	ListUnprocessed(limit int) ([]models.PaymentWebhook, error)
}

// StockRepository exposes the three atomic ledger verbs, each implemented as
// one conditional UPDATE on the product+size row. The bool results report
// whether the guard held (RowsAffected == 1).
type StockRepository interface {
	// Reserve increments reserved iff stock - reserved >= qty.
	Reserve(productID uint, size string, qty int) (bool, error)
	// Commit decrements stock and reserved iff reserved >= qty.
	Commit(productID uint, size string, qty int) (bool, error)
	// Release decrements reserved floored at zero. Idempotent.
	Release(productID uint, size string, qty int) error
	Get(productID uint, size string) (*models.ProductStock, error)
	ListByProduct(productID uint) ([]models.ProductStock, error)
	// Upsert creates or overwrites the ledger row (admin/seed path).
	Upsert(stock *models.ProductStock) error
}

// OrderRepository defines order persistence. The two transition methods are
// compare-and-swap updates guarded on status=DRAFT so a terminal state can
// never be overwritten.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByOrderID(orderID string) (*models.Order, error)
	GetByProviderTransactionID(transactionID string) (*models.Order, error)
	// ConfirmIfDraft moves DRAFT -> CONFIRMED/PAID. Returns won=false when the
	// order already left DRAFT.
	ConfirmIfDraft(orderID string, paidAt time.Time) (bool, error)
	// CancelIfDraft moves DRAFT -> CANCELLED/FAILED.
	CancelIfDraft(orderID string) (bool, error)
}

// CheckoutRepository persists checkout sessions and their reservations.
// TransitionReservation and TransitionSession are status CAS operations; the
// sweeper and the webhook path both go through them so each hold is resolved
// exactly once.
type CheckoutRepository interface {
	CreateSession(session *models.CheckoutSession) error
	GetSession(sessionID string) (*models.CheckoutSession, error)
	GetSessionByOrderID(orderID string) (*models.CheckoutSession, error)
	MarkSessionStockReserved(sessionID string) error
	TransitionSession(sessionID, from, to string) (bool, error)
	ListExpiredSessions(now time.Time, limit int) ([]models.CheckoutSession, error)

	CreateReservation(res *models.Reservation) error
	ListReservationsBySession(sessionID string) ([]models.Reservation, error)
	TransitionReservation(reservationID, from, to string) (bool, error)
	ListExpiredReservations(now time.Time, limit int) ([]models.Reservation, error)
}

// ProductRepository covers the minimal product reads the core needs; full
// product CRUD lives with the admin console, outside this service.
type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	GetBySlug(slug string) (*models.Product, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Webhook  WebhookRepository
	Stock    StockRepository
	Order    OrderRepository
	Checkout CheckoutRepository
	Product  ProductRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Webhook:  NewWebhookRepository(db),
		Stock:    NewStockRepository(db),
		Order:    NewOrderRepository(db),
		Checkout: NewCheckoutRepository(db),
		Product:  NewProductRepository(db),
	}
}
