package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/vastrahub/vastrahub/app/models"
)

// In-memory repositories mirroring the conditional-update semantics of the
// SQL implementations, so coordinator behavior under concurrency can be
// tested without a database.

type memWebhookRepo struct {
	mu   sync.Mutex
	rows map[string]*models.PaymentWebhook

	// onMarkRejected, when set before the test starts goroutines, runs ahead
	// of the rejection write-back so tests can order it against other workers.
	onMarkRejected func()
}

func newMemWebhookRepo() *memWebhookRepo {
	return &memWebhookRepo{rows: make(map[string]*models.PaymentWebhook)}
}

func (r *memWebhookRepo) RecordIfNotExists(w *models.PaymentWebhook) (bool, *models.PaymentWebhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rows[w.DedupKey]; ok {
		cp := *existing
		return false, &cp, nil
	}
	cp := *w
	cp.ReceivedAt = time.Now()
	r.rows[w.DedupKey] = &cp
	out := cp
	return true, &out, nil
}

func (r *memWebhookRepo) Claim(dedupKey, claimedBy string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[dedupKey]
	if !ok || row.Processed || !row.SignatureValid {
		return false, nil
	}
	row.Processed = true
	row.ClaimedBy = claimedBy
	return true, nil
}

func (r *memWebhookRepo) SetResult(dedupKey, result string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[dedupKey]; ok {
		row.Result = result
	}
	return nil
}

func (r *memWebhookRepo) MarkRejected(dedupKey string) error {
	if r.onMarkRejected != nil {
		r.onMarkRejected()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[dedupKey]; ok && !row.Processed {
		row.Result = models.WebhookResultRejected
	}
	return nil
}

func (r *memWebhookRepo) ReleaseClaim(dedupKey, claimedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[dedupKey]; ok && (!row.Processed || row.ClaimedBy == claimedBy) {
		row.Processed = false
		row.Result = models.WebhookResultError
	}
	return nil
}

func (r *memWebhookRepo) MarkSignatureValid(dedupKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[dedupKey]; ok {
		row.SignatureValid = true
	}
	return nil
}

func (r *memWebhookRepo) GetByDedupKey(dedupKey string) (*models.PaymentWebhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[dedupKey]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memWebhookRepo) ListUnprocessed(limit int) ([]models.PaymentWebhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentWebhook
	for _, row := range r.rows {
		if !row.Processed {
			out = append(out, *row)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type memOrderRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.Order
	findErr error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{rows: make(map[string]*models.Order)}
}

func (r *memOrderRepo) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.rows[order.OrderID] = &cp
	return nil
}

func (r *memOrderRepo) GetByOrderID(orderID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memOrderRepo) GetByProviderTransactionID(transactionID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, row := range r.rows {
		if row.ProviderTransactionID == transactionID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memOrderRepo) ConfirmIfDraft(orderID string, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[orderID]
	if !ok || row.Status != models.OrderStatusDraft {
		return false, nil
	}
	row.Status = models.OrderStatusConfirmed
	row.PaymentStatus = models.PaymentStatusPaid
	row.PaidAt = &paidAt
	return true, nil
}

func (r *memOrderRepo) CancelIfDraft(orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[orderID]
	if !ok || row.Status != models.OrderStatusDraft {
		return false, nil
	}
	row.Status = models.OrderStatusCancelled
	row.PaymentStatus = models.PaymentStatusFailed
	return true, nil
}

type memCheckoutRepo struct {
	mu           sync.Mutex
	sessions     map[string]*models.CheckoutSession
	reservations map[string]*models.Reservation
}

func newMemCheckoutRepo() *memCheckoutRepo {
	return &memCheckoutRepo{
		sessions:     make(map[string]*models.CheckoutSession),
		reservations: make(map[string]*models.Reservation),
	}
}

func (r *memCheckoutRepo) CreateSession(session *models.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	r.sessions[session.SessionID] = &cp
	return nil
}

func (r *memCheckoutRepo) GetSession(sessionID string) (*models.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.sessions[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memCheckoutRepo) GetSessionByOrderID(orderID string) (*models.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.sessions {
		if row.OrderID == orderID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memCheckoutRepo) MarkSessionStockReserved(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.sessions[sessionID]; ok {
		row.StockReserved = true
	}
	return nil
}

func (r *memCheckoutRepo) TransitionSession(sessionID, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.sessions[sessionID]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	return true, nil
}

func (r *memCheckoutRepo) ListExpiredSessions(now time.Time, limit int) ([]models.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CheckoutSession
	for _, row := range r.sessions {
		if row.IsOpen() && row.ExpiresAt.Before(now) {
			out = append(out, *row)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memCheckoutRepo) CreateReservation(res *models.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *res
	r.reservations[res.ReservationID] = &cp
	return nil
}

func (r *memCheckoutRepo) ListReservationsBySession(sessionID string) ([]models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reservation
	for _, row := range r.reservations {
		if row.SessionID == sessionID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *memCheckoutRepo) TransitionReservation(reservationID, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.reservations[reservationID]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	return true, nil
}

func (r *memCheckoutRepo) ListExpiredReservations(now time.Time, limit int) ([]models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reservation
	for _, row := range r.reservations {
		if row.Status == models.ReservationStatusActive && row.ExpiresAt.Before(now) {
			out = append(out, *row)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type memStockRepo struct {
	mu   sync.Mutex
	rows map[string]*models.ProductStock
}

func newMemStockRepo() *memStockRepo {
	return &memStockRepo{rows: make(map[string]*models.ProductStock)}
}

func stockKey(productID uint, size string) string {
	return fmt.Sprintf("%d:%s", productID, size)
}

func (r *memStockRepo) seed(productID uint, size string, stock int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[stockKey(productID, size)] = &models.ProductStock{ProductID: productID, Size: size, Stock: stock}
}

func (r *memStockRepo) Reserve(productID uint, size string, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[stockKey(productID, size)]
	if !ok || row.Stock-row.Reserved < qty {
		return false, nil
	}
	row.Reserved += qty
	return true, nil
}

func (r *memStockRepo) Commit(productID uint, size string, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[stockKey(productID, size)]
	if !ok || row.Reserved < qty {
		return false, nil
	}
	row.Stock -= qty
	row.Reserved -= qty
	return true, nil
}

func (r *memStockRepo) Release(productID uint, size string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[stockKey(productID, size)]
	if !ok {
		return nil
	}
	row.Reserved -= qty
	if row.Reserved < 0 {
		row.Reserved = 0
	}
	return nil
}

func (r *memStockRepo) Get(productID uint, size string) (*models.ProductStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[stockKey(productID, size)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memStockRepo) ListByProduct(productID uint) ([]models.ProductStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ProductStock
	for _, row := range r.rows {
		if row.ProductID == productID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *memStockRepo) Upsert(stock *models.ProductStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[stockKey(stock.ProductID, stock.Size)] = stock
	return nil
}

// memQueue records reconciliation traffic in memory.
type memQueue struct {
	mu      sync.Mutex
	retries []string
	alerts  []string
}

func (q *memQueue) EnqueueRetry(_ context.Context, dedupKey string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retries = append(q.retries, dedupKey)
	return nil
}

func (q *memQueue) EnqueueAlert(_ context.Context, message string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.alerts = append(q.alerts, message)
	return nil
}

func (q *memQueue) retryCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.retries)
}

func (q *memQueue) alertCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.alerts)
}
