package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/vastrahub/vastrahub/app/models"
	"github.com/vastrahub/vastrahub/app/repository"
	"github.com/vastrahub/vastrahub/internal/pkg/stock"
)

// ErrSessionNotOpen means the session already completed or expired and can no
// longer reserve stock.
var ErrSessionNotOpen = errors.New("checkout session is not open")

// ReserveItem is one product+size line a shopper wants to hold.
type ReserveItem struct {
	ProductID      uint   `json:"product_id" validate:"required"`
	Size           string `json:"size" validate:"required,oneof=XS S M L XL XXL"`
	Quantity       int    `json:"quantity" validate:"required,min=1"`
	UnitPricePaise int64  `json:"unit_price_paise" validate:"gt=0"`
}

// StartInput describes a new checkout attempt.
type StartInput struct {
	ProviderTransactionID string        `validate:"required,max=100"`
	Items                 []ReserveItem `validate:"required,min=1,dive"`
}

// Manager owns checkout sessions and the reservations created for them.
// It is the only writer of reservation rows; resolution (confirm, release,
// expire) always goes through a status CAS before the stock ledger is
// touched, so each hold is resolved exactly once.
type Manager struct {
	orders   repository.OrderRepository
	checkout repository.CheckoutRepository
	ledger   *stock.Ledger
	ttl      time.Duration
	validate *validator.Validate
}

// NewManager creates a checkout manager. ttl is how long reservations are
// held before the sweeper reclaims them.
func NewManager(orders repository.OrderRepository, checkout repository.CheckoutRepository, ledger *stock.Ledger, ttl time.Duration) *Manager {
	return &Manager{
		orders:   orders,
		checkout: checkout,
		ledger:   ledger,
		ttl:      ttl,
		validate: validator.New(),
	}
}

// StartCheckout creates a DRAFT order, a checkout session and one active
// reservation per line, holding the stock up front. If any line cannot be
// reserved, holds already granted are released again and
// stock.ErrInsufficientStock is returned.
func (m *Manager) StartCheckout(in StartInput) (*models.Order, *models.CheckoutSession, error) {
	if err := m.validate.Struct(in); err != nil {
		return nil, nil, err
	}

	lines := make([]stock.Line, len(in.Items))
	for i, item := range in.Items {
		lines[i] = stock.Line{ProductID: item.ProductID, Size: item.Size, Quantity: item.Quantity}
	}
	if err := m.ledger.ReserveAll(lines); err != nil {
		return nil, nil, err
	}

	order := &models.Order{
		OrderID:               uuid.New().String(),
		ProviderTransactionID: in.ProviderTransactionID,
		Status:                models.OrderStatusDraft,
		PaymentStatus:         models.PaymentStatusPending,
	}
	for _, item := range in.Items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:      item.ProductID,
			Size:           item.Size,
			Quantity:       item.Quantity,
			UnitPricePaise: item.UnitPricePaise,
		})
	}
	order.TotalAmountPaise = order.ComputeTotalPaise()

	expiresAt := time.Now().Add(m.ttl)
	session := &models.CheckoutSession{
		SessionID:     uuid.New().String(),
		OrderID:       order.OrderID,
		Status:        models.CheckoutStatusAwaitingPayment,
		StockReserved: true,
		ExpiresAt:     expiresAt,
	}

	if err := m.persistCheckout(order, session, in.Items, expiresAt); err != nil {
		// The stock holds were already granted; give them back.
		for _, line := range lines {
			if relErr := m.ledger.Release(line.ProductID, line.Size, line.Quantity); relErr != nil {
				log.Errorf("[Checkout] Release after failed persist: product %d size %s: %v",
					line.ProductID, line.Size, relErr)
			}
		}
		return nil, nil, err
	}
	return order, session, nil
}

func (m *Manager) persistCheckout(order *models.Order, session *models.CheckoutSession, items []ReserveItem, expiresAt time.Time) error {
	if err := m.orders.Create(order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if err := m.checkout.CreateSession(session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	for _, item := range items {
		res := &models.Reservation{
			ReservationID: uuid.New().String(),
			SessionID:     session.SessionID,
			ProductID:     item.ProductID,
			Size:          item.Size,
			Quantity:      item.Quantity,
			Status:        models.ReservationStatusActive,
			ExpiresAt:     expiresAt,
		}
		if err := m.checkout.CreateReservation(res); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
	}
	return nil
}

// Reserve adds holds to an existing open session that has not reserved yet.
func (m *Manager) Reserve(sessionID string, items []ReserveItem) error {
	for _, item := range items {
		if err := m.validate.Struct(item); err != nil {
			return err
		}
	}

	session, err := m.checkout.GetSession(sessionID)
	if err != nil {
		return err
	}
	if !session.IsOpen() {
		return ErrSessionNotOpen
	}

	lines := make([]stock.Line, len(items))
	for i, item := range items {
		lines[i] = stock.Line{ProductID: item.ProductID, Size: item.Size, Quantity: item.Quantity}
	}
	if err := m.ledger.ReserveAll(lines); err != nil {
		return err
	}

	for _, item := range items {
		res := &models.Reservation{
			ReservationID: uuid.New().String(),
			SessionID:     sessionID,
			ProductID:     item.ProductID,
			Size:          item.Size,
			Quantity:      item.Quantity,
			Status:        models.ReservationStatusActive,
			ExpiresAt:     session.ExpiresAt,
		}
		if err := m.checkout.CreateReservation(res); err != nil {
			return err
		}
	}
	return m.checkout.MarkSessionStockReserved(sessionID)
}

// Release gives back every still-active hold of the session and expires it.
// Safe to call more than once.
func (m *Manager) Release(sessionID string) error {
	reservations, err := m.checkout.ListReservationsBySession(sessionID)
	if err != nil {
		return err
	}
	for _, res := range reservations {
		if err := m.resolveReservation(&res, models.ReservationStatusReleased); err != nil {
			return err
		}
	}
	_, err = m.checkout.TransitionSession(sessionID, models.CheckoutStatusAwaitingPayment, models.CheckoutStatusExpired)
	if err != nil {
		return err
	}
	_, err = m.checkout.TransitionSession(sessionID, models.CheckoutStatusPending, models.CheckoutStatusExpired)
	return err
}

// Confirm commits every active hold of the order's session and completes the
// session. Called once payment is confirmed; the order row itself has already
// transitioned. A commit guard failure is returned as
// stock.ErrReservationInconsistent after the remaining lines were attempted.
func (m *Manager) Confirm(orderID string) error {
	session, err := m.checkout.GetSessionByOrderID(orderID)
	if err != nil {
		return err
	}
	reservations, err := m.checkout.ListReservationsBySession(session.SessionID)
	if err != nil {
		return err
	}

	var inconsistent error
	for _, res := range reservations {
		won, err := m.checkout.TransitionReservation(res.ReservationID, models.ReservationStatusActive, models.ReservationStatusConfirmed)
		if err != nil {
			return err
		}
		if !won {
			// Already resolved elsewhere (e.g. the sweeper expired it). The
			// commit guard below would fail for this line anyway; surface it.
			log.Errorf("[Checkout] Reservation %s no longer active at confirm time", res.ReservationID)
			inconsistent = fmt.Errorf("reservation %s: %w", res.ReservationID, stock.ErrReservationInconsistent)
			continue
		}
		if err := m.ledger.Commit(res.ProductID, res.Size, res.Quantity); err != nil {
			if errors.Is(err, stock.ErrReservationInconsistent) {
				inconsistent = err
				continue
			}
			return err
		}
	}
	if inconsistent != nil {
		return inconsistent
	}

	_, err = m.checkout.TransitionSession(session.SessionID, models.CheckoutStatusAwaitingPayment, models.CheckoutStatusCompleted)
	return err
}

// ReleaseByOrder releases the holds of the order's session, used when a
// payment failure cancels the order.
func (m *Manager) ReleaseByOrder(orderID string) error {
	session, err := m.checkout.GetSessionByOrderID(orderID)
	if err != nil {
		return err
	}
	return m.Release(session.SessionID)
}

// ExpireReservation resolves one timed-out hold: CAS active -> expired, and
// only the winner releases the stock. Re-running on an already-resolved
// reservation is a no-op.
func (m *Manager) ExpireReservation(res *models.Reservation) error {
	return m.resolveReservation(res, models.ReservationStatusExpired)
}

// ExpireSession marks a timed-out session expired. Reservations are expired
// separately so the stock release stays tied to the reservation CAS.
func (m *Manager) ExpireSession(sessionID string) error {
	if _, err := m.checkout.TransitionSession(sessionID, models.CheckoutStatusAwaitingPayment, models.CheckoutStatusExpired); err != nil {
		return err
	}
	_, err := m.checkout.TransitionSession(sessionID, models.CheckoutStatusPending, models.CheckoutStatusExpired)
	return err
}

func (m *Manager) resolveReservation(res *models.Reservation, to string) error {
	won, err := m.checkout.TransitionReservation(res.ReservationID, models.ReservationStatusActive, to)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	return m.ledger.Release(res.ProductID, res.Size, res.Quantity)
}
