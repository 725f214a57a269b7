package stock

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/vastrahub/vastrahub/app/repository"
)

var (
	// ErrInsufficientStock means a reserve guard failed: the requested quantity
	// exceeds stock - reserved for that product+size.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrReservationInconsistent means a commit guard failed: reserved < qty at
	// commit time. This indicates a violated concurrency invariant (for example
	// a sweeper released the hold while payment confirmed) and must be surfaced
	// to an operator, never auto-resolved.
	ErrReservationInconsistent = errors.New("reservation inconsistent")
)

// Line identifies one product+size quantity in a reservation or commit.
type Line struct {
	ProductID uint
	Size      string
	Quantity  int
}

// Ledger wraps the per-size stock counters with the three atomic verbs.
// It holds no state of its own; all guarding happens in the repository's
// conditional updates so multiple service instances stay correct.
type Ledger struct {
	repo repository.StockRepository
}

// NewLedger creates a stock ledger over the given repository.
func NewLedger(repo repository.StockRepository) *Ledger {
	return &Ledger{repo: repo}
}

// Reserve holds qty units of one product+size for an in-flight checkout.
func (l *Ledger) Reserve(productID uint, size string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}
	ok, err := l.repo.Reserve(productID, size, qty)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("product %d size %s qty %d: %w", productID, size, qty, ErrInsufficientStock)
	}
	return nil
}

// ReserveAll reserves every line or none: when a line fails, the holds already
// granted in this call are released again before the error is returned.
func (l *Ledger) ReserveAll(lines []Line) error {
	granted := make([]Line, 0, len(lines))
	for _, line := range lines {
		if err := l.Reserve(line.ProductID, line.Size, line.Quantity); err != nil {
			for _, g := range granted {
				if relErr := l.Release(g.ProductID, g.Size, g.Quantity); relErr != nil {
					log.Errorf("[StockLedger] Compensating release failed for product %d size %s: %v",
						g.ProductID, g.Size, relErr)
				}
			}
			return err
		}
		granted = append(granted, line)
	}
	return nil
}

// Commit permanently debits a confirmed sale: stock and reserved both drop by
// qty. A failed guard is fatal, not retryable.
func (l *Ledger) Commit(productID uint, size string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("commit quantity must be positive, got %d", qty)
	}
	ok, err := l.repo.Commit(productID, size, qty)
	if err != nil {
		return err
	}
	if !ok {
		log.Errorf("[StockLedger] Commit guard failed for product %d size %s qty %d", productID, size, qty)
		return fmt.Errorf("product %d size %s qty %d: %w", productID, size, qty, ErrReservationInconsistent)
	}
	return nil
}

// Release returns a hold to available stock. Floored at zero in SQL, so a
// double release is a no-op rather than an error.
func (l *Ledger) Release(productID uint, size string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release quantity must be positive, got %d", qty)
	}
	return l.repo.Release(productID, size, qty)
}

// Available returns stock - reserved for one product+size.
func (l *Ledger) Available(productID uint, size string) (int, error) {
	entry, err := l.repo.Get(productID, size)
	if err != nil {
		return 0, err
	}
	return entry.AvailableStock(), nil
}
