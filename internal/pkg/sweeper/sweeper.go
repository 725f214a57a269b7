package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/vastrahub/vastrahub/app/repository"
	"github.com/vastrahub/vastrahub/internal/pkg/checkout"
	"github.com/vastrahub/vastrahub/internal/pkg/reconcile"
)

const sweepBatchSize = 100
const drainBatchSize = 50

// Manager runs the reservation expiry sweep and the webhook reconciliation
// drain as background tasks. It coordinates with the request path only
// through the same status-CAS and atomic ledger verbs, so running two
// instances concurrently is safe.
type Manager struct {
	checkout    *checkout.Manager
	repo        repository.CheckoutRepository
	drainer     *reconcile.Drainer
	interval    time.Duration
	sweepTicker *time.Ticker
	drainTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// Initialize sets up the global sweeper manager (singleton).
func Initialize(checkoutMgr *checkout.Manager, repo repository.CheckoutRepository, drainer *reconcile.Drainer, interval time.Duration) *Manager {
	managerOnce.Do(func() {
		globalManager = NewManager(checkoutMgr, repo, drainer, interval)
	})
	return globalManager
}

// GetManager returns the global sweeper manager.
func GetManager() *Manager {
	if globalManager == nil {
		panic("Sweeper manager not initialized. Call Initialize first.")
	}
	return globalManager
}

// NewManager creates a sweeper manager sweeping on the given interval.
func NewManager(checkoutMgr *checkout.Manager, repo repository.CheckoutRepository, drainer *reconcile.Drainer, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Manager{
		checkout: checkoutMgr,
		repo:     repo,
		drainer:  drainer,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the background tasks.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so the manager can be
	// restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Infof("[Sweeper] Starting (interval=%s)", m.interval)

	m.sweepTicker = time.NewTicker(m.interval)
	m.wg.Add(1)
	go m.sweepWorker()

	if m.drainer != nil {
		m.drainTicker = time.NewTicker(m.interval)
		m.wg.Add(1)
		go m.drainWorker()
	}
}

// Stop stops the background tasks and waits for them to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Sweeper] Stopping...")
	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}
	if m.drainTicker != nil {
		m.drainTicker.Stop()
	}
	close(m.stopCh)
	m.running = false
	m.wg.Wait()
	log.Info("[Sweeper] Stopped")
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.sweepTicker.C:
			released, err := m.SweepOnce()
			if err != nil {
				log.Errorf("[Sweeper] Sweep pass failed: %v", err)
			} else if released > 0 {
				log.Infof("[Sweeper] Released %d expired reservations", released)
			}
		}
	}
}

func (m *Manager) drainWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.drainTicker.C:
			handled := m.drainer.DrainOnce(context.Background(), drainBatchSize)
			if handled > 0 {
				log.Infof("[Sweeper] Reconciled %d parked webhooks", handled)
			}
		}
	}
}

// SweepOnce runs one expiry pass: every active reservation past its deadline
// is resolved (CAS active -> expired, stock released by the CAS winner only)
// and timed-out sessions are expired. Re-running on already-released
// reservations is a no-op, so concurrent sweepers are harmless.
func (m *Manager) SweepOnce() (int, error) {
	now := time.Now()

	reservations, err := m.repo.ListExpiredReservations(now, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range reservations {
		res := &reservations[i]
		if err := m.checkout.ExpireReservation(res); err != nil {
			log.Errorf("[Sweeper] Failed to expire reservation %s: %v", res.ReservationID, err)
			continue
		}
		released++
	}

	sessions, err := m.repo.ListExpiredSessions(now, sweepBatchSize)
	if err != nil {
		return released, err
	}
	for _, session := range sessions {
		if err := m.checkout.ExpireSession(session.SessionID); err != nil {
			log.Errorf("[Sweeper] Failed to expire session %s: %v", session.SessionID, err)
		}
	}

	return released, nil
}
