package watch

import (
	"context"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"equipment-usage-backend/config"
	"equipment-usage-backend/internal/notification"
	"equipment-usage-backend/internal/store"
)

// Service periodically sweeps for usage logs that have run past their
// expected end time and dispatches availability notifications. It never
// rewrites a log's status: lifecycle status is derived at read time, the
// sweep only records that a notification went out.
type Service struct {
	cfg        *config.Config
	store      store.Store
	workerPool *notification.WorkerPool
}

// NewService creates and initializes a new watcher service.
func NewService(cfg *config.Config, st store.Store) *Service {
	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, st.DB(), &webpushOptions)

	return &Service{
		cfg:        cfg,
		store:      st,
		workerPool: workerPool,
	}
}

// Run starts the sweep loop.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Watcher.Enabled {
		log.Println("Watcher is disabled. Not starting.")
		return
	}
	log.Println("Starting watcher service...")

	// Start the worker pool
	s.workerPool.Start(ctx)

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Watcher.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Watcher service shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Watcher.Interval)
		}
	}
}

// SweepOnce performs a single overdue sweep. The clock is read exactly once
// per cycle so every decision within the cycle sees the same instant.
func (s *Service) SweepOnce(ctx context.Context) {
	now := time.Now().UTC()

	equipmentIDs, err := s.store.SweepOverdue(ctx, now)
	if err != nil {
		log.Printf("Error sweeping overdue logs: %v", err)
		return
	}
	if len(equipmentIDs) == 0 {
		return
	}

	log.Printf("Dispatching availability notifications for %d pieces of equipment", len(equipmentIDs))
	for _, id := range equipmentIDs {
		s.workerPool.Dispatch(id)
	}
}
