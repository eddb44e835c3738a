package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"equipment-usage-backend/config"
	"equipment-usage-backend/internal/model"
	"equipment-usage-backend/internal/notification"
	"equipment-usage-backend/internal/store"
	"equipment-usage-backend/internal/usage"
)

// mockStore is a mock implementation of the store.Store interface. Only the
// methods the watcher touches do anything.
type mockStore struct {
	store.Store
	SweepOverdueFunc func(ctx context.Context, now time.Time) ([]string, error)
}

func (m *mockStore) DB() *gorm.DB {
	return nil
}

func (m *mockStore) SweepOverdue(ctx context.Context, now time.Time) ([]string, error) {
	return m.SweepOverdueFunc(ctx, now)
}

func TestSweepOnce_DispatchesPerEquipment(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2) // Two pieces of equipment come free

	var sweepNow time.Time
	ms := &mockStore{
		SweepOverdueFunc: func(ctx context.Context, now time.Time) ([]string, error) {
			sweepNow = now
			return []string{"chamber-1", "press-2"}, nil
		},
	}

	cfg := &config.Config{
		Watcher:    config.WatcherConfig{Enabled: true, Interval: time.Minute},
		WorkerPool: config.WorkerPoolConfig{Size: 2},
	}

	service := NewService(cfg, ms)

	// Replace the real worker pool with a mock one
	mockWorkerPool := notification.NewWorkerPool(2, nil, nil)
	service.workerPool = mockWorkerPool

	var mu sync.Mutex
	var dispatched []string
	go func() {
		for id := range mockWorkerPool.Jobs() {
			mu.Lock()
			dispatched = append(dispatched, id)
			mu.Unlock()
			wg.Done()
		}
	}()

	service.SweepOnce(context.Background())

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"chamber-1", "press-2"}, dispatched)
	assert.False(t, sweepNow.IsZero(), "the sweep should pass its clock reading to the store")
}

func TestSweepOnce_ErrorDoesNotDispatch(t *testing.T) {
	ms := &mockStore{
		SweepOverdueFunc: func(ctx context.Context, now time.Time) ([]string, error) {
			return nil, gorm.ErrInvalidDB
		},
	}

	cfg := &config.Config{
		Watcher:    config.WatcherConfig{Enabled: true, Interval: time.Minute},
		WorkerPool: config.WorkerPoolConfig{Size: 1},
	}

	service := NewService(cfg, ms)
	mockWorkerPool := notification.NewWorkerPool(1, nil, nil)
	service.workerPool = mockWorkerPool

	service.SweepOnce(context.Background())

	select {
	case id := <-mockWorkerPool.Jobs():
		t.Fatalf("unexpected dispatch for equipment %s after a failed sweep", id)
	default:
	}
}

// The sweep never rewrites stored statuses; overdue is recomputed from the
// clock on every read.
func TestOverdueIsDerived(t *testing.T) {
	end := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	lg := model.UsageLog{
		ID:          "log-1",
		EquipmentID: "chamber-1",
		StartTime:   end.Add(-2 * time.Hour),
		EndTime:     &end,
		Status:      model.StatusInProgress,
	}

	assert.Equal(t, usage.StatusInProgress, usage.EffectiveStatus(lg, end.Add(-time.Minute)))
	assert.Equal(t, usage.StatusOverdue, usage.EffectiveStatus(lg, end.Add(time.Minute)))
}
