package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiresOldPending(t *testing.T) {
	repo := newMemRepo()
	catalog := newCountingCatalog()
	machine := NewStateMachine(repo, catalog, testLogger())
	sweeper := NewSweeper(repo, machine, testMetrics(), 30*time.Minute, time.Minute, testLogger())

	old := &Payment{
		ID: uuid.New(), ProviderName: "alpha", ProviderTransactionID: "tx-old",
		Method: provider.MethodPix, Status: StatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), old))
	repo.mu.Lock()
	repo.payments[old.ID].CreatedAt = time.Now().Add(-time.Hour)
	repo.mu.Unlock()

	fresh := &Payment{
		ID: uuid.New(), ProviderName: "alpha", ProviderTransactionID: "tx-fresh",
		Method: provider.MethodPix, Status: StatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), fresh))

	sweeper.Sweep(context.Background())

	oldStored, err := repo.GetByID(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, oldStored.Status)

	freshStored, err := repo.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, freshStored.Status)

	t.Run("second sweep is a no-op", func(t *testing.T) {
		sweeper.Sweep(context.Background())
		stored, err := repo.GetByID(context.Background(), old.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusExpired, stored.Status)
	})
}

func TestSweepNeverTouchesTerminalPayments(t *testing.T) {
	repo := newMemRepo()
	catalog := newCountingCatalog()
	machine := NewStateMachine(repo, catalog, testLogger())
	sweeper := NewSweeper(repo, machine, testMetrics(), 30*time.Minute, time.Minute, testLogger())

	completed := &Payment{
		ID: uuid.New(), PlanSlug: "pro", ProviderName: "alpha", ProviderTransactionID: "tx-1",
		Method: provider.MethodPix, Status: StatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), completed))
	repo.mu.Lock()
	repo.payments[completed.ID].CreatedAt = time.Now().Add(-time.Hour)
	repo.mu.Unlock()

	// A webhook lands just before the sweep.
	require.NoError(t, machine.Transition(context.Background(), completed, StatusCompleted, "webhook"))
	sweeper.Sweep(context.Background())

	stored, err := repo.GetByID(context.Background(), completed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 1, catalog.count())
}

func TestSweeperStartStop(t *testing.T) {
	repo := newMemRepo()
	machine := NewStateMachine(repo, newCountingCatalog(), testLogger())
	sweeper := NewSweeper(repo, machine, testMetrics(), 30*time.Minute, 10*time.Millisecond, testLogger())

	sweeper.Start()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
}
