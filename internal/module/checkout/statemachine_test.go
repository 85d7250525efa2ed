package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingPayment(repo *memRepo, planSlug string) *Payment {
	p := &Payment{
		ID:                    uuid.New(),
		OrderRef:              "order-1",
		PlanSlug:              planSlug,
		ProviderName:          "alpha",
		ProviderTransactionID: "tx-1",
		Method:                "pix",
		AmountCents:           5990,
		Currency:              "BRL",
		Status:                StatusPending,
	}
	_ = repo.Create(context.Background(), p)
	return p
}

func TestStateMachineTransition(t *testing.T) {
	repo := newMemRepo()
	catalog := newCountingCatalog()
	machine := NewStateMachine(repo, catalog, testLogger())

	t.Run("completes a pending payment", func(t *testing.T) {
		p := pendingPayment(repo, "pro")
		require.NoError(t, machine.Transition(context.Background(), p, StatusCompleted, "webhook"))

		stored, err := repo.GetByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, stored.Status)
		assert.NotNil(t, stored.CompletedAt)
		assert.Equal(t, 1, catalog.count())
	})

	t.Run("second delivery is a no-op", func(t *testing.T) {
		p := pendingPayment(repo, "pro")
		before := catalog.count()
		require.NoError(t, machine.Transition(context.Background(), p, StatusCompleted, "webhook"))

		err := machine.Transition(context.Background(), p, StatusCompleted, "poll")
		assert.ErrorIs(t, err, ErrAlreadyTransitioned)
		assert.Equal(t, before+1, catalog.count())
	})

	t.Run("failed payment never activates", func(t *testing.T) {
		p := pendingPayment(repo, "pro")
		before := catalog.count()
		require.NoError(t, machine.Transition(context.Background(), p, StatusFailed, "webhook"))
		assert.Equal(t, before, catalog.count())
	})

	t.Run("payment without plan never activates", func(t *testing.T) {
		p := pendingPayment(repo, "")
		before := catalog.count()
		require.NoError(t, machine.Transition(context.Background(), p, StatusCompleted, "webhook"))
		assert.Equal(t, before, catalog.count())
	})

	t.Run("pending is not a valid target", func(t *testing.T) {
		p := pendingPayment(repo, "")
		assert.Error(t, machine.Transition(context.Background(), p, StatusPending, "webhook"))
	})

	t.Run("terminal state admits no further edge", func(t *testing.T) {
		p := pendingPayment(repo, "")
		require.NoError(t, machine.Transition(context.Background(), p, StatusExpired, "sweep"))

		err := machine.Transition(context.Background(), p, StatusCompleted, "webhook")
		assert.ErrorIs(t, err, ErrAlreadyTransitioned)

		stored, err := repo.GetByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusExpired, stored.Status)
	})
}

func TestStateMachineConcurrentDeliveries(t *testing.T) {
	repo := newMemRepo()
	catalog := newCountingCatalog()
	machine := NewStateMachine(repo, catalog, testLogger())
	p := pendingPayment(repo, "pro")

	const n = 50
	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- machine.Transition(context.Background(), p, StatusCompleted, "webhook")
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, ErrAlreadyTransitioned):
			losses++
		}
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, losses)
	assert.Equal(t, 1, catalog.count())
}
