package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/gateway"
	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, repo *memRepo, adapters ...provider.Adapter) (*Service, *countingCatalog) {
	t.Helper()

	registry := provider.NewRegistry()
	configs := make([]*gateway.GatewayConfig, 0, len(adapters))
	for _, a := range adapters {
		registry.Register(a)
		creds := map[string]string{}
		for _, f := range a.RequiredFields() {
			creds[f] = "value"
		}
		configs = append(configs, enabledConfig(a.Name(), creds))
	}

	store := newMemStore(configs...)
	catalog := newCountingCatalog(&PlanInfo{Slug: "pro", Name: "Pro", PriceCents: 5990, Currency: "BRL"})
	machine := NewStateMachine(repo, catalog, testLogger())

	svc := NewService(
		repo,
		NewSelector(store, registry),
		machine,
		catalog,
		provider.NewGuard(provider.DefaultGuardConfig()),
		testMetrics(),
		CheckoutOptions{ProviderTimeout: time.Second, PollInterval: 3 * time.Second, PollMaxAttempts: 40},
		testLogger(),
	)
	return svc, catalog
}

func TestStartPixCheckout(t *testing.T) {
	t.Run("creates pending payment with provider charge", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newTestService(t, repo, &fakeAdapter{
			name:    "alpha",
			methods: []provider.Method{provider.MethodPix},
			fields:  []string{"api_key"},
			charge: &provider.PixCharge{
				QRPayload:             "emv-payload",
				CopyableCode:          "emv-payload",
				ProviderTransactionID: "tx-42",
			},
		})

		resp, err := svc.StartPixCheckout(context.Background(), &PixCheckoutRequest{Amount: 2500})
		require.NoError(t, err)
		assert.Equal(t, "emv-payload", resp.QRCode)
		assert.Equal(t, "alpha", resp.Provider)

		id, err := uuid.Parse(resp.PaymentID)
		require.NoError(t, err)
		stored, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, stored.Status)
		assert.Equal(t, "tx-42", stored.ProviderTransactionID)
		assert.Equal(t, int64(2500), stored.AmountCents)
	})

	t.Run("plan slug resolves the price", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newTestService(t, repo, &fakeAdapter{
			name:    "alpha",
			methods: []provider.Method{provider.MethodPix},
			fields:  []string{"api_key"},
			charge:  &provider.PixCharge{ProviderTransactionID: "tx-1"},
		})

		resp, err := svc.StartPixCheckout(context.Background(), &PixCheckoutRequest{Plan: "pro"})
		require.NoError(t, err)

		id, _ := uuid.Parse(resp.PaymentID)
		stored, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(5990), stored.AmountCents)
		assert.Equal(t, "pro", stored.PlanSlug)
	})

	t.Run("unknown plan is a validation error", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newTestService(t, repo, &fakeAdapter{
			name:    "alpha",
			methods: []provider.Method{provider.MethodPix},
			fields:  []string{"api_key"},
		})

		_, err := svc.StartPixCheckout(context.Background(), &PixCheckoutRequest{Plan: "nope"})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.Equal(t, 0, repo.count())
	})

	t.Run("non-positive amount is a validation error", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newTestService(t, repo, &fakeAdapter{
			name:    "alpha",
			methods: []provider.Method{provider.MethodPix},
			fields:  []string{"api_key"},
		})

		_, err := svc.StartPixCheckout(context.Background(), &PixCheckoutRequest{Amount: 0})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("no eligible gateway leaves no payment row", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newTestService(t, repo, &fakeAdapter{
			name:    "cardonly",
			methods: []provider.Method{provider.MethodCard},
			fields:  []string{"api_key"},
		})

		_, err := svc.StartPixCheckout(context.Background(), &PixCheckoutRequest{Amount: 1000})
		assert.ErrorIs(t, err, apperrors.ErrNoGatewayAvailable)
		assert.Equal(t, 0, repo.count())
	})

	t.Run("adapter failure marks the payment failed", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newTestService(t, repo, &fakeAdapter{
			name:    "alpha",
			methods: []provider.Method{provider.MethodPix},
			fields:  []string{"api_key"},
			err:     apperrors.ProviderUnavailable("alpha", context.DeadlineExceeded),
		})

		_, err := svc.StartPixCheckout(context.Background(), &PixCheckoutRequest{Amount: 1000})
		assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)

		require.Equal(t, 1, repo.count())
		payments, err := repo.ListExpiredPending(context.Background(), time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, payments, "failed payment must not stay pending")
	})
}

func TestStartHostedCheckout(t *testing.T) {
	t.Run("boleto redirect", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newTestService(t, repo, &fakeAdapter{
			name:    "alpha",
			methods: []provider.Method{provider.MethodBoleto, provider.MethodCard},
			fields:  []string{"api_key"},
			hosted:  &provider.HostedCheckout{RedirectURL: "https://pay.example/x", ProviderTransactionID: "tx-7"},
		})

		resp, err := svc.StartHostedCheckout(context.Background(), &HostedCheckoutRequest{Amount: 1500, PaymentMethod: "boleto"})
		require.NoError(t, err)
		assert.Equal(t, "https://pay.example/x", resp.URL)
	})

	t.Run("pix is rejected on the hosted route", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newTestService(t, repo, &fakeAdapter{
			name:    "alpha",
			methods: []provider.Method{provider.MethodPix},
			fields:  []string{"api_key"},
		})

		_, err := svc.StartHostedCheckout(context.Background(), &HostedCheckoutRequest{Amount: 1500, PaymentMethod: "pix"})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("unknown method is rejected", func(t *testing.T) {
		repo := newMemRepo()
		svc, _ := newTestService(t, repo, &fakeAdapter{
			name:    "alpha",
			methods: []provider.Method{provider.MethodCard},
			fields:  []string{"api_key"},
		})

		_, err := svc.StartHostedCheckout(context.Background(), &HostedCheckoutRequest{Amount: 1500, PaymentMethod: "crypto"})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestGetStatus(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(t, repo, &fakeAdapter{
		name:    "alpha",
		methods: []provider.Method{provider.MethodPix},
		fields:  []string{"api_key"},
		charge:  &provider.PixCharge{ProviderTransactionID: "tx-1"},
	})

	resp, err := svc.StartPixCheckout(context.Background(), &PixCheckoutRequest{Amount: 1000})
	require.NoError(t, err)

	t.Run("returns current status and polling hints", func(t *testing.T) {
		status, err := svc.GetStatus(context.Background(), resp.PaymentID)
		require.NoError(t, err)
		assert.Equal(t, string(StatusPending), status.Status)
		assert.Equal(t, int64(3000), status.PollIntervalMS)
		assert.Equal(t, 40, status.PollMaxAttempts)
	})

	t.Run("invalid id is a validation error", func(t *testing.T) {
		_, err := svc.GetStatus(context.Background(), "not-a-uuid")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := svc.GetStatus(context.Background(), uuid.NewString())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
