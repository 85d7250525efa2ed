package checkout

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookRouter(t *testing.T, repo *memRepo, adapter *fakeAdapter) (*gin.Engine, *countingCatalog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := provider.NewRegistry()
	registry.Register(adapter)

	creds := map[string]string{}
	for _, f := range adapter.RequiredFields() {
		creds[f] = "value"
	}
	store := newMemStore(enabledConfig(adapter.Name(), creds))

	catalog := newCountingCatalog()
	machine := NewStateMachine(repo, catalog, testLogger())
	handler := NewWebhookHandler(registry, store, repo, machine, testMetrics(), testLogger())

	r := gin.New()
	handler.RegisterRoutes(r)
	return r, catalog
}

func postWebhook(r *gin.Engine, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookReceive(t *testing.T) {
	body := []byte(`{"anything":true}`)

	t.Run("valid event completes the payment", func(t *testing.T) {
		repo := newMemRepo()
		payment := &Payment{
			ID:                    uuid.New(),
			OrderRef:              "order-1",
			PlanSlug:              "pro",
			ProviderName:          "alpha",
			ProviderTransactionID: "tx-1",
			Method:                provider.MethodPix,
			AmountCents:           1000,
			Status:                StatusPending,
		}
		require.NoError(t, repo.Create(context.Background(), payment))

		r, catalog := newWebhookRouter(t, repo, &fakeAdapter{
			name: "alpha", fields: []string{"api_key"}, sigValid: true,
			event: &provider.PaymentEvent{
				Provider:              "alpha",
				ProviderTransactionID: "tx-1",
				Status:                provider.EventCompleted,
				ReceivedAt:            time.Now(),
			},
		})

		w := postWebhook(r, "/webhook/alpha", body)
		assert.Equal(t, http.StatusOK, w.Code)

		stored, err := repo.GetByID(context.Background(), payment.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, stored.Status)
		assert.Equal(t, 1, catalog.count())
	})

	t.Run("invalid signature returns 401 and changes nothing", func(t *testing.T) {
		repo := newMemRepo()
		payment := &Payment{
			ID: uuid.New(), ProviderName: "alpha", ProviderTransactionID: "tx-1",
			Method: provider.MethodPix, Status: StatusPending,
		}
		require.NoError(t, repo.Create(context.Background(), payment))

		r, _ := newWebhookRouter(t, repo, &fakeAdapter{
			name: "alpha", fields: []string{"api_key"}, sigValid: false,
			event: &provider.PaymentEvent{
				Provider: "alpha", ProviderTransactionID: "tx-1", Status: provider.EventCompleted,
			},
		})

		w := postWebhook(r, "/webhook/alpha", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		stored, err := repo.GetByID(context.Background(), payment.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, stored.Status)
	})

	t.Run("unknown transaction is acknowledged", func(t *testing.T) {
		repo := newMemRepo()
		r, _ := newWebhookRouter(t, repo, &fakeAdapter{
			name: "alpha", fields: []string{"api_key"}, sigValid: true,
			event: &provider.PaymentEvent{
				Provider: "alpha", ProviderTransactionID: "tx-nobody", Status: provider.EventCompleted,
			},
		})

		w := postWebhook(r, "/webhook/alpha", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"processed":false`)
	})

	t.Run("duplicate delivery is swallowed with 200", func(t *testing.T) {
		repo := newMemRepo()
		payment := &Payment{
			ID: uuid.New(), PlanSlug: "pro", ProviderName: "alpha", ProviderTransactionID: "tx-1",
			Method: provider.MethodPix, Status: StatusPending,
		}
		require.NoError(t, repo.Create(context.Background(), payment))

		r, catalog := newWebhookRouter(t, repo, &fakeAdapter{
			name: "alpha", fields: []string{"api_key"}, sigValid: true,
			event: &provider.PaymentEvent{
				Provider: "alpha", ProviderTransactionID: "tx-1", Status: provider.EventCompleted,
			},
		})

		first := postWebhook(r, "/webhook/alpha", body)
		second := postWebhook(r, "/webhook/alpha", body)
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, 1, catalog.count())
	})

	t.Run("ignored event is acknowledged without transition", func(t *testing.T) {
		repo := newMemRepo()
		r, _ := newWebhookRouter(t, repo, &fakeAdapter{
			name: "alpha", fields: []string{"api_key"}, sigValid: true, event: nil,
		})

		w := postWebhook(r, "/webhook/alpha", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"processed":false`)
	})

	t.Run("unknown provider returns 404", func(t *testing.T) {
		repo := newMemRepo()
		r, _ := newWebhookRouter(t, repo, &fakeAdapter{name: "alpha", fields: []string{"api_key"}})

		w := postWebhook(r, "/webhook/ghost", body)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("api-prefixed route works", func(t *testing.T) {
		repo := newMemRepo()
		r, _ := newWebhookRouter(t, repo, &fakeAdapter{
			name: "alpha", fields: []string{"api_key"}, sigValid: true, event: nil,
		})

		w := postWebhook(r, "/api/webhook/alpha", body)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("failed event marks the payment failed", func(t *testing.T) {
		repo := newMemRepo()
		payment := &Payment{
			ID: uuid.New(), PlanSlug: "pro", ProviderName: "alpha", ProviderTransactionID: "tx-1",
			Method: provider.MethodPix, Status: StatusPending,
		}
		require.NoError(t, repo.Create(context.Background(), payment))

		r, catalog := newWebhookRouter(t, repo, &fakeAdapter{
			name: "alpha", fields: []string{"api_key"}, sigValid: true,
			event: &provider.PaymentEvent{
				Provider: "alpha", ProviderTransactionID: "tx-1", Status: provider.EventFailed,
			},
		})

		w := postWebhook(r, "/webhook/alpha", body)
		assert.Equal(t, http.StatusOK, w.Code)

		stored, err := repo.GetByID(context.Background(), payment.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, stored.Status)
		assert.Equal(t, 0, catalog.count())
	})
}
