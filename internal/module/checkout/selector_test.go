package checkout

import (
	"context"
	"testing"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/module/checkout/provider"
	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorPriorityOrder(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register(&fakeAdapter{name: "alpha", methods: []provider.Method{provider.MethodPix}, fields: []string{"api_key"}})
	registry.Register(&fakeAdapter{name: "beta", methods: []provider.Method{provider.MethodPix}, fields: []string{"api_key"}})

	store := newMemStore(
		enabledConfig("alpha", map[string]string{"api_key": "a"}),
		enabledConfig("beta", map[string]string{"api_key": "b"}),
	)
	selector := NewSelector(store, registry)

	sel, err := selector.Select(context.Background(), provider.MethodPix, "")
	require.NoError(t, err)
	assert.Equal(t, "alpha", sel.Adapter.Name())
}

func TestSelectorSkipsIneligible(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register(&fakeAdapter{name: "disabled", methods: []provider.Method{provider.MethodPix}, fields: []string{"api_key"}})
	registry.Register(&fakeAdapter{name: "unconfigured", methods: []provider.Method{provider.MethodPix}, fields: []string{"api_key", "pix_key"}})
	registry.Register(&fakeAdapter{name: "cardonly", methods: []provider.Method{provider.MethodCard}, fields: []string{"api_key"}})
	registry.Register(&fakeAdapter{name: "good", methods: []provider.Method{provider.MethodPix}, fields: []string{"api_key"}})

	disabled := enabledConfig("disabled", map[string]string{"api_key": "x"})
	disabled.IsEnabled = false

	store := newMemStore(
		disabled,
		enabledConfig("unconfigured", map[string]string{"api_key": "x"}),
		enabledConfig("cardonly", map[string]string{"api_key": "x"}),
		enabledConfig("good", map[string]string{"api_key": "x"}),
	)
	selector := NewSelector(store, registry)

	sel, err := selector.Select(context.Background(), provider.MethodPix, "")
	require.NoError(t, err)
	assert.Equal(t, "good", sel.Adapter.Name())
}

func TestSelectorMissingRequiredFieldNeverChosen(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register(&fakeAdapter{name: "half", methods: []provider.Method{provider.MethodPix}, fields: []string{"api_key", "pix_key"}})

	store := newMemStore(enabledConfig("half", map[string]string{"api_key": "x", "pix_key": ""}))
	selector := NewSelector(store, registry)

	_, err := selector.Select(context.Background(), provider.MethodPix, "")
	assert.ErrorIs(t, err, apperrors.ErrNoGatewayAvailable)
}

func TestSelectorNoGatewayAvailable(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register(&fakeAdapter{name: "alpha", methods: []provider.Method{provider.MethodPix}, fields: []string{"api_key"}})

	selector := NewSelector(newMemStore(), registry)

	_, err := selector.Select(context.Background(), provider.MethodPix, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoGatewayAvailable)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 503, appErr.StatusCode)
}

func TestSelectorPreference(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register(&fakeAdapter{name: "alpha", methods: []provider.Method{provider.MethodPix}, fields: []string{"api_key"}})
	registry.Register(&fakeAdapter{name: "beta", methods: []provider.Method{provider.MethodPix}, fields: []string{"api_key"}})

	betaOnly := newMemStore(
		enabledConfig("alpha", map[string]string{"api_key": "a"}),
		enabledConfig("beta", map[string]string{"api_key": "b"}),
	)
	selector := NewSelector(betaOnly, registry)

	t.Run("explicit preference wins over priority", func(t *testing.T) {
		sel, err := selector.Select(context.Background(), provider.MethodPix, "beta")
		require.NoError(t, err)
		assert.Equal(t, "beta", sel.Adapter.Name())
	})

	t.Run("unknown preference is a validation error", func(t *testing.T) {
		_, err := selector.Select(context.Background(), provider.MethodPix, "gamma")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("ineligible preference yields no gateway", func(t *testing.T) {
		disabled := enabledConfig("beta", map[string]string{"api_key": "b"})
		disabled.IsEnabled = false
		s := NewSelector(newMemStore(enabledConfig("alpha", map[string]string{"api_key": "a"}), disabled), registry)

		_, err := s.Select(context.Background(), provider.MethodPix, "beta")
		assert.ErrorIs(t, err, apperrors.ErrNoGatewayAvailable)
	})
}
