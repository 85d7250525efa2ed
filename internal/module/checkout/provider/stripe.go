package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeAdapter integrates Stripe for hosted card checkout. Stripe has
// no PIX or boleto support on this account setup, so only card is
// advertised. A fresh API client is built per call so sandbox (test
// mode) and production keys never share state.
type StripeAdapter struct{}

// NewStripeAdapter creates a new Stripe adapter.
func NewStripeAdapter() *StripeAdapter {
	return &StripeAdapter{}
}

func (s *StripeAdapter) Name() string        { return "stripe" }
func (s *StripeAdapter) DisplayName() string { return "Stripe" }

func (s *StripeAdapter) SupportedMethods() []Method {
	return []Method{MethodCard}
}

func (s *StripeAdapter) RequiredFields() []string {
	return []string{"secret_key", "success_url", "cancel_url"}
}

func (s *StripeAdapter) api(creds Credentials) *client.API {
	sc := &client.API{}
	sc.Init(creds.Get("secret_key"), nil)
	return sc
}

func (s *StripeAdapter) CreatePixCharge(ctx context.Context, amount int64, orderRef string, env Environment, creds Credentials) (*PixCharge, error) {
	return nil, notSupported(s.Name(), MethodPix)
}

func (s *StripeAdapter) CreateHostedCheckout(ctx context.Context, amount int64, orderRef string, method Method, env Environment, creds Credentials) (*HostedCheckout, error) {
	if method != MethodCard {
		return nil, notSupported(s.Name(), method)
	}

	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(orderRef),
		SuccessURL:        stripe.String(creds.Get("success_url")),
		CancelURL:         stripe.String(creds.Get("cancel_url")),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("brl"),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Pedido " + orderRef),
					},
				},
			},
		},
	}

	sess, err := s.api(creds).CheckoutSessions.New(params)
	if err != nil {
		return nil, s.wrapStripeError(err)
	}

	raw, _ := json.Marshal(sess)
	return &HostedCheckout{
		RedirectURL:           sess.URL,
		ProviderTransactionID: sess.ID,
		RawPayload:            string(raw),
	}, nil
}

// VerifyCredentials retrieves the account balance, a read-only call.
func (s *StripeAdapter) VerifyCredentials(ctx context.Context, env Environment, creds Credentials) (*ConnectionTestResult, error) {
	_, err := s.api(creds).Balance.Get(&stripe.BalanceParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		wrapped := s.wrapStripeError(err)
		return &ConnectionTestResult{
			Success:           false,
			Message:           wrapped.Error(),
			TestedEnvironment: env,
		}, wrapped
	}
	return &ConnectionTestResult{
		Success:           true,
		Message:           "authenticated",
		TestedEnvironment: env,
	}, nil
}

// VerifyWebhookSignature delegates to Stripe's signed-event scheme
// (t/v1 HMAC over timestamp and body, compared in constant time).
func (s *StripeAdapter) VerifyWebhookSignature(rawBody []byte, headers http.Header, secret string) bool {
	if secret == "" {
		return false
	}
	_, err := webhook.ConstructEventWithOptions(rawBody, headers.Get("Stripe-Signature"), secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	return err == nil
}

// ParseWebhookPayload maps checkout session lifecycle events. Sessions
// expire when the buyer abandons the hosted page.
func (s *StripeAdapter) ParseWebhookPayload(rawBody []byte) (*PaymentEvent, error) {
	var event stripe.Event
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, err
	}

	var status EventStatus
	switch event.Type {
	case "checkout.session.completed":
		status = EventCompleted
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		status = EventFailed
	default:
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, err
	}

	return &PaymentEvent{
		Provider:              s.Name(),
		ProviderTransactionID: sess.ID,
		Status:                status,
		ReceivedAt:            time.Now(),
	}, nil
}

func (s *StripeAdapter) wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 {
			return apperrors.ProviderUnavailable(s.Name(), err)
		}
		return apperrors.ProviderRejected(s.Name(), err)
	}
	return apperrors.ProviderUnavailable(s.Name(), err)
}
