package provider

import (
	"context"
	"net/http"
	"time"
)

// Environment selects which credential bundle a call runs against.
// Sandbox and production bundles are disjoint per provider.
type Environment string

const (
	EnvSandbox    Environment = "sandbox"
	EnvProduction Environment = "production"
)

// Valid reports whether e is a known environment.
func (e Environment) Valid() bool {
	return e == EnvSandbox || e == EnvProduction
}

// Method is a canonical payment method.
type Method string

const (
	MethodPix    Method = "pix"
	MethodBoleto Method = "boleto"
	MethodCard   Method = "card"
)

// Valid reports whether m is a known payment method.
func (m Method) Valid() bool {
	return m == MethodPix || m == MethodBoleto || m == MethodCard
}

// Credentials is the opaque field bundle configured per provider and
// environment. Field names are provider-specific; only the owning
// adapter interprets them.
type Credentials map[string]string

// Get returns the value for key, or empty string.
func (c Credentials) Get(key string) string {
	return c[key]
}

// HasAll reports whether every key is present and non-empty.
func (c Credentials) HasAll(keys []string) bool {
	for _, k := range keys {
		if c[k] == "" {
			return false
		}
	}
	return true
}

// PixCharge is the result of creating a PIX charge.
type PixCharge struct {
	// QRPayload is the EMV payload rendered as a QR code.
	QRPayload string
	// CopyableCode is the "copia e cola" textual code.
	CopyableCode string
	// ProviderTransactionID is the provider-side identifier later
	// carried by webhook events for this charge.
	ProviderTransactionID string
	// RawPayload is the provider response body, kept for audit only.
	RawPayload string
}

// HostedCheckout is the result of creating a hosted checkout session
// (boleto and card flows redirect the buyer to the provider).
type HostedCheckout struct {
	RedirectURL           string
	ProviderTransactionID string
	RawPayload            string
}

// ConnectionTestResult is the outcome of a read-only credential probe.
type ConnectionTestResult struct {
	Success           bool
	Message           string
	TestedEnvironment Environment
}

// EventStatus is the canonical status carried by a parsed webhook event.
type EventStatus string

const (
	EventCompleted EventStatus = "completed"
	EventFailed    EventStatus = "failed"
)

// PaymentEvent is a provider webhook normalized into canonical form. It
// exists only to decouple provider payload shapes from the state machine.
type PaymentEvent struct {
	Provider              string
	ProviderTransactionID string
	Status                EventStatus
	ReceivedAt            time.Time
}

// Adapter translates canonical requests into provider-specific calls
// and normalizes responses and errors. One implementation per provider;
// nothing above this interface branches on provider identity beyond
// choosing the adapter instance.
type Adapter interface {
	// Name is the stable provider key (webhook path segment, config key).
	Name() string

	// DisplayName is the human-readable provider name for admin screens.
	DisplayName() string

	// SupportedMethods lists the payment methods this adapter can charge.
	SupportedMethods() []Method

	// RequiredFields lists the credential keys a bundle must carry for
	// this adapter to operate. Same set for both environments.
	RequiredFields() []string

	// CreatePixCharge creates a PIX charge. Amount is in cents.
	CreatePixCharge(ctx context.Context, amount int64, orderRef string, env Environment, creds Credentials) (*PixCharge, error)

	// CreateHostedCheckout creates a provider-hosted checkout for boleto
	// or card. Amount is in cents.
	CreateHostedCheckout(ctx context.Context, amount int64, orderRef string, method Method, env Environment, creds Credentials) (*HostedCheckout, error)

	// VerifyCredentials performs a read-only authenticated probe, never
	// a real charge. A non-nil error means the probe could not be
	// completed (network); an unsuccessful result means the provider
	// answered and rejected the credentials.
	VerifyCredentials(ctx context.Context, env Environment, creds Credentials) (*ConnectionTestResult, error)

	// VerifyWebhookSignature checks the provider signature over the raw
	// body using constant-time comparison. Must reject any tampered
	// payload regardless of content.
	VerifyWebhookSignature(rawBody []byte, headers http.Header, secret string) bool

	// ParseWebhookPayload maps the provider payload onto a canonical
	// PaymentEvent. A (nil, nil) return means the event carries a status
	// this adapter does not recognize and must be ignored, never guessed.
	ParseWebhookPayload(rawBody []byte) (*PaymentEvent, error)
}

// Supports reports whether the adapter supports the given method.
func Supports(a Adapter, m Method) bool {
	for _, s := range a.SupportedMethods() {
		if s == m {
			return true
		}
	}
	return false
}
