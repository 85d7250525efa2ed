package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	asaasSandboxURL    = "https://api-sandbox.asaas.com/v3"
	asaasProductionURL = "https://api.asaas.com/v3"
)

// AsaasAdapter integrates the Asaas REST API. PIX charges use static QR
// codes bound to the account's PIX address key; boleto and card use
// payment links so no per-buyer customer record is needed at checkout.
type AsaasAdapter struct{}

// NewAsaasAdapter creates a new Asaas adapter.
func NewAsaasAdapter() *AsaasAdapter {
	return &AsaasAdapter{}
}

func (a *AsaasAdapter) Name() string        { return "asaas" }
func (a *AsaasAdapter) DisplayName() string { return "Asaas" }

func (a *AsaasAdapter) SupportedMethods() []Method {
	return []Method{MethodPix, MethodBoleto, MethodCard}
}

func (a *AsaasAdapter) RequiredFields() []string {
	return []string{"api_key", "pix_address_key"}
}

func (a *AsaasAdapter) baseURL(env Environment) string {
	if env == EnvProduction {
		return asaasProductionURL
	}
	return asaasSandboxURL
}

func (a *AsaasAdapter) headers(creds Credentials) map[string]string {
	return map[string]string{"access_token": creds.Get("api_key")}
}

type asaasStaticQRRequest struct {
	AddressKey             string  `json:"addressKey"`
	Value                  float64 `json:"value"`
	Format                 string  `json:"format"`
	ExpirationSeconds      int     `json:"expirationSeconds"`
	AllowsMultiplePayments bool    `json:"allowsMultiplePayments"`
	ExternalReference      string  `json:"externalReference"`
}

type asaasStaticQRResponse struct {
	ID      string `json:"id"`
	Payload string `json:"payload"`
}

func (a *AsaasAdapter) CreatePixCharge(ctx context.Context, amount int64, orderRef string, env Environment, creds Credentials) (*PixCharge, error) {
	var qr asaasStaticQRResponse
	raw, err := doJSON(ctx, a.Name(), apiRequest{
		method:  http.MethodPost,
		url:     a.baseURL(env) + "/pix/qrCodes/static",
		headers: a.headers(creds),
		body: asaasStaticQRRequest{
			AddressKey:             creds.Get("pix_address_key"),
			Value:                  centsToFloat(amount),
			Format:                 "ALL",
			ExpirationSeconds:      1800,
			AllowsMultiplePayments: false,
			ExternalReference:      orderRef,
		},
	}, &qr)
	if err != nil {
		return nil, err
	}

	return &PixCharge{
		QRPayload:             qr.Payload,
		CopyableCode:          qr.Payload,
		ProviderTransactionID: qr.ID,
		RawPayload:            string(raw),
	}, nil
}

type asaasPaymentLinkRequest struct {
	Name              string  `json:"name"`
	BillingType       string  `json:"billingType"`
	ChargeType        string  `json:"chargeType"`
	Value             float64 `json:"value"`
	DueDateLimitDays  int     `json:"dueDateLimitDays,omitempty"`
	ExternalReference string  `json:"externalReference"`
}

type asaasPaymentLinkResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (a *AsaasAdapter) CreateHostedCheckout(ctx context.Context, amount int64, orderRef string, method Method, env Environment, creds Credentials) (*HostedCheckout, error) {
	var billingType string
	switch method {
	case MethodBoleto:
		billingType = "BOLETO"
	case MethodCard:
		billingType = "CREDIT_CARD"
	default:
		return nil, notSupported(a.Name(), method)
	}

	var link asaasPaymentLinkResponse
	raw, err := doJSON(ctx, a.Name(), apiRequest{
		method:  http.MethodPost,
		url:     a.baseURL(env) + "/paymentLinks",
		headers: a.headers(creds),
		body: asaasPaymentLinkRequest{
			Name:              "Pedido " + orderRef,
			BillingType:       billingType,
			ChargeType:        "DETACHED",
			Value:             centsToFloat(amount),
			DueDateLimitDays:  3,
			ExternalReference: orderRef,
		},
	}, &link)
	if err != nil {
		return nil, err
	}

	return &HostedCheckout{
		RedirectURL:           link.URL,
		ProviderTransactionID: link.ID,
		RawPayload:            string(raw),
	}, nil
}

func (a *AsaasAdapter) VerifyCredentials(ctx context.Context, env Environment, creds Credentials) (*ConnectionTestResult, error) {
	_, err := doJSON(ctx, a.Name(), apiRequest{
		method:  http.MethodGet,
		url:     a.baseURL(env) + "/finance/balance",
		headers: a.headers(creds),
	}, nil)
	if err != nil {
		return &ConnectionTestResult{
			Success:           false,
			Message:           err.Error(),
			TestedEnvironment: env,
		}, err
	}
	return &ConnectionTestResult{
		Success:           true,
		Message:           "authenticated",
		TestedEnvironment: env,
	}, nil
}

// VerifyWebhookSignature checks the asaas-access-token header against
// the configured webhook secret.
func (a *AsaasAdapter) VerifyWebhookSignature(rawBody []byte, headers http.Header, secret string) bool {
	if secret == "" {
		return false
	}
	return constantTimeEqual(headers.Get("asaas-access-token"), secret)
}

type asaasWebhookPayload struct {
	Event   string `json:"event"`
	Payment struct {
		ID          string `json:"id"`
		PixQrCodeID string `json:"pixQrCodeId"`
		PaymentLink string `json:"paymentLink"`
	} `json:"payment"`
}

// ParseWebhookPayload maps Asaas events onto canonical statuses. The
// transaction id is the static QR id for PIX payments and the payment
// link id for hosted checkouts, matching what charge creation returned.
func (a *AsaasAdapter) ParseWebhookPayload(rawBody []byte) (*PaymentEvent, error) {
	var payload asaasWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, err
	}

	var status EventStatus
	switch payload.Event {
	case "PAYMENT_RECEIVED", "PAYMENT_CONFIRMED":
		status = EventCompleted
	case "PAYMENT_OVERDUE", "PAYMENT_DELETED":
		status = EventFailed
	default:
		return nil, nil
	}

	txID := payload.Payment.PixQrCodeID
	if txID == "" {
		txID = payload.Payment.PaymentLink
	}
	if txID == "" {
		txID = payload.Payment.ID
	}

	return &PaymentEvent{
		Provider:              a.Name(),
		ProviderTransactionID: txID,
		Status:                status,
		ReceivedAt:            time.Now(),
	}, nil
}
