package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"
)

const (
	pagbankSandboxURL    = "https://sandbox.api.pagseguro.com"
	pagbankProductionURL = "https://api.pagseguro.com"
)

// PagBankAdapter integrates the PagBank (PagSeguro) orders and checkout
// APIs. PIX goes through an order carrying a qr_code; boleto and card
// through a hosted checkout.
type PagBankAdapter struct{}

// NewPagBankAdapter creates a new PagBank adapter.
func NewPagBankAdapter() *PagBankAdapter {
	return &PagBankAdapter{}
}

func (p *PagBankAdapter) Name() string        { return "pagbank" }
func (p *PagBankAdapter) DisplayName() string { return "PagBank" }

func (p *PagBankAdapter) SupportedMethods() []Method {
	return []Method{MethodPix, MethodBoleto, MethodCard}
}

func (p *PagBankAdapter) RequiredFields() []string {
	return []string{"token"}
}

func (p *PagBankAdapter) baseURL(env Environment) string {
	if env == EnvProduction {
		return pagbankProductionURL
	}
	return pagbankSandboxURL
}

func (p *PagBankAdapter) headers(creds Credentials) map[string]string {
	return map[string]string{"Authorization": "Bearer " + creds.Get("token")}
}

type pagbankAmount struct {
	Value int64 `json:"value"`
}

type pagbankOrderRequest struct {
	ReferenceID string `json:"reference_id"`
	QRCodes     []struct {
		Amount         pagbankAmount `json:"amount"`
		ExpirationDate string        `json:"expiration_date"`
	} `json:"qr_codes"`
}

type pagbankOrderResponse struct {
	ID      string `json:"id"`
	QRCodes []struct {
		ID    string `json:"id"`
		Text  string `json:"text"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	} `json:"qr_codes"`
}

func (p *PagBankAdapter) CreatePixCharge(ctx context.Context, amount int64, orderRef string, env Environment, creds Credentials) (*PixCharge, error) {
	req := pagbankOrderRequest{ReferenceID: orderRef}
	req.QRCodes = make([]struct {
		Amount         pagbankAmount `json:"amount"`
		ExpirationDate string        `json:"expiration_date"`
	}, 1)
	req.QRCodes[0].Amount = pagbankAmount{Value: amount}
	req.QRCodes[0].ExpirationDate = time.Now().Add(30 * time.Minute).Format(time.RFC3339)

	var order pagbankOrderResponse
	raw, err := doJSON(ctx, p.Name(), apiRequest{
		method:  http.MethodPost,
		url:     p.baseURL(env) + "/orders",
		headers: p.headers(creds),
		body:    req,
	}, &order)
	if err != nil {
		return nil, err
	}

	var qrText string
	if len(order.QRCodes) > 0 {
		qrText = order.QRCodes[0].Text
	}

	return &PixCharge{
		QRPayload:             qrText,
		CopyableCode:          qrText,
		ProviderTransactionID: order.ID,
		RawPayload:            string(raw),
	}, nil
}

type pagbankCheckoutRequest struct {
	ReferenceID string `json:"reference_id"`
	Items       []struct {
		Name       string `json:"name"`
		Quantity   int    `json:"quantity"`
		UnitAmount int64  `json:"unit_amount"`
	} `json:"items"`
	PaymentMethods []struct {
		Type string `json:"type"`
	} `json:"payment_methods"`
}

type pagbankCheckoutResponse struct {
	ID    string `json:"id"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

func (p *PagBankAdapter) CreateHostedCheckout(ctx context.Context, amount int64, orderRef string, method Method, env Environment, creds Credentials) (*HostedCheckout, error) {
	var methodType string
	switch method {
	case MethodBoleto:
		methodType = "BOLETO"
	case MethodCard:
		methodType = "CREDIT_CARD"
	default:
		return nil, notSupported(p.Name(), method)
	}

	req := pagbankCheckoutRequest{ReferenceID: orderRef}
	req.Items = make([]struct {
		Name       string `json:"name"`
		Quantity   int    `json:"quantity"`
		UnitAmount int64  `json:"unit_amount"`
	}, 1)
	req.Items[0].Name = "Pedido " + orderRef
	req.Items[0].Quantity = 1
	req.Items[0].UnitAmount = amount
	req.PaymentMethods = []struct {
		Type string `json:"type"`
	}{{Type: methodType}}

	var checkout pagbankCheckoutResponse
	raw, err := doJSON(ctx, p.Name(), apiRequest{
		method:  http.MethodPost,
		url:     p.baseURL(env) + "/checkouts",
		headers: p.headers(creds),
		body:    req,
	}, &checkout)
	if err != nil {
		return nil, err
	}

	var payURL string
	for _, link := range checkout.Links {
		if link.Rel == "PAY" {
			payURL = link.Href
			break
		}
	}

	return &HostedCheckout{
		RedirectURL:           payURL,
		ProviderTransactionID: checkout.ID,
		RawPayload:            string(raw),
	}, nil
}

// VerifyCredentials reads the account's public keys. A 404 still proves
// the token authenticated; 401/403 surface as ProviderRejected.
func (p *PagBankAdapter) VerifyCredentials(ctx context.Context, env Environment, creds Credentials) (*ConnectionTestResult, error) {
	_, err := doJSON(ctx, p.Name(), apiRequest{
		method:  http.MethodGet,
		url:     p.baseURL(env) + "/public-keys/card",
		headers: p.headers(creds),
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

// VerifyWebhookSignature checks the x-authenticity-token header, an
// HMAC-SHA256 of the raw notification body keyed with the webhook secret.
func (p *PagBankAdapter) VerifyWebhookSignature(rawBody []byte, headers http.Header, secret string) bool {
	if secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return constantTimeEqual(headers.Get("x-authenticity-token"), expected)
}

type pagbankWebhookPayload struct {
	ID      string `json:"id"`
	Charges []struct {
		Status string `json:"status"`
	} `json:"charges"`
}

func (p *PagBankAdapter) ParseWebhookPayload(rawBody []byte) (*PaymentEvent, error) {
	var payload pagbankWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, err
	}
	if payload.ID == "" || len(payload.Charges) == 0 {
		return nil, nil
	}

	var status EventStatus
	switch payload.Charges[0].Status {
	case "PAID":
		status = EventCompleted
	case "DECLINED", "CANCELED":
		status = EventFailed
	default:
		return nil, nil
	}

	return &PaymentEvent{
		Provider:              p.Name(),
		ProviderTransactionID: payload.ID,
		Status:                status,
		ReceivedAt:            time.Now(),
	}, nil
}
