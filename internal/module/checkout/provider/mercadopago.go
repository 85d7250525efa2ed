package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	mppreference "github.com/mercadopago/sdk-go/pkg/preference"
)

// MercadoPagoAdapter integrates Mercado Pago through the official Go
// SDK. PIX charges go through the payments API; boleto and card use a
// checkout preference and redirect the buyer to the init point.
type MercadoPagoAdapter struct{}

// NewMercadoPagoAdapter creates a new Mercado Pago adapter.
func NewMercadoPagoAdapter() *MercadoPagoAdapter {
	return &MercadoPagoAdapter{}
}

func (m *MercadoPagoAdapter) Name() string        { return "mercadopago" }
func (m *MercadoPagoAdapter) DisplayName() string { return "Mercado Pago" }

func (m *MercadoPagoAdapter) SupportedMethods() []Method {
	return []Method{MethodPix, MethodBoleto, MethodCard}
}

func (m *MercadoPagoAdapter) RequiredFields() []string {
	return []string{"access_token", "payer_email"}
}

// sdkConfig builds a per-call SDK config from the credential bundle.
// Sandbox and production are distinguished solely by which access token
// is configured, so the environment argument selects nothing here.
func (m *MercadoPagoAdapter) sdkConfig(creds Credentials) (*mpconfig.Config, error) {
	cfg, err := mpconfig.New(creds.Get("access_token"))
	if err != nil {
		return nil, apperrors.ProviderRejected(m.Name(), err)
	}
	return cfg, nil
}

func (m *MercadoPagoAdapter) CreatePixCharge(ctx context.Context, amount int64, orderRef string, env Environment, creds Credentials) (*PixCharge, error) {
	cfg, err := m.sdkConfig(creds)
	if err != nil {
		return nil, err
	}

	expiry := time.Now().Add(30 * time.Minute)
	req := mppayment.Request{
		TransactionAmount: centsToFloat(amount),
		PaymentMethodID:   "pix",
		Description:       "Pedido " + orderRef,
		ExternalReference: orderRef,
		DateOfExpiration:  &expiry,
		Payer: &mppayment.PayerRequest{
			Email: creds.Get("payer_email"),
		},
	}

	resp, err := mppayment.NewClient(cfg).Create(ctx, req)
	if err != nil {
		return nil, m.wrapSDKError(err)
	}

	qr := resp.PointOfInteraction.TransactionData.QRCode
	if qr == "" {
		return nil, apperrors.ProviderRejected(m.Name(), fmt.Errorf("payment %d has no pix qr code", resp.ID))
	}

	raw, _ := json.Marshal(resp)
	return &PixCharge{
		QRPayload:             qr,
		CopyableCode:          qr,
		ProviderTransactionID: fmt.Sprintf("%d", resp.ID),
		RawPayload:            string(raw),
	}, nil
}

func (m *MercadoPagoAdapter) CreateHostedCheckout(ctx context.Context, amount int64, orderRef string, method Method, env Environment, creds Credentials) (*HostedCheckout, error) {
	if method != MethodBoleto && method != MethodCard {
		return nil, notSupported(m.Name(), method)
	}

	cfg, err := m.sdkConfig(creds)
	if err != nil {
		return nil, err
	}

	req := mppreference.Request{
		ExternalReference: orderRef,
		Items: []mppreference.ItemRequest{
			{
				Title:     "Pedido " + orderRef,
				Quantity:  1,
				UnitPrice: centsToFloat(amount),
			},
		},
	}

	resp, err := mppreference.NewClient(cfg).Create(ctx, req)
	if err != nil {
		return nil, m.wrapSDKError(err)
	}

	url := resp.InitPoint
	if env == EnvSandbox && resp.SandboxInitPoint != "" {
		url = resp.SandboxInitPoint
	}

	raw, _ := json.Marshal(resp)
	return &HostedCheckout{
		RedirectURL:           url,
		ProviderTransactionID: resp.ID,
		RawPayload:            string(raw),
	}, nil
}

// VerifyCredentials searches for a single payment, a read-only call that
// fails fast on a bad token.
func (m *MercadoPagoAdapter) VerifyCredentials(ctx context.Context, env Environment, creds Credentials) (*ConnectionTestResult, error) {
	cfg, err := m.sdkConfig(creds)
	if err != nil {
		return &ConnectionTestResult{Success: false, Message: err.Error(), TestedEnvironment: env}, err
	}

	_, err = mppayment.NewClient(cfg).Search(ctx, mppayment.SearchRequest{
		Limit:  1,
		Offset: 0,
	})
	if err != nil {
		wrapped := m.wrapSDKError(err)
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

// VerifyWebhookSignature validates the x-signature ts/v1 scheme: an
// HMAC-SHA256 over "id:{data.id};request-id:{x-request-id};ts:{ts};".
func (m *MercadoPagoAdapter) VerifyWebhookSignature(rawBody []byte, headers http.Header, secret string) bool {
	if secret == "" {
		return false
	}

	var ts, v1 string
	for _, part := range strings.Split(headers.Get("x-signature"), ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return false
	}

	var payload mpWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;",
		strings.ToLower(payload.Data.ID), headers.Get("x-request-id"), ts)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	return constantTimeEqual(expected, v1)
}

type mpWebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// ParseWebhookPayload handles payment notifications. Mercado Pago may
// omit the status from the notification body; those deliveries are
// ignored rather than guessed at.
func (m *MercadoPagoAdapter) ParseWebhookPayload(rawBody []byte) (*PaymentEvent, error) {
	var payload mpWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, err
	}

	if payload.Type != "payment" || payload.Data.ID == "" {
		return nil, nil
	}

	var status EventStatus
	switch payload.Data.Status {
	case "approved":
		status = EventCompleted
	case "rejected", "cancelled":
		status = EventFailed
	default:
		return nil, nil
	}

	return &PaymentEvent{
		Provider:              m.Name(),
		ProviderTransactionID: payload.Data.ID,
		Status:                status,
		ReceivedAt:            time.Now(),
	}, nil
}

// wrapSDKError maps SDK errors onto the canonical kinds. The SDK does
// not expose status codes uniformly, so classification is by message.
func (m *MercadoPagoAdapter) wrapSDKError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "bad_request") || strings.Contains(msg, "400") ||
		strings.Contains(msg, "401") || strings.Contains(msg, "403") {
		return apperrors.ProviderRejected(m.Name(), err)
	}
	return apperrors.ProviderUnavailable(m.Name(), err)
}
