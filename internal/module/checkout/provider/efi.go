package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

const (
	efiSandboxURL    = "https://pix-h.api.efipay.com.br"
	efiProductionURL = "https://pix.api.efipay.com.br"
)

// EfiAdapter integrates the Efí (former Gerencianet) PIX API. Efí is a
// PIX-only rail here; its boleto product lives on a separate API this
// integration does not cover.
type EfiAdapter struct{}

// NewEfiAdapter creates a new Efí adapter.
func NewEfiAdapter() *EfiAdapter {
	return &EfiAdapter{}
}

func (e *EfiAdapter) Name() string        { return "efi" }
func (e *EfiAdapter) DisplayName() string { return "Efí" }

func (e *EfiAdapter) SupportedMethods() []Method {
	return []Method{MethodPix}
}

func (e *EfiAdapter) RequiredFields() []string {
	return []string{"client_id", "client_secret", "pix_key"}
}

func (e *EfiAdapter) baseURL(env Environment) string {
	if env == EnvProduction {
		return efiProductionURL
	}
	return efiSandboxURL
}

type efiTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// authenticate runs the OAuth client-credentials flow. Tokens are short
// lived and cheap, so no caching across calls.
func (e *EfiAdapter) authenticate(ctx context.Context, env Environment, creds Credentials) (string, error) {
	basic := base64.StdEncoding.EncodeToString(
		[]byte(creds.Get("client_id") + ":" + creds.Get("client_secret")))

	var token efiTokenResponse
	_, err := doJSON(ctx, e.Name(), apiRequest{
		method:  http.MethodPost,
		url:     e.baseURL(env) + "/oauth/token",
		headers: map[string]string{"Authorization": "Basic " + basic},
		body:    map[string]string{"grant_type": "client_credentials"},
	}, &token)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

type efiCobRequest struct {
	Calendario struct {
		Expiracao int `json:"expiracao"`
	} `json:"calendario"`
	Valor struct {
		Original string `json:"original"`
	} `json:"valor"`
	Chave              string `json:"chave"`
	SolicitacaoPagador string `json:"solicitacaoPagador"`
}

type efiCobResponse struct {
	Txid          string `json:"txid"`
	PixCopiaECola string `json:"pixCopiaECola"`
}

func (e *EfiAdapter) CreatePixCharge(ctx context.Context, amount int64, orderRef string, env Environment, creds Credentials) (*PixCharge, error) {
	token, err := e.authenticate(ctx, env, creds)
	if err != nil {
		return nil, err
	}

	var req efiCobRequest
	req.Calendario.Expiracao = 1800
	req.Valor.Original = centsToDecimal(amount)
	req.Chave = creds.Get("pix_key")
	req.SolicitacaoPagador = "Pedido " + orderRef

	var cob efiCobResponse
	raw, err := doJSON(ctx, e.Name(), apiRequest{
		method:  http.MethodPost,
		url:     e.baseURL(env) + "/v2/cob",
		headers: map[string]string{"Authorization": "Bearer " + token},
		body:    req,
	}, &cob)
	if err != nil {
		return nil, err
	}

	return &PixCharge{
		QRPayload:             cob.PixCopiaECola,
		CopyableCode:          cob.PixCopiaECola,
		ProviderTransactionID: cob.Txid,
		RawPayload:            string(raw),
	}, nil
}

func (e *EfiAdapter) CreateHostedCheckout(ctx context.Context, amount int64, orderRef string, method Method, env Environment, creds Credentials) (*HostedCheckout, error) {
	return nil, notSupported(e.Name(), method)
}

// VerifyCredentials runs the OAuth flow; a granted token proves the
// client id and secret are valid for the environment.
func (e *EfiAdapter) VerifyCredentials(ctx context.Context, env Environment, creds Credentials) (*ConnectionTestResult, error) {
	if _, err := e.authenticate(ctx, env, creds); err != nil {
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

// VerifyWebhookSignature checks the hmac query parameter Efí appends to
// the configured webhook URL: an HMAC-SHA256 of the raw body.
func (e *EfiAdapter) VerifyWebhookSignature(rawBody []byte, headers http.Header, secret string) bool {
	if secret == "" {
		return false
	}

	// The receiver forwards the request query via this header since the
	// adapter never sees the URL.
	query, err := url.ParseQuery(headers.Get("X-Webhook-Query"))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return constantTimeEqual(query.Get("hmac"), expected)
}

type efiWebhookPayload struct {
	Pix []struct {
		Txid       string `json:"txid"`
		EndToEndID string `json:"endToEndId"`
	} `json:"pix"`
}

// ParseWebhookPayload handles PIX received notifications. Efí only
// notifies on settled payments; anything else is ignored.
func (e *EfiAdapter) ParseWebhookPayload(rawBody []byte) (*PaymentEvent, error) {
	var payload efiWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, err
	}
	if len(payload.Pix) == 0 || payload.Pix[0].Txid == "" {
		return nil, nil
	}

	return &PaymentEvent{
		Provider:              e.Name(),
		ProviderTransactionID: payload.Pix[0].Txid,
		Status:                EventCompleted,
		ReceivedAt:            time.Now(),
	}, nil
}
