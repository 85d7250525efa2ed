package checkout

// PixCheckoutRequest starts a PIX checkout. Amount is in cents. Plan
// and amount are alternatives: a plan slug resolves the price from the
// catalog, a raw amount buys nothing but the charge itself.
type PixCheckoutRequest struct {
	Plan     string `json:"plan"`
	Gateway  string `json:"gateway"`
	Amount   int64  `json:"amount"`
	OrderRef string `json:"orderRef"`
}

// PixCheckoutResponse carries what the UI renders while waiting for
// the confirmation: the QR payload and its copy-paste form.
type PixCheckoutResponse struct {
	PaymentID  string `json:"paymentId"`
	QRCode     string `json:"qrCode"`
	QRCodeText string `json:"qrCodeText"`
	Provider   string `json:"provider"`
}

// HostedCheckoutRequest starts a boleto or card checkout on the
// provider's hosted page.
type HostedCheckoutRequest struct {
	Plan          string `json:"plan"`
	Gateway       string `json:"gateway"`
	Amount        int64  `json:"amount"`
	OrderRef      string `json:"orderRef"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// HostedCheckoutResponse carries the redirect target.
type HostedCheckoutResponse struct {
	PaymentID string `json:"paymentId"`
	URL       string `json:"url"`
	Provider  string `json:"provider"`
}

// StatusResponse is the polling read. The polling hints let the UI
// time-box its loop instead of spinning forever.
type StatusResponse struct {
	PaymentID       string `json:"paymentId"`
	Status          string `json:"status"`
	Method          string `json:"method"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	PollIntervalMS  int64  `json:"pollIntervalMs"`
	PollMaxAttempts int    `json:"pollMaxAttempts"`
}
