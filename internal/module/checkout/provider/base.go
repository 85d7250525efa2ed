package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/GuiSantosdev/clivus-dev-sub000/internal/shared/errors"
)

// httpClient is shared by the REST adapters. Per-request deadlines come
// from the caller context; the client timeout is a backstop.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// apiRequest describes a provider REST call.
type apiRequest struct {
	method  string
	url     string
	headers map[string]string
	body    any
}

// doJSON performs a provider REST call and decodes the JSON response
// into out (when out is non-nil). Provider error shapes are translated
// to the canonical kinds here and nowhere else: transport failures and
// 5xx become ProviderUnavailable, 4xx becomes ProviderRejected.
func doJSON(ctx context.Context, providerName string, req apiRequest, out any) ([]byte, error) {
	var reqBody io.Reader
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", providerName, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", providerName, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.ProviderUnavailable(providerName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.ProviderUnavailable(providerName, err)
	}

	if resp.StatusCode >= 500 {
		return respBody, apperrors.ProviderUnavailable(providerName,
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 256)))
	}
	if resp.StatusCode >= 400 {
		return respBody, apperrors.ProviderRejected(providerName,
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 256)))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return respBody, fmt.Errorf("decode %s response: %w", providerName, err)
		}
	}
	return respBody, nil
}

// constantTimeEqual compares two strings without leaking length-prefix
// timing. Webhook secrets always go through this.
func constantTimeEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// centsToDecimal renders an amount in cents as a decimal string, the
// format the Brazilian provider APIs expect.
func centsToDecimal(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// centsToFloat renders an amount in cents as a float value.
func centsToFloat(cents int64) float64 {
	return float64(cents) / 100
}

// notSupported is returned when a method reaches an adapter that cannot
// charge it. The selector filters on SupportedMethods, so hitting this
// means a caller bypassed selection.
func notSupported(providerName string, m Method) error {
	return fmt.Errorf("%s does not support %s: %w", providerName, m, apperrors.ErrNotSupported)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
