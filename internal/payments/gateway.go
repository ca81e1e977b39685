package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrGateway is returned when the payment gateway rejects a charge or
// cannot be reached. The caller must leave the job untouched.
var ErrGateway = errors.New("payment gateway failure")

const chargeTimeout = 10 * time.Second

// Gateway is the HTTP client for the external payment service. The
// service is trusted: a 2xx response means the charge succeeded.
type Gateway struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewGateway(baseURL string) *Gateway {
	return &Gateway{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: chargeTimeout},
	}
}

type chargeRequest struct {
	AmountPence int64  `json:"amount_pence"`
	PayerRef    string `json:"payer_ref"`
}

// Charge requests a charge of amountPence against the payer. Any
// transport error or non-2xx status maps to ErrGateway.
func (g *Gateway) Charge(ctx context.Context, amountPence int64, payerRef string) error {
	body, err := json.Marshal(chargeRequest{AmountPence: amountPence, PayerRef: payerRef})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway returned status %d", ErrGateway, resp.StatusCode)
	}
	return nil
}
