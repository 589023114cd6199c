// Package payments holds the Paystack client used to verify card
// contributions before they are admitted to the ledger.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/esusu-circle-engine/internal/config"
	"github.com/esusu-circle-engine/internal/domain/shared"
)

const serviceName = "paystack"

// Verification is the subset of Paystack's transaction verification response
// the engine acts on. Amount is in minor units (kobo), as Paystack reports it.
type Verification struct {
	Reference string
	Status    string
	Amount    int64
}

// Succeeded reports whether the gateway settled the charge
func (v Verification) Succeeded() bool {
	return v.Status == "success"
}

// Verifier checks a card charge with the payment gateway
type Verifier interface {
	Verify(ctx context.Context, reference string) (*Verification, error)
}

// Client talks to the Paystack transaction verification API. Every failure
// mode short of a definitive gateway answer is an ExternalServiceError: an
// unverifiable charge is never treated as a successful one.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(logger *slog.Logger, cfg *config.PaystackConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

// Verify fetches the gateway's record of the charge with the given reference
func (c *Client) Verify(ctx context.Context, reference string) (*Verification, error) {
	if reference == "" {
		return nil, shared.ValidationError{Field: "reference", Reason: "payment reference is required"}
	}

	url := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, shared.ExternalServiceError{Service: serviceName, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Paystack verification request failed", "reference", reference, "error", err)
		return nil, shared.ExternalServiceError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Paystack verification returned non-OK status",
			"reference", reference, "status_code", resp.StatusCode)
		return nil, shared.ExternalServiceError{
			Service: serviceName,
			Err:     fmt.Errorf("unexpected status %d verifying reference %s", resp.StatusCode, reference),
		}
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, shared.ExternalServiceError{Service: serviceName, Err: fmt.Errorf("decoding verification response: %w", err)}
	}
	if !body.Status {
		return nil, shared.ExternalServiceError{
			Service: serviceName,
			Err:     fmt.Errorf("verification rejected for reference %s: %s", reference, body.Message),
		}
	}

	return &Verification{
		Reference: body.Data.Reference,
		Status:    body.Data.Status,
		Amount:    body.Data.Amount,
	}, nil
}
