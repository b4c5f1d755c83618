// Package facilitatorclient is a synchronous HTTP client for the
// facilitator's /verify, /settle, and /supported endpoints.
package facilitatorclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sahara-labs/x402-hive/pkg/apperr"
	"github.com/sahara-labs/x402-hive/pkg/x402types"
)

const (
	connectTimeout = 5 * time.Second

	headerContentType   = "Content-Type"
	mimeApplicationJSON = "application/json"
)

// Client talks to a facilitator service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client against baseURL, stripping one trailing slash once.
// The underlying transport uses a 5-second connect timeout; no read timeout
// is imposed, since the facilitator itself may take up to a configured
// maxTimeoutSeconds to finalize a settlement.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
	}
}

// Verify sends a payment verification request to the facilitator.
func (c *Client) Verify(payload *x402types.PaymentPayload, requirements *x402types.PaymentRequirements) (*x402types.VerifyResponse, error) {
	var resp x402types.VerifyResponse
	if err := c.post("verify", payload, requirements, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Settle sends a payment settlement request to the facilitator.
func (c *Client) Settle(payload *x402types.PaymentPayload, requirements *x402types.PaymentRequirements) (*x402types.SettleResponse, error) {
	var resp x402types.SettleResponse
	if err := c.post("settle", payload, requirements, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Supported retrieves the (scheme, network) pairs the facilitator can
// process.
func (c *Client) Supported() (*x402types.SupportedResponse, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/supported", nil)
	if err != nil {
		return nil, fmt.Errorf("build supported request: %w", err)
	}
	req.Header.Set(headerContentType, mimeApplicationJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperr.FacilitatorTransportError{Op: "supported", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &apperr.FacilitatorTransportError{Op: "supported", Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var out x402types.SupportedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &apperr.FacilitatorTransportError{Op: "supported", Err: err}
	}
	return &out, nil
}

func (c *Client) post(op string, payload *x402types.PaymentPayload, requirements *x402types.PaymentRequirements, out any) error {
	body := map[string]any{
		"x402Version":         x402types.ProtocolVersion,
		"paymentPayload":      payload,
		"paymentRequirements": requirements,
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set(headerContentType, mimeApplicationJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperr.FacilitatorTransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &apperr.FacilitatorTransportError{Op: op, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.FacilitatorTransportError{Op: op, Err: err}
	}
	return nil
}
