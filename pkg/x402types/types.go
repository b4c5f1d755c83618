// Package x402types holds the typed wire records for the x402 payment
// protocol: requirements the server offers, the payload the client proves
// payment with, and the facilitator's verify/settle responses.
package x402types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the only x402 protocol version this module understands.
const ProtocolVersion = 1

// PaymentRequirements is the server's offer to the client for one resource.
type PaymentRequirements struct {
	Scheme            string         `json:"scheme"`
	Network           string         `json:"network"`
	MaxAmountRequired string         `json:"maxAmountRequired"`
	Asset             string         `json:"asset"`
	PayTo             string         `json:"payTo"`
	Resource          string         `json:"resource"`
	Description       string         `json:"description,omitempty"`
	MimeType          string         `json:"mimeType,omitempty"`
	OutputSchema      map[string]any `json:"outputSchema,omitempty"`
	MaxTimeoutSeconds int            `json:"maxTimeoutSeconds"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// PaymentPayload is the client's proof-of-payment envelope. Payload is
// opaque scheme-specific JSON the server never inspects — only the
// facilitator does.
type PaymentPayload struct {
	X402Version int            `json:"x402Version"`
	Scheme      string         `json:"scheme"`
	Network     string         `json:"network"`
	Payload     map[string]any `json:"payload"`
}

// FromHeader decodes the Base64-standard, UTF-8-JSON X-PAYMENT header value.
func FromHeader(header string) (*PaymentPayload, error) {
	decoded, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	var p PaymentPayload
	if err := json.Unmarshal(decoded, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	return &p, nil
}

// ToHeader serializes the payload to compact UTF-8 JSON and Base64-standard
// encodes it. It never emits line breaks.
func (p *PaymentPayload) ToHeader() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payment payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// VerifyResponse is the facilitator's response to POST /verify.
type VerifyResponse struct {
	IsValid       bool    `json:"isValid"`
	InvalidReason *string `json:"invalidReason,omitempty"`
	Payer         *string `json:"payer,omitempty"`
}

// SettleResponse is the facilitator's response to POST /settle.
type SettleResponse struct {
	Success     bool    `json:"success"`
	ErrorReason *string `json:"errorReason,omitempty"`
	Transaction string  `json:"transaction"`
	Network     string  `json:"network"`
	Payer       *string `json:"payer,omitempty"`
}

// SettlementResponseHeader is what the server emits back to the client
// after a successful settle, in the X-PAYMENT-RESPONSE header. Null
// transaction/network are normalized to empty strings on the wire.
type SettlementResponseHeader struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer,omitempty"`
}

// ToHeader serializes to compact UTF-8 JSON and Base64-standard encodes it.
func (h *SettlementResponseHeader) ToHeader() (string, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("encode settlement response header: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// NewSettlementResponseHeader builds a header from a successful SettleResponse.
func NewSettlementResponseHeader(resp *SettleResponse) *SettlementResponseHeader {
	h := &SettlementResponseHeader{
		Success:     true,
		Transaction: resp.Transaction,
		Network:     resp.Network,
	}
	if resp.Payer != nil {
		h.Payer = *resp.Payer
	}
	return h
}

// PaymentRequiredResponse is the JSON body of every 402 this server emits.
type PaymentRequiredResponse struct {
	X402Version int                    `json:"x402Version"`
	Accepts     []PaymentRequirements  `json:"accepts"`
	Error       string                 `json:"error"`
}

// NewPaymentRequiredResponse builds a 402 body with exactly one accepts
// entry, the current behavior per the protocol's design notes.
func NewPaymentRequiredResponse(requirements PaymentRequirements, errMsg string) PaymentRequiredResponse {
	return PaymentRequiredResponse{
		X402Version: ProtocolVersion,
		Accepts:     []PaymentRequirements{requirements},
		Error:       errMsg,
	}
}

// Kind is the (scheme, network) capability tuple a facilitator enumerates
// at /supported.
type Kind struct {
	Scheme  string `json:"scheme"`
	Network string `json:"network"`
}

// SupportedResponse is the facilitator's response to GET /supported.
type SupportedResponse struct {
	Kinds []Kind `json:"kinds"`
}
