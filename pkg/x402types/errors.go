package x402types

import "errors"

// ErrMalformedHeader is returned by FromHeader when the X-PAYMENT header is
// not valid standard Base64.
var ErrMalformedHeader = errors.New("malformed X-PAYMENT header")

// ErrDecodeFailed is returned by FromHeader when the decoded bytes are not
// valid JSON for a PaymentPayload.
var ErrDecodeFailed = errors.New("failed to decode payment payload")
