// Package apperr defines the error taxonomy this module surfaces across the
// HTTP boundary and a gin middleware that maps each kind to its HTTP status,
// mirroring a single dispatch-point exception handler.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is implemented by every error kind in this taxonomy.
type Error interface {
	error
	Status() int
}

// ClientProtocolError covers a missing or malformed X-PAYMENT header, or any
// other request shape the client is responsible for fixing. Surfaced as 402.
type ClientProtocolError struct {
	Message string
}

func (e *ClientProtocolError) Error() string { return e.Message }
func (e *ClientProtocolError) Status() int   { return http.StatusPaymentRequired }

// PaymentRejected covers a facilitator-reported isValid=false or
// success=false. Surfaced as 402 with the facilitator's own reason.
type PaymentRejected struct {
	Reason string
}

func (e *PaymentRejected) Error() string { return e.Reason }
func (e *PaymentRejected) Status() int   { return http.StatusPaymentRequired }

// FacilitatorTransportError covers a non-200 response, network failure, or
// interruption talking to the facilitator. The verify path surfaces this as
// 500 (the caller cannot usefully retry a synchronous dependency it has no
// control over); the settle path surfaces it as 402 (the client may retry
// the whole request). Which status applies is the caller's choice via
// VerifyStatus/SettleStatus, not a field on this type.
type FacilitatorTransportError struct {
	Op  string // "verify" | "settle" | "supported"
	Err error
}

func (e *FacilitatorTransportError) Error() string {
	return fmt.Sprintf("facilitator %s: %v", e.Op, e.Err)
}
func (e *FacilitatorTransportError) Unwrap() error { return e.Err }

// VerifyStatus is the status FacilitatorTransportError maps to when it
// occurred on the verify path.
func (e *FacilitatorTransportError) VerifyStatus() int { return http.StatusInternalServerError }

// SettleStatus is the status FacilitatorTransportError maps to when it
// occurred on the settle path.
func (e *FacilitatorTransportError) SettleStatus() int { return http.StatusPaymentRequired }

// Status implements Error using the verify-path mapping, the more common
// case; callers on the settle path should check SettleStatus explicitly.
func (e *FacilitatorTransportError) Status() int { return e.VerifyStatus() }

// VendorError is returned by vendor SPI implementations. Surfaced as 502.
type VendorError struct {
	Code    string
	Message string
}

func (e *VendorError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func (e *VendorError) Status() int   { return http.StatusBadGateway }

// ValidationError covers a request-body constraint failure. Surfaced as 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
func (e *ValidationError) Status() int { return http.StatusBadRequest }

// InvalidQuantity covers a malformed CPU/memory resource-quantity string.
// Internal misconfiguration; surfaced as 500.
type InvalidQuantity struct {
	Message string
}

func (e *InvalidQuantity) Error() string { return e.Message }
func (e *InvalidQuantity) Status() int   { return http.StatusInternalServerError }
func (e *InvalidQuantity) Unwrap() error { return ErrInvalidQuantity }

// PriceConfigError covers a handler with neither a static price nor a
// resolvable calculator reference. Surfaced as 500.
type PriceConfigError struct {
	Message string
}

func (e *PriceConfigError) Error() string { return e.Message }
func (e *PriceConfigError) Status() int   { return http.StatusInternalServerError }

// PriceCalcError covers a calculator implementation failing at runtime.
// Surfaced as 500.
type PriceCalcError struct {
	Err error
}

func (e *PriceCalcError) Error() string  { return fmt.Sprintf("price calculation failed: %v", e.Err) }
func (e *PriceCalcError) Unwrap() error  { return e.Err }
func (e *PriceCalcError) Status() int    { return http.StatusInternalServerError }

// ErrInvalidQuantity is the sentinel wrapped by every InvalidQuantity raised
// from pkg/quantity; use errors.Is to detect it across the package boundary.
var ErrInvalidQuantity = errors.New("invalid quantity")

// AsInvalidQuantity wraps err, produced by pkg/quantity, as an InvalidQuantity.
func AsInvalidQuantity(err error) *InvalidQuantity {
	return &InvalidQuantity{Message: err.Error()}
}

// Middleware inspects c.Errors after the handler chain runs and writes the
// mapped status/body exactly once, mirroring a global exception handler's
// single dispatch point. It must be registered ahead of every route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var appErr Error
		if errors.As(err, &appErr) {
			c.AbortWithStatusJSON(appErr.Status(), gin.H{"error": appErr.Error()})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
