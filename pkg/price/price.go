// Package price resolves a handler's payment metadata into an atomic-unit
// amount, either from a static human-readable price string or from a
// pluggable calculator looked up by symbolic reference.
//
// A calculator that reads the request body runs before the protected
// handler (inside the payment interceptor's pre-handle phase); a handler
// that also needs the raw body will see it already consumed unless the
// caller wraps the request with a body-caching reader. This module does not
// add one — registering a body-reading calculator on a route whose handler
// also reads the body is a configuration error the operator must avoid.
package price

import (
	"net/http"
	"strings"

	"github.com/sahara-labs/x402-hive/pkg/apperr"
)

// DefaultDecimals is the token-decimals value used when none is configured.
const DefaultDecimals = 6

// Calculator is a pure function from a request to a human-readable decimal
// price string. Implementations must not hold state and may fail with a
// descriptive error, surfaced as PriceCalcError.
type Calculator interface {
	CalculatePrice(r *http.Request) (string, error)
}

// CalculatorFunc adapts a plain function to a Calculator.
type CalculatorFunc func(r *http.Request) (string, error)

// CalculatePrice implements Calculator.
func (f CalculatorFunc) CalculatePrice(r *http.Request) (string, error) { return f(r) }

// Registry is a process-wide, read-only-after-wiring lookup from a symbolic
// calculator reference to its implementation. It replaces the source
// system's class-reference bean lookup.
type Registry map[string]Calculator

// Resolve produces an atomic-unit decimal string amount for a request,
// given a static price (if any) and a calculator reference (if any).
// Exactly one of price/calculatorRef should be set; price takes precedence
// if both are.
func Resolve(price, calculatorRef string, registry Registry, r *http.Request, decimals int) (string, error) {
	if decimals <= 0 {
		decimals = DefaultDecimals
	}

	human, err := resolveHuman(price, calculatorRef, registry, r)
	if err != nil {
		return "", err
	}
	if human == "" {
		return "", &apperr.PriceConfigError{Message: "neither a static price nor a resolvable calculator reference produced an amount"}
	}

	return toAtomicUnits(human, decimals)
}

func resolveHuman(price, calculatorRef string, registry Registry, r *http.Request) (string, error) {
	if price != "" {
		return price, nil
	}

	if calculatorRef == "" {
		return "", nil
	}

	calc, ok := registry[calculatorRef]
	if !ok {
		return "", &apperr.PriceConfigError{Message: "no price calculator registered for reference " + calculatorRef}
	}

	human, err := calc.CalculatePrice(r)
	if err != nil {
		return "", &apperr.PriceCalcError{Err: err}
	}
	return human, nil
}

// toAtomicUnits converts a human-readable decimal string to
// floor(human * 10^decimals), truncated toward zero, as a plain decimal
// string with no exponent and no leading zeros except a lone "0".
func toAtomicUnits(human string, decimals int) (string, error) {
	neg := false
	s := human
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return "", &apperr.PriceConfigError{Message: "malformed price amount: " + human}
	}

	// Pad or truncate the fractional digits to exactly `decimals` places;
	// truncation here (dropping digits beyond `decimals`) is the
	// truncate-toward-zero rounding mode the protocol mandates.
	if len(frac) < decimals {
		frac = frac + strings.Repeat("0", decimals-len(frac))
	} else {
		frac = frac[:decimals]
	}

	combined := strings.TrimLeft(whole+frac, "0")
	if combined == "" {
		combined = "0"
	}

	if neg && combined != "0" {
		// A negative atomic amount is never valid per the data model's
		// non-negative-integer invariant; treat it as a config error
		// rather than silently emitting a signed string.
		return "", &apperr.PriceConfigError{Message: "negative price amount: " + human}
	}

	return combined, nil
}

func isDigits(s string) bool {
	if s == "" {
		return true
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
