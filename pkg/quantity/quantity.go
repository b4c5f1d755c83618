// Package quantity implements the immutable CPU and memory resource-quantity
// value objects used in deployment configs.
package quantity

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sahara-labs/x402-hive/pkg/apperr"
)

// ErrInvalidQuantity is the sentinel every parse failure in this package
// wraps; apperr.AsInvalidQuantity converts it to the app-level error kind.
var ErrInvalidQuantity = apperr.ErrInvalidQuantity

// CPU is an immutable CPU quantity, expressed either as decimal cores
// ("0.5") or milli-cores ("500m"). Equality is by canonical input string,
// not by the underlying milli-core magnitude: CPU("500m") and CPU("0.5")
// both parse to 500 milli-cores but are distinct values.
type CPU struct {
	raw    string
	milli  int64
}

var (
	decimalCoresRe = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,3})?$`)
	milliCoresRe   = regexp.MustCompile(`^[0-9]+m$`)
)

// ParseCPU validates and parses a CPU quantity string.
func ParseCPU(value string) (CPU, error) {
	if value == "" {
		return CPU{}, fmt.Errorf("%w: empty cpu quantity", ErrInvalidQuantity)
	}

	switch {
	case milliCoresRe.MatchString(value):
		n, err := strconv.ParseInt(strings.TrimSuffix(value, "m"), 10, 64)
		if err != nil {
			return CPU{}, fmt.Errorf("%w: %s: %v", ErrInvalidQuantity, value, err)
		}
		if n <= 0 {
			return CPU{}, fmt.Errorf("%w: %s: must be positive", ErrInvalidQuantity, value)
		}
		return CPU{raw: value, milli: n}, nil

	case decimalCoresRe.MatchString(value):
		milli, err := decimalCoresToMilli(value)
		if err != nil {
			return CPU{}, err
		}
		if milli <= 0 {
			return CPU{}, fmt.Errorf("%w: %s: must be positive", ErrInvalidQuantity, value)
		}
		return CPU{raw: value, milli: milli}, nil

	default:
		return CPU{}, fmt.Errorf("%w: %s: unrecognized cpu quantity grammar", ErrInvalidQuantity, value)
	}
}

// decimalCoresToMilli scales a decimal-cores string by 1000. It expects a
// value that already matched decimalCoresRe: that grammar allows at most
// three fractional digits, so a sub-milli value such as "0.5001" is
// rejected by ParseCPU before it gets here.
func decimalCoresToMilli(value string) (int64, error) {
	whole, frac, hasFrac := strings.Cut(value, ".")

	wholePart, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidQuantity, value, err)
	}

	milli := wholePart * 1000
	if !hasFrac {
		return milli, nil
	}

	// frac has 1-3 digits per the grammar; pad to exactly 3 digits of
	// milli-core precision.
	padded := frac + strings.Repeat("0", 3-len(frac))
	fracMilli, err := strconv.ParseInt(padded, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidQuantity, value, err)
	}

	return milli + fracMilli, nil
}

// String returns the original, canonical input string.
func (c CPU) String() string { return c.raw }

// MilliCores returns the quantity in integer milli-cores.
func (c CPU) MilliCores() int64 { return c.milli }

// Equal compares by canonical input string, not by magnitude.
func (c CPU) Equal(other CPU) bool { return c.raw == other.raw }

// Patch returns c unchanged if other is the zero value or equal to c,
// otherwise parses other and returns the new value.
func (c CPU) Patch(other string) (CPU, error) {
	if other == "" || other == c.raw {
		return c, nil
	}
	return ParseCPU(other)
}

// Memory is an immutable memory quantity, an integer mantissa followed by
// an optional decimal or binary unit suffix.
type Memory struct {
	raw   string
	bytes uint64
}

var memoryRe = regexp.MustCompile(`^([0-9]+)([A-Za-z]*)$`)

var memoryUnitFactors = map[string]uint64{
	"":   1,
	"K":  1_000,
	"M":  1_000_000,
	"G":  1_000_000_000,
	"T":  1_000_000_000_000,
	"P":  1_000_000_000_000_000,
	"E":  1_000_000_000_000_000_000,
	"Ki": 1 << 10,
	"Mi": 1 << 20,
	"Gi": 1 << 30,
	"Ti": 1 << 40,
	"Pi": 1 << 50,
	"Ei": 1 << 60,
}

// ParseMemory validates and parses a memory quantity string.
func ParseMemory(value string) (Memory, error) {
	if value == "" {
		return Memory{}, fmt.Errorf("%w: empty memory quantity", ErrInvalidQuantity)
	}

	m := memoryRe.FindStringSubmatch(value)
	if m == nil {
		return Memory{}, fmt.Errorf("%w: %s: unrecognized memory quantity grammar", ErrInvalidQuantity, value)
	}

	mantissaStr, unit := m[1], m[2]

	factor, ok := memoryUnitFactors[unit]
	if !ok {
		return Memory{}, fmt.Errorf("%w: %s: unknown unit %q", ErrInvalidQuantity, value, unit)
	}

	mantissa, err := strconv.ParseUint(mantissaStr, 10, 64)
	if err != nil {
		return Memory{}, fmt.Errorf("%w: %s: %v", ErrInvalidQuantity, value, err)
	}
	if mantissa == 0 {
		return Memory{}, fmt.Errorf("%w: %s: must be positive", ErrInvalidQuantity, value)
	}

	total, overflow := mulUint64(mantissa, factor)
	if overflow || total > math.MaxInt64 {
		return Memory{}, fmt.Errorf("%w: %s: exceeds maximum representable byte count", ErrInvalidQuantity, value)
	}

	return Memory{raw: value, bytes: total}, nil
}

func mulUint64(a, b uint64) (result uint64, overflow bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	result = a * b
	return result, result/b != a
}

// String returns the original, canonical input string.
func (m Memory) String() string { return m.raw }

// Bytes returns the quantity in bytes.
func (m Memory) Bytes() uint64 { return m.bytes }

// Equal compares by canonical input string, not by magnitude.
func (m Memory) Equal(other Memory) bool { return m.raw == other.raw }

// Patch returns m unchanged if other is empty or equal to m, otherwise
// parses other and returns the new value.
func (m Memory) Patch(other string) (Memory, error) {
	if other == "" || other == m.raw {
		return m, nil
	}
	return ParseMemory(other)
}
