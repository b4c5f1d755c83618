package price_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sahara-labs/x402-hive/pkg/price"
)

func TestResolveStaticPrice(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/pay", nil)

	atomic, err := price.Resolve("0.01", "", nil, req, 6)
	assert.NoError(t, err)
	assert.Equal(t, "10000", atomic)
}

func TestResolveDefaultDecimals(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/pay", nil)

	atomic, err := price.Resolve("0.03", "", nil, req, 0)
	assert.NoError(t, err)
	assert.Equal(t, "30000", atomic)
}

func TestResolveTruncatesTowardZero(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/pay", nil)

	atomic, err := price.Resolve("0.0000009", "", nil, req, 6)
	assert.NoError(t, err)
	assert.Equal(t, "0", atomic)
}

func TestResolveByCalculatorReadingBody(t *testing.T) {
	registry := price.Registry{
		"bodyPrice": price.CalculatorFunc(func(r *http.Request) (string, error) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return "", err
			}
			if strings.Contains(string(body), `"price":"0.03"`) {
				return "0.03", nil
			}
			return "", nil
		}),
	}

	req := httptest.NewRequest(http.MethodPost, "/pay", strings.NewReader(`{"price":"0.03"}`))

	atomic, err := price.Resolve("", "bodyPrice", registry, req, 6)
	assert.NoError(t, err)
	assert.Equal(t, "30000", atomic)
}

func TestResolveMissingCalculatorIsPriceConfigError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/pay", nil)

	_, err := price.Resolve("", "unregistered", price.Registry{}, req, 6)
	assert.Error(t, err)
}

func TestResolveCalculatorErrorIsPriceCalcError(t *testing.T) {
	registry := price.Registry{
		"broken": price.CalculatorFunc(func(r *http.Request) (string, error) {
			return "", assert.AnError
		}),
	}
	req := httptest.NewRequest(http.MethodGet, "/pay", nil)

	_, err := price.Resolve("", "broken", registry, req, 6)
	assert.Error(t, err)
}

func TestResolveEmptyAmountIsPriceConfigError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/pay", nil)

	_, err := price.Resolve("", "", price.Registry{}, req, 6)
	assert.Error(t, err)
}
