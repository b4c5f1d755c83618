package facilitatorclient_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sahara-labs/x402-hive/pkg/facilitatorclient"
	"github.com/sahara-labs/x402-hive/pkg/x402types"
)

func TestVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("expected to request '/verify', got: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST request, got: %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json content type, got: %s", r.Header.Get("Content-Type"))
		}
		json.NewEncoder(w).Encode(x402types.VerifyResponse{IsValid: true})
	}))
	defer server.Close()

	client := facilitatorclient.New(server.URL)

	resp, err := client.Verify(&x402types.PaymentPayload{X402Version: 1, Scheme: "exact", Network: "base-sepolia"}, &x402types.PaymentRequirements{
		Scheme:            "exact",
		Network:           "base-sepolia",
		MaxAmountRequired: "1000000",
		Resource:          "https://example.com/resource",
		PayTo:             "0x123",
		Asset:             "0xusdc",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !resp.IsValid {
		t.Errorf("expected valid response, got invalid")
	}
}

func TestVerifyNon200IsFacilitatorTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := facilitatorclient.New(server.URL)
	_, err := client.Verify(&x402types.PaymentPayload{}, &x402types.PaymentRequirements{})
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestSettle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/settle" {
			t.Errorf("expected to request '/settle', got: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(x402types.SettleResponse{
			Success:     true,
			Transaction: "0xTX",
			Network:     "base-sepolia",
		})
	}))
	defer server.Close()

	client := facilitatorclient.New(server.URL)
	resp, err := client.Settle(&x402types.PaymentPayload{}, &x402types.PaymentRequirements{})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !resp.Success || resp.Transaction != "0xTX" {
		t.Errorf("unexpected settle response: %+v", resp)
	}
}

func TestSupported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET request, got: %s", r.Method)
		}
		json.NewEncoder(w).Encode(x402types.SupportedResponse{
			Kinds: []x402types.Kind{{Scheme: "exact", Network: "base-sepolia"}},
		})
	}))
	defer server.Close()

	client := facilitatorclient.New(server.URL)
	resp, err := client.Supported()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(resp.Kinds) != 1 || resp.Kinds[0].Network != "base-sepolia" {
		t.Errorf("unexpected supported response: %+v", resp)
	}
}

func TestNewTrimsOneTrailingSlash(t *testing.T) {
	client := facilitatorclient.New("https://facilitator.example.com//")
	// Only one trailing slash is trimmed, so the double-slash client above
	// keeps one. What is verified below is the single-slash case: a base URL
	// ending in "/" must still produce "/verify" with no double slash, which
	// the server checks.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "//") {
			t.Errorf("expected no double slash in request path, got: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(x402types.VerifyResponse{IsValid: true})
	}))
	defer server.Close()

	client = facilitatorclient.New(server.URL + "/")
	if _, err := client.Verify(&x402types.PaymentPayload{}, &x402types.PaymentRequirements{}); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}
