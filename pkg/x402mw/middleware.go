// Package x402mw implements the payment-interceptor state machine: build
// requirements, gate on the X-PAYMENT header, verify with the facilitator,
// let the protected handler run, settle, and attach the settlement receipt
// header — all as a single gin middleware constructed once per route at
// wiring time.
package x402mw

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sahara-labs/x402-hive/pkg/facilitatorclient"
	"github.com/sahara-labs/x402-hive/pkg/price"
	"github.com/sahara-labs/x402-hive/pkg/x402config"
	"github.com/sahara-labs/x402-hive/pkg/x402types"
)

const (
	headerPayment          = "X-PAYMENT"
	headerPaymentResponse  = "X-PAYMENT-RESPONSE"
	headerExposeHeaders    = "Access-Control-Expose-Headers"
)

// RouteMetadata is the per-route payment annotation: what to charge, who
// gets paid, and how the route is described in the 402 body. This is
// resolved at route-registration time, not via runtime reflection.
type RouteMetadata struct {
	Price              string
	PayTo              string
	Description        string
	PriceCalculatorRef string
}

// attrs is the per-request bag threaded from pre-handle to post-handle,
// stored on the gin context rather than a package-level map.
type attrs struct {
	requirements *x402types.PaymentRequirements
	payload      *x402types.PaymentPayload
}

const attrsKey = "x402.payment.attrs"

// PayerFromContext returns the decoded payment payload that the interceptor
// verified and stored for the current request, if any. It carries the
// payload's scheme and network, not a payer address. Handlers can call this
// after Payment has run.
func PayerFromContext(c *gin.Context) (payload *x402types.PaymentPayload, ok bool) {
	v, exists := c.Get(attrsKey)
	if !exists {
		return nil, false
	}
	a, ok := v.(*attrs)
	if !ok {
		return nil, false
	}
	return a.payload, true
}

// Payment builds the gin middleware for one protected route. calculators
// may be nil if meta never references a calculator. logger may be nil, in
// which case slog.Default() is used.
func Payment(cfg *x402config.Config, meta RouteMetadata, facilitator *facilitatorclient.Client, calculators price.Registry, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			// The whole interceptor is off; don't even build requirements.
			c.Next()
			return
		}

		if meta.Price == "" && meta.PriceCalculatorRef == "" {
			// No payment annotation resolved for this route; proceed
			// unguarded. Routes are only wrapped with this middleware
			// when a price is actually configured, so this is a defensive
			// fallback, not the expected path.
			c.Next()
			return
		}

		requirements, err := buildRequirements(cfg, meta, calculators, c)
		if err != nil {
			logger.Error("failed to build payment requirements", "path", c.Request.URL.Path, "error", err)
			c.Error(err)
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader(headerPayment))
		if header == "" {
			logger.Info("rejecting request with no X-PAYMENT header", "path", c.Request.URL.Path)
			respond402(c, requirements, "X-PAYMENT header is required")
			return
		}

		payload, err := x402types.FromHeader(header)
		if err != nil {
			logger.Info("rejecting request with malformed X-PAYMENT header", "path", c.Request.URL.Path, "error", err)
			respond402(c, requirements, "malformed X-PAYMENT header")
			return
		}

		verifyResp, err := facilitator.Verify(payload, requirements)
		if err != nil {
			logger.Error("facilitator verify failed", "path", c.Request.URL.Path, "error", err)
			c.Error(err)
			c.Abort()
			return
		}
		if !verifyResp.IsValid {
			reason := "payment verification failed"
			if verifyResp.InvalidReason != nil {
				reason = *verifyResp.InvalidReason
			}
			logger.Info("payment rejected by facilitator", "path", c.Request.URL.Path, "reason", reason)
			respond402(c, requirements, reason)
			return
		}

		c.Set(attrsKey, &attrs{requirements: requirements, payload: payload})

		buffered := &bufferingWriter{ResponseWriter: c.Writer, statusCode: http.StatusOK}
		c.Writer = buffered

		c.Next()

		if c.IsAborted() {
			// Handler aborted (e.g. after c.Error); skip settlement and hand
			// the real writer back so its own response, or the one an outer
			// error middleware writes, reaches the client.
			if buffered.written {
				flush(c, buffered)
			} else {
				c.Writer = buffered.ResponseWriter
			}
			return
		}

		if buffered.statusCode >= http.StatusBadRequest {
			// Handler itself failed; skip settlement entirely and flush
			// the handler's own response unchanged.
			flush(c, buffered)
			return
		}

		settleResp, err := facilitator.Settle(payload, requirements)
		if err != nil {
			logger.Error("facilitator settle failed", "path", c.Request.URL.Path, "error", err)
			c.Writer = buffered.ResponseWriter
			respondJSON(c, http.StatusPaymentRequired, x402types.NewPaymentRequiredResponse(*requirements, "settlement error: "+err.Error()))
			return
		}
		if !settleResp.Success {
			reason := "settlement failed"
			if settleResp.ErrorReason != nil {
				reason = *settleResp.ErrorReason
			}
			logger.Error("settlement rejected after handler success", "path", c.Request.URL.Path, "reason", reason)
			c.Writer = buffered.ResponseWriter
			respondJSON(c, http.StatusPaymentRequired, x402types.NewPaymentRequiredResponse(*requirements, reason))
			return
		}

		header2, err := x402types.NewSettlementResponseHeader(settleResp).ToHeader()
		if err != nil {
			logger.Error("failed to encode settlement response header", "path", c.Request.URL.Path, "error", err)
			c.Writer = buffered.ResponseWriter
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Writer = buffered.ResponseWriter
		c.Writer.Header().Set(headerPaymentResponse, header2)
		c.Writer.Header().Set(headerExposeHeaders, headerPaymentResponse)
		flush(c, buffered)
	}
}

func buildRequirements(cfg *x402config.Config, meta RouteMetadata, calculators price.Registry, c *gin.Context) (*x402types.PaymentRequirements, error) {
	amount, err := price.Resolve(meta.Price, meta.PriceCalculatorRef, calculators, c.Request, cfg.AssetDecimals)
	if err != nil {
		return nil, err
	}

	payTo := meta.PayTo
	if payTo == "" {
		payTo = cfg.DefaultPayTo
	}

	return &x402types.PaymentRequirements{
		Scheme:            cfg.Scheme,
		Network:           cfg.Network,
		MaxAmountRequired: amount,
		Asset:             cfg.Asset,
		PayTo:             payTo,
		Resource:          fullURL(c),
		Description:       meta.Description,
		MimeType:          cfg.MimeType,
		OutputSchema:      cfg.OutputSchema,
		MaxTimeoutSeconds: cfg.MaxTimeoutSeconds,
		Extra:             cfg.Extra,
	}, nil
}

func fullURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}

func respond402(c *gin.Context, requirements *x402types.PaymentRequirements, errMsg string) {
	respondJSON(c, http.StatusPaymentRequired, x402types.NewPaymentRequiredResponse(*requirements, errMsg))
	c.Abort()
}

func respondJSON(c *gin.Context, status int, body any) {
	c.AbortWithStatusJSON(status, body)
}

func flush(c *gin.Context, buffered *bufferingWriter) {
	c.Writer = buffered.ResponseWriter
	c.Writer.WriteHeader(buffered.statusCode)
	c.Writer.Write(buffered.body)
}

// bufferingWriter captures the handler's response instead of flushing it
// immediately, so the interceptor can discard it and emit a 402 if
// settlement fails after a success response was already written.
type bufferingWriter struct {
	gin.ResponseWriter
	body       []byte
	statusCode int
	written    bool
}

func (w *bufferingWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
}

func (w *bufferingWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	w.body = append(w.body, b...)
	return len(b), nil
}

func (w *bufferingWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}
