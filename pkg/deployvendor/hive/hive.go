// Package hive is the concrete vendor adapter translating the canonical
// deployment model to the Hive serverless platform's HTTP API.
package hive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sahara-labs/x402-hive/pkg/apperr"
	"github.com/sahara-labs/x402-hive/pkg/quantity"
	"github.com/sahara-labs/x402-hive/pkg/deployvendor"
)

const sourceTypeGit = "GIT"

// Deployer is the Hive HTTP adapter. It implements vendor.Deployer.
type Deployer struct {
	baseURL         string
	tokenHeaderName string
	token           string
	httpClient      *http.Client
	logger          *slog.Logger
}

// New builds a Deployer rooted at baseURL + "/" + account, carrying the
// given token on the given header for every request. logger may be nil, in
// which case slog.Default() is used.
func New(baseURL, account, tokenHeaderName, token string, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	root := strings.TrimSuffix(baseURL, "/") + "/" + account
	return &Deployer{
		baseURL:         root,
		tokenHeaderName: tokenHeaderName,
		token:           token,
		httpClient:      &http.Client{},
		logger:          logger,
	}
}

var _ vendor.Deployer = (*Deployer)(nil)

type envPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type createRequest struct {
	Name          string    `json:"name"`
	Configuration configBody `json:"configuration"`
}

type configBody struct {
	SourceType        string    `json:"sourceType"`
	SourceURI         string    `json:"sourceUri"`
	SourceBranch      string    `json:"sourceBranch,omitempty"`
	SourceContextDir  string    `json:"sourceContextDir,omitempty"`
	Port              int       `json:"port"`
	Envs              []envPair `json:"envs,omitempty"`
	ConcurrencyLimit  int       `json:"concurrencyLimit,omitempty"`
	ReadinessProbe    string    `json:"readinessProbe,omitempty"`
	LivenessProbe     string    `json:"livenessProbe,omitempty"`
	CPURequest        string    `json:"cpuRequest,omitempty"`
	MemoryRequest     string    `json:"memoryRequest,omitempty"`
	CPULimit          string    `json:"cpuLimit,omitempty"`
	MemoryLimit       string    `json:"memoryLimit,omitempty"`
	MinScale          int       `json:"minScale,omitempty"`
	MaxScale          int       `json:"maxScale,omitempty"`
	InitScale         int       `json:"initScale,omitempty"`
	WindowScale       int       `json:"windowScale,omitempty"`
	Metric            string    `json:"metric,omitempty"`
	Target            int       `json:"target,omitempty"`
	Utilization       int       `json:"utilization,omitempty"`
	DockerConfig      string    `json:"dockerConfig,omitempty"`
	PVCSize           string    `json:"pvcSize,omitempty"`
	BuildEnvs         []envPair `json:"buildEnvs,omitempty"`
}

type envelope[T any] struct {
	Success    bool   `json:"success"`
	ErrCode    string `json:"errCode"`
	ErrMessage string `json:"errMessage"`
	Data       T      `json:"data"`
}

type serviceData struct {
	ID string `json:"id"`
}

type statusData struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	URL            string         `json:"url"`
	Ready          bool           `json:"ready"`
	Message        string         `json:"message"`
	DeployStatuses map[string]any `json:"deployStatuses"`
}

// Deploy translates config to Hive's create-service schema and POSTs it.
func (d *Deployer) Deploy(config vendor.DeploymentConfig) (string, error) {
	if err := validateQuantities(config.Run); err != nil {
		return "", err
	}

	req := createRequest{
		Name: config.Name,
		Configuration: configBody{
			SourceType:       sourceTypeGit, // only GIT sources are supported for now.
			SourceURI:        config.Source.Git,
			SourceBranch:     config.Source.Branch,
			SourceContextDir: config.Source.Dir,
			Port:             config.Run.Port,
			Envs:             toEnvPairs(config.Run.Envs),
			ConcurrencyLimit: config.Run.ConcurrencyLimit,
			ReadinessProbe:   config.Run.ReadinessProbe,
			LivenessProbe:    config.Run.LivenessProbe,
			CPURequest:       config.Run.CPURequest,
			MemoryRequest:    config.Run.MemoryRequest,
			CPULimit:         config.Run.CPULimit,
			MemoryLimit:      config.Run.MemoryLimit,
			MinScale:         config.Run.MinScale,
			MaxScale:         config.Run.MaxScale,
			InitScale:        config.Run.InitScale,
			WindowScale:      config.Run.WindowScale,
			Metric:           config.Run.Metric,
			Target:           config.Run.Target,
			Utilization:      config.Run.Utilization,
			DockerConfig:     config.Build.DockerConfig,
			PVCSize:          config.Run.PVCSize,
			BuildEnvs:        toEnvPairs(config.Build.BuildEnvs),
		},
	}

	var resp envelope[serviceData]
	if err := d.do(http.MethodPost, "/services", req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		d.logger.Error("hive reported deploy failure", "service", config.Name, "errCode", resp.ErrCode, "errMessage", resp.ErrMessage)
		return "", &apperr.VendorError{Code: "VENDOR_ERROR", Message: "failed to deploy service to hive"}
	}

	return resp.Data.ID, nil
}

// Status fetches the deployment status for id. On a vendor-reported
// failure it returns a best-effort, not-ready status rather than an error.
func (d *Deployer) Status(id string) (vendor.DeploymentStatus, error) {
	var resp envelope[statusData]
	if err := d.do(http.MethodGet, "/services/"+id, nil, &resp); err != nil {
		return vendor.DeploymentStatus{}, err
	}

	if !resp.Success {
		d.logger.Warn("hive reported status failure", "id", id, "errMessage", resp.ErrMessage)
		return vendor.DeploymentStatus{
			ID:      id,
			Ready:   false,
			Message: resp.ErrMessage,
			Extra:   map[string]any{},
		}, nil
	}

	return vendor.DeploymentStatus{
		ID:      resp.Data.ID,
		Name:    resp.Data.Name,
		URL:     resp.Data.URL,
		Ready:   resp.Data.Ready,
		Message: resp.Data.Message,
		Extra:   map[string]any{"details": resp.Data.DeployStatuses},
	}, nil
}

func (d *Deployer) do(method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal hive request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, d.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build hive request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(d.tokenHeaderName, d.token)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Error("hive http request failed", "method", method, "path", path, "error", err)
		return &apperr.VendorError{Code: "VENDOR_TRANSPORT", Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		d.logger.Error("hive http response body unreadable", "method", method, "path", path, "error", err)
		return &apperr.VendorError{Code: "VENDOR_TRANSPORT", Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		vendorErr := parseErrorEnvelope(resp.StatusCode, data)
		d.logger.Error("hive http request failed", "method", method, "path", path, "status", resp.StatusCode, "error", vendorErr)
		return vendorErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &apperr.VendorError{Code: "VENDOR_TRANSPORT", Message: err.Error()}
		}
	}
	return nil
}

// parseErrorEnvelope attempts to parse body as {errCode, errMessage}; if
// that fails, it synthesizes a code/message from the raw HTTP status.
func parseErrorEnvelope(status int, body []byte) error {
	var parsed struct {
		ErrCode    string `json:"errCode"`
		ErrMessage string `json:"errMessage"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.ErrCode != "" {
		return &apperr.VendorError{Code: parsed.ErrCode, Message: parsed.ErrMessage}
	}
	return &apperr.VendorError{
		Code:    fmt.Sprintf("HTTP_%d", status),
		Message: fmt.Sprintf("HTTP %d: %s", status, string(body)),
	}
}

func toEnvPairs(m map[string]string) []envPair {
	if len(m) == 0 {
		return nil
	}
	pairs := make([]envPair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, envPair{Name: k, Value: v})
	}
	return pairs
}

// validateQuantities rejects resource-quantity strings that do not match
// the canonical CPU/memory grammars before a request ever reaches Hive.
func validateQuantities(run vendor.DeploymentRunConfig) error {
	for _, cpu := range []string{run.CPURequest, run.CPULimit} {
		if cpu == "" {
			continue
		}
		if _, err := quantity.ParseCPU(cpu); err != nil {
			return apperr.AsInvalidQuantity(err)
		}
	}
	for _, mem := range []string{run.MemoryRequest, run.MemoryLimit} {
		if mem == "" {
			continue
		}
		if _, err := quantity.ParseMemory(mem); err != nil {
			return apperr.AsInvalidQuantity(err)
		}
	}
	return nil
}
