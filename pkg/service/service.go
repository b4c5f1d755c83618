// Package service is the façade between the HTTP layer and the vendor SPI:
// it validates an inbound creation command, translates it into the
// canonical deployment model, and shapes the vendor's response as a DTO.
package service

import (
	"regexp"

	"github.com/sahara-labs/x402-hive/pkg/apperr"
	"github.com/sahara-labs/x402-hive/pkg/quantity"
	"github.com/sahara-labs/x402-hive/pkg/deployvendor"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9\-]+$`)

// ServiceCreationCmd is the inbound request to create a deployed service.
type ServiceCreationCmd struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Branch string `json:"branch"`
	Dir    string `json:"dir"`
	Port   int    `json:"port"`

	Envs      map[string]string `json:"envs"`
	BuildEnvs map[string]string `json:"buildEnvs"`

	CPURequest    string `json:"cpuRequest"`
	MemoryRequest string `json:"memoryRequest"`
	CPULimit      string `json:"cpuLimit"`
	MemoryLimit   string `json:"memoryLimit"`

	MinScale  int `json:"minScale"`
	MaxScale  int `json:"maxScale"`
	InitScale int `json:"initScale"`

	PVCSize string `json:"pvcSize"`
}

// ServiceCreateResultDTO is returned after a successful deployment.
type ServiceCreateResultDTO struct {
	ID   string
	Name string
}

// ServiceStatusDTO reports the current state of a deployed service.
type ServiceStatusDTO struct {
	ID      string
	Name    string
	URL     string
	Ready   bool
	Message string
	Extra   map[string]any
}

// Service is the creation/status façade backed by a vendor.Deployer.
type Service struct {
	deployer vendor.Deployer
}

// New builds a Service backed by the given vendor.
func New(deployer vendor.Deployer) *Service {
	return &Service{deployer: deployer}
}

// Create validates cmd, translates it to a vendor.DeploymentConfig, and
// delegates to the configured vendor.
func (s *Service) Create(cmd ServiceCreationCmd) (*ServiceCreateResultDTO, error) {
	if err := validate(cmd); err != nil {
		return nil, err
	}

	id, err := s.deployer.Deploy(toDeploymentConfig(cmd))
	if err != nil {
		return nil, err
	}

	return &ServiceCreateResultDTO{ID: id, Name: cmd.Name}, nil
}

// Status fetches the current deployment status for id.
func (s *Service) Status(id string) (*ServiceStatusDTO, error) {
	status, err := s.deployer.Status(id)
	if err != nil {
		return nil, err
	}

	return &ServiceStatusDTO{
		ID:      status.ID,
		Name:    status.Name,
		URL:     status.URL,
		Ready:   status.Ready,
		Message: status.Message,
		Extra:   status.Extra,
	}, nil
}

// validate enforces the request-shape constraints a caller must satisfy
// before anything is sent to a vendor.
func validate(cmd ServiceCreationCmd) error {
	switch {
	case cmd.Name == "" || len(cmd.Name) > 32 || !namePattern.MatchString(cmd.Name):
		return &apperr.ValidationError{Field: "name", Message: "must be 1-32 characters of letters, digits, and hyphens"}
	case cmd.URL == "" || len(cmd.URL) > 2048:
		return &apperr.ValidationError{Field: "url", Message: "must be non-blank and at most 2048 characters"}
	case len(cmd.Branch) > 64:
		return &apperr.ValidationError{Field: "branch", Message: "must be at most 64 characters"}
	case len(cmd.Dir) > 128:
		return &apperr.ValidationError{Field: "dir", Message: "must be at most 128 characters"}
	case cmd.Port < 1 || cmd.Port > 65535:
		return &apperr.ValidationError{Field: "port", Message: "must be between 1 and 65535"}
	}

	for _, value := range []string{cmd.CPURequest, cmd.CPULimit} {
		if value == "" {
			continue
		}
		if _, err := quantity.ParseCPU(value); err != nil {
			return apperr.AsInvalidQuantity(err)
		}
	}
	for _, value := range []string{cmd.MemoryRequest, cmd.MemoryLimit} {
		if value == "" {
			continue
		}
		if _, err := quantity.ParseMemory(value); err != nil {
			return apperr.AsInvalidQuantity(err)
		}
	}

	return nil
}

func toDeploymentConfig(cmd ServiceCreationCmd) vendor.DeploymentConfig {
	return vendor.DeploymentConfig{
		Name: cmd.Name,
		Source: vendor.DeploymentSourceConfig{
			Git:    cmd.URL,
			Branch: cmd.Branch,
			Dir:    cmd.Dir,
		},
		Run: vendor.DeploymentRunConfig{
			Port:          cmd.Port,
			Envs:          cmd.Envs,
			CPURequest:    cmd.CPURequest,
			MemoryRequest: cmd.MemoryRequest,
			CPULimit:      cmd.CPULimit,
			MemoryLimit:   cmd.MemoryLimit,
			MinScale:      cmd.MinScale,
			MaxScale:      cmd.MaxScale,
			InitScale:     cmd.InitScale,
			PVCSize:       cmd.PVCSize,
		},
		Build: vendor.DeploymentBuildConfig{
			BuildEnvs: cmd.BuildEnvs,
		},
	}
}
