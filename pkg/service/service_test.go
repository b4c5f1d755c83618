package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahara-labs/x402-hive/pkg/apperr"
	"github.com/sahara-labs/x402-hive/pkg/service"
	"github.com/sahara-labs/x402-hive/pkg/deployvendor"
)

type fakeDeployer struct {
	deployConfig vendor.DeploymentConfig
	deployID     string
	deployErr    error

	statusID     string
	status       vendor.DeploymentStatus
	statusErr    error
}

func (f *fakeDeployer) Deploy(config vendor.DeploymentConfig) (string, error) {
	f.deployConfig = config
	return f.deployID, f.deployErr
}

func (f *fakeDeployer) Status(id string) (vendor.DeploymentStatus, error) {
	f.statusID = id
	return f.status, f.statusErr
}

func validCmd() service.ServiceCreationCmd {
	return service.ServiceCreationCmd{
		Name:          "my-service",
		URL:           "https://github.com/example/repo.git",
		Branch:        "main",
		Port:          8080,
		CPURequest:    "500m",
		MemoryRequest: "256Mi",
	}
}

func TestCreateDelegatesToVendor(t *testing.T) {
	deployer := &fakeDeployer{deployID: "svc-1"}
	svc := service.New(deployer)

	result, err := svc.Create(validCmd())

	require.NoError(t, err)
	assert.Equal(t, "svc-1", result.ID)
	assert.Equal(t, "my-service", result.Name)
	assert.Equal(t, "https://github.com/example/repo.git", deployer.deployConfig.Source.Git)
	assert.Equal(t, "main", deployer.deployConfig.Source.Branch)
	assert.Equal(t, 8080, deployer.deployConfig.Run.Port)
}

func TestCreateRejectsBlankName(t *testing.T) {
	deployer := &fakeDeployer{}
	svc := service.New(deployer)

	cmd := validCmd()
	cmd.Name = ""
	_, err := svc.Create(cmd)

	require.Error(t, err)
	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "name", validationErr.Field)
}

func TestCreateRejectsNameWithIllegalCharacters(t *testing.T) {
	svc := service.New(&fakeDeployer{})

	cmd := validCmd()
	cmd.Name = "my_service!"
	_, err := svc.Create(cmd)

	require.Error(t, err)
	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestCreateRejectsOutOfRangePort(t *testing.T) {
	svc := service.New(&fakeDeployer{})

	cmd := validCmd()
	cmd.Port = 70000
	_, err := svc.Create(cmd)

	require.Error(t, err)
	var validationErr *apperr.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "port", validationErr.Field)
}

func TestCreateRejectsMalformedCPUQuantity(t *testing.T) {
	svc := service.New(&fakeDeployer{})

	cmd := validCmd()
	cmd.CPURequest = "not-a-cpu"
	_, err := svc.Create(cmd)

	require.Error(t, err)
	assert.IsType(t, &apperr.InvalidQuantity{}, err)
}

func TestCreatePropagatesVendorError(t *testing.T) {
	deployer := &fakeDeployer{deployErr: &apperr.VendorError{Code: "BOOM", Message: "nope"}}
	svc := service.New(deployer)

	_, err := svc.Create(validCmd())

	require.Error(t, err)
	var vendorErr *apperr.VendorError
	require.ErrorAs(t, err, &vendorErr)
}

func TestStatusDelegatesToVendor(t *testing.T) {
	deployer := &fakeDeployer{status: vendor.DeploymentStatus{ID: "svc-1", Ready: true, URL: "https://svc-1.example.com"}}
	svc := service.New(deployer)

	result, err := svc.Status("svc-1")

	require.NoError(t, err)
	assert.Equal(t, "svc-1", deployer.statusID)
	assert.True(t, result.Ready)
	assert.Equal(t, "https://svc-1.example.com", result.URL)
}
