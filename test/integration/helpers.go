//go:build integration

package integration

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/fivetwenty-io/exstream-client/pkg/exclient"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	Mode             string
	IdentityURL      string
	DesignURL        string
	OrchestrationURL string
	EmpowerURL       string
	Tenant           string
	Subscription     string
	ClientID         string
	Username         string
	Password         string
	ServiceClientID  string
	ServiceSecret    string
	Domain           string
	CommunicationID  string
	DriverFile       string
	BinaryPath       string
	Verbose          bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		Mode:             envOr("EXSTREAM_DEPLOYMENT_TYPE", string(exstream.DeploymentHosted)),
		IdentityURL:      os.Getenv("EXSTREAM_OTDS_URL"),
		DesignURL:        os.Getenv("EXSTREAM_DAS_URL"),
		OrchestrationURL: envOr("EXSTREAM_ORCHESTRATION_URL", os.Getenv("EXSTREAM_DAS_URL")),
		EmpowerURL:       envOr("EXSTREAM_EMPOWER_URL", os.Getenv("EXSTREAM_DAS_URL")),
		Tenant:           os.Getenv("EXSTREAM_OTDS_TENANT"),
		Subscription:     os.Getenv("EXSTREAM_OTDS_SUBSCRIPTION_NAME"),
		ClientID:         os.Getenv("EXSTREAM_OTDS_CLIENT_ID"),
		Username:         os.Getenv("EXSTREAM_OTDS_USERNAME"),
		Password:         os.Getenv("EXSTREAM_OTDS_PASSWORD"),
		ServiceClientID:  os.Getenv("EXSTREAM_OTDS_SERVICE_CLIENT_ID"),
		ServiceSecret:    os.Getenv("EXSTREAM_OTDS_SERVICE_CLIENT_SECRET"),
		Domain:           os.Getenv("EXSTREAM_IT_DOMAIN"),
		CommunicationID:  os.Getenv("EXSTREAM_IT_COMMUNICATION"),
		DriverFile:       os.Getenv("EXSTREAM_IT_DRIVER"),
		BinaryPath:       getBinaryPath(),
		Verbose:          os.Getenv("EXSTREAM_VERBOSE") == "true",
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

// getBinaryPath determines the path to the exstream binary
func getBinaryPath() string {
	if path := os.Getenv("EXSTREAM_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../exstream",
		"./exstream",
		"../exstream",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "exstream"
}

// SkipIfMissingConfig skips test if required config is missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.IdentityURL == "" || config.DesignURL == "" {
		t.Skip("EXSTREAM_OTDS_URL or EXSTREAM_DAS_URL not set, skipping integration test")
	}

	if config.Username == "" && config.ServiceClientID == "" {
		t.Skip("no OTDS credentials set, skipping integration test")
	}
}

// SkipIfMissingBinary skips test if the CLI binary cannot be found
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("exstream binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// ClientConfig converts the environment into a client configuration
func (config *TestConfig) ClientConfig() *exstream.Config {
	return &exstream.Config{
		Mode:                exstream.DeploymentMode(config.Mode),
		IdentityURL:         config.IdentityURL,
		DesignURL:           config.DesignURL,
		OrchestrationURL:    config.OrchestrationURL,
		EmpowerURL:          config.EmpowerURL,
		Tenant:              config.Tenant,
		SubscriptionName:    config.Subscription,
		ClientID:            config.ClientID,
		Username:            config.Username,
		Password:            config.Password,
		ServiceClientID:     config.ServiceClientID,
		ServiceClientSecret: config.ServiceSecret,
		RetryMax:            2,
	}
}

// NewClient creates a client against the configured tenant
func (config *TestConfig) NewClient(t *testing.T) exstream.Client {
	t.Helper()

	client, err := exclient.New(context.Background(), config.ClientConfig())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return client
}

// CommandRunner provides utilities for running exstream commands
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{
		config: config,
		t:      t,
	}
}

// Run executes an exstream command and returns output. Credentials are
// passed through the environment, never on the command line.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, runner.config.BinaryPath, args...)
	cmd.Env = os.Environ()

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// AssertJSONOutput verifies command output is valid JSON
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	output = strings.TrimSpace(output)
	if !strings.HasPrefix(output, "{") && !strings.HasPrefix(output, "[") {
		t.Errorf("Output does not appear to be JSON: %s", output)
	}
}

// AssertYAMLOutput verifies command output is valid YAML
func AssertYAMLOutput(t *testing.T, output string) {
	t.Helper()

	output = strings.TrimSpace(output)
	if strings.Contains(output, "---") || strings.Contains(output, ":") {
		return
	}

	t.Errorf("Output does not appear to be YAML: %s", output)
}
