package support

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStdout   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	TempDir string
	EnvVars []string

	// Server management
	ServerCmd  *exec.Cmd
	ServerPort int
	ServerHost string

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPBody       []byte
	LastHTTPHeaders    http.Header
}

// NewTestContext creates a context with its own temporary directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "docscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	// Reports carry absolute paths as the binary sees its working directory.
	if resolved, err := filepath.EvalSymlinks(tempDir); err == nil {
		tempDir = resolved
	}
	return &TestContext{
		TempDir:    tempDir,
		ServerHost: "127.0.0.1",
	}, nil
}

// Cleanup stops the server and removes the scenario's files.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if err := testCtx.StopServer(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// Path resolves a scenario-relative file name inside the temp directory.
func (testCtx *TestContext) Path(name string) string {
	name = testCtx.substitute(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// substitute replaces {tmp} with the scenario's temp directory.
func (testCtx *TestContext) substitute(s string) string {
	return strings.ReplaceAll(s, "{tmp}", testCtx.TempDir)
}
