package support

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// StartServer runs "docscan serve" with extra flags on a free port and
// waits until /health answers.
func (testCtx *TestContext) StartServer(flags string) error {
	port, err := freePort()
	if err != nil {
		return fmt.Errorf("find free port: %w", err)
	}
	testCtx.ServerPort = port

	args := []string{"serve", "--host", testCtx.ServerHost, "--port", strconv.Itoa(port)}
	args = append(args, strings.Fields(testCtx.substitute(flags))...)

	cmd := exec.Command("docscan", args...) //nolint:gosec // G204: test binary with controlled args
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	testCtx.ServerCmd = cmd

	if err := testCtx.waitForServerReady(15 * time.Second); err != nil {
		if stopErr := testCtx.StopServer(); stopErr != nil {
			return fmt.Errorf("server failed to start and also failed to stop: %w; stop error: %w", err, stopErr)
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// StopServer sends SIGTERM and waits for the graceful shutdown, killing
// the process if it does not exit in time.
func (testCtx *TestContext) StopServer() error {
	cmd := testCtx.ServerCmd
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	testCtx.ServerCmd = nil

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = cmd.Process.Kill()
		<-done
		return nil
	}
	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			return err
		}
		return nil
	case <-time.After(15 * time.Second):
		_ = cmd.Process.Kill()
		<-done
		return errors.New("server did not shut down within 15s")
	}
}

// BaseURL is the root URL of the running server.
func (testCtx *TestContext) BaseURL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(testCtx.ServerHost, strconv.Itoa(testCtx.ServerPort)))
}

func (testCtx *TestContext) waitForServerReady(timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, testCtx.BaseURL()+"/health", nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("no healthy response from %s within %v", testCtx.BaseURL(), timeout)
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}
