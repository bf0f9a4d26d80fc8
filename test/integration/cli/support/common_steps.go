package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// RegisterCommonSteps registers command, output and file steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)

	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the JSON should be an array of (\d+) reports?$`, testCtx.theJSONShouldBeAnArrayOf)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)

	sc.Step(`^a file "([^"]*)" with content "([^"]*)"$`, testCtx.aFileWithContent)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}

// iRunCommand executes a command inside the scenario's temp directory.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substitute(command)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastStdout = stdout.String()
	testCtx.LastOutput = stdout.String() + stderr.String()
	testCtx.LastError = err

	exitError := &exec.ExitError{}
	switch {
	case err == nil:
		testCtx.LastExitCode = 0
	case errors.As(err, &exitError):
		testCtx.LastExitCode = exitError.ExitCode()
	default:
		testCtx.LastExitCode = -1
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, testCtx.substitute(value))
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	expected = testCtx.substitute(expected)
	if !strings.Contains(testCtx.LastOutput, expected) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unexpected string) error {
	if strings.Contains(testCtx.LastOutput, unexpected) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", unexpected, testCtx.LastOutput)
	}
	return nil
}

// lastJSON decodes stdout of the last command.
func (testCtx *TestContext) lastJSON() (any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(testCtx.LastStdout)), &v); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastStdout)
	}
	return v, nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.lastJSON()
	return err
}

func (testCtx *TestContext) theJSONShouldContain(field string) error {
	v, err := testCtx.lastJSON()
	if err != nil {
		return err
	}
	_, err = lookupField(v, field)
	return err
}

func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	v, err := testCtx.lastJSON()
	if err != nil {
		return err
	}
	got, err := lookupField(v, field)
	if err != nil {
		return err
	}
	expected = testCtx.substitute(expected)
	if s := fmt.Sprint(got); s != expected {
		return fmt.Errorf("field %s is %q, want %q", field, s, expected)
	}
	return nil
}

func (testCtx *TestContext) theJSONShouldBeAnArrayOf(n int) error {
	v, err := testCtx.lastJSON()
	if err != nil {
		return err
	}
	arr, ok := v.([]any)
	if !ok {
		return fmt.Errorf("JSON output is %T, not an array", v)
	}
	if len(arr) != n {
		return fmt.Errorf("JSON array has %d elements, want %d", len(arr), n)
	}
	return nil
}

// lookupField walks a dotted path such as "processing.total_ns".
func lookupField(v any, field string) (any, error) {
	cur := v
	parts := strings.Split(field, ".")
	for i, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot navigate into non-object at '%s'", strings.Join(parts[:i], "."))
		}
		if cur, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field '%s' not found in JSON", strings.Join(parts[:i+1], "."))
		}
	}
	return cur, nil
}

// theErrorShouldMention matches case-insensitively against all output.
func (testCtx *TestContext) theErrorShouldMention(text string) error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", text)
	}
	if !strings.Contains(strings.ToLower(testCtx.LastOutput), strings.ToLower(text)) {
		return fmt.Errorf("error does not contain '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) aFileWithContent(name, content string) error {
	content = strings.ReplaceAll(content, `\n`, "\n")
	return os.WriteFile(testCtx.Path(name), []byte(content), 0o600)
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldNotExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err == nil {
		return fmt.Errorf("file %s exists but should not", name)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain '%s'", name, expected)
	}
	return nil
}
