// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments,
// capturing output, and running commands through a fresh root.
package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	logger "github.com/PolarWolf314/lastwill/internal/logging"
	"github.com/spf13/cobra"
)

// testEnvironment describes the temporary state a command test runs in.
type testEnvironment struct {
	Root       string
	ConfigPath string
	DataDir    string
}

// setupTestEnvironment points lastwill at a temporary config and data
// directory and provides a passphrase through the environment.
func setupTestEnvironment(t *testing.T) testEnvironment {
	t.Helper()
	root := t.TempDir()
	env := testEnvironment{
		Root:       root,
		ConfigPath: filepath.Join(root, "config", "config.toml"),
		DataDir:    filepath.Join(root, "data"),
	}

	t.Setenv("LASTWILL_CONFIG", env.ConfigPath)
	t.Setenv("LASTWILL_PASSPHRASE", "test passphrase")
	t.Setenv("NO_COLOR", "1")

	ResetGlobalState()
	t.Cleanup(ResetGlobalState)
	return env
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	// Channel to collect output
	outputChan := make(chan string, 2)

	// Start goroutines to read from pipes
	for _, r := range []io.Reader{stdoutReader, stderrReader} {
		go func(r io.Reader) {
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, r); err != nil {
				log.Fatalf("Failed to run copy command: %s", err)
			}
			outputChan <- buf.String()
		}(r)
	}

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	// Collect output
	first := <-outputChan
	second := <-outputChan

	return first + second, err
}

// createTestCLI creates a complete CLI instance for testing with the given arguments.
// Flag variables are package globals, so every instance starts from their defaults.
func createTestCLI(args ...string) *cobra.Command {
	ResetGlobalState()
	Logger = logger.Logger{}

	rootCmd := &cobra.Command{
		Use:          "lastwill",
		SilenceUsage: true,
	}
	Register(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd
}

// runCLI executes the CLI with args and returns everything it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return captureOutput(func() error {
		return createTestCLI(args...).Execute()
	})
}

// initializeLastwill runs init for alice with bob as nominee.
func initializeLastwill(t *testing.T, env testEnvironment) {
	t.Helper()
	output, err := runCLI(t, "init", "--user", "alice@example.com", "--nominee", "bob@example.com", "--data-dir", env.DataDir)
	if err != nil {
		t.Fatalf("Failed to initialize lastwill: %v\nOutput: %s", err, output)
	}
}
