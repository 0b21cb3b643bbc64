package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wonderfulspam/actions-smith/pkg/config"
	"github.com/wonderfulspam/actions-smith/pkg/llm"
	"github.com/wonderfulspam/actions-smith/pkg/llm/llmtest"
)

const sampleCI = `stages:
  - build
  - test

build:
  stage: build
  image: golang:1.22
  script:
    - go build ./...

test:
  stage: test
  image: golang:1.22
  script:
    - go test ./...
`

// workspace switches to a fresh directory holding .gitlab-ci.yml and
// clears the environment overrides the commands read.
func workspace(t *testing.T, ci string) string {
	t.Helper()

	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv(config.EnvProvider, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvNoColor, "")

	if ci != "" {
		if err := os.WriteFile(filepath.Join(dir, ".gitlab-ci.yml"), []byte(ci), 0o644); err != nil {
			t.Fatalf("writing CI file: %v", err)
		}
	}
	return dir
}

// useClient makes the commands talk to client instead of a real provider.
func useClient(t *testing.T, client llm.Client) *config.Provider {
	t.Helper()

	var got config.Provider
	prev := newChatClient
	newChatClient = func(_ context.Context, _ *config.Config, provider config.Provider) (llm.Client, func(), error) {
		got = provider
		return client, func() {}, nil
	}
	t.Cleanup(func() { newChatClient = prev })
	return &got
}

func execute(args ...string) (string, string, error) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{
			name:     "help flag",
			args:     []string{"--help"},
			contains: "--thorough",
		},
		{
			name:     "version flag",
			args:     []string{"--version"},
			contains: "actions-smith version dev",
		},
		{
			name:     "help lists subcommands",
			args:     []string{"--help"},
			contains: "inspect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(tt.args...)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, out)
			}
		})
	}
}

func TestRootCommandRejectsArguments(t *testing.T) {
	workspace(t, sampleCI)
	client := llmtest.New()
	useClient(t, client)

	_, _, err := execute("pipeline.yml")
	if err == nil {
		t.Fatal("Expected an error for a positional argument")
	}
	if client.Calls() != 0 {
		t.Errorf("Expected no chat calls, got %d", client.Calls())
	}
}

// chdir switches the working directory to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatal(err)
		}
	})
}
