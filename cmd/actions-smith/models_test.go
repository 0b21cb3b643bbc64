package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/wonderfulspam/actions-smith/pkg/config"
	"github.com/wonderfulspam/actions-smith/pkg/renderer"
)

func TestModelsCommand(t *testing.T) {
	workspace(t, "")

	out, _, err := execute("models")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, expected := range []string{
		"* openai    standard  gpt-4-turbo-preview",
		"  gemini    quick     gemini-2.5-flash",
		"10.00 / 30.00",
		"* selected provider",
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("Expected output to contain %q, got:\n%s", expected, out)
		}
	}
}

func TestModelsCommandJSON(t *testing.T) {
	dir := workspace(t, "")
	cfg := "provider: bedrock\npricing:\n  anthropic.claude-3-haiku-20240307-v1:0:\n    input: 1\n    output: 2\n"
	if err := os.WriteFile(dir+"/"+config.DefaultFile, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := execute("models", "--format", "json")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var rows []renderer.ModelRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("Expected JSON output: %v", err)
	}
	if len(rows) != 2*len(config.Providers) {
		t.Fatalf("Expected %d rows, got %d", 2*len(config.Providers), len(rows))
	}

	for _, row := range rows {
		if row.Default != (row.Provider == "bedrock") {
			t.Errorf("Row %s/%s: unexpected default marker %v", row.Provider, row.Tier, row.Default)
		}
		if row.Model == "anthropic.claude-3-haiku-20240307-v1:0" {
			if row.Price == nil || row.Price.Input != 1 || row.Price.Output != 2 {
				t.Errorf("Expected configured price override, got %+v", row.Price)
			}
		}
	}
}

func TestModelsCommandUnsupportedFormat(t *testing.T) {
	workspace(t, "")

	_, _, err := execute("models", "--format", "yaml")
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("Expected unsupported format error, got: %v", err)
	}
}
