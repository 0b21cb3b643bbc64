// Package workflow cleans up and sanity-checks generated GitHub Actions
// workflow text. Checks are advisory: they never reject a workflow.
package workflow

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extract returns the workflow body of a model reply. When the reply holds a
// fenced code block, the first block's contents are returned; otherwise the
// trimmed reply is returned as is.
func Extract(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i
			break
		}
	}
	if start < 0 {
		return strings.TrimSpace(text)
	}

	for end := start + 1; end < len(lines); end++ {
		if strings.TrimSpace(lines[end]) == "```" {
			return strings.TrimSpace(strings.Join(lines[start+1:end], "\n"))
		}
	}
	// Unterminated fence: keep everything after the opening line.
	return strings.TrimSpace(strings.Join(lines[start+1:], "\n"))
}

// Summary describes a parsed workflow.
type Summary struct {
	Name     string   `json:"name,omitempty"`
	Triggers []string `json:"triggers,omitempty"`
	Jobs     []string `json:"jobs,omitempty"`
}

// Check parses text as a GitHub Actions workflow and returns what it found
// together with any warnings. A YAML error is reported as a warning.
func Check(text string) (Summary, []string) {
	var summary Summary
	var warnings []string

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return summary, []string{fmt.Sprintf("workflow is not valid YAML: %v", err)}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return summary, []string{"workflow is not a YAML mapping"}
	}
	root := doc.Content[0]

	if name := lookup(root, "name"); name != nil && name.Kind == yaml.ScalarNode {
		summary.Name = name.Value
	}

	// "on" stays a string key here; decoding into a bool would lose it.
	on := lookup(root, "on")
	if on == nil {
		warnings = append(warnings, "workflow has no 'on' trigger section")
	} else {
		summary.Triggers = triggers(on)
	}

	jobs := lookup(root, "jobs")
	switch {
	case jobs == nil:
		warnings = append(warnings, "workflow has no 'jobs' section")
	case jobs.Kind != yaml.MappingNode || len(jobs.Content) == 0:
		warnings = append(warnings, "workflow 'jobs' section is empty or not a mapping")
	default:
		for i := 0; i+1 < len(jobs.Content); i += 2 {
			id := jobs.Content[i].Value
			summary.Jobs = append(summary.Jobs, id)

			job := jobs.Content[i+1]
			if job.Kind != yaml.MappingNode {
				warnings = append(warnings, fmt.Sprintf("job %q is not a mapping", id))
				continue
			}
			if lookup(job, "runs-on") == nil && lookup(job, "uses") == nil {
				warnings = append(warnings, fmt.Sprintf("job %q has neither 'runs-on' nor 'uses'", id))
			}
		}
	}

	return summary, warnings
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func triggers(on *yaml.Node) []string {
	var out []string
	switch on.Kind {
	case yaml.ScalarNode:
		out = append(out, on.Value)
	case yaml.SequenceNode:
		for _, n := range on.Content {
			out = append(out, n.Value)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(on.Content); i += 2 {
			out = append(out, on.Content[i].Value)
		}
	}
	sort.Strings(out)
	return out
}
