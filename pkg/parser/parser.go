// Package parser reads GitLab CI configuration files into a structured form.
// It is deliberately lenient: unknown keys are ignored and malformed job
// bodies are skipped, so that any file GitLab accepts can be summarised.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile reads and parses the CI file at path.
func ParseFile(path string) (*GitLabConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses CI configuration. Every YAML document in data is read and
// merged in order; a leading document holding only the spec: header is
// skipped.
func Parse(data []byte) (*GitLabConfig, error) {
	raw, err := decodeDocuments(data)
	if err != nil {
		return nil, err
	}

	config := &GitLabConfig{
		Jobs:      make(map[string]*JobConfig),
		Templates: make(map[string]*JobConfig),
		RawData:   raw,
	}

	for key, value := range raw {
		switch key {
		case "stages":
			if stages, ok := value.([]interface{}); ok {
				for _, s := range stages {
					if str, ok := s.(string); ok {
						config.Stages = append(config.Stages, str)
					}
				}
			}
		case "variables":
			if vars, ok := value.(map[string]interface{}); ok {
				config.Variables = vars
			}
		case "include":
			config.Include = parseIncludes(value)
		case "default":
			if job, ok := decodeJob(value); ok {
				config.Default = job
			}
		case "workflow":
			var wf Workflow
			if remarshal(value, &wf) == nil {
				config.Workflow = &wf
			}
		default:
			if isReservedKeyword(key) || !isJobDefinition(value) {
				continue
			}
			job, ok := decodeJob(value)
			if !ok {
				continue
			}
			if strings.HasPrefix(key, ".") {
				config.Templates[key] = job
			} else {
				config.Jobs[key] = job
			}
		}
	}

	return config, nil
}

func decodeDocuments(data []byte) (map[string]interface{}, error) {
	var merged map[string]interface{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc map[string]interface{}
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unmarshaling YAML: %w", err)
		}
		if len(doc) == 0 || isHeaderDocument(doc) {
			continue
		}
		if merged == nil {
			merged = make(map[string]interface{}, len(doc))
		}
		for key, value := range doc {
			merged[key] = value
		}
	}
	return merged, nil
}

// isHeaderDocument reports whether doc is a spec: header with no
// configuration of its own.
func isHeaderDocument(doc map[string]interface{}) bool {
	_, ok := doc["spec"]
	return ok && len(doc) == 1
}

func decodeJob(value interface{}) (*JobConfig, bool) {
	var job JobConfig
	if err := remarshal(value, &job); err != nil {
		return nil, false
	}
	return &job, true
}

// remarshal converts a generic YAML value into a typed one.
func remarshal(value interface{}, out interface{}) error {
	b, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

func parseIncludes(value interface{}) []Include {
	var includes []Include

	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if inc, ok := parseInclude(item); ok {
				includes = append(includes, inc)
			}
		}
	default:
		if inc, ok := parseInclude(v); ok {
			includes = append(includes, inc)
		}
	}

	return includes
}

func parseInclude(value interface{}) (Include, bool) {
	switch v := value.(type) {
	case string:
		// Short form: a URL is a remote include, anything else is local.
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return Include{Remote: v}, true
		}
		return Include{Local: v}, true
	case map[string]interface{}:
		var include Include
		if err := remarshal(v, &include); err != nil {
			return Include{}, false
		}
		switch f := v["file"].(type) {
		case string:
			include.File = []string{f}
		case []interface{}:
			for _, item := range f {
				if s, ok := item.(string); ok {
					include.File = append(include.File, s)
				}
			}
		}
		if include.Kind() == "unknown" {
			return Include{}, false
		}
		return include, true
	}
	return Include{}, false
}

func isReservedKeyword(key string) bool {
	reserved := []string{
		"stages", "variables", "include", "default", "before_script", "after_script",
		"image", "services", "cache", "artifacts", "workflow", "spec",
	}
	for _, r := range reserved {
		if key == r {
			return true
		}
	}
	return false
}

func isJobDefinition(value interface{}) bool {
	valueMap, ok := value.(map[string]interface{})
	if !ok {
		return false
	}
	for key := range valueMap {
		switch key {
		case "script", "stage", "image", "before_script", "after_script",
			"needs", "dependencies", "services", "environment", "only", "except",
			"rules", "when", "artifacts", "cache", "variables", "tags",
			"allow_failure", "retry", "coverage", "timeout", "parallel",
			"extends", "trigger":
			return true
		}
	}
	return false
}
