package parser

import (
	"fmt"
	"regexp"
)

var variablePattern = regexp.MustCompile(`\$(?:\{([A-Za-z_][A-Za-z0-9_]*)\}|([A-Za-z_][A-Za-z0-9_]*))`)

// Expander substitutes CI variables defined in the configuration. Variables
// only known at pipeline run time are left as written.
type Expander struct {
	global map[string]string
}

// NewExpander collects the global variables of config.
func NewExpander(config *GitLabConfig) *Expander {
	return &Expander{global: variableValues(config.Variables)}
}

// Expand replaces $VAR and ${VAR} in s. Job variables take precedence over
// global ones.
func (e *Expander) Expand(s string, jobVars map[string]interface{}) string {
	job := variableValues(jobVars)

	return variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := variablePattern.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		if v, ok := job[name]; ok {
			return v
		}
		if v, ok := e.global[name]; ok {
			return v
		}
		return match
	})
}

// variableValues flattens both the plain and the {value: ...} forms.
func variableValues(vars map[string]interface{}) map[string]string {
	values := make(map[string]string, len(vars))
	for name, raw := range vars {
		switch v := raw.(type) {
		case string:
			values[name] = v
		case map[string]interface{}:
			if value, ok := v["value"]; ok {
				values[name] = fmt.Sprint(value)
			}
		case nil:
		default:
			values[name] = fmt.Sprint(v)
		}
	}
	return values
}
