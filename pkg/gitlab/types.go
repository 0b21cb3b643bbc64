package gitlab

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a project, file or ref does not exist or is
// not visible with the configured token.
var ErrNotFound = errors.New("gitlab: not found")

// ErrFileTooLarge is returned for raw files over 10 MiB.
var ErrFileTooLarge = errors.New("gitlab: file exceeds 10 MiB")

// Project represents a GitLab project
type Project struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	DefaultBranch     string `json:"default_branch"`
	WebURL            string `json:"web_url"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gitlab: API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("gitlab: API returned status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}
