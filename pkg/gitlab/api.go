package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxFileSize bounds how much of a raw file is read.
const maxFileSize = 10 << 20

// doRequest performs an HTTP request with GitLab authentication
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	u := fmt.Sprintf("%s/api/v4%s", c.baseURL, path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}

	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Message interface{} `json:"message"`
		Error   string      `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch m := payload.Message.(type) {
		case string:
			apiErr.Message = m
		case nil:
			apiErr.Message = payload.Error
		default:
			apiErr.Message = fmt.Sprint(m)
		}
	}
	return apiErr
}

// GetProject returns a project by numeric ID or full path.
func (c *Client) GetProject(ctx context.Context, project string) (*Project, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/projects/"+projectID(project), nil)
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", project, err)
	}
	defer resp.Body.Close()

	var p Project
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding project %s: %w", project, err)
	}
	return &p, nil
}

// GetRawFile returns the raw contents of path in project at ref. An empty ref
// reads the project's default branch.
func (c *Client) GetRawFile(ctx context.Context, project, path, ref string) ([]byte, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, fmt.Errorf("gitlab: file path is required")
	}

	var query url.Values
	if ref != "" {
		query = url.Values{"ref": []string{ref}}
	}

	endpoint := fmt.Sprintf("/projects/%s/repository/files/%s/raw", projectID(project), url.PathEscape(path))
	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("reading %s from %s: %w", path, project, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s from %s: %w", path, project, err)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("reading %s from %s: %w", path, project, ErrFileTooLarge)
	}
	return data, nil
}

// projectID escapes a project path; numeric IDs pass through unchanged.
func projectID(project string) string {
	return url.PathEscape(strings.Trim(project, "/"))
}
