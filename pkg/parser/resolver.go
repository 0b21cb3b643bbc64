package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTemplateBaseURL is where GitLab's bundled CI templates are served from.
const DefaultTemplateBaseURL = "https://gitlab.com/gitlab-org/gitlab/-/raw/master/lib/gitlab/ci/templates/"

// maxIncludes mirrors GitLab's limit on included files per pipeline.
const maxIncludes = 150

// ErrProjectIncludesDisabled is returned for project includes when the
// resolver has no GitLab reader.
var ErrProjectIncludesDisabled = errors.New("project includes need a GitLab API client")

// ProjectFileReader reads files from GitLab projects.
type ProjectFileReader interface {
	GetRawFile(ctx context.Context, project, path, ref string) ([]byte, error)
}

// IncludeResolver fetches the files named by include entries.
type IncludeResolver struct {
	httpClient      *http.Client
	cache           map[string][]byte
	projects        ProjectFileReader
	templateBaseURL string

	// When set, local includes are read from this project instead of disk.
	localProject string
	localRef     string
}

// ResolverOption customises an IncludeResolver.
type ResolverOption func(*IncludeResolver)

// WithProjectReader enables project includes.
func WithProjectReader(r ProjectFileReader) ResolverOption {
	return func(ir *IncludeResolver) { ir.projects = r }
}

// WithLocalProject reads local includes from a GitLab project at ref. It
// requires a project reader.
func WithLocalProject(project, ref string) ResolverOption {
	return func(ir *IncludeResolver) {
		ir.localProject = project
		ir.localRef = ref
	}
}

// WithTemplateBaseURL overrides where template includes are fetched from.
func WithTemplateBaseURL(u string) ResolverOption {
	return func(ir *IncludeResolver) { ir.templateBaseURL = u }
}

// NewIncludeResolver creates a new include resolver
func NewIncludeResolver(opts ...ResolverOption) *IncludeResolver {
	r := &IncludeResolver{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:           make(map[string][]byte),
		templateBaseURL: DefaultTemplateBaseURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolvedInclude is the content of one included file.
type ResolvedInclude struct {
	// Ref identifies the file, e.g. "local:ci/build.yml".
	Ref    string
	Data   []byte
	Config *GitLabConfig
}

// IncludeError reports an include that could not be resolved.
type IncludeError struct {
	Ref string
	Err error
}

func (e *IncludeError) Error() string {
	return fmt.Sprintf("include %s: %v", e.Ref, e.Err)
}

func (e *IncludeError) Unwrap() error { return e.Err }

// Resolve fetches every include of config, following nested includes depth
// first. Each file is fetched once. Failures do not stop resolution; they are
// returned alongside whatever could be resolved.
func (r *IncludeResolver) Resolve(ctx context.Context, config *GitLabConfig, baseDir string) ([]ResolvedInclude, []error) {
	var resolved []ResolvedInclude
	var errs []error
	seen := make(map[string]bool)

	var walk func(includes []Include)
	walk = func(includes []Include) {
		for _, inc := range includes {
			for _, unit := range r.expand(inc, baseDir) {
				if seen[unit.ref] {
					continue
				}
				seen[unit.ref] = true

				if len(seen) > maxIncludes {
					errs = append(errs, &IncludeError{Ref: unit.ref, Err: fmt.Errorf("more than %d includes", maxIncludes)})
					return
				}
				if ctx.Err() != nil {
					errs = append(errs, &IncludeError{Ref: unit.ref, Err: ctx.Err()})
					return
				}

				data, err := unit.fetch(ctx)
				if err != nil {
					errs = append(errs, &IncludeError{Ref: unit.ref, Err: err})
					continue
				}

				included, err := Parse(data)
				if err != nil {
					errs = append(errs, &IncludeError{Ref: unit.ref, Err: err})
					continue
				}

				resolved = append(resolved, ResolvedInclude{Ref: unit.ref, Data: data, Config: included})
				walk(included.Include)
			}
		}
	}
	walk(config.Include)

	return resolved, errs
}

// fetchUnit is one file to fetch; a single include entry may expand to
// several (project includes with a file list, local globs).
type fetchUnit struct {
	ref   string
	fetch func(ctx context.Context) ([]byte, error)
}

func (r *IncludeResolver) expand(inc Include, baseDir string) []fetchUnit {
	switch inc.Kind() {
	case "local":
		return r.expandLocal(inc.Local, baseDir)
	case "remote":
		return []fetchUnit{{
			ref:   "remote:" + inc.Remote,
			fetch: func(ctx context.Context) ([]byte, error) { return r.resolveRemoteInclude(ctx, inc.Remote) },
		}}
	case "template":
		return []fetchUnit{{
			ref:   "template:" + inc.Template,
			fetch: func(ctx context.Context) ([]byte, error) { return r.resolveTemplateInclude(ctx, inc.Template) },
		}}
	case "project":
		files := inc.File
		if len(files) == 0 {
			return []fetchUnit{{
				ref: inc.String(),
				fetch: func(context.Context) ([]byte, error) {
					return nil, fmt.Errorf("project include %s lists no files", inc.Project)
				},
			}}
		}
		units := make([]fetchUnit, 0, len(files))
		for _, file := range files {
			ref := fmt.Sprintf("project:%s/%s", inc.Project, strings.TrimPrefix(file, "/"))
			if inc.Ref != "" {
				ref += "@" + inc.Ref
			}
			units = append(units, fetchUnit{
				ref: ref,
				fetch: func(ctx context.Context) ([]byte, error) {
					return r.resolveProjectInclude(ctx, inc.Project, file, inc.Ref)
				},
			})
		}
		return units
	}
	return nil
}

func (r *IncludeResolver) expandLocal(path, baseDir string) []fetchUnit {
	rel := strings.TrimPrefix(path, "/")

	if r.localProject != "" {
		return []fetchUnit{{
			ref: "local:" + rel,
			fetch: func(ctx context.Context) ([]byte, error) {
				return r.resolveProjectInclude(ctx, r.localProject, rel, r.localRef)
			},
		}}
	}

	full := filepath.Join(baseDir, filepath.FromSlash(rel))
	if strings.ContainsAny(rel, "*?[") {
		matches, err := filepath.Glob(full)
		if err != nil || len(matches) == 0 {
			return []fetchUnit{{
				ref: "local:" + rel,
				fetch: func(context.Context) ([]byte, error) {
					return nil, fmt.Errorf("no files match %s", rel)
				},
			}}
		}
		units := make([]fetchUnit, 0, len(matches))
		for _, m := range matches {
			relMatch, err := filepath.Rel(baseDir, m)
			if err != nil {
				relMatch = m
			}
			units = append(units, fetchUnit{
				ref:   "local:" + filepath.ToSlash(relMatch),
				fetch: func(context.Context) ([]byte, error) { return os.ReadFile(m) },
			})
		}
		return units
	}

	return []fetchUnit{{
		ref:   "local:" + rel,
		fetch: func(context.Context) ([]byte, error) { return os.ReadFile(full) },
	}}
}

// resolveRemoteInclude fetches a remote file via HTTP/HTTPS
func (r *IncludeResolver) resolveRemoteInclude(ctx context.Context, url string) ([]byte, error) {
	if cached, exists := r.cache[url]; exists {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}

	r.cache[url] = data
	return data, nil
}

// resolveTemplateInclude resolves GitLab-provided templates
func (r *IncludeResolver) resolveTemplateInclude(ctx context.Context, template string) ([]byte, error) {
	if !strings.HasSuffix(template, ".yml") && !strings.HasSuffix(template, ".yaml") {
		template += ".yml"
	}
	base := r.templateBaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return r.resolveRemoteInclude(ctx, base+template)
}

// resolveProjectInclude resolves includes from other GitLab projects
func (r *IncludeResolver) resolveProjectInclude(ctx context.Context, project, file, ref string) ([]byte, error) {
	if r.projects == nil {
		return nil, ErrProjectIncludesDisabled
	}

	cacheKey := fmt.Sprintf("project:%s:%s:%s", project, file, ref)
	if cached, exists := r.cache[cacheKey]; exists {
		return cached, nil
	}

	data, err := r.projects.GetRawFile(ctx, project, file, ref)
	if err != nil {
		return nil, err
	}

	r.cache[cacheKey] = data
	return data, nil
}

// MergeIncludes folds the jobs, templates and defaults of resolved includes
// into config. Definitions in config itself take precedence; among includes,
// later files override earlier ones.
func MergeIncludes(config *GitLabConfig, resolved []ResolvedInclude) {
	jobs := make(map[string]*JobConfig)
	templates := make(map[string]*JobConfig)
	vars := make(map[string]interface{})

	for _, inc := range resolved {
		if inc.Config == nil {
			continue
		}
		for name, job := range inc.Config.Jobs {
			jobs[name] = job
		}
		for name, tmpl := range inc.Config.Templates {
			templates[name] = tmpl
		}
		for name, v := range inc.Config.Variables {
			vars[name] = v
		}
		if len(config.Stages) == 0 && len(inc.Config.Stages) > 0 {
			config.Stages = inc.Config.Stages
		}
		if config.Default == nil && inc.Config.Default != nil {
			config.Default = inc.Config.Default
		}
	}

	if config.Jobs == nil {
		config.Jobs = make(map[string]*JobConfig)
	}
	for name, job := range jobs {
		if _, exists := config.Jobs[name]; !exists {
			config.Jobs[name] = job
		}
	}

	if config.Templates == nil {
		config.Templates = make(map[string]*JobConfig)
	}
	for name, tmpl := range templates {
		if _, exists := config.Templates[name]; !exists {
			config.Templates[name] = tmpl
		}
	}

	if len(vars) > 0 && config.Variables == nil {
		config.Variables = make(map[string]interface{})
	}
	for name, v := range vars {
		if _, exists := config.Variables[name]; !exists {
			config.Variables[name] = v
		}
	}
}

// Bundle appends each resolved include to source as a separate YAML document
// headed by a comment naming where it came from.
func Bundle(source string, resolved []ResolvedInclude) string {
	if len(resolved) == 0 {
		return source
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(source, "\n"))
	b.WriteString("\n")
	for _, inc := range resolved {
		b.WriteString("---\n# include: ")
		b.WriteString(inc.Ref)
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(string(inc.Data), "\n"))
		b.WriteString("\n")
	}
	return b.String()
}
