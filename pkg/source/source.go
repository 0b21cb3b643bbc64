// Package source loads the GitLab CI file to convert, from disk or from a
// GitLab repository, optionally bundling its includes.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wonderfulspam/actions-smith/pkg/gitlab"
	"github.com/wonderfulspam/actions-smith/pkg/logging"
	"github.com/wonderfulspam/actions-smith/pkg/parser"
)

// DefaultPath is the CI file read when none is given.
const DefaultPath = ".gitlab-ci.yml"

// ErrNotFound is returned when the CI file does not exist.
var ErrNotFound = errors.New("CI file not found")

// Document is a loaded CI file.
type Document struct {
	// Name identifies where the text came from.
	Name string
	Text string
	// Includes lists the includes bundled into Text, in order.
	Includes []string
}

// ProjectLookup describes GitLab projects. When the GitLab client in Options
// implements it, a project read without a ref uses the project's default
// branch.
type ProjectLookup interface {
	GetProject(ctx context.Context, project string) (*gitlab.Project, error)
}

// Options controls where and how the CI file is loaded.
type Options struct {
	Path string
	// Project, when set, reads Path from this GitLab project at Ref.
	Project string
	Ref     string
	// WithIncludes appends the CI file's includes to Text.
	WithIncludes bool
	// GitLab is used for project reads and project includes. It may be nil
	// for purely local loads.
	GitLab parser.ProjectFileReader
	// TemplateBaseURL overrides where template includes are fetched from.
	TemplateBaseURL string
	Logger          *logging.Logger
}

// Load reads the CI file described by opts.
func Load(ctx context.Context, opts Options) (*Document, error) {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var doc *Document
	var err error
	if opts.Project != "" {
		opts.Ref, err = defaultRef(ctx, opts)
		if err == nil {
			doc, err = loadProject(ctx, opts)
		}
	} else {
		doc, err = loadLocal(opts.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading CI file: %w", err)
	}

	logger.Debug("loaded CI file", "source", doc.Name, "bytes", len(doc.Text))

	if opts.WithIncludes {
		bundleIncludes(ctx, doc, opts, logger)
	}
	return doc, nil
}

func loadLocal(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Document{Name: path, Text: string(data)}, nil
}

// defaultRef returns opts.Ref, or the project's default branch when no ref
// is given and the client can look it up.
func defaultRef(ctx context.Context, opts Options) (string, error) {
	if opts.Ref != "" {
		return opts.Ref, nil
	}
	lookup, ok := opts.GitLab.(ProjectLookup)
	if !ok {
		return "", nil
	}

	project, err := lookup.GetProject(ctx, opts.Project)
	if err != nil {
		if errors.Is(err, gitlab.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return "", err
	}
	return project.DefaultBranch, nil
}

func loadProject(ctx context.Context, opts Options) (*Document, error) {
	if opts.GitLab == nil {
		return nil, errors.New("reading from a GitLab project needs a GitLab client")
	}

	data, err := opts.GitLab.GetRawFile(ctx, opts.Project, opts.Path, opts.Ref)
	if err != nil {
		if errors.Is(err, gitlab.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}

	name := opts.Project + ":" + opts.Path
	if opts.Ref != "" {
		name += "@" + opts.Ref
	}
	return &Document{Name: name, Text: string(data)}, nil
}

// bundleIncludes appends resolvable includes to doc. Problems are logged and
// never fail the load; the model can still work from the main file.
func bundleIncludes(ctx context.Context, doc *Document, opts Options, logger *logging.Logger) {
	config, err := parser.Parse([]byte(doc.Text))
	if err != nil {
		logger.Warn("cannot parse CI file, includes not bundled", "error", err)
		return
	}
	if len(config.Include) == 0 {
		return
	}

	var resolverOpts []parser.ResolverOption
	if opts.GitLab != nil {
		resolverOpts = append(resolverOpts, parser.WithProjectReader(opts.GitLab))
	}
	if opts.Project != "" {
		resolverOpts = append(resolverOpts, parser.WithLocalProject(opts.Project, opts.Ref))
	}
	if opts.TemplateBaseURL != "" {
		resolverOpts = append(resolverOpts, parser.WithTemplateBaseURL(opts.TemplateBaseURL))
	}

	resolved, errs := parser.NewIncludeResolver(resolverOpts...).Resolve(ctx, config, filepath.Dir(opts.Path))
	for _, e := range errs {
		logger.Warn("skipping include", "error", e)
	}

	doc.Text = parser.Bundle(doc.Text, resolved)
	for _, inc := range resolved {
		doc.Includes = append(doc.Includes, inc.Ref)
	}
	logger.Debug("bundled includes", "count", len(resolved), "skipped", len(errs))
}
