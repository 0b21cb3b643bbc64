// Package renderer prints conversion results: stage by stage as text, or as
// a single JSON document once the run is over.
package renderer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/wonderfulspam/actions-smith/pkg/converter"
	"github.com/wonderfulspam/actions-smith/pkg/workflow"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures a Renderer.
type Options struct {
	Format    string
	Color     string
	ShowUsage bool
}

// Renderer implements converter.Reporter. Stage results and usage go to out;
// stage headers and warnings go to errOut so out can be piped.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	opts   Options

	styled   bool
	profile  termenv.Profile
	markdown *glamour.TermRenderer

	header lipgloss.Style
	usage  lipgloss.Style
	total  lipgloss.Style
	warn   lipgloss.Style
}

// New returns a Renderer. Styling is decided per writer from opts.Color.
func New(out, errOut io.Writer, opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatText
	}

	r := &Renderer{out: out, errOut: errOut, opts: opts}
	r.styled = opts.Format == FormatText && UseColor(out, opts.Color)
	r.profile = colorProfile(out, r.styled)

	errStyled := UseColor(errOut, opts.Color)
	errRenderer := lipgloss.NewRenderer(errOut)
	errRenderer.SetColorProfile(colorProfile(errOut, errStyled))
	outRenderer := lipgloss.NewRenderer(out)
	outRenderer.SetColorProfile(r.profile)

	r.header = errRenderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	r.warn = errRenderer.NewStyle().Foreground(lipgloss.Color("11"))
	r.usage = outRenderer.NewStyle().Faint(true)
	r.total = outRenderer.NewStyle().Bold(true)

	if r.styled {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithColorProfile(r.profile),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			r.markdown = md
		}
	}
	return r
}

// Styled reports whether stage results are rendered rather than printed raw.
func (r *Renderer) Styled() bool {
	return r.styled
}

// StageDone prints one stage's reply, and its usage when enabled. In JSON
// mode nothing is printed until Finish.
func (r *Renderer) StageDone(res converter.StageResult) error {
	if r.opts.Format == FormatJSON {
		return nil
	}

	if _, err := fmt.Fprintln(r.errOut, r.header.Render("==> "+res.Stage.Title())); err != nil {
		return err
	}

	body := r.body(res)
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	if _, err := io.WriteString(r.out, body); err != nil {
		return err
	}

	if r.opts.ShowUsage {
		if _, err := fmt.Fprintln(r.out, r.usage.Render(res.Usage.String())); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(r.out)
	return err
}

func (r *Renderer) body(res converter.StageResult) string {
	if !r.styled {
		return res.Text
	}

	if res.Stage.ProducesWorkflow() {
		var buf bytes.Buffer
		if err := quick.Highlight(&buf, workflow.Extract(res.Text), "yaml", chromaFormatter(r.profile), "monokai"); err == nil {
			return buf.String()
		}
		return res.Text
	}

	if r.markdown != nil {
		if rendered, err := r.markdown.Render(res.Text); err == nil {
			return rendered
		}
	}
	return res.Text
}

func chromaFormatter(p termenv.Profile) string {
	switch p {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	default:
		return "terminal16"
	}
}

// Warn prints a warning on the error stream.
func (r *Renderer) Warn(msg string) {
	fmt.Fprintln(r.errOut, r.warn.Render("warning: "+msg))
}

// Report is everything known about a finished run.
type Report struct {
	Source   string             `json:"source"`
	Includes []string           `json:"includes,omitempty"`
	Provider string             `json:"provider"`
	Result   *converter.Result  `json:"-"`
	Workflow string             `json:"workflow"`
	Summary  *workflow.Summary  `json:"workflow_summary,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}

type jsonReport struct {
	Report
	Mode   converter.Mode          `json:"mode"`
	Model  string                  `json:"model"`
	Stages []converter.StageResult `json:"stages"`
	Totals converter.Totals        `json:"totals"`
}

// Finish prints what is left once every stage is done: the run totals in
// text mode when usage display is on, or the whole report in JSON mode.
func (r *Renderer) Finish(report Report) error {
	if r.opts.Format == FormatJSON {
		doc := jsonReport{Report: report}
		if report.Result != nil {
			doc.Mode = report.Result.Mode
			doc.Model = report.Result.Model
			doc.Stages = report.Result.Stages
			doc.Totals = report.Result.Totals
		}
		if doc.Stages == nil {
			doc.Stages = []converter.StageResult{}
		}
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	for _, w := range report.Warnings {
		r.Warn(w)
	}

	if r.opts.ShowUsage && report.Result != nil {
		// Styled line by line; lipgloss pads multi-line blocks to one width.
		for _, line := range strings.Split(report.Result.Totals.String(), "\n") {
			if _, err := fmt.Fprintln(r.out, r.total.Render(line)); err != nil {
				return err
			}
		}
	}
	return nil
}
