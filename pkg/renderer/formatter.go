package renderer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wonderfulspam/actions-smith/pkg/parser"
	"github.com/wonderfulspam/actions-smith/pkg/pricing"
)

// FormatSummary formats a CI file summary for display
func FormatSummary(name string, summary parser.Summary, format string) (string, error) {
	switch format {
	case "json":
		doc := struct {
			Source string `json:"source"`
			parser.Summary
		}{name, summary}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil

	case "table", "text", "":
		return formatSummaryTable(name, summary), nil

	default:
		return "", fmt.Errorf("unsupported format: %s (supported: table, json)", format)
	}
}

func formatSummaryTable(name string, summary parser.Summary) string {
	var buf bytes.Buffer

	title := "GitLab CI summary: " + name
	buf.WriteString(title + "\n")
	buf.WriteString(strings.Repeat("=", len(title)) + "\n\n")

	buf.WriteString(fmt.Sprintf("Jobs: %d   Stages: %d   Templates: %d   Includes: %d\n\n",
		summary.JobCount, len(summary.Stages), len(summary.Templates), len(summary.Includes)))

	for _, stage := range summary.Stages {
		buf.WriteString(fmt.Sprintf("[%s]\n", stage.Name))
		if len(stage.Jobs) == 0 {
			buf.WriteString("  (no jobs)\n")
		}
		for _, job := range stage.Jobs {
			var details []string
			if job.Image != "" {
				details = append(details, "image="+job.Image)
			}
			if job.When != "" {
				details = append(details, "when="+job.When)
			}
			if len(job.Needs) > 0 {
				details = append(details, "needs="+strings.Join(job.Needs, ","))
			}
			if len(job.Extends) > 0 {
				details = append(details, "extends="+strings.Join(job.Extends, ","))
			}
			if len(details) == 0 {
				buf.WriteString("  " + job.Name + "\n")
				continue
			}
			buf.WriteString(fmt.Sprintf("  %-30s %s\n", job.Name, strings.Join(details, " ")))
		}
	}

	writeList(&buf, "Variables", summary.Variables)
	writeList(&buf, "Templates", summary.Templates)
	writeList(&buf, "Includes", summary.Includes)

	return buf.String()
}

func writeList(buf *bytes.Buffer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	buf.WriteString("\n" + title + ":\n")
	for _, item := range items {
		buf.WriteString("  - " + item + "\n")
	}
}

// ModelRow is one line of the models listing.
type ModelRow struct {
	Provider string         `json:"provider"`
	Tier     string         `json:"tier"`
	Model    string         `json:"model"`
	Default  bool           `json:"default"`
	Price    *pricing.Price `json:"price,omitempty"`
}

// FormatModels formats the configured models and their prices.
func FormatModels(rows []ModelRow, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil

	case "table", "text", "":
		var buf bytes.Buffer
		buf.WriteString(fmt.Sprintf("  %-9s %-9s %-45s %s\n", "PROVIDER", "TIER", "MODEL", "PRICE (USD / 1M tokens in/out)"))
		for _, row := range rows {
			marker := " "
			if row.Default {
				marker = "*"
			}
			price := "unknown"
			if row.Price != nil {
				price = fmt.Sprintf("%.2f / %.2f", row.Price.Input, row.Price.Output)
			}
			buf.WriteString(fmt.Sprintf("%s %-9s %-9s %-45s %s\n", marker, row.Provider, row.Tier, row.Model, price))
		}
		buf.WriteString("\n* selected provider\n")
		return buf.String(), nil

	default:
		return "", fmt.Errorf("unsupported format: %s (supported: table, json)", format)
	}
}
