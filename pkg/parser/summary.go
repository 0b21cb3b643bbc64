package parser

import (
	"sort"
)

// DefaultStages are the stages GitLab uses when a file declares none.
var DefaultStages = []string{".pre", "build", "test", "deploy", ".post"}

// defaultJobStage is the stage of a job that does not name one.
const defaultJobStage = "test"

// Summary is a compact view of a CI file: what runs, in which order, and
// what it pulls in.
type Summary struct {
	Stages    []StageSummary `json:"stages"`
	Variables []string       `json:"variables,omitempty"`
	Includes  []string       `json:"includes,omitempty"`
	Templates []string       `json:"templates,omitempty"`
	JobCount  int            `json:"job_count"`
}

// StageSummary lists the jobs of one stage.
type StageSummary struct {
	Name string       `json:"name"`
	Jobs []JobSummary `json:"jobs"`
}

// JobSummary describes one job.
type JobSummary struct {
	Name    string   `json:"name"`
	Image   string   `json:"image,omitempty"`
	When    string   `json:"when,omitempty"`
	Needs   []string `json:"needs,omitempty"`
	Extends []string `json:"extends,omitempty"`
}

// Summarize builds a Summary of the configuration. Stages keep their declared
// order; jobs within a stage are sorted by name. Image names have the
// configuration's variables expanded.
func Summarize(c *GitLabConfig) Summary {
	declared := c.Stages
	if len(declared) == 0 {
		declared = DefaultStages
	}

	byStage := make(map[string][]JobSummary)
	graph := c.GetDependencyGraph()
	vars := NewExpander(c)
	for name, job := range c.Jobs {
		stage := job.Stage
		if stage == "" {
			stage = defaultJobStage
		}
		byStage[stage] = append(byStage[stage], JobSummary{
			Name:    name,
			Image:   vars.Expand(job.ImageName(), job.Variables),
			When:    job.When,
			Needs:   graph[name],
			Extends: job.GetExtends(),
		})
	}

	summary := Summary{JobCount: len(c.Jobs)}
	seen := make(map[string]bool)
	for _, stage := range declared {
		if seen[stage] {
			continue
		}
		seen[stage] = true
		jobs := byStage[stage]
		if len(jobs) == 0 && len(c.Stages) == 0 {
			continue
		}
		summary.Stages = append(summary.Stages, StageSummary{Name: stage, Jobs: sortJobs(jobs)})
	}

	// Jobs in undeclared stages are still shown, after the declared ones.
	var extra []string
	for stage := range byStage {
		if !seen[stage] {
			extra = append(extra, stage)
		}
	}
	sort.Strings(extra)
	for _, stage := range extra {
		summary.Stages = append(summary.Stages, StageSummary{Name: stage, Jobs: sortJobs(byStage[stage])})
	}

	for name := range c.Variables {
		summary.Variables = append(summary.Variables, name)
	}
	sort.Strings(summary.Variables)

	for _, inc := range c.Include {
		summary.Includes = append(summary.Includes, inc.String())
	}

	for name := range c.Templates {
		summary.Templates = append(summary.Templates, name)
	}
	sort.Strings(summary.Templates)

	return summary
}

func sortJobs(jobs []JobSummary) []JobSummary {
	if jobs == nil {
		return []JobSummary{}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}
