package converter

import (
	"fmt"
	"strings"

	"github.com/wonderfulspam/actions-smith/pkg/llm"
)

// Stage is one request/response round trip of the pipeline.
type Stage string

const (
	StagePlan     Stage = "plan"
	StageConvert  Stage = "convert"
	StageCritique Stage = "critique"
	StageApply    Stage = "apply"
)

// Mode selects which stages run.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeThorough Mode = "thorough"
)

// Stages returns the ordered stage list for the mode.
func (m Mode) Stages() []Stage {
	if m == ModeThorough {
		return []Stage{StagePlan, StageConvert, StageCritique, StageApply}
	}
	return []Stage{StagePlan, StageConvert}
}

// Title is the heading printed above a stage's result.
func (s Stage) Title() string {
	switch s {
	case StagePlan:
		return "Migration plan"
	case StageConvert:
		return "GitHub Actions workflow"
	case StageCritique:
		return "Critique"
	case StageApply:
		return "Revised GitHub Actions workflow"
	default:
		return string(s)
	}
}

// Activity describes what the stage is doing while its call is in flight.
func (s Stage) Activity() string {
	switch s {
	case StagePlan:
		return "Getting a plan of action to convert GitLab CI file to GitHub Actions"
	case StageConvert:
		return "Taking plan of action and applying it"
	case StageCritique:
		return "Getting a critique of the GitHub Actions file"
	case StageApply:
		return "Applying critique of GitHub Actions file"
	default:
		return string(s)
	}
}

// ProducesWorkflow reports whether the stage's reply is a workflow file
// rather than prose.
func (s Stage) ProducesWorkflow() bool {
	return s == StageConvert || s == StageApply
}

const (
	planPrompt = "Your MISSION is to help users who want to migrate from using GitLab CI/CD to using GitHub Actions. " +
		"You should read the users GitLab CI file and think step-by-step how it would be successfully converted. " +
		"Note stages, environment variables, artifacts etc. " +
		"Do NOT write the new file - just give the user your detailed plan on how to do it for this specific file."

	convertPrompt = "Your MISSION is to help users convert their GitLab CI yaml files to a well documented GitHub Actions file. " +
		"You will be provided with the original GitLab CI file and a plan of action. " +
		"You MUST convert ALL of the steps - do NOT BE LAZY. " +
		"You should ONLY reply with the new file - no chat or extra text."

	critiquePrompt = "Your MISSION is to help users who are converting their GitLab CI yaml files to a well documented GitHub Actions file. " +
		"You will be presented with the original GitLab CI file and a converted GitHub Actions file. " +
		"Your task is to critique the converted GitHub file, spot any errors and any areas for improvement and provide a critique for the user."

	applyPrompt = "Your MISSION is to help users who are converting their GitLab CI yaml files to a well documented GitHub Actions file. " +
		"You will be provided the original GitLab CI file, the converted GitHub Actions file and a critique of the converted file. " +
		"Your task is to take the critique of the converted file and apply any suggestions in it. " +
		"You MUST cover ALL of the things in the critique - do NOT BE LAZY. " +
		"You should ONLY reply with the new file - no chat or extra text."
)

// Inputs carries the source and every earlier stage's reply.
type Inputs struct {
	Source    string
	Plan      string
	Converted string
	Critique  string
}

// Messages builds the ordered request messages for the stage.
func (s Stage) Messages(in Inputs) ([]llm.Message, error) {
	switch s {
	case StagePlan:
		return []llm.Message{
			llm.System(planPrompt),
			llm.User(in.Source),
		}, nil
	case StageConvert:
		return []llm.Message{
			llm.System(convertPrompt),
			llm.User(tagged(
				section{"gitlab-ci-file", in.Source},
				section{"plan-of-action", in.Plan},
			)),
		}, nil
	case StageCritique:
		return []llm.Message{
			llm.System(critiquePrompt),
			llm.User(tagged(
				section{"gitlab-ci-file", in.Source},
				section{"converted-github-action", in.Converted},
			)),
		}, nil
	case StageApply:
		return []llm.Message{
			llm.System(applyPrompt),
			llm.User(tagged(
				section{"gitlab-ci-file", in.Source},
				section{"converted-github-action", in.Converted},
				section{"critique", in.Critique},
			)),
		}, nil
	default:
		return nil, fmt.Errorf("converter: unknown stage %q", s)
	}
}

type section struct {
	tag  string
	body string
}

func tagged(sections ...section) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, fmt.Sprintf("<%s>%s</%s>", s.tag, s.body, s.tag))
	}
	return strings.Join(parts, "\n\n")
}
