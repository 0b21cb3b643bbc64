package parser

import (
	"strings"
	"testing"
)

func TestSummarize(t *testing.T) {
	config, err := Parse([]byte(sampleCI))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}

	s := Summarize(config)

	if s.JobCount != 4 {
		t.Errorf("expected 4 jobs, got %d", s.JobCount)
	}

	var stages []string
	for _, st := range s.Stages {
		stages = append(stages, st.Name)
	}
	if got := strings.Join(stages, ","); got != "build,test,deploy" {
		t.Errorf("expected stages build,test,deploy, got %s", got)
	}

	test := s.Stages[1]
	if len(test.Jobs) != 2 || test.Jobs[0].Name != "test:integration" || test.Jobs[1].Name != "test:unit" {
		t.Errorf("expected test jobs sorted by name, got %+v", test.Jobs)
	}

	build := s.Stages[0].Jobs[0]
	if len(build.Extends) != 1 || build.Extends[0] != ".node_base" {
		t.Errorf("expected build to extend .node_base, got %v", build.Extends)
	}

	deploy := s.Stages[2].Jobs[0]
	if deploy.When != "manual" || len(deploy.Needs) != 2 {
		t.Errorf("unexpected deploy summary: %+v", deploy)
	}

	if got := strings.Join(s.Variables, ","); got != "DOCKER_DRIVER,NODE_VERSION" {
		t.Errorf("expected sorted variables, got %s", got)
	}
	if len(s.Includes) != 4 {
		t.Errorf("expected 4 includes, got %v", s.Includes)
	}
	if len(s.Templates) != 1 || s.Templates[0] != ".node_base" {
		t.Errorf("expected .node_base template, got %v", s.Templates)
	}
}

func TestSummarizeDefaultStages(t *testing.T) {
	yaml := `
lint:
  stage: .pre
  script: make lint
compile:
  stage: build
  script: make
unit:
  script: make test
`
	config, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}

	s := Summarize(config)

	var stages []string
	for _, st := range s.Stages {
		stages = append(stages, st.Name)
	}
	// Empty default stages are left out; a job without a stage runs in test.
	if got := strings.Join(stages, ","); got != ".pre,build,test" {
		t.Errorf("expected .pre,build,test, got %s", got)
	}
}

func TestSummarizeUndeclaredStage(t *testing.T) {
	yaml := `
stages:
  - build
  - release
build:
  stage: build
  script: make
scan:
  stage: security
  script: make scan
`
	config, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}

	s := Summarize(config)
	if len(s.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %+v", s.Stages)
	}
	if s.Stages[1].Name != "release" || len(s.Stages[1].Jobs) != 0 {
		t.Errorf("declared empty stage should be kept, got %+v", s.Stages[1])
	}
	if s.Stages[2].Name != "security" {
		t.Errorf("undeclared stage should come last, got %s", s.Stages[2].Name)
	}
}
