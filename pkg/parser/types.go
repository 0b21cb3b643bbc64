package parser

// GitLabConfig represents a parsed GitLab CI configuration
type GitLabConfig struct {
	Stages    []string               `yaml:"stages" json:"stages,omitempty"`
	Variables map[string]interface{} `yaml:"variables" json:"variables,omitempty"`
	Include   []Include              `yaml:"include" json:"include,omitempty"`
	Default   *JobConfig             `yaml:"default" json:"default,omitempty"`
	Workflow  *Workflow              `yaml:"workflow" json:"workflow,omitempty"`
	Jobs      map[string]*JobConfig  `json:"jobs,omitempty"`
	// Templates holds hidden jobs (keys starting with a dot). They never run
	// on their own but are commonly extended.
	Templates map[string]*JobConfig  `json:"templates,omitempty"`
	RawData   map[string]interface{} `json:"-"`
}

// Include is one entry of the top-level include list. Exactly one of Local,
// Remote, Template or Project is set.
type Include struct {
	Local    string   `yaml:"local,omitempty" json:"local,omitempty"`
	File     []string `yaml:"-" json:"file,omitempty"`
	Template string   `yaml:"template,omitempty" json:"template,omitempty"`
	Remote   string   `yaml:"remote,omitempty" json:"remote,omitempty"`
	Project  string   `yaml:"project,omitempty" json:"project,omitempty"`
	Ref      string   `yaml:"ref,omitempty" json:"ref,omitempty"`
}

// Kind names the include type.
func (i Include) Kind() string {
	switch {
	case i.Local != "":
		return "local"
	case i.Remote != "":
		return "remote"
	case i.Template != "":
		return "template"
	case i.Project != "":
		return "project"
	default:
		return "unknown"
	}
}

// String renders the include the way it is referenced in the CI file.
func (i Include) String() string {
	switch i.Kind() {
	case "local":
		return "local:" + i.Local
	case "remote":
		return "remote:" + i.Remote
	case "template":
		return "template:" + i.Template
	case "project":
		s := "project:" + i.Project
		for _, f := range i.File {
			s += " " + f
		}
		if i.Ref != "" {
			s += "@" + i.Ref
		}
		return s
	default:
		return "unknown"
	}
}

type JobConfig struct {
	Stage        string                 `yaml:"stage,omitempty" json:"stage,omitempty"`
	Script       interface{}            `yaml:"script,omitempty" json:"script,omitempty"`
	BeforeScript interface{}            `yaml:"before_script,omitempty" json:"before_script,omitempty"`
	AfterScript  interface{}            `yaml:"after_script,omitempty" json:"after_script,omitempty"`
	Image        interface{}            `yaml:"image,omitempty" json:"image,omitempty"`
	Services     []interface{}          `yaml:"services,omitempty" json:"services,omitempty"`
	Variables    map[string]interface{} `yaml:"variables,omitempty" json:"variables,omitempty"`
	Cache        interface{}            `yaml:"cache,omitempty" json:"cache,omitempty"`
	Artifacts    *Artifacts             `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
	Dependencies []string               `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Needs        interface{}            `yaml:"needs,omitempty" json:"needs,omitempty"`
	Tags         []string               `yaml:"tags,omitempty" json:"tags,omitempty"`
	AllowFailure interface{}            `yaml:"allow_failure,omitempty" json:"allow_failure,omitempty"`
	When         string                 `yaml:"when,omitempty" json:"when,omitempty"`
	Only         interface{}            `yaml:"only,omitempty" json:"only,omitempty"`
	Except       interface{}            `yaml:"except,omitempty" json:"except,omitempty"`
	Rules        []Rule                 `yaml:"rules,omitempty" json:"rules,omitempty"`
	Timeout      string                 `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Parallel     interface{}            `yaml:"parallel,omitempty" json:"parallel,omitempty"`
	Environment  interface{}            `yaml:"environment,omitempty" json:"environment,omitempty"`
	Trigger      interface{}            `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	Extends      interface{}            `yaml:"extends,omitempty" json:"extends,omitempty"`
}

type Artifacts struct {
	Paths    []string               `yaml:"paths,omitempty" json:"paths,omitempty"`
	Name     string                 `yaml:"name,omitempty" json:"name,omitempty"`
	When     string                 `yaml:"when,omitempty" json:"when,omitempty"`
	ExpireIn string                 `yaml:"expire_in,omitempty" json:"expire_in,omitempty"`
	Reports  map[string]interface{} `yaml:"reports,omitempty" json:"reports,omitempty"`
}

type Rule struct {
	If        string                 `yaml:"if,omitempty" json:"if,omitempty"`
	Changes   interface{}            `yaml:"changes,omitempty" json:"changes,omitempty"`
	Exists    interface{}            `yaml:"exists,omitempty" json:"exists,omitempty"`
	Variables map[string]interface{} `yaml:"variables,omitempty" json:"variables,omitempty"`
	When      string                 `yaml:"when,omitempty" json:"when,omitempty"`
}

type Workflow struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Rules []Rule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// GetExtends returns the extends field as a slice of strings, handling both string and []string cases
func (j *JobConfig) GetExtends() []string {
	if j.Extends == nil {
		return nil
	}

	switch v := j.Extends.(type) {
	case string:
		return []string{v}
	case []interface{}:
		var extends []string
		for _, item := range v {
			if str, ok := item.(string); ok {
				extends = append(extends, str)
			}
		}
		return extends
	default:
		return nil
	}
}

// ImageName returns the job image whether it is given as a string or as a
// mapping with a name key.
func (j *JobConfig) ImageName() string {
	switch v := j.Image.(type) {
	case string:
		return v
	case map[string]interface{}:
		if name, ok := v["name"].(string); ok {
			return name
		}
	}
	return ""
}

// GetNeeds returns the names of jobs listed under needs, accepting both the
// plain and the object form.
func (j *JobConfig) GetNeeds() []string {
	needs, ok := j.Needs.([]interface{})
	if !ok {
		return nil
	}

	var names []string
	for _, need := range needs {
		switch n := need.(type) {
		case string:
			names = append(names, n)
		case map[string]interface{}:
			if name, ok := n["job"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// GetDependencyGraph maps each job to the jobs it depends on through
// dependencies or needs.
func (c *GitLabConfig) GetDependencyGraph() map[string][]string {
	graph := make(map[string][]string)

	for jobName, job := range c.Jobs {
		deps := []string{}
		deps = append(deps, job.Dependencies...)
		deps = append(deps, job.GetNeeds()...)
		graph[jobName] = deps
	}

	return graph
}
