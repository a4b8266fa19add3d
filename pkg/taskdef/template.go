// Package taskdef loads authorable Task templates from YAML documents: the
// static shape of a task (type, protocol, tags, depth and retry limits) that
// runtime code stamps concrete TreeTaskNodes from.
package taskdef

import (
	"fmt"
	"os"

	"github.com/aretw0/tasking/pkg/task"
	"gopkg.in/yaml.v3"
)

// Template is the static, authorable shape of a Task: everything New needs
// besides the caller-supplied runtime input.
type Template struct {
	TaskType      string   `yaml:"task_type"`
	Protocol      string   `yaml:"protocol"`
	Template      string   `yaml:"template"`
	Tags          []string `yaml:"tags"`
	MaxDepth      int      `yaml:"max_depth"`
	MaxErrorRetry int      `yaml:"max_error_retry"`
}

// Load parses a single Template document from path.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taskdef: reading %s: %w", path, err)
	}
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("taskdef: parsing %s: %w", path, err)
	}
	if tmpl.MaxDepth == 0 {
		tmpl.MaxDepth = 4
	}
	if tmpl.MaxErrorRetry == 0 {
		tmpl.MaxErrorRetry = 1
	}
	return &tmpl, nil
}

// LoadAll parses one Template per path, keyed by the path it was loaded from.
func LoadAll(paths ...string) (map[string]*Template, error) {
	out := make(map[string]*Template, len(paths))
	for _, p := range paths {
		tmpl, err := Load(p)
		if err != nil {
			return nil, err
		}
		out[p] = tmpl
	}
	return out, nil
}

// NewRoot stamps a root TreeTaskNode from the template, applying its tags
// after construction (task.New has no tags parameter of its own).
func (t *Template) NewRoot(title string, input any) (*task.TreeTaskNode, error) {
	node, err := task.NewRoot(title, t.TaskType, t.Protocol, input, t.MaxDepth, t.MaxErrorRetry)
	if err != nil {
		return nil, err
	}
	node.SetTemplate(t.Template)
	if len(t.Tags) > 0 {
		node.SetTags(t.Tags...)
	}
	return node, nil
}
