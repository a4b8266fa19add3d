// Package taskcore wires a complete runtime from a YAML configuration file:
// task templates, workflow family selection, and the revisit budget, with
// functional options supplying the pieces a file cannot describe (LLM
// backends, a tool service, a logger, a metrics registerer).
package taskcore

import (
	"fmt"
	"os"

	"github.com/aretw0/tasking/pkg/taskdef"
	"gopkg.in/yaml.v3"
)

// Config is a flat run configuration: which workflow family drives leaf
// tasks, the set of named Templates available to stamp roots and
// orchestrator-produced sub-tasks, and the prompts each workflow family's
// stages use.
type Config struct {
	Workflow          string                       `yaml:"workflow"`
	MaxErrorRetry     int                          `yaml:"max_error_retry"`
	DefaultTemplate   string                       `yaml:"default_template"`
	Templates         map[string]*taskdef.Template `yaml:"templates"`
	Prompt            string                       `yaml:"prompt"`
	ThinkPrompt       string                       `yaml:"think_prompt"`
	OrchestratePrompt string                       `yaml:"orchestrate_prompt"`
	EndWorkflowTool   string                       `yaml:"end_workflow_tool"`
}

// LoadConfig reads and validates a run configuration from path.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taskcore: read config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("taskcore: parse config %q: %w", path, err)
	}
	if cfg.Workflow == "" {
		cfg.Workflow = "react"
	}
	if cfg.MaxErrorRetry <= 0 {
		cfg.MaxErrorRetry = 1
	}
	if len(cfg.Templates) == 0 {
		return nil, fmt.Errorf("taskcore: config %q declares no templates", path)
	}
	if cfg.DefaultTemplate == "" {
		for name := range cfg.Templates {
			cfg.DefaultTemplate = name
			break
		}
	}
	if _, ok := cfg.Templates[cfg.DefaultTemplate]; !ok {
		return nil, fmt.Errorf("taskcore: default_template %q is not in templates", cfg.DefaultTemplate)
	}
	switch cfg.Workflow {
	case "react", "simple", "orchestrate":
	default:
		return nil, fmt.Errorf("taskcore: unknown workflow family %q", cfg.Workflow)
	}
	return &cfg, nil
}
