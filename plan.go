package qharness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PlannedExperiment is one named entry of a plan file.
type PlannedExperiment struct {
	Name             string `yaml:"name"`
	ExperimentConfig `yaml:",inline"`
}

/*
Plan is a list of experiments read from YAML:

	experiments:
	  - name: phi-plus
	    circuit: bell
	    trials: 1000
	    qubits: [{value: Zero}, {value: Zero}]
	  - name: dj-parity
	    circuit: deutsch-jozsa
	    oracle: odd-parity
	    inputs: 4
	  - name: teleport-minus-i
	    circuit: teleportation
	    qubits: [{value: One, basis: Y}]
*/
type Plan struct {
	Experiments []PlannedExperiment `yaml:"experiments"`
}

// LoadPlan reads a plan file. Entries without a trial count get
// defaultTrials; entries without a name are named after their position.
func LoadPlan(path string, defaultTrials int) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(raw, defaultTrials)
}

func ParsePlan(raw []byte, defaultTrials int) (*Plan, error) {
	plan := &Plan{}
	if err := yaml.Unmarshal(raw, plan); err != nil {
		return nil, fmt.Errorf("%w: decode plan: %v", ErrInvalidConfiguration, err)
	}
	if len(plan.Experiments) == 0 {
		return nil, fmt.Errorf("%w: plan has no experiments", ErrInvalidConfiguration)
	}

	names := make(map[string]bool, len(plan.Experiments))
	for _, entry := range plan.Experiments {
		if entry.Name == "" {
			continue
		}
		if names[entry.Name] {
			return nil, fmt.Errorf("%w: experiment name %q is used twice", ErrInvalidConfiguration, entry.Name)
		}
		names[entry.Name] = true
	}

	for i := range plan.Experiments {
		entry := &plan.Experiments[i]
		if entry.Name == "" {
			entry.Name = uniqueName(names, fmt.Sprintf("%s-%d", entry.Circuit, i))
		}
		if entry.Trials == 0 {
			entry.Trials = defaultTrials
		}
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("experiment %s: %w", entry.Name, err)
		}
	}
	return plan, nil
}

// uniqueName returns base, suffixed until it is not in names, and records it.
func uniqueName(names map[string]bool, base string) string {
	name := base
	for n := 2; names[name]; n++ {
		name = fmt.Sprintf("%s.%d", base, n)
	}
	names[name] = true
	return name
}

// Configs returns the experiment configurations in plan order.
func (p *Plan) Configs() []ExperimentConfig {
	cfgs := make([]ExperimentConfig, len(p.Experiments))
	for i, entry := range p.Experiments {
		cfgs[i] = entry.ExperimentConfig
	}
	return cfgs
}
