// Package scenarios replays scripted charge requests against an allocator.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/chargeguard/core/model"
)

// Step actions.
const (
	ActionRequest = "request"
	ActionStop    = "stop"
)

// OutcomeAdmitted is the expected outcome of a successful request. Rejected
// requests use the reject code, e.g. "identity_conflict".
const OutcomeAdmitted = "admitted"

type Expect struct {
	Outcome string `yaml:"outcome,omitempty"`
	Stopped *bool  `yaml:"stopped,omitempty"`
}

type Step struct {
	Action  string `yaml:"action"`
	User    string `yaml:"user,omitempty"`
	Station string `yaml:"station,omitempty"`
	// Session is a save_as label of an earlier request, or a literal id.
	Session string `yaml:"session,omitempty"`
	SaveAs  string `yaml:"save_as,omitempty"`
	Expect  Expect `yaml:"expect"`
}

type Scenario struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description,omitempty"`
	Stations    []model.StationConfig `yaml:"stations"`
	Steps       []Step                `yaml:"steps"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks that every step is well formed.
func (sc Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	for i, st := range sc.Steps {
		switch st.Action {
		case ActionRequest:
		case ActionStop:
			if st.Session == "" {
				return fmt.Errorf("step %d: stop requires session", i+1)
			}
		default:
			return fmt.Errorf("step %d: unknown action %q", i+1, st.Action)
		}
	}
	return nil
}
