package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	rerrors "github.com/vango-dev/reactive/internal/errors"
)

// Scenario describes reactive state, the subscribers over it, and a list of
// steps applied to it in order.
type Scenario struct {
	// Name identifies the scenario in traces and golden files.
	Name string `yaml:"name"`

	// Description says what the scenario exercises.
	Description string `yaml:"description,omitempty"`

	// State is the initial content of the reactive map.
	State map[string]any `yaml:"state"`

	// Computed values are created in order. A computed may sum state keys
	// and computeds declared before it.
	Computed []ComputedSpec `yaml:"computed,omitempty"`

	// Effects are created in order and run once on creation.
	Effects []EffectSpec `yaml:"effects,omitempty"`

	// Steps mutate the state and check observations.
	Steps []Step `yaml:"steps"`
}

// ComputedSpec declares a computed value equal to the sum of its inputs.
// Missing keys count as zero.
type ComputedSpec struct {
	Name string   `yaml:"name"`
	Sum  []string `yaml:"sum"`
}

// EffectSpec declares an effect that reads the named keys or computeds.
type EffectSpec struct {
	Name  string   `yaml:"name"`
	Reads []string `yaml:"reads"`

	// Scheduler is empty for effects that re-run synchronously, or "manual"
	// for effects that queue until a flush step.
	Scheduler string `yaml:"scheduler,omitempty"`
}

// SchedulerManual queues notified effects until a flush step.
const SchedulerManual = "manual"

// Step is one action. Exactly one field is set.
type Step struct {
	Set      *Assign `yaml:"set,omitempty"`
	Readonly *Assign `yaml:"readonly,omitempty"`
	Delete   string  `yaml:"delete,omitempty"`
	Run      string  `yaml:"run,omitempty"`
	Flush    bool    `yaml:"flush,omitempty"`
	Stop     string  `yaml:"stop,omitempty"`
	Read     string  `yaml:"read,omitempty"`
	Expect   *Expect `yaml:"expect,omitempty"`
}

// Assign writes Value to Key.
type Assign struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// Expect checks run counts and current values. Values are compared by their
// printed form, so 3 and 3.0 match.
type Expect struct {
	Runs   map[string]int `yaml:"runs,omitempty"`
	Values map[string]any `yaml:"values,omitempty"`
}

// kind names the action of a step, or returns an error if the step sets
// zero or several actions.
func (s Step) kind() (string, error) {
	var kinds []string
	if s.Set != nil {
		kinds = append(kinds, "set")
	}
	if s.Readonly != nil {
		kinds = append(kinds, "readonly")
	}
	if s.Delete != "" {
		kinds = append(kinds, "delete")
	}
	if s.Run != "" {
		kinds = append(kinds, "run")
	}
	if s.Flush {
		kinds = append(kinds, "flush")
	}
	if s.Stop != "" {
		kinds = append(kinds, "stop")
	}
	if s.Read != "" {
		kinds = append(kinds, "read")
	}
	if s.Expect != nil {
		kinds = append(kinds, "expect")
	}
	switch len(kinds) {
	case 0:
		return "", fmt.Errorf("step has no action")
	case 1:
		return kinds[0], nil
	default:
		return "", fmt.Errorf("step has several actions: %v", kinds)
	}
}

// Parse decodes and validates a scenario. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, rerrors.New("E301").Wrap(err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rerrors.New("E301").
			WithDetail(fmt.Sprintf("Could not read %s.", path)).
			Wrap(err)
	}
	s, err := Parse(data)
	if err != nil {
		re := rerrors.FromError(err, "E301")
		if re.Wrapped == nil {
			re.Location = &rerrors.Location{File: path}
			return nil, re
		}
		return nil, re.WithLocationFromError(path, re.Wrapped)
	}
	return s, nil
}

// Validate checks that names are unique and every reference resolves.
func (s *Scenario) Validate() error {
	invalid := func(format string, args ...any) error {
		return rerrors.New("E301").WithDetail(fmt.Sprintf(format, args...))
	}

	if s.Name == "" {
		return invalid("The scenario has no name.")
	}

	computeds := make(map[string]bool, len(s.Computed))
	for _, c := range s.Computed {
		if c.Name == "" {
			return invalid("A computed has no name.")
		}
		if computeds[c.Name] {
			return invalid("Computed %q is declared twice.", c.Name)
		}
		if _, ok := s.State[c.Name]; ok {
			return invalid("Computed %q shadows a state key.", c.Name)
		}
		for _, in := range c.Sum {
			if _, ok := s.State[in]; !ok && !computeds[in] {
				return invalid("Computed %q sums %q, which is neither a state key nor an earlier computed.", c.Name, in)
			}
		}
		computeds[c.Name] = true
	}

	readable := func(name string) bool {
		_, ok := s.State[name]
		return ok || computeds[name]
	}

	effects := make(map[string]bool, len(s.Effects))
	for _, e := range s.Effects {
		if e.Name == "" {
			return invalid("An effect has no name.")
		}
		if effects[e.Name] {
			return invalid("Effect %q is declared twice.", e.Name)
		}
		if e.Scheduler != "" && e.Scheduler != SchedulerManual {
			return invalid("Effect %q has unknown scheduler %q.", e.Name, e.Scheduler)
		}
		for _, r := range e.Reads {
			if !readable(r) {
				return invalid("Effect %q reads %q, which is neither a state key nor a computed.", e.Name, r)
			}
		}
		effects[e.Name] = true
	}

	for i, step := range s.Steps {
		kind, err := step.kind()
		if err != nil {
			return invalid("Step %d: %v.", i+1, err)
		}
		switch kind {
		case "run", "stop":
			name := step.Run + step.Stop
			if !effects[name] {
				return invalid("Step %d: unknown effect %q.", i+1, name)
			}
		case "read":
			if !readable(step.Read) {
				return invalid("Step %d: unknown key or computed %q.", i+1, step.Read)
			}
		case "set", "readonly":
			a := step.Set
			if a == nil {
				a = step.Readonly
			}
			if a.Key == "" {
				return invalid("Step %d: %s has no key.", i+1, kind)
			}
			if computeds[a.Key] {
				return invalid("Step %d: cannot %s computed %q.", i+1, kind, a.Key)
			}
		case "expect":
			for name := range step.Expect.Runs {
				if !effects[name] {
					return invalid("Step %d: expect counts runs of unknown effect %q.", i+1, name)
				}
			}
		}
	}
	return nil
}
