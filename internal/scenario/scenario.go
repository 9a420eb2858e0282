// Package scenario shapes a run's event generation over time. An arc
// moves through named phases as the world evolves; the active phase
// biases the engine's probabilities and announces itself in the record
// stream when it changes.
package scenario

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Arc defines a story arc with ordered phases and an overall description.
type Arc struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase describes one age of the world with its probability bias and
// the triggers that move the arc onward.
type Phase struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Bias        Bias      `yaml:"bias,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty"`
}

// Bias scales the engine's stochastic knobs while a phase is active.
// Zero values leave a knob unchanged.
type Bias struct {
	GodEventFactor float64 `yaml:"god_event_factor,omitempty"`
	SpawnFactor    float64 `yaml:"spawn_factor,omitempty"`
}

// Trigger advances the arc to another phase once an observed quantity
// reaches its threshold.
type Trigger struct {
	Event string `yaml:"event"` // iteration, sentients, non_sentients, population
	Value int    `yaml:"value"`
	Next  string `yaml:"next"`
}

// Observation is the world snapshot the engine reports after each event.
type Observation struct {
	Iteration    int
	Sentients    int
	NonSentients int
}

// Load reads a YAML arc definition from disk.
func Load(path string) (*Arc, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read arc: %w", err)
	}
	var a Arc
	if err := yaml.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("parse arc: %w", err)
	}
	if len(a.Phases) == 0 {
		return nil, fmt.Errorf("arc %q has no phases", a.Name)
	}
	return &a, nil
}

// First returns the name of the starting phase.
func (a *Arc) First() string {
	if len(a.Phases) == 0 {
		return ""
	}
	return a.Phases[0].Name
}

// Phase looks up a phase by name.
func (a *Arc) Phase(name string) (Phase, bool) {
	for _, p := range a.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// NextPhase returns the phase that follows current once the observation
// satisfies one of its triggers. ok is false when no trigger fires.
func (a *Arc) NextPhase(current string, obs Observation) (next string, ok bool) {
	for _, p := range a.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if observed(obs, tr.Event) >= tr.Value {
				return tr.Next, true
			}
		}
	}
	return "", false
}

// observed maps a trigger event name onto the observation. Unknown
// names never fire.
func observed(obs Observation, event string) int {
	switch event {
	case "iteration":
		return obs.Iteration
	case "sentients":
		return obs.Sentients
	case "non_sentients":
		return obs.NonSentients
	case "population":
		return obs.Sentients + obs.NonSentients
	}
	return math.MinInt
}
