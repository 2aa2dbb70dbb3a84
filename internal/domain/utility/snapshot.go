package utility

import (
	"gitarg/internal/domain/factor"
	"gitarg/pkg/errors"
)

// Snapshot is a read-only copy of every agent's weights taken for one evaluation.
// It is safe for concurrent use.
type Snapshot struct {
	reg     *factor.Registry
	weights Weights
}

// NewSnapshot validates weights against the registry. Items the caller does not
// mention keep their untouched default.
func NewSnapshot(reg *factor.Registry, weights Weights) (*Snapshot, error) {
	full := defaults(reg)
	for agent, items := range weights {
		known, ok := full[agent]
		if !ok {
			return nil, errors.Wrapf(errors.ErrUnknownAgent, "%q", agent)
		}
		for key, w := range items {
			if _, ok := known[key]; !ok {
				return nil, errors.Wrapf(errors.ErrUnknownFactor, "value item %q of agent %q", key, agent)
			}
			if err := w.validate(key); err != nil {
				return nil, err
			}
			known[key] = w
		}
	}
	return &Snapshot{reg: reg, weights: full}, nil
}

func defaults(reg *factor.Registry) Weights {
	w := make(Weights)
	for _, agent := range reg.Agents() {
		items := make(map[string]Weight)
		for _, item := range reg.AgentItems(agent) {
			items[item.Key] = defaultWeight()
		}
		w[agent] = items
	}
	return w
}

// Registry returns the registry the snapshot was validated against
func (s *Snapshot) Registry() *factor.Registry {
	return s.reg
}

// Weight returns one agent's weight for a value item
func (s *Snapshot) Weight(agent, item string) (Weight, bool) {
	w, ok := s.weights[agent][item]
	return w, ok
}

// Weights returns a copy of every weight
func (s *Snapshot) Weights() Weights {
	return s.weights.Clone()
}

// AgentValue is the utility agent derives from factor key holding value v.
// Agents that do not value the factor get 0.
func (s *Snapshot) AgentValue(agent, key string, v any) (float64, error) {
	f, err := s.reg.Factor(key)
	if err != nil {
		return 0, err
	}
	if !f.IsValuedBy(agent) {
		return 0, nil
	}

	total := 0.0
	for _, item := range f.Items() {
		w, ok := s.weights[agent][item.Key]
		if !ok {
			return 0, errors.Wrapf(errors.ErrUnknownAgent, "%q has no item %q", agent, item.Key)
		}
		c, err := f.Type().Contribution(v, w.Signed(), item)
		if err != nil {
			return 0, err
		}
		total += c
	}
	return total, nil
}

// Missing describes the first untouched value item of a factor
type Missing struct {
	Missing bool
	Agent   string
	Item    string
}

// IsValueMissing reports whether any value item of the factor is untouched by its agent.
// Agents are checked in the factor's ValuedBy order.
func (s *Snapshot) IsValueMissing(key string) (Missing, error) {
	f, err := s.reg.Factor(key)
	if err != nil {
		return Missing{}, err
	}
	for _, agent := range f.ValuedBy {
		for _, item := range f.Items() {
			if w := s.weights[agent][item.Key]; !w.Touched {
				return Missing{Missing: true, Agent: agent, Item: item.Key}, nil
			}
		}
	}
	return Missing{}, nil
}
