// Package elicitation loads and persists what a user has entered so far:
// directly elicited factor values and per-agent weights.
package elicitation

import (
	"time"

	"github.com/google/uuid"

	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/scenario"
	"gitarg/internal/domain/utility"
	"gitarg/pkg/errors"
)

// Session is one user's elicitation state.
// Values hold raw factor values as entered; they are validated when built.
type Session struct {
	ID      string          `json:"id" yaml:"id"`
	Values  map[string]any  `json:"values" yaml:"values"`
	Weights utility.Weights `json:"weights,omitempty" yaml:"weights,omitempty"`
	// Magnitudes is a shorthand for weights: a signed magnitude per item, marked touched
	Magnitudes map[string]map[string]float64 `json:"magnitudes,omitempty" yaml:"magnitudes,omitempty"`
	UpdatedAt  time.Time                     `json:"updated_at" yaml:"updated_at,omitempty"`
}

// NewSession creates an empty session with a fresh id
func NewSession() *Session {
	return &Session{
		ID:      uuid.NewString(),
		Values:  map[string]any{},
		Weights: utility.Weights{},
	}
}

// Build validates the session against reg and returns the elicited scenario and
// a weight snapshot. Values of unknown or non-elicited factors are dropped.
func (s *Session) Build(reg *factor.Registry) (scenario.Scenario, *utility.Snapshot, error) {
	elicited, err := utility.ImportChoices(reg, s.Values)
	if err != nil {
		return nil, nil, errors.Wrap(err, "import values")
	}

	model := utility.NewModel(reg)
	if err := model.Load(s.Weights); err != nil {
		return nil, nil, errors.Wrap(err, "load weights")
	}
	for agent, items := range s.Magnitudes {
		for item, v := range items {
			if err := model.SetMagnitude(agent, item, v); err != nil {
				return nil, nil, errors.Wrapf(err, "magnitude %s/%s", agent, item)
			}
		}
	}
	return elicited, model.Snapshot(), nil
}

// Capture stores the elicited values and the snapshot's weights in the session
func (s *Session) Capture(elicited scenario.Scenario, snap *utility.Snapshot) {
	s.Values = make(map[string]any, len(elicited))
	for k, v := range elicited {
		s.Values[k] = rawValue(v)
	}
	s.Weights = snap.Weights()
	s.Magnitudes = nil
}

// rawValue converts normalized values back to the shape Build accepts
func rawValue(v any) any {
	switch t := v.(type) {
	case scenario.Estimate:
		return estimateMap(t)
	case scenario.EstimateSet:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = estimateMap(e)
		}
		return out
	default:
		return v
	}
}

func estimateMap(e scenario.Estimate) map[string]any {
	return map[string]any{
		"pessimistic": e.Pessimistic,
		"mostLikely":  e.MostLikely,
		"optimistic":  e.Optimistic,
	}
}
