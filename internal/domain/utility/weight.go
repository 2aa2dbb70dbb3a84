// Package utility holds the per-agent utility weights elicited from the user and
// answers whether enough has been elicited to evaluate a decision.
package utility

import (
	"math"

	"gitarg/pkg/errors"
)

// MaxMagnitude bounds an elicited weight's strength
const MaxMagnitude = 100

// Weight is one elicited value item: a preference direction and a strength
type Weight struct {
	Positive  bool    `json:"positive" yaml:"positive"`
	Magnitude float64 `json:"value" yaml:"value"`
	Touched   bool    `json:"touched" yaml:"touched"`
}

// Signed returns the magnitude carrying the preference direction
func (w Weight) Signed() float64 {
	if w.Positive {
		return w.Magnitude
	}
	return -w.Magnitude
}

func (w Weight) validate(item string) error {
	if math.IsNaN(w.Magnitude) || w.Magnitude < 0 || w.Magnitude > MaxMagnitude {
		return &errors.OutOfRangeError{Factor: item, Value: w.Magnitude, Min: 0, Max: MaxMagnitude}
	}
	return nil
}

// defaultWeight is what an item holds before the user touches it
func defaultWeight() Weight {
	return Weight{Positive: true}
}

// Weights maps agent to value item key to weight
type Weights map[string]map[string]Weight

// Clone returns a deep copy
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for agent, items := range w {
		cp := make(map[string]Weight, len(items))
		for k, v := range items {
			cp[k] = v
		}
		out[agent] = cp
	}
	return out
}
