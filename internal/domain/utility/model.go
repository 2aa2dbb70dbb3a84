package utility

import (
	"sync"

	"github.com/shopspring/decimal"

	"gitarg/internal/domain/factor"
	"gitarg/pkg/errors"
)

// Model is the session's mutable weight state. The elicitation flow writes to it;
// evaluations read from a Snapshot taken beforehand.
type Model struct {
	mu      sync.RWMutex
	reg     *factor.Registry
	weights Weights
}

// NewModel creates a model where every value item holds its untouched default
func NewModel(reg *factor.Registry) *Model {
	return &Model{
		reg:     reg,
		weights: defaults(reg),
	}
}

// Load replaces the model's weights with previously persisted ones
func (m *Model) Load(weights Weights) error {
	snap, err := NewSnapshot(m.reg, weights)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.weights = snap.weights
	m.mu.Unlock()
	return nil
}

// Set stores a weight and marks it touched
func (m *Model) Set(agent, item string, w Weight) error {
	if err := w.validate(item); err != nil {
		return err
	}
	w.Touched = true

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(agent, item); err != nil {
		return err
	}
	m.weights[agent][item] = w
	return nil
}

// SetMagnitude stores a strength entered by the user. A negative entry is
// stored as its absolute value with the preference direction flipped.
func (m *Model) SetMagnitude(agent, item string, v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, err := m.lookup(agent, item)
	if err != nil {
		return err
	}
	if v < 0 {
		w.Magnitude = -v
		w.Positive = !w.Positive
	} else {
		w.Magnitude = v
	}
	if err := w.validate(item); err != nil {
		return err
	}
	w.Touched = true
	m.weights[agent][item] = w
	return nil
}

// ToggleSign flips the preference direction of an item
func (m *Model) ToggleSign(agent, item string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, err := m.lookup(agent, item)
	if err != nil {
		return err
	}
	w.Positive = !w.Positive
	w.Touched = true
	m.weights[agent][item] = w
	return nil
}

// Rescale scales an agent's magnitudes so the largest becomes MaxMagnitude.
// Touched flags are left alone.
func (m *Model) Rescale(agent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, ok := m.weights[agent]
	if !ok {
		return errors.Wrapf(errors.ErrUnknownAgent, "%q", agent)
	}

	max := 0.0
	for _, w := range items {
		if w.Magnitude > max {
			max = w.Magnitude
		}
	}
	if max == 0 {
		return nil
	}

	top := decimal.NewFromInt(MaxMagnitude)
	peak := decimal.NewFromFloat(max)
	for key, w := range items {
		if w.Magnitude == max {
			w.Magnitude = MaxMagnitude
		} else {
			w.Magnitude = decimal.NewFromFloat(w.Magnitude).Mul(top).Div(peak).InexactFloat64()
		}
		items[key] = w
	}
	return nil
}

// Snapshot copies the current weights for one evaluation
func (m *Model) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &Snapshot{reg: m.reg, weights: m.weights.Clone()}
}

func (m *Model) lookup(agent, item string) (Weight, error) {
	items, ok := m.weights[agent]
	if !ok {
		return Weight{}, errors.Wrapf(errors.ErrUnknownAgent, "%q", agent)
	}
	w, ok := items[item]
	if !ok {
		return Weight{}, errors.Wrapf(errors.ErrUnknownFactor, "value item %q of agent %q", item, agent)
	}
	return w, nil
}
