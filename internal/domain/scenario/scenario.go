// Package scenario holds the resolved factor values of one evaluated scenario.
package scenario

import (
	"sort"

	"gitarg/pkg/errors"
)

// Estimate is a three-point estimate of a quantity
type Estimate struct {
	Pessimistic float64 `json:"pessimistic" yaml:"pessimistic"`
	MostLikely  float64 `json:"mostLikely" yaml:"mostLikely"`
	Optimistic  float64 `json:"optimistic" yaml:"optimistic"`
}

// Expected reduces the estimate with the PERT formula (p + 4m + o) / 6
func (e Estimate) Expected() float64 {
	return (e.Pessimistic + 4*e.MostLikely + e.Optimistic) / 6
}

// EstimateSet holds one estimate per option of another factor
type EstimateSet map[string]Estimate

// Clone returns an independent copy
func (s EstimateSet) Clone() EstimateSet {
	out := make(EstimateSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Scenario maps factor keys to resolved values.
// Values are bool, string (option label), float64, Estimate or EstimateSet.
type Scenario map[string]any

// Clone returns a copy that shares nothing mutable with s
func (s Scenario) Clone() Scenario {
	out := make(Scenario, len(s))
	for k, v := range s {
		if set, ok := v.(EstimateSet); ok {
			v = set.Clone()
		}
		out[k] = v
	}
	return out
}

// Has reports whether key is resolved
func (s Scenario) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the resolved keys in sorted order
func (s Scenario) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key or an unresolved dependency error
func (s Scenario) Get(key string) (any, error) {
	v, ok := s[key]
	if !ok {
		return nil, &errors.UnresolvedError{Missing: key}
	}
	return v, nil
}

// Bool reads a boolean factor
func (s Scenario) Bool(key string) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, mismatch(key, "bool", v)
	}
	return b, nil
}

// Option reads a categorical factor
func (s Scenario) Option(key string) (string, error) {
	v, err := s.Get(key)
	if err != nil {
		return "", err
	}
	o, ok := v.(string)
	if !ok {
		return "", mismatch(key, "option", v)
	}
	return o, nil
}

// Number reads a continuous factor
func (s Scenario) Number(key string) (float64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, mismatch(key, "number", v)
}

// Estimates reads a per-option three-point estimate factor
func (s Scenario) Estimates(key string) (EstimateSet, error) {
	v, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	set, ok := v.(EstimateSet)
	if !ok {
		return nil, mismatch(key, "estimate set", v)
	}
	return set, nil
}

func mismatch(key, want string, got any) error {
	return errors.Wrapf(errors.ErrValueOutOfRange, "factor %q: want %s, got %T", key, want, got)
}
