package utility

import (
	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/scenario"
	"gitarg/pkg/errors"
)

// ImportChoices keeps the elicited values of registered, directly elicited
// factors and validates them against their kind. Anything else is dropped.
func ImportChoices(reg *factor.Registry, raw map[string]any) (scenario.Scenario, error) {
	out := make(scenario.Scenario, len(raw))
	for key, v := range raw {
		f, err := reg.Factor(key)
		if err != nil || !f.Elicited {
			continue
		}
		norm, err := reg.Normalize(key, v)
		if err != nil {
			return nil, err
		}
		out[key] = norm
	}
	return out, nil
}

// IsChoiceMissing reports whether a directly elicited factor has no value, or
// whether any factor merging into it is missing its choice.
func IsChoiceMissing(reg *factor.Registry, key string, elicited scenario.Scenario) (bool, error) {
	f, err := reg.Factor(key)
	if err != nil {
		return false, err
	}
	if f.Elicited && !elicited.Has(key) {
		return true, nil
	}
	for _, src := range f.MergeFrom {
		missing, err := IsChoiceMissing(reg, src, elicited)
		if err != nil || missing {
			return missing, err
		}
	}
	return false, nil
}

// Completion is elicitation progress over choices and value items
type Completion struct {
	Count    int
	Total    int
	Complete bool
}

// Progress counts what has been elicited. Factors decided by agents are not
// asked of the user and do not count.
func Progress(reg *factor.Registry, elicited scenario.Scenario, snap *Snapshot) Completion {
	var c Completion
	for _, f := range reg.Factors() {
		if f.Elicited && len(f.DecidedBy) == 0 {
			c.Total++
			if elicited.Has(f.Key) {
				c.Count++
			}
		}
	}
	for _, items := range snap.weights {
		for _, w := range items {
			c.Total++
			if w.Touched {
				c.Count++
			}
		}
	}
	c.Complete = c.Count == c.Total
	return c
}

// MissingKind says whether a missing input is a factor value or a weight
type MissingKind string

const (
	MissingChoice MissingKind = "choice"
	MissingWeight MissingKind = "weight"
)

// MissingInput points the elicitation flow at what to ask next
type MissingInput struct {
	Kind   MissingKind
	Factor string
	Agent  string
	Item   string
}

// Err converts the missing input to an IncompleteElicitation error
func (m *MissingInput) Err() error {
	return &errors.IncompleteError{Factor: m.Factor, Agent: m.Agent, Item: m.Item}
}

// NextMissing returns the first missing input in registry order. Nil means
// nothing is missing.
func NextMissing(reg *factor.Registry, elicited scenario.Scenario, snap *Snapshot) (*MissingInput, error) {
	return NextMissingIn(reg, factorKeys(reg), elicited, snap)
}

// NextMissingIn is NextMissing restricted to keys, checked in the given order.
// Merge sources are reached through their targets.
func NextMissingIn(reg *factor.Registry, keys []string, elicited scenario.Scenario, snap *Snapshot) (*MissingInput, error) {
	for _, key := range keys {
		f, err := reg.Factor(key)
		if err != nil {
			return nil, err
		}
		if f.MergeInto != "" {
			continue
		}

		missing, err := IsChoiceMissing(reg, key, elicited)
		if err != nil {
			return nil, err
		}
		if missing {
			return &MissingInput{Kind: MissingChoice, Factor: key}, nil
		}

		if len(f.ValuedBy) == 0 {
			continue
		}
		m, err := snap.IsValueMissing(key)
		if err != nil {
			return nil, err
		}
		if m.Missing {
			return &MissingInput{Kind: MissingWeight, Factor: key, Agent: m.Agent, Item: m.Item}, nil
		}
	}
	return nil, nil
}

func factorKeys(reg *factor.Registry) []string {
	factors := reg.Factors()
	keys := make([]string, len(factors))
	for i, f := range factors {
		keys[i] = f.Key
	}
	return keys
}
