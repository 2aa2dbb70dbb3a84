// Package propagation derives factor values subdomain by subdomain and folds
// the resulting scenario into per-agent utility.
package propagation

import (
	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/scenario"
	"gitarg/internal/domain/utility"
	"gitarg/pkg/errors"
)

// Engine runs derivation rules in caller-supplied subdomain order.
// It holds no per-evaluation state and is safe for concurrent use.
type Engine struct {
	reg *factor.Registry
}

// NewEngine creates a propagation engine over reg
func NewEngine(reg *factor.Registry) *Engine {
	return &Engine{reg: reg}
}

// Propagate derives every auto-derived factor of the subdomains into s, in order,
// then folds the utility of every valued factor of those subdomains.
// s is modified in place; callers pass a per-branch clone.
func (e *Engine) Propagate(s scenario.Scenario, subdomains []string, snap *utility.Snapshot) (Outcome, error) {
	subs := make([]*factor.Subdomain, 0, len(subdomains))
	for _, name := range subdomains {
		sub, err := e.reg.Subdomain(name)
		if err != nil {
			return Outcome{}, err
		}
		subs = append(subs, sub)
	}

	for _, sub := range subs {
		if err := e.derive(s, sub); err != nil {
			return Outcome{}, err
		}
	}
	return e.fold(s, subs, snap)
}

// Derive runs the derivation rules of the subdomains without folding utility
func (e *Engine) Derive(s scenario.Scenario, subdomains []string) error {
	for _, name := range subdomains {
		sub, err := e.reg.Subdomain(name)
		if err != nil {
			return err
		}
		if err := e.derive(s, sub); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) derive(s scenario.Scenario, sub *factor.Subdomain) error {
	for _, f := range sub.Factors {
		if !f.AutoDerived() {
			continue
		}
		for _, dep := range f.Rule.DependsOn {
			if !s.Has(dep) {
				return &errors.UnresolvedError{Factor: f.Key, Missing: dep}
			}
		}

		raw, err := f.Rule.Derive(s)
		if err != nil {
			var unresolved *errors.UnresolvedError
			if errors.As(err, &unresolved) && unresolved.Factor == "" {
				unresolved.Factor = f.Key
			}
			return errors.Wrapf(err, "derive %s", f.Key)
		}

		v, err := e.reg.Normalize(f.Key, raw)
		if err != nil {
			return errors.Wrapf(err, "derive %s", f.Key)
		}
		s[f.Key] = v
	}
	return nil
}

func (e *Engine) fold(s scenario.Scenario, subs []*factor.Subdomain, snap *utility.Snapshot) (Outcome, error) {
	out := NewOutcome()
	for _, agent := range e.reg.Agents() {
		out.Totals[agent] = 0
		for _, sub := range subs {
			for _, f := range sub.Factors {
				if !f.IsValuedBy(agent) {
					continue
				}
				v, ok := s[f.Key]
				if !ok {
					return Outcome{}, &errors.UnresolvedError{Missing: f.Key}
				}
				c, err := snap.AgentValue(agent, f.Key, v)
				if err != nil {
					return Outcome{}, err
				}
				out.Contribution(agent, f.Key, c)
			}
		}
	}
	return out, nil
}
