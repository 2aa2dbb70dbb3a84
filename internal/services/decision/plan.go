package decisionservice

import (
	"fmt"

	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/scenario"
	"gitarg/pkg/errors"
)

// Assign writes the values a choice determines into s
type Assign func(choice any, s scenario.Scenario) error

// Model is the decision tree evaluated for every top-level option
type Model struct {
	// Decision is the key of the top-level decision factor
	Decision string
	// Assign sets the direct consequences of a top-level option
	Assign Assign
	// Plan is resolved once per top-level option
	Plan Plan
	// Continuum optionally blends two top-level options by an elicited fraction
	Continuum *Continuum
}

// Plan resolves its stages in order, then folds the remaining subdomains.
// Each subdomain is folded at most once in the whole tree.
type Plan struct {
	Stages     []Stage
	Subdomains []string
}

// Stage is either a nested sub-decision or a nested negotiation
type Stage struct {
	Decision    *SubDecision
	Negotiation *Negotiation
}

// SubDecision is a factor its single controlling agent sets to maximize its own
// utility. The chosen value and everything derived under it stay in the scenario.
type SubDecision struct {
	Factor string
	// Feasible filters choices; nil admits every choice
	Feasible func(s scenario.Scenario, choice any) bool
	Assign   Assign
	Plan     Plan
}

// Negotiation is a factor several agents settle jointly. Its outcome is a
// probability distribution, so nothing under it is visible to later stages.
type Negotiation struct {
	Factor string
	// Exclude drops options that cannot come out of bargaining
	Exclude []string
	// Settled fixes the outcome without bargaining when it returns true
	Settled func(s scenario.Scenario) (string, bool, error)
	Assign  Assign
	Plan    Plan
}

// Continuum declares Partial as lying between itself and Limit; the elicited
// Fraction factor says how far along the way it gets.
type Continuum struct {
	Partial  string
	Limit    string
	Fraction string
}

// validate checks the tree against the registry
func (m *Model) validate(reg *factor.Registry) error {
	errs := &errors.MultiError{}

	root, err := reg.Factor(m.Decision)
	switch {
	case err != nil:
		errs.Add(err)
	case root.Kind != factor.KindOption:
		errs.Add(errors.NewValidationError(m.Decision, "top-level decision must be an option factor", root.Kind))
	case !root.IsDecision():
		errs.Add(errors.NewValidationError(m.Decision, "top-level decision must be decided by one agent", root.DecidedBy))
	}

	if c := m.Continuum; c != nil && root != nil {
		if !root.HasOption(c.Partial) || !root.HasOption(c.Limit) || c.Partial == c.Limit {
			errs.Add(errors.NewValidationError("continuum", "partial and limit must be distinct options of "+m.Decision, c))
		}
		if _, err := reg.Factor(c.Fraction); err != nil {
			errs.Add(err)
		}
	}

	folded := map[string]string{}
	walkPlan(reg, m.Plan, "root", folded, errs)
	return errs.ToError()
}

func walkPlan(reg *factor.Registry, p Plan, path string, folded map[string]string, errs *errors.MultiError) {
	for _, name := range p.Subdomains {
		if _, err := reg.Subdomain(name); err != nil {
			errs.Add(err)
			continue
		}
		if prev, dup := folded[name]; dup {
			errs.Add(errors.NewValidationError(name, fmt.Sprintf("subdomain folded twice (%s and %s)", prev, path), name))
			continue
		}
		folded[name] = path
	}

	for i, st := range p.Stages {
		switch {
		case st.Decision != nil && st.Negotiation != nil, st.Decision == nil && st.Negotiation == nil:
			errs.Add(errors.NewValidationError(fmt.Sprintf("%s.stages[%d]", path, i), "stage must be exactly one of decision or negotiation", nil))

		case st.Decision != nil:
			f, err := reg.Factor(st.Decision.Factor)
			if err != nil {
				errs.Add(err)
				continue
			}
			if !f.IsDecision() || len(f.Choices()) == 0 {
				errs.Add(errors.NewValidationError(f.Key, "sub-decision factor must have one deciding agent and choices", f.DecidedBy))
			}
			walkPlan(reg, st.Decision.Plan, path+"/"+f.Key, folded, errs)

		default:
			f, err := reg.Factor(st.Negotiation.Factor)
			if err != nil {
				errs.Add(err)
				continue
			}
			if !f.IsNegotiation() {
				errs.Add(errors.NewValidationError(f.Key, "negotiated factor must be decided by several agents", f.DecidedBy))
			}
			for _, o := range st.Negotiation.Exclude {
				if !f.HasOption(o) {
					errs.Add(errors.NewValidationError(f.Key, "excluded option is not an option", o))
				}
			}
			walkPlan(reg, st.Negotiation.Plan, path+"/"+f.Key, folded, errs)
		}
	}
}

// factorKeys lists every factor the tree reaches: the folded subdomains, the
// decided and negotiated factors and the continuum fraction.
func (m *Model) factorKeys(reg *factor.Registry) map[string]bool {
	keys := map[string]bool{m.Decision: true}
	if m.Continuum != nil {
		keys[m.Continuum.Fraction] = true
	}
	collectKeys(reg, m.Plan, keys)
	return keys
}

func collectKeys(reg *factor.Registry, p Plan, keys map[string]bool) {
	for _, name := range p.Subdomains {
		sub, err := reg.Subdomain(name)
		if err != nil {
			continue
		}
		for _, f := range sub.Factors {
			keys[f.Key] = true
		}
	}
	for _, st := range p.Stages {
		switch {
		case st.Decision != nil:
			keys[st.Decision.Factor] = true
			collectKeys(reg, st.Decision.Plan, keys)
		case st.Negotiation != nil:
			keys[st.Negotiation.Factor] = true
			collectKeys(reg, st.Negotiation.Plan, keys)
		}
	}
}
