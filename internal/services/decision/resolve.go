package decisionservice

import (
	"context"
	"fmt"

	"gitarg/internal/domain/negotiation"
	"gitarg/internal/domain/propagation"
	"gitarg/internal/domain/scenario"
	"gitarg/internal/domain/utility"
	"gitarg/internal/metrics"
	"gitarg/pkg/errors"
)

// resolvePlan resolves the stages in order and folds the plan's own subdomains.
// s receives everything the stages settle deterministically.
func (e *Enumerator) resolvePlan(ctx context.Context, s scenario.Scenario, p Plan, snap *utility.Snapshot) (propagation.Outcome, error) {
	out := propagation.NewOutcome()
	for _, st := range p.Stages {
		var (
			o   propagation.Outcome
			err error
		)
		if st.Decision != nil {
			o, err = e.resolveDecision(ctx, s, st.Decision, snap)
		} else {
			o, err = e.resolveNegotiation(ctx, s, st.Negotiation, snap)
		}
		if err != nil {
			return propagation.Outcome{}, err
		}
		out.Add(o)
	}

	folded, err := e.engine.Propagate(s, p.Subdomains, snap)
	if err != nil {
		return propagation.Outcome{}, err
	}
	out.Add(folded)
	return out, nil
}

// branch evaluates one value of a nested factor on a clone of s
func (e *Enumerator) branch(ctx context.Context, s scenario.Scenario, key string, choice any, assign Assign, p Plan, snap *utility.Snapshot) (scenario.Scenario, propagation.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, propagation.Outcome{}, err
	}

	b := s.Clone()
	b[key] = choice
	if assign != nil {
		if err := assign(choice, b); err != nil {
			return nil, propagation.Outcome{}, errors.Wrapf(err, "assign %s=%v", key, choice)
		}
	}
	out, err := e.resolvePlan(ctx, b, p, snap)
	if err != nil {
		return nil, propagation.Outcome{}, errors.Wrapf(err, "%s=%v", key, choice)
	}
	return b, out, nil
}

// resolveDecision keeps the feasible choice maximizing the deciding agent's total.
// The winning branch's values are copied into s.
func (e *Enumerator) resolveDecision(ctx context.Context, s scenario.Scenario, d *SubDecision, snap *utility.Snapshot) (propagation.Outcome, error) {
	f, err := e.reg.Factor(d.Factor)
	if err != nil {
		return propagation.Outcome{}, err
	}
	decider := f.DecidedBy[0]

	var (
		best      propagation.Outcome
		bestState scenario.Scenario
		bestValue float64
		bestLabel any
		found     bool
	)
	for _, choice := range f.Choices() {
		if d.Feasible != nil && !d.Feasible(s, choice) {
			continue
		}
		b, out, err := e.branch(ctx, s, f.Key, choice, d.Assign, d.Plan, snap)
		if err != nil {
			return propagation.Outcome{}, err
		}
		if v := out.Total(decider); !found || v > bestValue {
			best, bestState, bestValue, bestLabel, found = out, b, v, choice, true
		}
	}
	if !found {
		return propagation.Outcome{}, &errors.InfeasibleError{Factor: f.Key, Reason: "no feasible choice"}
	}

	for k, v := range bestState {
		s[k] = v
	}
	e.log.Debugw("Sub-decision resolved", "factor", f.Key, "agent", decider, "choice", bestLabel, "value", bestValue)
	return best, nil
}

// resolveNegotiation scores every feasible option for every negotiating agent,
// asks the solver for a distribution and returns the expected outcome.
func (e *Enumerator) resolveNegotiation(ctx context.Context, s scenario.Scenario, n *Negotiation, snap *utility.Snapshot) (propagation.Outcome, error) {
	f, err := e.reg.Factor(n.Factor)
	if err != nil {
		return propagation.Outcome{}, err
	}

	options, settled, err := e.negotiable(s, n)
	if err != nil {
		return propagation.Outcome{}, err
	}

	outcomes := make(map[string]propagation.Outcome, len(options))
	payoffs := make(map[string]map[string]float64, len(f.DecidedBy))
	for _, agent := range f.DecidedBy {
		payoffs[agent] = make(map[string]float64, len(options))
	}
	for _, option := range options {
		_, out, err := e.branch(ctx, s, f.Key, option, n.Assign, n.Plan, snap)
		if err != nil {
			return propagation.Outcome{}, err
		}
		outcomes[option] = out
		for _, agent := range f.DecidedBy {
			payoffs[agent][option] = out.Total(agent)
		}
	}

	dist, err := negotiation.Resolve(options, payoffs)
	if err != nil {
		return propagation.Outcome{}, errors.Wrapf(err, "negotiate %s", f.Key)
	}
	metrics.RecordNegotiation(f.Key, settled)
	e.log.Debugw("Negotiation resolved", "factor", f.Key, "settled", settled, "distribution", dist)

	expected := propagation.NewOutcome()
	for _, option := range options {
		expected.AddScaled(outcomes[option], dist[option])
	}
	return expected, nil
}

// negotiable returns the options left to bargain over, or the settled one
func (e *Enumerator) negotiable(s scenario.Scenario, n *Negotiation) ([]string, bool, error) {
	f, err := e.reg.Factor(n.Factor)
	if err != nil {
		return nil, false, err
	}

	if n.Settled != nil {
		option, ok, err := n.Settled(s)
		if err != nil {
			return nil, false, errors.Wrapf(err, "settle %s", f.Key)
		}
		if ok {
			if !f.HasOption(option) {
				return nil, false, &errors.OutOfRangeError{Factor: f.Key, Value: option}
			}
			return []string{option}, true, nil
		}
	}

	excluded := make(map[string]bool, len(n.Exclude))
	for _, o := range n.Exclude {
		excluded[o] = true
	}
	var options []string
	for _, o := range f.OptionKeys() {
		if !excluded[o] {
			options = append(options, o)
		}
	}
	if len(options) == 0 {
		return nil, false, &errors.InfeasibleError{Factor: f.Key, Reason: fmt.Sprintf("every option excluded %v", n.Exclude)}
	}
	return options, false, nil
}
