package decisionservice

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/propagation"
	"gitarg/internal/domain/scenario"
	"gitarg/internal/domain/utility"
	"gitarg/internal/metrics"
	"gitarg/pkg/errors"
	"gitarg/pkg/logger"
)

// Input is one evaluation request. Weights must be a snapshot taken before the
// call; the enumerator never mutates elicited state.
type Input struct {
	Elicited scenario.Scenario
	Weights  *utility.Snapshot
	// Agent is the decision agent; empty means the agent deciding the top-level factor
	Agent string
	// Options restricts the top-level options; empty means all. Alternatives
	// always come back in declared order.
	Options []string
}

// Alternative is one evaluated top-level option
type Alternative struct {
	Option    string             `json:"option"`
	Label     string             `json:"label"`
	Value     float64            `json:"value"`
	Breakdown map[string]float64 `json:"breakdown"`
	// Outcome holds every agent's totals, not only the decision agent's
	Outcome propagation.Outcome `json:"outcome"`
	// Blended is set when the value was interpolated along a continuum
	Blended bool `json:"blended,omitempty"`
}

// Result is the outcome of one evaluation
type Result struct {
	Decision     string        `json:"decision"`
	Agent        string        `json:"agent"`
	BestOption   string        `json:"best_option"`
	BestValue    float64       `json:"best_value"`
	Alternatives []Alternative `json:"alternatives"`
}

// Alternative looks up an evaluated option
func (r *Result) Alternative(option string) (Alternative, bool) {
	for _, a := range r.Alternatives {
		if a.Option == option {
			return a, true
		}
	}
	return Alternative{}, false
}

// Option configures an Enumerator
type Option func(*Enumerator)

// WithParallelism evaluates top-level options concurrently on up to workers goroutines
func WithParallelism(workers int) Option {
	return func(e *Enumerator) {
		if workers > 1 {
			e.workers = workers
		}
	}
}

// Enumerator evaluates every top-level option of a decision model
type Enumerator struct {
	reg     *factor.Registry
	model   Model
	engine  *propagation.Engine
	log     *logger.Logger
	workers int
	keys    []string
}

// NewEnumerator validates model against reg and prepares an enumerator
func NewEnumerator(reg *factor.Registry, model Model, log *logger.Logger, opts ...Option) (*Enumerator, error) {
	if err := model.validate(reg); err != nil {
		return nil, errors.Wrap(err, "invalid decision plan")
	}

	reachable := model.factorKeys(reg)
	var keys []string
	for _, f := range reg.Factors() {
		if reachable[f.Key] {
			keys = append(keys, f.Key)
		}
	}

	e := &Enumerator{
		reg:     reg,
		model:   model,
		engine:  propagation.NewEngine(reg),
		log:     log.Component("enumerator"),
		workers: 1,
		keys:    keys,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate scores every top-level option for the decision agent and picks the best.
// It fails with IncompleteElicitation before doing any work if a reachable
// choice or value item is missing.
func (e *Enumerator) Evaluate(ctx context.Context, in Input) (result *Result, err error) {
	start := time.Now()
	defer func() {
		best := ""
		if result != nil {
			best = result.BestOption
		}
		metrics.RecordEvaluation(time.Since(start), best, err)
		if err != nil {
			e.log.ErrorWithContext(ctx, err, map[string]string{"decision": e.model.Decision})
		}
	}()

	root, _ := e.reg.Factor(e.model.Decision)
	agent, options, err := e.prepare(root, in)
	if err != nil {
		return nil, err
	}

	missing, err := utility.NextMissingIn(e.reg, e.keys, in.Elicited, in.Weights)
	if err != nil {
		return nil, err
	}
	if missing != nil {
		return nil, missing.Err()
	}

	// a blended option needs its limit even when the limit was not requested
	evaluated := options
	if c := e.model.Continuum; c != nil && slices.Contains(options, c.Partial) && !slices.Contains(options, c.Limit) {
		evaluated = append(slices.Clone(options), c.Limit)
	}

	outcomes := make([]propagation.Outcome, len(evaluated))
	if e.workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i, option := range evaluated {
			i, option := i, option
			g.Go(func() error {
				o, err := e.evaluateOption(gctx, option, in)
				outcomes[i] = o
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, option := range evaluated {
			o, err := e.evaluateOption(ctx, option, in)
			if err != nil {
				return nil, err
			}
			outcomes[i] = o
		}
	}

	blended, err := e.blend(evaluated, outcomes, in.Elicited)
	if err != nil {
		return nil, err
	}

	result = &Result{Decision: root.Key, Agent: agent}
	for i, option := range options {
		o := outcomes[i]
		alt := Alternative{
			Option:    option,
			Label:     root.OptionLabel(option),
			Value:     o.Total(agent),
			Breakdown: o.Breakdown[agent],
			Outcome:   o,
			Blended:   blended == option,
		}
		if alt.Breakdown == nil {
			alt.Breakdown = map[string]float64{}
		}
		result.Alternatives = append(result.Alternatives, alt)

		// strict comparison keeps the first declared option on ties
		if i == 0 || alt.Value > result.BestValue {
			result.BestOption = option
			result.BestValue = alt.Value
		}
		e.log.Debugw("Alternative evaluated", "option", option, "agent", agent, "value", alt.Value)
	}

	e.log.Infow("Decision evaluated",
		"decision", root.Key,
		"agent", agent,
		"best_option", result.BestOption,
		"best_value", result.BestValue,
		"duration", time.Since(start),
	)
	return result, nil
}

func (e *Enumerator) prepare(root *factor.Factor, in Input) (string, []string, error) {
	if in.Weights == nil || in.Weights.Registry() != e.reg {
		return "", nil, errors.Wrap(errors.ErrInvalidModel, "weights snapshot was not taken from this registry")
	}

	agent := in.Agent
	if agent == "" {
		agent = root.DecidedBy[0]
	}
	known := false
	for _, a := range e.reg.Agents() {
		if a == agent {
			known = true
			break
		}
	}
	if !known {
		return "", nil, errors.Wrapf(errors.ErrUnknownAgent, "decision agent %q", agent)
	}

	if len(in.Options) == 0 {
		return agent, root.OptionKeys(), nil
	}
	requested := make(map[string]bool, len(in.Options))
	for _, o := range in.Options {
		if !root.HasOption(o) || requested[o] {
			return "", nil, &errors.OutOfRangeError{Factor: root.Key, Value: o}
		}
		requested[o] = true
	}
	var options []string
	for _, o := range root.OptionKeys() {
		if requested[o] {
			options = append(options, o)
		}
	}
	return agent, options, nil
}

func (e *Enumerator) evaluateOption(ctx context.Context, option string, in Input) (propagation.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return propagation.Outcome{}, err
	}

	s := in.Elicited.Clone()
	s[e.model.Decision] = option
	if e.model.Assign != nil {
		if err := e.model.Assign(option, s); err != nil {
			return propagation.Outcome{}, errors.Wrapf(err, "assign %s=%s", e.model.Decision, option)
		}
	}

	out, err := e.resolvePlan(ctx, s, e.model.Plan, in.Weights)
	if err != nil {
		return propagation.Outcome{}, errors.Wrapf(err, "option %s", option)
	}
	return out, nil
}

// blend replaces the partial option's outcome with its interpolation towards
// the limit option. It returns the blended option, empty if none was blended.
func (e *Enumerator) blend(options []string, outcomes []propagation.Outcome, elicited scenario.Scenario) (string, error) {
	c := e.model.Continuum
	if c == nil {
		return "", nil
	}
	partial, limit := -1, -1
	for i, o := range options {
		switch o {
		case c.Partial:
			partial = i
		case c.Limit:
			limit = i
		}
	}
	if partial < 0 || limit < 0 {
		return "", nil
	}

	raw, err := elicited.Get(c.Fraction)
	if err != nil {
		return "", err
	}
	t, err := e.reg.Normalize(c.Fraction, raw)
	if err != nil {
		return "", err
	}
	frac, ok := t.(float64)
	if !ok || frac < 0 || frac > 1 {
		return "", &errors.OutOfRangeError{Factor: c.Fraction, Value: t, Min: 0, Max: 1}
	}

	outcomes[partial] = propagation.Blend(outcomes[partial], outcomes[limit], frac)
	e.log.Debugw("Alternative blended", "partial", c.Partial, "limit", c.Limit, "fraction", frac)
	return c.Partial, nil
}
