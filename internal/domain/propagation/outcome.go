package propagation

import "sort"

// Outcome is the utility folded from one or more subdomains: per-agent totals
// and each agent's contribution per factor.
type Outcome struct {
	Totals    map[string]float64            `json:"totals"`
	Breakdown map[string]map[string]float64 `json:"breakdown"`
}

// NewOutcome returns an empty outcome
func NewOutcome() Outcome {
	return Outcome{
		Totals:    make(map[string]float64),
		Breakdown: make(map[string]map[string]float64),
	}
}

// Total returns an agent's total, 0 if the agent gained nothing
func (o Outcome) Total(agent string) float64 {
	return o.Totals[agent]
}

// Contribution adds v to agent's total and to the factor's breakdown entry
func (o Outcome) Contribution(agent, factor string, v float64) {
	o.Totals[agent] += v
	row, ok := o.Breakdown[agent]
	if !ok {
		row = make(map[string]float64)
		o.Breakdown[agent] = row
	}
	row[factor] += v
}

// Add folds other into o
func (o Outcome) Add(other Outcome) {
	o.AddScaled(other, 1)
}

// AddScaled folds other into o with every entry multiplied by p
func (o Outcome) AddScaled(other Outcome, p float64) {
	for agent, row := range other.Breakdown {
		for _, factor := range sortedKeys(row) {
			o.Contribution(agent, factor, p*row[factor])
		}
	}
	// agents whose total did not come from a breakdown entry
	for agent, t := range other.Totals {
		if _, ok := other.Breakdown[agent]; !ok {
			o.Totals[agent] += p * t
		}
	}
}

// Clone returns an independent copy
func (o Outcome) Clone() Outcome {
	out := NewOutcome()
	out.Add(o)
	return out
}

// Blend mixes two outcomes as t*limit + (1-t)*partial over the union of
// agents and factors. Entries missing on one side count as 0.
func Blend(partial, limit Outcome, t float64) Outcome {
	out := NewOutcome()
	agents := map[string]struct{}{}
	for a := range partial.Totals {
		agents[a] = struct{}{}
	}
	for a := range limit.Totals {
		agents[a] = struct{}{}
	}

	for agent := range agents {
		out.Totals[agent] = mix(partial.Totals[agent], limit.Totals[agent], t)

		keys := map[string]struct{}{}
		for k := range partial.Breakdown[agent] {
			keys[k] = struct{}{}
		}
		for k := range limit.Breakdown[agent] {
			keys[k] = struct{}{}
		}
		row := make(map[string]float64, len(keys))
		for k := range keys {
			row[k] = mix(partial.Breakdown[agent][k], limit.Breakdown[agent][k], t)
		}
		out.Breakdown[agent] = row
	}
	return out
}

// mix returns the endpoints exactly at t=0 and t=1
func mix(partial, limit, t float64) float64 {
	switch t {
	case 0:
		return partial
	case 1:
		return limit
	}
	return t*limit + (1-t)*partial
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
