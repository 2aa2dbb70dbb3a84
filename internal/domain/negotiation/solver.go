// Package negotiation turns agents' payoffs over a set of feasible options into a
// probability distribution over the negotiated outcome.
//
// The distribution is rank-proportional (Borda). Each agent ranks the options by
// its payoff; an option scores one point for every option the agent strictly
// prefers it to and half a point for every other option it ties with. An option's
// probability is its score summed over agents divided by the points handed out,
// A*n*(n-1)/2 for A agents and n options. Ties are exact float equality.
package negotiation

import (
	"math"
	"sort"

	"gitarg/pkg/errors"
)

// Distribution maps option key to probability
type Distribution map[string]float64

// Resolve computes the negotiated distribution over options.
// payoffs maps agent to option to payoff and must cover exactly the given options.
// With no agents every option is equally likely.
func Resolve(options []string, payoffs map[string]map[string]float64) (Distribution, error) {
	if err := validate(options, payoffs); err != nil {
		return nil, err
	}

	n := len(options)
	dist := make(Distribution, n)
	if n == 1 {
		dist[options[0]] = 1
		return dist, nil
	}
	if len(payoffs) == 0 {
		for _, o := range options {
			dist[o] = 1 / float64(n)
		}
		return dist, nil
	}

	agents := make([]string, 0, len(payoffs))
	for a := range payoffs {
		agents = append(agents, a)
	}
	sort.Strings(agents)

	scores := make([]float64, n)
	for _, agent := range agents {
		row := payoffs[agent]
		for i, o := range options {
			for j, other := range options {
				if i == j {
					continue
				}
				switch {
				case row[o] > row[other]:
					scores[i]++
				case row[o] == row[other]:
					scores[i] += 0.5
				}
			}
		}
	}

	points := float64(len(agents)) * float64(n*(n-1)) / 2
	for i, o := range options {
		dist[o] = scores[i] / points
	}
	return dist, nil
}

func validate(options []string, payoffs map[string]map[string]float64) error {
	if len(options) == 0 {
		return &errors.InfeasibleError{Factor: "negotiation", Reason: "no feasible options"}
	}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		if seen[o] {
			return &errors.InfeasibleError{Factor: "negotiation", Reason: "duplicate option " + o}
		}
		seen[o] = true
	}

	for agent, row := range payoffs {
		if len(row) != len(options) {
			return &errors.InfeasibleError{Factor: "negotiation", Reason: "payoffs of " + agent + " do not match the options"}
		}
		for o, v := range row {
			if !seen[o] {
				return &errors.InfeasibleError{Factor: "negotiation", Reason: "payoff of " + agent + " for unknown option " + o}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &errors.OutOfRangeError{Factor: "negotiation", Value: v}
			}
		}
	}
	return nil
}

// Expected is the probability-weighted sum of values over the distribution
func (d Distribution) Expected(values map[string]float64) float64 {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := 0.0
	for _, k := range keys {
		total += d[k] * values[k]
	}
	return total
}
