// Package report turns an evaluation result into a human readable decision report.
package report

import (
	"math"
	"sort"

	"gitarg/internal/domain/factor"
	decisionservice "gitarg/internal/services/decision"
	"gitarg/pkg/errors"
	"gitarg/pkg/templates"
)

// Report is the view rendered by the decision template
type Report struct {
	Title        string
	Agent        string
	BestLabel    string
	BestValue    float64
	Margin       float64
	LabelWidth   int
	FactorWidth  int
	Alternatives []Alternative
}

type Alternative struct {
	Label   string
	Value   float64
	Best    bool
	Blended bool
	Factors []FactorRow
	Others  []AgentValue
}

// FactorRow is one factor's contribution to the decision agent's value
type FactorRow struct {
	Title   string
	Utility float64
}

type AgentValue struct {
	Agent string
	Value float64
}

// Build prepares the report. Each alternative lists at most maxFactors
// contributions, largest first; zero contributions are left out.
func Build(reg *factor.Registry, result *decisionservice.Result, maxFactors int) (*Report, error) {
	if result == nil || len(result.Alternatives) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty result")
	}
	root, err := reg.Factor(result.Decision)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Title:     title(root),
		Agent:     result.Agent,
		BestLabel: root.OptionLabel(result.BestOption),
		BestValue: result.BestValue,
		Margin:    margin(result),
	}

	for _, alt := range result.Alternatives {
		row := Alternative{
			Label:   alt.Label,
			Value:   alt.Value,
			Best:    alt.Option == result.BestOption,
			Blended: alt.Blended,
		}
		r.LabelWidth = max(r.LabelWidth, len([]rune(alt.Label)))

		for _, key := range largest(alt.Breakdown, maxFactors) {
			f, err := reg.Factor(key)
			if err != nil {
				return nil, err
			}
			t := title(f)
			row.Factors = append(row.Factors, FactorRow{Title: t, Utility: alt.Breakdown[key]})
			r.FactorWidth = max(r.FactorWidth, len([]rune(t)))
		}

		for _, agent := range reg.Agents() {
			if agent == result.Agent {
				continue
			}
			row.Others = append(row.Others, AgentValue{Agent: agent, Value: alt.Outcome.Total(agent)})
		}
		r.Alternatives = append(r.Alternatives, row)
	}
	return r, nil
}

// Render renders the report with the embedded decision template
func Render(r *Report) (string, error) {
	reg, err := templates.Default()
	if err != nil {
		return "", err
	}
	return reg.Render(templates.DecisionReport, r)
}

func title(f *factor.Factor) string {
	if f.Title != "" {
		return f.Title
	}
	return f.Key
}

// margin is how far the best option is ahead of the next best one
func margin(result *decisionservice.Result) float64 {
	second := math.Inf(-1)
	for _, alt := range result.Alternatives {
		if alt.Option != result.BestOption && alt.Value > second {
			second = alt.Value
		}
	}
	if math.IsInf(second, -1) {
		return 0
	}
	return result.BestValue - second
}

func largest(breakdown map[string]float64, n int) []string {
	keys := make([]string, 0, len(breakdown))
	for k, v := range breakdown {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ai, aj := math.Abs(breakdown[keys[i]]), math.Abs(breakdown[keys[j]])
		if ai != aj {
			return ai > aj
		}
		return keys[i] < keys[j]
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
