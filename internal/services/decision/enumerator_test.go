package decisionservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/scenario"
	"gitarg/internal/domain/utility"
	"gitarg/pkg/errors"
	"gitarg/pkg/logger"
)

// choiceModel has two top-level options; only the first sets a flag the agent values
func choiceModel(t *testing.T, options ...string) (*factor.Registry, Model) {
	t.Helper()

	opts := make([]factor.Option, len(options))
	for i, o := range options {
		opts[i] = factor.Option{Key: o, Label: "Option " + o}
	}
	reg, err := factor.NewRegistry(
		factor.NewSubdomain("main",
			&factor.Factor{Key: "choice", Kind: factor.KindOption, Options: opts, DecidedBy: []string{"me"}},
			&factor.Factor{Key: "flag", Kind: factor.KindBoolean, Title: "Flag", ValuedBy: []string{"me"}},
		),
		factor.NewSubdomain("timing",
			&factor.Factor{Key: "fraction", Kind: factor.KindUntil2030Interval, Elicited: true},
		),
	)
	require.NoError(t, err)

	model := Model{
		Decision: "choice",
		Assign: func(choice any, s scenario.Scenario) error {
			s["flag"] = choice == options[0]
			return nil
		},
		Plan: Plan{Subdomains: []string{"main"}},
	}
	return reg, model
}

func weights(t *testing.T, reg *factor.Registry, set map[string]map[string]float64) *utility.Snapshot {
	t.Helper()

	m := utility.NewModel(reg)
	for agent, items := range set {
		for item, v := range items {
			require.NoError(t, m.SetMagnitude(agent, item, v))
		}
	}
	return m.Snapshot()
}

func TestEvaluate_PicksOptionSettingValuedFlag(t *testing.T) {
	reg, model := choiceModel(t, "A", "B")
	e, err := NewEnumerator(reg, model, logger.Nop())
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), Input{
		Elicited: scenario.Scenario{},
		Weights:  weights(t, reg, map[string]map[string]float64{"me": {"flag": 10}}),
		Agent:    "me",
	})
	require.NoError(t, err)

	assert.Equal(t, "A", result.BestOption)
	assert.Equal(t, 10.0, result.BestValue)
	require.Len(t, result.Alternatives, 2)

	b, ok := result.Alternative("B")
	require.True(t, ok)
	assert.Equal(t, 0.0, b.Value)
	assert.Equal(t, "Option B", b.Label)
	assert.Equal(t, map[string]float64{"flag": 0}, b.Breakdown)

	a, _ := result.Alternative("A")
	assert.Equal(t, map[string]float64{"flag": 10}, a.Breakdown)
}

func TestEvaluate_NegativeWeightFlipsChoice(t *testing.T) {
	reg, model := choiceModel(t, "A", "B")
	e, err := NewEnumerator(reg, model, logger.Nop())
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), Input{
		Elicited: scenario.Scenario{},
		Weights:  weights(t, reg, map[string]map[string]float64{"me": {"flag": -10}}),
	})
	require.NoError(t, err)

	assert.Equal(t, "me", result.Agent)
	assert.Equal(t, "B", result.BestOption)
	assert.Equal(t, 0.0, result.BestValue)
}

func TestEvaluate_TieKeepsFirstDeclaredOption(t *testing.T) {
	reg, model := choiceModel(t, "A", "B", "C")
	model.Assign = func(any, scenario.Scenario) error { return nil }
	model.Plan = Plan{}
	e, err := NewEnumerator(reg, model, logger.Nop())
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), Input{
		Elicited: scenario.Scenario{},
		Weights:  weights(t, reg, map[string]map[string]float64{"me": {"flag": 1}}),
		Options:  []string{"C", "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, "B", result.BestOption)
	require.Len(t, result.Alternatives, 2)
	assert.Equal(t, "B", result.Alternatives[0].Option)
	assert.Equal(t, "C", result.Alternatives[1].Option)
}

func TestEvaluate_Idempotent(t *testing.T) {
	reg, model := choiceModel(t, "A", "B")
	e, err := NewEnumerator(reg, model, logger.Nop())
	require.NoError(t, err)

	in := Input{
		Elicited: scenario.Scenario{},
		Weights:  weights(t, reg, map[string]map[string]float64{"me": {"flag": 7.3}}),
	}
	first, err := e.Evaluate(context.Background(), in)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Empty(t, in.Elicited, "elicited input must not be mutated")
}

func TestEvaluate_Parallel(t *testing.T) {
	reg, model := choiceModel(t, "A", "B", "C")
	in := Input{
		Elicited: scenario.Scenario{},
		Weights:  weights(t, reg, map[string]map[string]float64{"me": {"flag": 3}}),
	}

	seq, err := NewEnumerator(reg, model, logger.Nop())
	require.NoError(t, err)
	par, err := NewEnumerator(reg, model, logger.Nop(), WithParallelism(4))
	require.NoError(t, err)

	want, err := seq.Evaluate(context.Background(), in)
	require.NoError(t, err)
	got, err := par.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEvaluate_IncompleteElicitation(t *testing.T) {
	reg, model := choiceModel(t, "A", "B")
	model.Continuum = &Continuum{Partial: "B", Limit: "A", Fraction: "fraction"}
	e, err := NewEnumerator(reg, model, logger.Nop())
	require.NoError(t, err)

	t.Run("untouched weight", func(t *testing.T) {
		_, err := e.Evaluate(context.Background(), Input{
			Elicited: scenario.Scenario{"fraction": 0.5},
			Weights:  utility.NewModel(reg).Snapshot(),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrIncompleteElicitation))

		var incomplete *errors.IncompleteError
		require.True(t, errors.As(err, &incomplete))
		assert.Equal(t, "flag", incomplete.Factor)
		assert.Equal(t, "me", incomplete.Agent)
		assert.Equal(t, "flag", incomplete.Item)
	})

	t.Run("missing choice", func(t *testing.T) {
		_, err := e.Evaluate(context.Background(), Input{
			Elicited: scenario.Scenario{},
			Weights:  weights(t, reg, map[string]map[string]float64{"me": {"flag": 1}}),
		})
		var incomplete *errors.IncompleteError
		require.True(t, errors.As(err, &incomplete))
		assert.Equal(t, "fraction", incomplete.Factor)
		assert.Empty(t, incomplete.Agent)
	})

	t.Run("complete", func(t *testing.T) {
		result, err := e.Evaluate(context.Background(), Input{
			Elicited: scenario.Scenario{"fraction": 0.5},
			Weights:  weights(t, reg, map[string]map[string]float64{"me": {"flag": 1}}),
		})
		require.NoError(t, err)
		assert.Equal(t, "A", result.BestOption)
	})
}

func TestEvaluate_ContinuumBlending(t *testing.T) {
	reg, model := choiceModel(t, "limit", "partial")
	model.Continuum = &Continuum{Partial: "partial", Limit: "limit", Fraction: "fraction"}
	e, err := NewEnumerator(reg, model, logger.Nop())
	require.NoError(t, err)
	snap := weights(t, reg, map[string]map[string]float64{"me": {"flag": 10}})

	tests := []struct {
		fraction float64
		want     float64
	}{
		{fraction: 0, want: 0},
		{fraction: 1, want: 10},
		{fraction: 0.3, want: 3},
	}

	for _, tt := range tests {
		result, err := e.Evaluate(context.Background(), Input{
			Elicited: scenario.Scenario{"fraction": tt.fraction},
			Weights:  snap,
		})
		require.NoError(t, err)

		partial, _ := result.Alternative("partial")
		limit, _ := result.Alternative("limit")
		assert.True(t, partial.Blended)
		assert.False(t, limit.Blended)
		assert.InDelta(t, tt.want, partial.Value, 1e-12, "fraction %v", tt.fraction)
		assert.InDelta(t, tt.want, partial.Breakdown["flag"], 1e-12)
		assert.Equal(t, 10.0, limit.Value)
	}

	t.Run("exact at the boundaries", func(t *testing.T) {
		result, err := e.Evaluate(context.Background(), Input{Elicited: scenario.Scenario{"fraction": 1.0}, Weights: snap})
		require.NoError(t, err)
		partial, _ := result.Alternative("partial")
		limit, _ := result.Alternative("limit")
		assert.Equal(t, limit.Value, partial.Value)
		assert.Equal(t, "limit", result.BestOption)
	})

	t.Run("fraction out of range", func(t *testing.T) {
		_, err := e.Evaluate(context.Background(), Input{Elicited: scenario.Scenario{"fraction": 1.5}, Weights: snap})
		assert.True(t, errors.Is(err, errors.ErrValueOutOfRange))
	})
}

func TestEvaluate_UnassignedValuedFactorIsUnresolved(t *testing.T) {
	reg, model := choiceModel(t, "A", "B")
	model.Assign = nil
	e, err := NewEnumerator(reg, model, logger.Nop())
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), Input{
		Elicited: scenario.Scenario{},
		Weights:  weights(t, reg, map[string]map[string]float64{"me": {"flag": 1}}),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnresolvedDependency))
	assert.True(t, errors.IsDefect(err))
}

func TestEvaluate_RejectsForeignSnapshotAndUnknownAgent(t *testing.T) {
	reg, model := choiceModel(t, "A", "B")
	other, _ := choiceModel(t, "A", "B")
	e, err := NewEnumerator(reg, model, logger.Nop())
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), Input{Elicited: scenario.Scenario{}, Weights: utility.NewModel(other).Snapshot()})
	assert.True(t, errors.Is(err, errors.ErrInvalidModel))

	_, err = e.Evaluate(context.Background(), Input{
		Elicited: scenario.Scenario{},
		Weights:  utility.NewModel(reg).Snapshot(),
		Agent:    "nobody",
	})
	assert.True(t, errors.Is(err, errors.ErrUnknownAgent))

	_, err = e.Evaluate(context.Background(), Input{
		Elicited: scenario.Scenario{},
		Weights:  utility.NewModel(reg).Snapshot(),
		Options:  []string{"Z"},
	})
	assert.True(t, errors.Is(err, errors.ErrValueOutOfRange))
}

func TestEvaluate_BlendsAgainstUnrequestedLimit(t *testing.T) {
	reg, model := choiceModel(t, "limit", "partial", "other")
	model.Continuum = &Continuum{Partial: "partial", Limit: "limit", Fraction: "fraction"}
	e, err := NewEnumerator(reg, model, logger.Nop())
	require.NoError(t, err)
	snap := weights(t, reg, map[string]map[string]float64{"me": {"flag": 10}})

	full, err := e.Evaluate(context.Background(), Input{
		Elicited: scenario.Scenario{"fraction": 1.0},
		Weights:  snap,
	})
	require.NoError(t, err)
	limit, ok := full.Alternative("limit")
	require.True(t, ok)

	result, err := e.Evaluate(context.Background(), Input{
		Elicited: scenario.Scenario{"fraction": 1.0},
		Weights:  snap,
		Options:  []string{"other", "partial"},
	})
	require.NoError(t, err)
	require.Len(t, result.Alternatives, 2)

	_, ok = result.Alternative("limit")
	assert.False(t, ok)

	partial, _ := result.Alternative("partial")
	assert.True(t, partial.Blended)
	assert.Equal(t, limit.Value, partial.Value)
	assert.Equal(t, "partial", result.BestOption)
}
