package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitarg/internal/domain/brexit"
	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/utility"
	decisionservice "gitarg/internal/services/decision"
	"gitarg/pkg/errors"
	"gitarg/pkg/logger"
)

func evaluate(t *testing.T) (*factor.Registry, *decisionservice.Result) {
	t.Helper()

	reg, err := brexit.NewRegistry()
	require.NoError(t, err)
	e, err := decisionservice.NewEnumerator(reg, brexit.Model(), logger.Nop())
	require.NoError(t, err)

	estimate := map[string]any{"pessimistic": 0.2, "mostLikely": 0.1, "optimistic": 0.0}
	byOption := map[string]any{}
	for _, o := range []string{brexit.HardBorder, brexit.BrokenBorder, brexit.SeaBorder, brexit.UnitedIreland, brexit.OpenBorder} {
		byOption[o] = estimate
	}
	elicited, err := utility.ImportChoices(reg, map[string]any{
		"transitionPeriod":   0.5,
		"violenceNiByOption": byOption,
	})
	require.NoError(t, err)

	m := utility.NewModel(reg)
	for _, agent := range reg.Agents() {
		for _, item := range reg.AgentItems(agent) {
			require.NoError(t, m.SetMagnitude(agent, item.Key, 0))
		}
	}
	require.NoError(t, m.SetMagnitude(brexit.UK, "euMigration", -100))

	result, err := e.Evaluate(context.Background(), decisionservice.Input{Elicited: elicited, Weights: m.Snapshot()})
	require.NoError(t, err)
	return reg, result
}

func TestBuild(t *testing.T) {
	reg, result := evaluate(t)

	r, err := Build(reg, result, 3)
	require.NoError(t, err)

	assert.Equal(t, "Brexit decision", r.Title)
	assert.Equal(t, brexit.UK, r.Agent)
	assert.Equal(t, "No-deal", r.BestLabel)
	assert.InDelta(t, 100.0/3*2*0.5, r.Margin, 1e-9, "deal sits halfway between remain and no-deal")
	require.Len(t, r.Alternatives, 3)

	remain := r.Alternatives[0]
	assert.Equal(t, "Remain", remain.Label)
	assert.False(t, remain.Best)
	assert.Equal(t, []FactorRow{{Title: "Free EU migration to the UK", Utility: -100}}, remain.Factors)
	assert.Equal(t, []AgentValue{{Agent: brexit.EU, Value: 0}, {Agent: brexit.NI, Value: 0}}, remain.Others)

	assert.True(t, r.Alternatives[1].Blended)
	assert.True(t, r.Alternatives[2].Best)
	assert.Equal(t, len("Free EU migration to the UK"), r.FactorWidth)
}

func TestRender(t *testing.T) {
	reg, result := evaluate(t)
	r, err := Build(reg, result, 2)
	require.NoError(t, err)

	out, err := Render(r)
	require.NoError(t, err)

	assert.Contains(t, out, "Decision: Brexit decision (for UK)")
	assert.Contains(t, out, "* No-deal")
	assert.Contains(t, out, "(blended)")
	assert.Contains(t, out, "Best option: No-deal (-33.3)")
}

func TestBuild_Errors(t *testing.T) {
	reg, result := evaluate(t)

	_, err := Build(reg, nil, 3)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	result.Decision = "ghost"
	_, err = Build(reg, result, 3)
	assert.True(t, errors.Is(err, errors.ErrUnknownFactor))
}

func TestLargest(t *testing.T) {
	got := largest(map[string]float64{"a": 1, "b": -3, "c": 3, "d": 0}, 2)
	assert.Equal(t, []string{"b", "c"}, got)
	assert.Len(t, largest(map[string]float64{"a": 1}, -1), 1)
}
