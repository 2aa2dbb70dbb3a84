package utility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/scenario"
	"gitarg/pkg/errors"
)

func testRegistry(t *testing.T) *factor.Registry {
	t.Helper()

	reg, err := factor.NewRegistry(
		factor.NewSubdomain("main",
			&factor.Factor{Key: "border", Kind: factor.KindOption, Title: "Border",
				Options:   []factor.Option{{Key: "hard", Label: "Hard"}, {Key: "sea", Label: "Sea"}},
				DecidedBy: []string{"UK", "EU"}, ValuedBy: []string{"UK", "EU"}},
			&factor.Factor{Key: "violenceByOption", Kind: factor.KindThreePoint, OptionsFrom: "border", MergeInto: "violence", Elicited: true},
			&factor.Factor{Key: "violence", Kind: factor.KindUnitInterval, Title: "Violence", ValuedBy: []string{"UK"}},
			&factor.Factor{Key: "period", Kind: factor.KindUntil2030Interval, Elicited: true},
			&factor.Factor{Key: "intent", Kind: factor.KindBoolean, DecidedBy: []string{"UK"}},
		),
	)
	require.NoError(t, err)
	return reg
}

func TestModel_SetMagnitude(t *testing.T) {
	m := NewModel(testRegistry(t))

	require.NoError(t, m.SetMagnitude("UK", "violence", -30))
	w, ok := m.Snapshot().Weight("UK", "violence")
	require.True(t, ok)
	assert.Equal(t, Weight{Positive: false, Magnitude: 30, Touched: true}, w)
	assert.Equal(t, -30.0, w.Signed())

	require.NoError(t, m.ToggleSign("UK", "violence"))
	w, _ = m.Snapshot().Weight("UK", "violence")
	assert.Equal(t, 30.0, w.Signed())

	err := m.SetMagnitude("UK", "violence", 101)
	assert.True(t, errors.Is(err, errors.ErrValueOutOfRange))

	err = m.SetMagnitude("NI", "violence", 1)
	assert.True(t, errors.Is(err, errors.ErrUnknownAgent))

	err = m.SetMagnitude("EU", "violence", 1)
	assert.True(t, errors.Is(err, errors.ErrUnknownFactor), "EU does not value violence")
}

func TestModel_Rescale(t *testing.T) {
	m := NewModel(testRegistry(t))
	require.NoError(t, m.SetMagnitude("UK", "border_hard", 20))
	require.NoError(t, m.SetMagnitude("UK", "border_sea", -5))

	require.NoError(t, m.Rescale("UK"))
	snap := m.Snapshot()

	hard, _ := snap.Weight("UK", "border_hard")
	sea, _ := snap.Weight("UK", "border_sea")
	violence, _ := snap.Weight("UK", "violence")
	assert.Equal(t, 100.0, hard.Magnitude)
	assert.Equal(t, 25.0, sea.Magnitude)
	assert.False(t, sea.Positive)
	assert.False(t, violence.Touched, "rescaling does not touch items")
	assert.Equal(t, 0.0, violence.Magnitude)
}

func TestModel_SnapshotIsIndependent(t *testing.T) {
	m := NewModel(testRegistry(t))
	snap := m.Snapshot()

	require.NoError(t, m.SetMagnitude("UK", "violence", 50))

	w, _ := snap.Weight("UK", "violence")
	assert.False(t, w.Touched)
	assert.Equal(t, 0.0, w.Magnitude)
}

func TestNewSnapshot(t *testing.T) {
	reg := testRegistry(t)

	snap, err := NewSnapshot(reg, Weights{"EU": {"border_sea": {Positive: true, Magnitude: 12, Touched: true}}})
	require.NoError(t, err)

	w, ok := snap.Weight("EU", "border_sea")
	require.True(t, ok)
	assert.Equal(t, 12.0, w.Magnitude)
	w, ok = snap.Weight("UK", "violence")
	require.True(t, ok)
	assert.Equal(t, Weight{Positive: true}, w)

	_, err = NewSnapshot(reg, Weights{"EU": {"border_sea": {Magnitude: -1}}})
	assert.True(t, errors.Is(err, errors.ErrValueOutOfRange))

	_, err = NewSnapshot(reg, Weights{"EU": {"violence": {Magnitude: 1}}})
	assert.True(t, errors.Is(err, errors.ErrUnknownFactor))
}

func TestSnapshot_AgentValue(t *testing.T) {
	reg := testRegistry(t)
	m := NewModel(reg)
	require.NoError(t, m.SetMagnitude("UK", "border_hard", -8))
	require.NoError(t, m.SetMagnitude("UK", "border_sea", 3))
	require.NoError(t, m.SetMagnitude("UK", "violence", 4))
	snap := m.Snapshot()

	v, err := snap.AgentValue("UK", "border", "hard")
	require.NoError(t, err)
	assert.Equal(t, -8.0, v)

	v, err = snap.AgentValue("UK", "violence", 0.25)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, v, 1e-12)

	v, err = snap.AgentValue("EU", "violence", 0.25)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v, "EU does not value violence")

	_, err = snap.AgentValue("UK", "violence", 1.5)
	assert.True(t, errors.Is(err, errors.ErrValueOutOfRange))
}

func TestSnapshot_IsValueMissing(t *testing.T) {
	reg := testRegistry(t)
	m := NewModel(reg)

	missing, err := m.Snapshot().IsValueMissing("border")
	require.NoError(t, err)
	assert.Equal(t, Missing{Missing: true, Agent: "UK", Item: "border_hard"}, missing)

	require.NoError(t, m.SetMagnitude("UK", "border_hard", 1))
	require.NoError(t, m.SetMagnitude("UK", "border_sea", 1))
	missing, err = m.Snapshot().IsValueMissing("border")
	require.NoError(t, err)
	assert.Equal(t, Missing{Missing: true, Agent: "EU", Item: "border_hard"}, missing)

	missing, err = m.Snapshot().IsValueMissing("period")
	require.NoError(t, err)
	assert.False(t, missing.Missing, "nobody values the period")
}

func TestIsChoiceMissing(t *testing.T) {
	reg := testRegistry(t)
	est := scenario.Estimate{Pessimistic: 0.1, MostLikely: 0.1, Optimistic: 0.1}

	missing, err := IsChoiceMissing(reg, "period", scenario.Scenario{})
	require.NoError(t, err)
	assert.True(t, missing)

	missing, err = IsChoiceMissing(reg, "violence", scenario.Scenario{})
	require.NoError(t, err)
	assert.True(t, missing, "merge source not elicited")

	missing, err = IsChoiceMissing(reg, "violence", scenario.Scenario{
		"violenceByOption": scenario.EstimateSet{"hard": est, "sea": est},
	})
	require.NoError(t, err)
	assert.False(t, missing)

	missing, err = IsChoiceMissing(reg, "border", scenario.Scenario{})
	require.NoError(t, err)
	assert.False(t, missing, "border is not elicited")

	_, err = IsChoiceMissing(reg, "ghost", scenario.Scenario{})
	assert.True(t, errors.Is(err, errors.ErrUnknownFactor))
}

func TestImportChoices(t *testing.T) {
	reg := testRegistry(t)

	got, err := ImportChoices(reg, map[string]any{
		"period": 0.4,
		"border": "hard", // not elicited
		"ghost":  1,
	})
	require.NoError(t, err)
	assert.Equal(t, scenario.Scenario{"period": 0.4}, got)

	_, err = ImportChoices(reg, map[string]any{"period": 2.0})
	assert.True(t, errors.Is(err, errors.ErrValueOutOfRange))
}

func TestProgressAndNextMissing(t *testing.T) {
	reg := testRegistry(t)
	m := NewModel(reg)
	elicited := scenario.Scenario{}

	// choices: violenceByOption, period
	// items: UK border_hard, border_sea, violence; EU border_hard, border_sea
	c := Progress(reg, elicited, m.Snapshot())
	assert.Equal(t, Completion{Count: 0, Total: 7}, c)

	next, err := NextMissing(reg, elicited, m.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, &MissingInput{Kind: MissingWeight, Factor: "border", Agent: "UK", Item: "border_hard"}, next)

	for _, agent := range []string{"UK", "EU"} {
		require.NoError(t, m.SetMagnitude(agent, "border_hard", 0))
		require.NoError(t, m.SetMagnitude(agent, "border_sea", 0))
	}
	next, err = NextMissing(reg, elicited, m.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, &MissingInput{Kind: MissingChoice, Factor: "violence"}, next)
	assert.True(t, errors.Is(next.Err(), errors.ErrIncompleteElicitation))

	est := scenario.Estimate{Pessimistic: 0.1, MostLikely: 0.1, Optimistic: 0.1}
	elicited["violenceByOption"] = scenario.EstimateSet{"hard": est, "sea": est}
	elicited["period"] = 0.5
	require.NoError(t, m.SetMagnitude("UK", "violence", 10))

	next, err = NextMissing(reg, elicited, m.Snapshot())
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, Completion{Count: 7, Total: 7, Complete: true}, Progress(reg, elicited, m.Snapshot()))
}
