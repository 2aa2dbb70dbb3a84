package negotiation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitarg/pkg/errors"
)

func sum(d Distribution) float64 {
	total := 0.0
	for _, p := range d {
		total += p
	}
	return total
}

func TestResolve_SumsToOne(t *testing.T) {
	tests := []struct {
		name    string
		options []string
		payoffs map[string]map[string]float64
	}{
		{
			name:    "two agents opposed",
			options: []string{"x", "y"},
			payoffs: map[string]map[string]float64{
				"a": {"x": 10, "y": 0},
				"b": {"x": 0, "y": 10},
			},
		},
		{
			name:    "three options with ties",
			options: []string{"x", "y", "z"},
			payoffs: map[string]map[string]float64{
				"a": {"x": 1, "y": 1, "z": -3},
				"b": {"x": 2, "y": 7, "z": 7},
				"c": {"x": 0, "y": 0, "z": 0},
			},
		},
		{
			name:    "no agents",
			options: []string{"x", "y", "z"},
			payoffs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, err := Resolve(tt.options, tt.payoffs)
			require.NoError(t, err)
			require.Len(t, dist, len(tt.options))
			for _, p := range dist {
				assert.GreaterOrEqual(t, p, 0.0)
			}
			assert.InDelta(t, 1.0, sum(dist), 1e-9)
		})
	}
}

func TestResolve_SingleOption(t *testing.T) {
	dist, err := Resolve([]string{"only"}, map[string]map[string]float64{
		"a": {"only": -4},
		"b": {"only": 12},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, dist["only"])
}

func TestResolve_StrictPreferenceAgainstIndifference(t *testing.T) {
	dist, err := Resolve([]string{"x", "y"}, map[string]map[string]float64{
		"agent1": {"x": 10, "y": 0},
		"agent2": {"x": 5, "y": 5},
	})
	require.NoError(t, err)

	assert.Greater(t, dist["x"], 0.5)
	assert.InDelta(t, 0.75, dist["x"], 1e-12)
	assert.InDelta(t, 0.25, dist["y"], 1e-12)
	assert.InDelta(t, 10*dist["x"], dist.Expected(map[string]float64{"x": 10, "y": 0}), 1e-12)
}

func TestResolve_Monotonic(t *testing.T) {
	options := []string{"x", "y", "z"}
	base := map[string]map[string]float64{
		"a": {"x": 1, "y": 5, "z": 3},
		"b": {"x": 4, "y": 4, "z": 0},
	}
	before, err := Resolve(options, base)
	require.NoError(t, err)

	for _, bump := range []float64{0, 1, 2, 3.5, 4, 10} {
		raised := map[string]map[string]float64{
			"a": {"x": 1 + bump, "y": 5, "z": 3},
			"b": {"x": 4, "y": 4, "z": 0},
		}
		after, err := Resolve(options, raised)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, after["x"], before["x"], "bump %v", bump)
		before = after
	}
}

func TestResolve_IgnoresAgentOrder(t *testing.T) {
	options := []string{"x", "y", "z"}
	rows := []map[string]float64{
		{"x": 3, "y": 1, "z": 2},
		{"x": 0, "y": 9, "z": 9},
		{"x": -1, "y": 0, "z": 1},
	}

	first, err := Resolve(options, map[string]map[string]float64{"a": rows[0], "b": rows[1], "c": rows[2]})
	require.NoError(t, err)
	second, err := Resolve(options, map[string]map[string]float64{"a": rows[2], "b": rows[0], "c": rows[1]})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolve_Deterministic(t *testing.T) {
	options := []string{"x", "y", "z"}
	payoffs := map[string]map[string]float64{
		"a": {"x": 0.1, "y": 0.2, "z": 0.3},
		"b": {"x": 0.3, "y": 0.2, "z": 0.1},
	}
	first, err := Resolve(options, payoffs)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Resolve(options, payoffs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolve_Errors(t *testing.T) {
	t.Run("no options", func(t *testing.T) {
		_, err := Resolve(nil, nil)
		assert.True(t, errors.Is(err, errors.ErrInfeasibleOption))
	})

	t.Run("duplicate option", func(t *testing.T) {
		_, err := Resolve([]string{"x", "x"}, nil)
		assert.True(t, errors.Is(err, errors.ErrInfeasibleOption))
	})

	t.Run("payoff for filtered option", func(t *testing.T) {
		_, err := Resolve([]string{"x", "y"}, map[string]map[string]float64{
			"a": {"x": 1, "z": 2},
		})
		assert.True(t, errors.Is(err, errors.ErrInfeasibleOption))
	})

	t.Run("missing payoff", func(t *testing.T) {
		_, err := Resolve([]string{"x", "y"}, map[string]map[string]float64{
			"a": {"x": 1},
		})
		assert.True(t, errors.Is(err, errors.ErrInfeasibleOption))
	})

	t.Run("nan payoff", func(t *testing.T) {
		_, err := Resolve([]string{"x", "y"}, map[string]map[string]float64{
			"a": {"x": math.NaN(), "y": 0},
		})
		assert.True(t, errors.Is(err, errors.ErrValueOutOfRange))
	})
}
