package factor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitarg/internal/domain/scenario"
	"gitarg/pkg/errors"
)

func constRule(v any, deps ...string) *Rule {
	return &Rule{
		DependsOn: deps,
		Derive:    func(scenario.Scenario) (any, error) { return v, nil },
	}
}

func TestNewRegistry_Valid(t *testing.T) {
	reg, err := NewRegistry(
		NewSubdomain("first",
			&Factor{Key: "choice", Kind: KindOption, Options: []Option{{Key: "a", Label: "A"}, {Key: "b", Label: "B"}}, DecidedBy: []string{"x"}},
			&Factor{Key: "derived", Kind: KindBoolean, ValuedBy: []string{"y", "x"}, Rule: constRule(true, "choice")},
		),
		NewSubdomain("second",
			&Factor{Key: "later", Kind: KindUnitInterval, Title: "Later", ValuedBy: []string{"x"}, Rule: constRule(0.5, "derived")},
		),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"x", "y"}, reg.Agents())
	assert.Equal(t, []string{"first", "second"}, reg.SubdomainNames())

	later, err := reg.Factor("later")
	require.NoError(t, err)
	assert.Equal(t, "second", later.Subdomain())
	assert.True(t, later.AutoDerived())

	items := reg.AgentItems("x")
	require.Len(t, items, 2)
	assert.Equal(t, "derived", items[0].Key)
	assert.Equal(t, "Later (+10%)", items[1].Title)

	_, err = reg.Factor("missing")
	assert.True(t, errors.Is(err, errors.ErrUnknownFactor))
}

func TestNewRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		subs []Subdomain
	}{
		{
			name: "duplicate key",
			subs: []Subdomain{
				NewSubdomain("a", &Factor{Key: "f", Kind: KindBoolean}),
				NewSubdomain("b", &Factor{Key: "f", Kind: KindBoolean}),
			},
		},
		{
			name: "unknown kind",
			subs: []Subdomain{NewSubdomain("a", &Factor{Key: "f", Kind: "colour"})},
		},
		{
			name: "display-only kind valued",
			subs: []Subdomain{NewSubdomain("a", &Factor{Key: "f", Kind: KindGBP, ValuedBy: []string{"x"}})},
		},
		{
			name: "option factor without options",
			subs: []Subdomain{NewSubdomain("a", &Factor{Key: "f", Kind: KindOption})},
		},
		{
			name: "elicited and derived",
			subs: []Subdomain{NewSubdomain("a", &Factor{Key: "f", Kind: KindBoolean, Elicited: true, Rule: constRule(true)})},
		},
		{
			name: "derived decision",
			subs: []Subdomain{NewSubdomain("a", &Factor{Key: "f", Kind: KindBoolean, DecidedBy: []string{"x"}, Rule: constRule(true)})},
		},
		{
			name: "negotiated boolean",
			subs: []Subdomain{NewSubdomain("a", &Factor{Key: "f", Kind: KindBoolean, DecidedBy: []string{"x", "y"}})},
		},
		{
			name: "rule on unknown factor",
			subs: []Subdomain{NewSubdomain("a", &Factor{Key: "f", Kind: KindBoolean, Rule: constRule(true, "ghost")})},
		},
		{
			name: "rule on itself",
			subs: []Subdomain{NewSubdomain("a", &Factor{Key: "f", Kind: KindBoolean, Rule: constRule(true, "f")})},
		},
		{
			name: "rule reads later derived factor",
			subs: []Subdomain{NewSubdomain("a",
				&Factor{Key: "f", Kind: KindBoolean, Rule: constRule(true, "g")},
				&Factor{Key: "g", Kind: KindBoolean, Rule: constRule(true, "f")},
			)},
		},
		{
			name: "optionsFrom on a boolean",
			subs: []Subdomain{NewSubdomain("a",
				&Factor{Key: "o", Kind: KindOption, Options: []Option{{Key: "x"}}},
				&Factor{Key: "f", Kind: KindBoolean, OptionsFrom: "o"},
			)},
		},
		{
			name: "mergeInto unknown",
			subs: []Subdomain{NewSubdomain("a", &Factor{Key: "f", Kind: KindThreePoint, MergeInto: "ghost"})},
		},
		{
			name: "duplicate subdomain",
			subs: []Subdomain{NewSubdomain("a"), NewSubdomain("a")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.subs...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidModel), err.Error())
		})
	}
}

func TestNewRegistry_ReportsEveryProblem(t *testing.T) {
	_, err := NewRegistry(NewSubdomain("a",
		&Factor{Key: "f", Kind: KindGBP, ValuedBy: []string{"x"}},
		&Factor{Key: "g", Kind: KindOption},
	))
	require.Error(t, err)

	var multi *errors.MultiError
	require.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Errors, 2)
}

func TestNewRegistry_ExternalReferenceAllowed(t *testing.T) {
	// a rule may read a derived factor of another subdomain regardless of order
	_, err := NewRegistry(
		NewSubdomain("a", &Factor{Key: "f", Kind: KindBoolean, Rule: constRule(true, "g")}),
		NewSubdomain("b", &Factor{Key: "g", Kind: KindBoolean, Rule: constRule(true)}),
	)
	assert.NoError(t, err)
}

func TestFactor_Choices(t *testing.T) {
	reg, err := NewRegistry(NewSubdomain("a",
		&Factor{Key: "b", Kind: KindBoolean, DecidedBy: []string{"x"}},
		&Factor{Key: "o", Kind: KindOption, Options: []Option{{Key: "p"}, {Key: "q"}}, DecidedBy: []string{"x", "y"}},
	))
	require.NoError(t, err)

	b, _ := reg.Factor("b")
	o, _ := reg.Factor("o")
	assert.Equal(t, []any{false, true}, b.Choices())
	assert.Equal(t, []any{"p", "q"}, o.Choices())
	assert.True(t, b.IsDecision())
	assert.True(t, o.IsNegotiation())
}
