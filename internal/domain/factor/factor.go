// Package factor declares the influence diagram: factors, their value kinds and
// the subdomains they are grouped into.
package factor

import (
	"gitarg/internal/domain/scenario"
)

// Option is one label of a categorical factor
type Option struct {
	Key   string
	Label string
}

// Rule derives a factor's value from already resolved factors.
// DependsOn lists every key Derive reads; the propagation engine checks them
// before calling Derive.
type Rule struct {
	DependsOn []string
	Derive    func(s scenario.Scenario) (any, error)
}

// Factor is one node of the influence diagram
type Factor struct {
	Key   string
	Kind  Kind
	Title string

	// Options is the ordered label set of an option factor
	Options []Option
	// OptionsFrom makes a tpe factor hold one estimate per option of the named factor
	OptionsFrom string

	// DecidedBy names the agents controlling the value; one agent makes it a
	// sub-decision, several a negotiation
	DecidedBy []string
	// ValuedBy names the agents that attach utility to the value
	ValuedBy []string

	// Elicited marks a value the user supplies directly
	Elicited bool
	Rule     *Rule
	// Manual excludes Rule from automatic propagation; the enumerator assigns
	// the value explicitly. The rule is kept for display collaborators.
	Manual bool

	// MergeInto names the factor this estimate is folded into
	MergeInto string
	// MergeFrom is filled by the registry with the factors merging into this one
	MergeFrom []string

	subdomain     string
	typ           ValueType
	sourceOptions []Option
}

// Type returns the value type resolved at registry load
func (f *Factor) Type() ValueType {
	return f.typ
}

// Subdomain returns the name of the subdomain the factor belongs to
func (f *Factor) Subdomain() string {
	return f.subdomain
}

// AutoDerived reports whether propagation computes the factor
func (f *Factor) AutoDerived() bool {
	return f.Rule != nil && !f.Manual
}

// IsDecision reports whether a single agent decides the factor
func (f *Factor) IsDecision() bool {
	return len(f.DecidedBy) == 1
}

// IsNegotiation reports whether several agents jointly decide the factor
func (f *Factor) IsNegotiation() bool {
	return len(f.DecidedBy) > 1
}

// IsValuedBy reports whether agent attaches utility to the factor
func (f *Factor) IsValuedBy(agent string) bool {
	for _, a := range f.ValuedBy {
		if a == agent {
			return true
		}
	}
	return false
}

// HasOption reports whether key is one of the factor's options
func (f *Factor) HasOption(key string) bool {
	return containsOption(f.Options, key)
}

// OptionLabel returns the label of an option, empty if unknown
func (f *Factor) OptionLabel(key string) string {
	for _, o := range f.Options {
		if o.Key == key {
			return o.Label
		}
	}
	return ""
}

// OptionKeys returns the option keys in declared order
func (f *Factor) OptionKeys() []string {
	keys := make([]string, len(f.Options))
	for i, o := range f.Options {
		keys[i] = o.Key
	}
	return keys
}

// Choices returns the values a decision over this factor ranges over:
// false then true for booleans, the options in declared order otherwise.
func (f *Factor) Choices() []any {
	if f.Kind == KindBoolean {
		return []any{false, true}
	}
	out := make([]any, len(f.Options))
	for i, o := range f.Options {
		out[i] = o.Key
	}
	return out
}

// Items lists the value items derived from the factor
func (f *Factor) Items() []Item {
	if f.typ == nil || len(f.ValuedBy) == 0 {
		return nil
	}
	return f.typ.Items(f)
}

// Item is one unit of elicited utility preference: the whole factor for
// boolean and interval kinds, one option of an option factor otherwise.
type Item struct {
	Key     string
	Factor  string
	Option  string
	Percent float64
	Title   string
}

// Subdomain is a named group of factors evaluated together
type Subdomain struct {
	Name    string
	Factors []*Factor
}

// NewSubdomain groups factors under name, keeping declaration order
func NewSubdomain(name string, factors ...*Factor) Subdomain {
	return Subdomain{Name: name, Factors: factors}
}
