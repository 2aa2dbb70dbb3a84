package factor

import (
	"fmt"
	"sort"

	"gitarg/pkg/errors"
)

// Registry is the immutable, validated set of factors. It is built once and
// shared by every evaluation.
type Registry struct {
	factors    map[string]*Factor
	order      []string
	subdomains map[string]*Subdomain
	subOrder   []string
	agents     []string
}

// NewRegistry validates the subdomains and resolves every factor's value type.
// All problems found are reported together.
func NewRegistry(subdomains ...Subdomain) (*Registry, error) {
	r := &Registry{
		factors:    make(map[string]*Factor),
		subdomains: make(map[string]*Subdomain),
	}
	errs := &errors.MultiError{}

	for i := range subdomains {
		sub := subdomains[i]
		if sub.Name == "" {
			errs.Add(errors.NewValidationError("subdomain", "empty name", i))
			continue
		}
		if _, dup := r.subdomains[sub.Name]; dup {
			errs.Add(errors.NewValidationError("subdomain", "duplicate name", sub.Name))
			continue
		}
		r.subdomains[sub.Name] = &sub
		r.subOrder = append(r.subOrder, sub.Name)

		for _, f := range sub.Factors {
			if f == nil || f.Key == "" {
				errs.Add(errors.NewValidationError(sub.Name, "factor without key", f))
				continue
			}
			if _, dup := r.factors[f.Key]; dup {
				errs.Add(errors.NewValidationError(f.Key, "duplicate factor key", sub.Name))
				continue
			}
			typ, err := ResolveType(f.Kind)
			if err != nil {
				errs.Add(errors.Wrapf(err, "factor %q", f.Key))
				continue
			}
			f.typ = typ
			f.subdomain = sub.Name
			f.MergeFrom = nil
			r.factors[f.Key] = f
			r.order = append(r.order, f.Key)
		}
	}

	agents := map[string]struct{}{}
	for _, key := range r.order {
		f := r.factors[key]
		for _, err := range r.check(f) {
			errs.Add(err)
		}
		for _, a := range f.ValuedBy {
			agents[a] = struct{}{}
		}
	}
	for _, sub := range r.subOrder {
		errs.Add(r.checkOrder(r.subdomains[sub]))
	}

	if err := errs.ToError(); err != nil {
		return nil, err
	}

	for a := range agents {
		r.agents = append(r.agents, a)
	}
	sort.Strings(r.agents)
	return r, nil
}

func (r *Registry) check(f *Factor) []error {
	var errs []error
	bad := func(msg string, v any) {
		errs = append(errs, errors.NewValidationError(f.Key, msg, v))
	}

	if f.Kind == KindOption {
		if len(f.Options) == 0 {
			bad("option factor without options", nil)
		}
		seen := map[string]bool{}
		for _, o := range f.Options {
			if o.Key == "" || seen[o.Key] {
				bad("empty or duplicate option", o.Key)
			}
			seen[o.Key] = true
		}
	}

	if f.OptionsFrom != "" {
		src, ok := r.factors[f.OptionsFrom]
		switch {
		case f.Kind != KindThreePoint:
			bad("optionsFrom is only allowed on tpe factors", f.OptionsFrom)
		case !ok || src.Kind != KindOption:
			bad("optionsFrom must name an option factor", f.OptionsFrom)
		default:
			f.sourceOptions = src.Options
		}
	}

	if f.MergeInto != "" {
		target, ok := r.factors[f.MergeInto]
		if !ok {
			bad("mergeInto names an unknown factor", f.MergeInto)
		} else {
			target.MergeFrom = append(target.MergeFrom, f.Key)
		}
	}

	if len(f.ValuedBy) > 0 && len(f.typ.Items(f)) == 0 {
		bad("factor kind cannot be valued", f.Kind)
	}

	if f.Elicited && f.AutoDerived() {
		bad("factor is both elicited and auto-derived", nil)
	}
	if f.IsDecision() && f.AutoDerived() {
		bad("decision factor must not be auto-derived", f.DecidedBy)
	}
	if f.IsNegotiation() && f.Kind != KindOption {
		bad("negotiated factor must be an option factor", f.Kind)
	}

	if f.Rule != nil {
		if f.Rule.Derive == nil {
			bad("rule without derive function", nil)
		}
		for _, dep := range f.Rule.DependsOn {
			if dep == f.Key {
				bad("rule depends on itself", dep)
			} else if _, ok := r.factors[dep]; !ok {
				bad("rule depends on unknown factor", dep)
			}
		}
	}
	return errs
}

// checkOrder rejects a rule reading an auto-derived factor of the same
// subdomain that is declared after it. Such an edge is the only way a
// derivation cycle can form inside one subdomain.
func (r *Registry) checkOrder(sub *Subdomain) error {
	pos := make(map[string]int, len(sub.Factors))
	for i, f := range sub.Factors {
		if f != nil {
			pos[f.Key] = i
		}
	}

	errs := &errors.MultiError{}
	for i, f := range sub.Factors {
		if f == nil || !f.AutoDerived() {
			continue
		}
		for _, dep := range f.Rule.DependsOn {
			j, same := pos[dep]
			if !same || j < i {
				continue
			}
			if d := r.factors[dep]; d != nil && d.AutoDerived() {
				errs.Add(errors.NewValidationError(f.Key,
					fmt.Sprintf("rule reads %q which is derived later in subdomain %q", dep, sub.Name), dep))
			}
		}
	}
	return errs.ToError()
}

// Factor returns the factor registered under key
func (r *Registry) Factor(key string) (*Factor, error) {
	f, ok := r.factors[key]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownFactor, "%q", key)
	}
	return f, nil
}

// Factors returns every factor in declaration order
func (r *Registry) Factors() []*Factor {
	out := make([]*Factor, len(r.order))
	for i, key := range r.order {
		out[i] = r.factors[key]
	}
	return out
}

// Subdomain returns the named subdomain
func (r *Registry) Subdomain(name string) (*Subdomain, error) {
	sub, ok := r.subdomains[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidModel, "unknown subdomain %q", name)
	}
	return sub, nil
}

// SubdomainNames returns subdomain names in declaration order
func (r *Registry) SubdomainNames() []string {
	return append([]string(nil), r.subOrder...)
}

// Agents returns every agent that values at least one factor, sorted
func (r *Registry) Agents() []string {
	return append([]string(nil), r.agents...)
}

// Items returns the value items of one factor
func (r *Registry) Items(key string) ([]Item, error) {
	f, err := r.Factor(key)
	if err != nil {
		return nil, err
	}
	return f.Items(), nil
}

// AgentItems returns the value items of every factor agent values, in declaration order
func (r *Registry) AgentItems(agent string) []Item {
	var items []Item
	for _, key := range r.order {
		f := r.factors[key]
		if f.IsValuedBy(agent) {
			items = append(items, f.Items()...)
		}
	}
	return items
}

// Dependencies returns the authored dependency edges of a factor's rule
func (r *Registry) Dependencies(key string) ([]string, error) {
	f, err := r.Factor(key)
	if err != nil {
		return nil, err
	}
	if f.Rule == nil {
		return nil, nil
	}
	return append([]string(nil), f.Rule.DependsOn...), nil
}

// DefaultValue returns the value a factor shows before elicitation
func (r *Registry) DefaultValue(key string) (any, error) {
	f, err := r.Factor(key)
	if err != nil {
		return nil, err
	}
	return f.typ.Default(f), nil
}

// DisplayText renders value the way the factor's kind prescribes
func (r *Registry) DisplayText(key string, value any) (string, error) {
	f, err := r.Factor(key)
	if err != nil {
		return "", err
	}
	return f.typ.Display(f, value)
}

// Normalize validates a raw value for key and converts it to its canonical type
func (r *Registry) Normalize(key string, raw any) (any, error) {
	f, err := r.Factor(key)
	if err != nil {
		return nil, err
	}
	return f.typ.Normalize(f, raw)
}
