package factor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gitarg/internal/domain/scenario"
	"gitarg/pkg/errors"
)

// ValuePercent is the reference step an interval weight is elicited against:
// a weight of W means "W is what a +10% change is worth".
const ValuePercent = 10

// Kind enumerates the value types a factor can have
type Kind string

const (
	KindBoolean            Kind = "boolean"
	KindOption             Kind = "option"
	KindGBP                Kind = "gbp"
	KindUnitInterval       Kind = "unitInterval"
	KindUntil2030Interval  Kind = "until2030interval"
	KindMinusUnitInterval  Kind = "minusUnitInterval"
	KindMirrorUnitInterval Kind = "mirrorUnitInterval"
	KindValue              Kind = "value"
	KindRatio              Kind = "ratio"
	KindThreePoint         Kind = "tpe"
)

// Valid checks if kind is one of the catalog kinds
func (k Kind) Valid() bool {
	_, ok := catalog[k]
	return ok
}

// String returns string representation
func (k Kind) String() string {
	return string(k)
}

// ValueType is the per-kind contract for defaults, display and utility contribution.
// Implementations are fixed; a factor's ValueType is resolved once when the registry loads.
type ValueType interface {
	Kind() Kind
	// Default returns the value shown before anything is elicited, nil if there is none
	Default(f *Factor) any
	// Normalize validates a raw value and coerces it to its canonical Go type
	Normalize(f *Factor, raw any) (any, error)
	// Display renders a value for people
	Display(f *Factor, v any) (string, error)
	// Items lists the value items the factor contributes to an agent's utility model
	Items(f *Factor) []Item
	// Contribution is the utility a signed weight on item yields for value v
	Contribution(v any, weight float64, item Item) (float64, error)
}

var catalog = map[Kind]ValueType{
	KindBoolean: booleanType{},
	KindOption:  optionType{},
	KindGBP: scalarType{
		kind: KindGBP, min: math.Inf(-1), max: math.Inf(1), def: 0.0,
		text: func(v float64) string { return "£" + commaTenth(v/1e9) + " bn" },
	},
	KindUnitInterval: intervalType{
		kind: KindUnitInterval, min: 0, max: 1, def: 0.5,
		text:   func(v float64) string { return roundTenth(v*100) + "%" },
		suffix: fmt.Sprintf("(+%d%%)", ValuePercent),
	},
	KindUntil2030Interval: intervalType{
		kind: KindUntil2030Interval, min: 0, max: 1, def: 0.5,
		text:   func(v float64) string { return roundTenth(v*10) + " yr" },
		suffix: fmt.Sprintf("(+%d year)", ValuePercent/10),
	},
	KindMinusUnitInterval: intervalType{
		kind: KindMinusUnitInterval, min: -1, max: 0, def: -0.5,
		text:   func(v float64) string { return roundTenth(v*100) + "%" },
		suffix: fmt.Sprintf("(+%d%%)", ValuePercent),
	},
	KindMirrorUnitInterval: intervalType{
		kind: KindMirrorUnitInterval, min: -1, max: 1, def: 0,
		text:   signedPercent,
		suffix: fmt.Sprintf("(+%d%%)", ValuePercent),
	},
	KindValue: scalarType{
		kind: KindValue, min: -100, max: 100,
		text: roundTenth,
	},
	KindRatio: scalarType{
		kind: KindRatio, min: 0, max: 2, def: 1.0,
		text: roundTenth,
	},
	KindThreePoint: threePointType{},
}

// ResolveType returns the ValueType of a kind
func ResolveType(k Kind) (ValueType, error) {
	t, ok := catalog[k]
	if !ok {
		return nil, errors.NewValidationError("kind", "unknown factor kind", k)
	}
	return t, nil
}

// intervalContribution rescales an interval value so a weight elicited at
// ValuePercent is comparable with boolean and option weights.
func intervalContribution(v, weight float64, item Item) float64 {
	percent := item.Percent
	if percent == 0 {
		percent = ValuePercent
	}
	return v * weight / percent * 100
}

type booleanType struct{}

func (booleanType) Kind() Kind { return KindBoolean }

func (booleanType) Default(*Factor) any { return false }

func (booleanType) Normalize(f *Factor, raw any) (any, error) {
	b, ok := raw.(bool)
	if !ok {
		return nil, &errors.OutOfRangeError{Factor: f.Key, Value: raw}
	}
	return b, nil
}

func (booleanType) Display(f *Factor, v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", &errors.OutOfRangeError{Factor: f.Key, Value: v}
	}
	if b {
		return "YES", nil
	}
	return "NO", nil
}

func (booleanType) Items(f *Factor) []Item {
	return []Item{{Key: f.Key, Factor: f.Key, Title: f.Title}}
}

func (booleanType) Contribution(v any, weight float64, item Item) (float64, error) {
	b, ok := v.(bool)
	if !ok {
		return 0, &errors.OutOfRangeError{Factor: item.Factor, Value: v}
	}
	if b {
		return weight, nil
	}
	return 0, nil
}

type optionType struct{}

func (optionType) Kind() Kind { return KindOption }

func (optionType) Default(*Factor) any { return nil }

func (optionType) Normalize(f *Factor, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok || !f.HasOption(s) {
		return nil, &errors.OutOfRangeError{Factor: f.Key, Value: raw}
	}
	return s, nil
}

func (optionType) Display(f *Factor, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &errors.OutOfRangeError{Factor: f.Key, Value: v}
	}
	if label := f.OptionLabel(s); label != "" {
		return label, nil
	}
	return camelToSpace(s), nil
}

func (optionType) Items(f *Factor) []Item {
	items := make([]Item, 0, len(f.Options))
	for _, o := range f.Options {
		items = append(items, Item{
			Key:    f.Key + "_" + o.Key,
			Factor: f.Key,
			Option: o.Key,
			Title:  f.Title + ": " + o.Label,
		})
	}
	return items
}

func (optionType) Contribution(v any, weight float64, item Item) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, &errors.OutOfRangeError{Factor: item.Factor, Value: v}
	}
	if s == item.Option {
		return weight, nil
	}
	return 0, nil
}

// intervalType covers the bounded continuous kinds that can be valued
type intervalType struct {
	kind     Kind
	min, max float64
	def      float64
	text     func(float64) string
	suffix   string
}

func (t intervalType) Kind() Kind { return t.kind }

func (t intervalType) Default(*Factor) any { return t.def }

func (t intervalType) Normalize(f *Factor, raw any) (any, error) {
	return checkRange(f.Key, raw, t.min, t.max)
}

func (t intervalType) Display(f *Factor, v any) (string, error) {
	n, err := checkRange(f.Key, v, t.min, t.max)
	if err != nil {
		return "", err
	}
	return t.text(n), nil
}

func (t intervalType) Items(f *Factor) []Item {
	return []Item{{
		Key:     f.Key,
		Factor:  f.Key,
		Percent: ValuePercent,
		Title:   f.Title + " " + t.suffix,
	}}
}

func (t intervalType) Contribution(v any, weight float64, item Item) (float64, error) {
	n, err := checkRange(item.Factor, v, t.min, t.max)
	if err != nil {
		return 0, err
	}
	return intervalContribution(n, weight, item), nil
}

// scalarType covers display-only numeric kinds. They carry no value items.
type scalarType struct {
	kind     Kind
	min, max float64
	def      any
	text     func(float64) string
}

func (t scalarType) Kind() Kind { return t.kind }

func (t scalarType) Default(*Factor) any { return t.def }

func (t scalarType) Normalize(f *Factor, raw any) (any, error) {
	return checkRange(f.Key, raw, t.min, t.max)
}

func (t scalarType) Display(f *Factor, v any) (string, error) {
	n, err := checkRange(f.Key, v, t.min, t.max)
	if err != nil {
		return "", err
	}
	return t.text(n), nil
}

func (scalarType) Items(*Factor) []Item { return nil }

func (t scalarType) Contribution(v any, _ float64, item Item) (float64, error) {
	return 0, errors.NewValidationError(item.Factor, "kind "+t.kind.String()+" cannot be valued", v)
}

// threePointType holds a pessimistic / most likely / optimistic estimate in [0, 1],
// or one such estimate per option of the factor named by OptionsFrom.
type threePointType struct{}

func (threePointType) Kind() Kind { return KindThreePoint }

func (threePointType) Default(f *Factor) any {
	mid := scenario.Estimate{Pessimistic: 0.5, MostLikely: 0.5, Optimistic: 0.5}
	if f.OptionsFrom == "" {
		return mid
	}
	set := make(scenario.EstimateSet, len(f.sourceOptions))
	for _, o := range f.sourceOptions {
		set[o.Key] = mid
	}
	return set
}

func (t threePointType) Normalize(f *Factor, raw any) (any, error) {
	if f.OptionsFrom == "" {
		return toEstimate(f.Key, raw)
	}

	set := scenario.EstimateSet{}
	switch m := raw.(type) {
	case scenario.EstimateSet:
		for k, e := range m {
			est, err := toEstimate(f.Key, e)
			if err != nil {
				return nil, err
			}
			set[k] = est
		}
	case map[string]any:
		for k, e := range m {
			est, err := toEstimate(f.Key, e)
			if err != nil {
				return nil, err
			}
			set[k] = est
		}
	default:
		return nil, &errors.OutOfRangeError{Factor: f.Key, Value: raw}
	}

	for _, o := range f.sourceOptions {
		if _, ok := set[o.Key]; !ok {
			return nil, errors.Wrapf(errors.ErrValueOutOfRange, "factor %q: no estimate for option %q", f.Key, o.Key)
		}
	}
	for k := range set {
		if !containsOption(f.sourceOptions, k) {
			return nil, errors.Wrapf(errors.ErrValueOutOfRange, "factor %q: unknown option %q", f.Key, k)
		}
	}
	return set, nil
}

func (t threePointType) Display(f *Factor, v any) (string, error) {
	switch e := v.(type) {
	case scenario.Estimate:
		return estimateText(e), nil
	case scenario.EstimateSet:
		keys := make([]string, 0, len(e))
		for k := range e {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, camelToSpace(k)+": "+estimateText(e[k]))
		}
		return strings.Join(parts, "; "), nil
	}
	return "", &errors.OutOfRangeError{Factor: f.Key, Value: v}
}

func (threePointType) Items(f *Factor) []Item {
	if f.MergeInto != "" || f.OptionsFrom != "" {
		return nil
	}
	return []Item{{
		Key:     f.Key,
		Factor:  f.Key,
		Percent: ValuePercent,
		Title:   fmt.Sprintf("%s (+%d%%)", f.Title, ValuePercent),
	}}
}

func (threePointType) Contribution(v any, weight float64, item Item) (float64, error) {
	e, err := toEstimate(item.Factor, v)
	if err != nil {
		return 0, err
	}
	return intervalContribution(e.Expected(), weight, item), nil
}

func toEstimate(key string, raw any) (scenario.Estimate, error) {
	var e scenario.Estimate
	switch m := raw.(type) {
	case scenario.Estimate:
		e = m
	case map[string]any:
		var err error
		if e.Pessimistic, err = checkRange(key, m["pessimistic"], 0, 1); err != nil {
			return e, err
		}
		if e.MostLikely, err = checkRange(key, m["mostLikely"], 0, 1); err != nil {
			return e, err
		}
		if e.Optimistic, err = checkRange(key, m["optimistic"], 0, 1); err != nil {
			return e, err
		}
		return e, nil
	default:
		return e, &errors.OutOfRangeError{Factor: key, Value: raw, Min: 0, Max: 1}
	}

	for _, n := range []float64{e.Pessimistic, e.MostLikely, e.Optimistic} {
		if _, err := checkRange(key, n, 0, 1); err != nil {
			return e, err
		}
	}
	return e, nil
}

func checkRange(key string, raw any, min, max float64) (float64, error) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return 0, &errors.OutOfRangeError{Factor: key, Value: raw, Min: min, Max: max}
	}
	if math.IsNaN(n) || n < min || n > max || math.IsInf(n, 0) {
		return 0, &errors.OutOfRangeError{Factor: key, Value: raw, Min: min, Max: max}
	}
	return n, nil
}

func containsOption(options []Option, key string) bool {
	for _, o := range options {
		if o.Key == key {
			return true
		}
	}
	return false
}
