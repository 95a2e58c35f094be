package kb

import (
	"fmt"

	ipcerrors "github.com/CMSgov/ipcoding-app/ipcoding/errors"
	"github.com/mitchellh/mapstructure"
)

// RuleType is the discriminator of a bundling rule.
type RuleType string

const (
	// DropSet drops every code in DropCodes when any code in TriggerCodes is present.
	DropSet RuleType = "drop_set"
	// Dominant keeps Dominant over each of Subordinates.
	Dominant RuleType = "dominant"
	// ExclusiveSet keeps Primary and excludes every code in Exclusive.
	ExclusiveSet RuleType = "exclusive_set"
	// PreferenceOrder keeps the earliest listed code of Order over every later one.
	PreferenceOrder RuleType = "preference_order"
	// ColumnPair is a single column one / column two edit.
	ColumnPair RuleType = "column_pair"
	// Replacement keeps Code in place of every code in Replaces.
	Replacement RuleType = "replacement"
)

// Rule is one bundling rule variant. Every variant can be expressed as keep -> drop edges.
type Rule interface {
	Header() RuleHeader
	Edges() []Edge
	check() error
}

// RuleHeader holds the fields shared by every variant.
type RuleHeader struct {
	ID     string   `mapstructure:"id"`
	Type   RuleType `mapstructure:"type"`
	Reason string   `mapstructure:"reason"`

	index int
}

func (h RuleHeader) Header() RuleHeader {
	return h
}

func (h RuleHeader) source() string {
	if h.ID != "" {
		return h.ID
	}
	return fmt.Sprintf("bundling_rules[%d]", h.index)
}

func (h RuleHeader) edge(keep, drop string) Edge {
	return Edge{Keep: NormalizeCode(keep), Drop: NormalizeCode(drop), Source: h.source(), Reason: h.Reason}
}

type DropSetRule struct {
	RuleHeader   `mapstructure:",squash"`
	TriggerCodes []string `mapstructure:"trigger_codes"`
	DropCodes    []string `mapstructure:"drop_codes"`
}

func (r *DropSetRule) Edges() []Edge {
	var edges []Edge
	for _, t := range r.TriggerCodes {
		for _, d := range r.DropCodes {
			edges = append(edges, r.edge(t, d))
		}
	}
	return edges
}

func (r *DropSetRule) check() error {
	return firstErr(nonEmpty("trigger_codes", r.TriggerCodes), nonEmpty("drop_codes", r.DropCodes))
}

type DominantRule struct {
	RuleHeader   `mapstructure:",squash"`
	Dominant     string   `mapstructure:"dominant"`
	Subordinates []string `mapstructure:"subordinates"`
}

func (r *DominantRule) Edges() []Edge {
	edges := make([]Edge, 0, len(r.Subordinates))
	for _, s := range r.Subordinates {
		edges = append(edges, r.edge(r.Dominant, s))
	}
	return edges
}

func (r *DominantRule) check() error {
	return firstErr(present("dominant", r.Dominant), nonEmpty("subordinates", r.Subordinates))
}

type ExclusiveSetRule struct {
	RuleHeader `mapstructure:",squash"`
	Primary    string   `mapstructure:"primary"`
	Exclusive  []string `mapstructure:"exclusive"`
}

func (r *ExclusiveSetRule) Edges() []Edge {
	edges := make([]Edge, 0, len(r.Exclusive))
	for _, x := range r.Exclusive {
		edges = append(edges, r.edge(r.Primary, x))
	}
	return edges
}

func (r *ExclusiveSetRule) check() error {
	return firstErr(present("primary", r.Primary), nonEmpty("exclusive", r.Exclusive))
}

type PreferenceOrderRule struct {
	RuleHeader `mapstructure:",squash"`
	Order      []string `mapstructure:"order"`
}

func (r *PreferenceOrderRule) Edges() []Edge {
	var edges []Edge
	for i := range r.Order {
		for j := i + 1; j < len(r.Order); j++ {
			edges = append(edges, r.edge(r.Order[i], r.Order[j]))
		}
	}
	return edges
}

func (r *PreferenceOrderRule) check() error {
	if len(r.Order) < 2 {
		return fmt.Errorf("order must list at least two codes")
	}
	return nil
}

type ColumnPairRule struct {
	RuleHeader `mapstructure:",squash"`
	Column1    string `mapstructure:"column1"`
	Column2    string `mapstructure:"column2"`
}

func (r *ColumnPairRule) Edges() []Edge {
	return []Edge{r.edge(r.Column1, r.Column2)}
}

func (r *ColumnPairRule) check() error {
	return firstErr(present("column1", r.Column1), present("column2", r.Column2))
}

type ReplacementRule struct {
	RuleHeader `mapstructure:",squash"`
	Code       string   `mapstructure:"code"`
	Replaces   []string `mapstructure:"replaces"`
}

func (r *ReplacementRule) Edges() []Edge {
	edges := make([]Edge, 0, len(r.Replaces))
	for _, old := range r.Replaces {
		edges = append(edges, r.edge(r.Code, old))
	}
	return edges
}

func (r *ReplacementRule) check() error {
	return firstErr(present("code", r.Code), nonEmpty("replaces", r.Replaces))
}

// decodeRule turns one generic bundling_rules element into its variant. Anything that does not
// fit a variant is a RuleShapeError.
func decodeRule(index int, raw interface{}) (Rule, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &ipcerrors.RuleShapeError{Index: index, Msg: fmt.Sprintf("expected an object, got %T", raw)}
	}
	typ, _ := m["type"].(string)

	var rule Rule
	switch RuleType(typ) {
	case DropSet:
		rule = &DropSetRule{}
	case Dominant:
		rule = &DominantRule{}
	case ExclusiveSet:
		rule = &ExclusiveSetRule{}
	case PreferenceOrder:
		rule = &PreferenceOrderRule{}
	case ColumnPair:
		rule = &ColumnPairRule{}
	case Replacement:
		rule = &ReplacementRule{}
	case "":
		return nil, &ipcerrors.RuleShapeError{Index: index, Msg: "missing type"}
	default:
		return nil, &ipcerrors.RuleShapeError{Index: index, Type: typ, Msg: "unknown rule type"}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           rule,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(m); err != nil {
		return nil, &ipcerrors.RuleShapeError{Index: index, Type: typ, Msg: err.Error()}
	}
	if err := rule.check(); err != nil {
		return nil, &ipcerrors.RuleShapeError{Index: index, Type: typ, Msg: err.Error()}
	}
	setIndex(rule, index)
	return rule, nil
}

func setIndex(rule Rule, index int) {
	switch r := rule.(type) {
	case *DropSetRule:
		r.index = index
	case *DominantRule:
		r.index = index
	case *ExclusiveSetRule:
		r.index = index
	case *PreferenceOrderRule:
		r.index = index
	case *ColumnPairRule:
		r.index = index
	case *ReplacementRule:
		r.index = index
	}
}

func present(field, value string) error {
	if value == "" {
		return fmt.Errorf("missing %s", field)
	}
	return nil
}

func nonEmpty(field string, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("missing %s", field)
	}
	for i, v := range values {
		if v == "" {
			return fmt.Errorf("%s[%d] is empty", field, i)
		}
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
