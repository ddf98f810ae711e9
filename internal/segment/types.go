// Package segment provides the audience rule engine: a recursive tree of
// comparison predicates over customer attributes, combined with boolean
// AND/OR groups, plus a deterministic evaluator used for previews and for
// resolving campaign audiences.
package segment

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Combinator joins the children of a rule group.
type Combinator string

const (
	And Combinator = "AND"
	Or  Combinator = "OR"
)

// Operator is a comparison applied by a single rule leaf.
type Operator string

const (
	OpGreater  Operator = ">"
	OpLess     Operator = "<"
	OpEqual    Operator = "="
	OpNotEqual Operator = "!="
	OpContains Operator = "contains"
	OpBefore   Operator = "before"
	OpAfter    Operator = "after"
	OpBetween  Operator = "between" // inclusive of both bounds
	OpIn       Operator = "in"
	OpNotIn    Operator = "notIn"
)

// Field names a customer attribute a leaf can test.
type Field string

const (
	FieldTotalSpend   Field = "total_spend"
	FieldVisits       Field = "visits"
	FieldLastVisit    Field = "last_visit"
	FieldLastActive   Field = "last_active_date" // alias the rule builder also emits
	FieldInactiveDays Field = "inactive_days"    // derived: days since last activity
	FieldCreatedAt    Field = "created_at"
	FieldEmail        Field = "email"
	FieldName         Field = "name"
)

// Kind is the comparable type a field coerces to.
type Kind int

const (
	KindNumeric Kind = iota
	KindDate
	KindString
)

// fieldKinds is the closed registry of evaluatable fields. An unknown
// field is a configuration error, never a silent non-match.
var fieldKinds = map[Field]Kind{
	FieldTotalSpend:   KindNumeric,
	FieldVisits:       KindNumeric,
	FieldInactiveDays: KindNumeric,
	FieldLastVisit:    KindDate,
	FieldLastActive:   KindDate,
	FieldCreatedAt:    KindDate,
	FieldEmail:        KindString,
	FieldName:         KindString,
}

// operatorsByKind lists which operators apply to each field kind.
var operatorsByKind = map[Kind][]Operator{
	KindNumeric: {OpGreater, OpLess, OpEqual, OpNotEqual, OpBetween, OpIn, OpNotIn},
	KindDate:    {OpBefore, OpAfter, OpBetween},
	KindString:  {OpEqual, OpNotEqual, OpContains, OpIn, OpNotIn},
}

// Node is a node of the rule tree: either a Leaf predicate or a Group
// combining child nodes. The set of implementations is closed.
type Node interface {
	node()
}

// Leaf is a single comparison over one customer attribute.
//
// Value holds the comparand. For OpBetween, Value is the lower and
// ValueTo the upper bound. For OpIn/OpNotIn, Values holds the member set.
type Leaf struct {
	Field    Field
	Operator Operator
	Value    string
	ValueTo  string
	Values   []string
}

func (Leaf) node() {}

// Group combines child rules with a single AND/OR combinator.
//
// An empty AND group is the identity (true) and an empty OR group is the
// identity for disjunction (false), mirroring boolean algebra. Trees are
// values: edits rebuild and replace the whole tree, nodes are never
// mutated in place.
type Group struct {
	Combinator Combinator
	Rules      []Node
}

func (Group) node() {}

// leafJSON is the wire shape of a leaf as submitted by the rule builder
// UI. Value may arrive as a JSON string or number; an "id" key, if
// present, is ignored.
type leafJSON struct {
	Field    Field           `json:"field"`
	Operator Operator        `json:"operator"`
	Value    json.RawMessage `json:"value,omitempty"`
	ValueTo  json.RawMessage `json:"valueTo,omitempty"`
	Values   []string        `json:"values,omitempty"`
}

type groupJSON struct {
	Combinator Combinator        `json:"combinator"`
	Rules      []json.RawMessage `json:"rules"`
}

// Decode parses a serialized rule tree. A JSON object containing a
// "combinator" key decodes as a Group; any other object decodes as a
// Leaf. Decode only checks shape; use Validate for semantic checks.
func Decode(data []byte) (Node, error) {
	var probe struct {
		Combinator *Combinator `json:"combinator"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse rule node: %w", err)
	}

	if probe.Combinator != nil {
		var gj groupJSON
		if err := json.Unmarshal(data, &gj); err != nil {
			return nil, fmt.Errorf("parse rule group: %w", err)
		}
		if gj.Combinator != And && gj.Combinator != Or {
			return nil, fmt.Errorf("unknown combinator %q", gj.Combinator)
		}
		g := Group{Combinator: gj.Combinator}
		for i, raw := range gj.Rules {
			child, err := Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}
			g.Rules = append(g.Rules, child)
		}
		return g, nil
	}

	var lj leafJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return nil, fmt.Errorf("parse rule: %w", err)
	}
	l := Leaf{Field: lj.Field, Operator: lj.Operator, Values: lj.Values}
	var err error
	if l.Value, err = scalarString(lj.Value); err != nil {
		return nil, fmt.Errorf("rule value: %w", err)
	}
	if l.ValueTo, err = scalarString(lj.ValueTo); err != nil {
		return nil, fmt.Errorf("rule valueTo: %w", err)
	}
	return l, nil
}

// scalarString normalizes a JSON string or number into its string form.
func scalarString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("expected string or number, got %s", raw)
}

// Encode serializes a rule tree back to its wire shape.
func Encode(n Node) ([]byte, error) {
	return json.Marshal(encodable(n))
}

func encodable(n Node) any {
	switch v := n.(type) {
	case Leaf:
		out := map[string]any{"field": v.Field, "operator": v.Operator}
		if v.Value != "" {
			out["value"] = v.Value
		}
		if v.ValueTo != "" {
			out["valueTo"] = v.ValueTo
		}
		if len(v.Values) > 0 {
			out["values"] = v.Values
		}
		return out
	case Group:
		rules := make([]any, 0, len(v.Rules))
		for _, child := range v.Rules {
			rules = append(rules, encodable(child))
		}
		return map[string]any{"combinator": v.Combinator, "rules": rules}
	default:
		return nil
	}
}

// Validate walks the tree and reports every configuration problem:
// unknown fields or operators, operators inapplicable to a field's kind,
// unparsable comparands, and missing bounds or member sets.
func Validate(n Node) []error {
	var errs []error
	validateNode(n, &errs)
	return errs
}

func validateNode(n Node, errs *[]error) {
	switch v := n.(type) {
	case Group:
		if v.Combinator != And && v.Combinator != Or {
			*errs = append(*errs, fmt.Errorf("unknown combinator %q", v.Combinator))
		}
		for _, child := range v.Rules {
			validateNode(child, errs)
		}
	case Leaf:
		kind, ok := fieldKinds[v.Field]
		if !ok {
			*errs = append(*errs, fmt.Errorf("unknown field %q", v.Field))
			return
		}
		if !operatorApplies(kind, v.Operator) {
			*errs = append(*errs, fmt.Errorf("operator %q does not apply to field %q", v.Operator, v.Field))
			return
		}
		switch v.Operator {
		case OpIn, OpNotIn:
			if len(v.Values) == 0 {
				*errs = append(*errs, fmt.Errorf("operator %q on field %q requires a value set", v.Operator, v.Field))
				return
			}
			for _, member := range v.Values {
				if _, err := parseComparand(kind, member); err != nil {
					*errs = append(*errs, fmt.Errorf("field %q: %w", v.Field, err))
				}
			}
		case OpBetween:
			if _, err := parseComparand(kind, v.Value); err != nil {
				*errs = append(*errs, fmt.Errorf("field %q: %w", v.Field, err))
			}
			if v.ValueTo == "" {
				*errs = append(*errs, fmt.Errorf("operator between on field %q requires an upper bound", v.Field))
			} else if _, err := parseComparand(kind, v.ValueTo); err != nil {
				*errs = append(*errs, fmt.Errorf("field %q: %w", v.Field, err))
			}
		default:
			if _, err := parseComparand(kind, v.Value); err != nil {
				*errs = append(*errs, fmt.Errorf("field %q: %w", v.Field, err))
			}
		}
	default:
		*errs = append(*errs, fmt.Errorf("unknown rule node type %T", n))
	}
}

func operatorApplies(kind Kind, op Operator) bool {
	for _, allowed := range operatorsByKind[kind] {
		if allowed == op {
			return true
		}
	}
	return false
}
