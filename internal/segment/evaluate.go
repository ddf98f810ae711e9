package segment

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/engage/internal/domain"
)

// EvalContext pins down the inputs that would otherwise make evaluation
// time-dependent. Time-relative fields (inactive_days) are computed
// against Now, so the same (tree, customer, context) triple always
// produces the same answer.
type EvalContext struct {
	Now time.Time
}

// Evaluate reports whether the customer matches the rule tree.
//
// Evaluation is a pure function of (node, customer, ctx). Configuration
// problems (unknown field/operator, unparsable comparand) surface as
// errors. Absent customer data makes the predicate false for every
// operator, uniformly; the fields with an absence state are dates (zero
// time), strings (empty), and the date-derived inactive_days. Zero is a
// real value for the stored numeric fields:
// total_spend < 100 matches a customer who has spent nothing. That
// absence policy is load-bearing and is pinned by tests.
func Evaluate(n Node, c domain.Customer, ectx EvalContext) (bool, error) {
	switch v := n.(type) {
	case Group:
		return evaluateGroup(v, c, ectx)
	case Leaf:
		return evaluateLeaf(v, c, ectx)
	default:
		return false, fmt.Errorf("unknown rule node type %T", n)
	}
}

func evaluateGroup(g Group, c domain.Customer, ectx EvalContext) (bool, error) {
	switch g.Combinator {
	case And:
		// Empty AND is the identity for conjunction: true.
		for _, child := range g.Rules {
			ok, err := Evaluate(child, c, ectx)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case Or:
		// Empty OR is the identity for disjunction: false.
		for _, child := range g.Rules {
			ok, err := Evaluate(child, c, ectx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown combinator %q", g.Combinator)
	}
}

func evaluateLeaf(l Leaf, c domain.Customer, ectx EvalContext) (bool, error) {
	kind, ok := fieldKinds[l.Field]
	if !ok {
		return false, fmt.Errorf("unknown field %q", l.Field)
	}
	if !operatorApplies(kind, l.Operator) {
		return false, fmt.Errorf("operator %q does not apply to field %q", l.Operator, l.Field)
	}

	switch kind {
	case KindNumeric:
		val, present, err := numericField(l.Field, c, ectx)
		if err != nil {
			return false, err
		}
		if !present {
			return false, nil
		}
		return compareNumeric(l, val)
	case KindDate:
		val, present := dateField(l.Field, c)
		if !present {
			return false, nil
		}
		return compareDate(l, val)
	default:
		val := stringField(l.Field, c)
		if val == "" {
			return false, nil
		}
		return compareString(l, val)
	}
}

func numericField(f Field, c domain.Customer, ectx EvalContext) (float64, bool, error) {
	switch f {
	case FieldTotalSpend:
		return c.TotalSpend, true, nil
	case FieldVisits:
		return float64(c.Visits), true, nil
	case FieldInactiveDays:
		if c.LastActiveDate.IsZero() {
			return 0, false, nil
		}
		days := ectx.Now.Sub(c.LastActiveDate).Hours() / 24
		if days < 0 {
			days = 0
		}
		return float64(int(days)), true, nil
	}
	return 0, false, fmt.Errorf("field %q is not numeric", f)
}

func dateField(f Field, c domain.Customer) (time.Time, bool) {
	var t time.Time
	switch f {
	case FieldLastVisit, FieldLastActive:
		t = c.LastActiveDate
	case FieldCreatedAt:
		t = c.CreatedAt
	}
	return t, !t.IsZero()
}

func stringField(f Field, c domain.Customer) string {
	switch f {
	case FieldEmail:
		return c.Email
	case FieldName:
		return c.Name
	}
	return ""
}

func compareNumeric(l Leaf, val float64) (bool, error) {
	switch l.Operator {
	case OpIn, OpNotIn:
		found := false
		for _, member := range l.Values {
			m, err := parseNumber(member)
			if err != nil {
				return false, err
			}
			if val == m {
				found = true
				break
			}
		}
		if l.Operator == OpIn {
			return found, nil
		}
		return !found, nil
	case OpBetween:
		lo, err := parseNumber(l.Value)
		if err != nil {
			return false, err
		}
		hi, err := parseNumber(l.ValueTo)
		if err != nil {
			return false, err
		}
		return val >= lo && val <= hi, nil
	}

	want, err := parseNumber(l.Value)
	if err != nil {
		return false, err
	}
	switch l.Operator {
	case OpGreater:
		return val > want, nil
	case OpLess:
		return val < want, nil
	case OpEqual:
		return val == want, nil
	case OpNotEqual:
		return val != want, nil
	}
	return false, fmt.Errorf("operator %q is not numeric", l.Operator)
}

func compareDate(l Leaf, val time.Time) (bool, error) {
	switch l.Operator {
	case OpBefore:
		want, err := parseDate(l.Value)
		if err != nil {
			return false, err
		}
		return val.Before(want), nil
	case OpAfter:
		want, err := parseDate(l.Value)
		if err != nil {
			return false, err
		}
		return val.After(want), nil
	case OpBetween:
		lo, err := parseDate(l.Value)
		if err != nil {
			return false, err
		}
		hi, err := parseDate(l.ValueTo)
		if err != nil {
			return false, err
		}
		// Both bounds inclusive.
		return !val.Before(lo) && !val.After(hi), nil
	}
	return false, fmt.Errorf("operator %q is not a date operator", l.Operator)
}

func compareString(l Leaf, val string) (bool, error) {
	switch l.Operator {
	case OpEqual:
		return val == l.Value, nil
	case OpNotEqual:
		return val != l.Value, nil
	case OpContains:
		return strings.Contains(val, l.Value), nil
	case OpIn, OpNotIn:
		found := false
		for _, member := range l.Values {
			if val == member {
				found = true
				break
			}
		}
		if l.Operator == OpIn {
			return found, nil
		}
		return !found, nil
	}
	return false, fmt.Errorf("operator %q is not a string operator", l.Operator)
}

// Match returns the subset of customers the tree matches, preserving the
// input order.
func Match(n Node, customers []domain.Customer, ectx EvalContext) ([]domain.Customer, error) {
	var out []domain.Customer
	for _, c := range customers {
		ok, err := Evaluate(n, c, ectx)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Count returns the number of matching customers. Count(n, cs) always
// equals len(Match(n, cs)).
func Count(n Node, customers []domain.Customer, ectx EvalContext) (int, error) {
	matched, err := Match(n, customers, ectx)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// parseComparand checks that a comparand literal parses for the given
// field kind. Returns the normalized value for reuse by callers.
func parseComparand(kind Kind, raw string) (any, error) {
	switch kind {
	case KindNumeric:
		return parseNumber(raw)
	case KindDate:
		return parseDate(raw)
	default:
		return raw, nil
	}
}

func parseNumber(raw string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return n, nil
}

// parseDate accepts bare dates and RFC 3339 timestamps.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}
