package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTree(t *testing.T) {
	raw := []byte(`{
		"id": "root",
		"combinator": "AND",
		"rules": [
			{"id": "r1", "field": "total_spend", "operator": ">", "value": 5000},
			{
				"id": "g1",
				"combinator": "OR",
				"rules": [
					{"field": "visits", "operator": ">", "value": "10"},
					{"field": "last_visit", "operator": "before", "value": "2024-01-01"}
				]
			}
		]
	}`)

	node, err := Decode(raw)
	require.NoError(t, err)

	root, ok := node.(Group)
	require.True(t, ok, "root should decode as a group")
	assert.Equal(t, And, root.Combinator)
	require.Len(t, root.Rules, 2)

	leaf, ok := root.Rules[0].(Leaf)
	require.True(t, ok)
	assert.Equal(t, FieldTotalSpend, leaf.Field)
	assert.Equal(t, OpGreater, leaf.Operator)
	// Numeric JSON values normalize to their string form.
	assert.Equal(t, "5000", leaf.Value)

	inner, ok := root.Rules[1].(Group)
	require.True(t, ok)
	assert.Equal(t, Or, inner.Combinator)
	require.Len(t, inner.Rules, 2)

	require.Empty(t, Validate(node))
}

func TestDecodeLeafShapes(t *testing.T) {
	node, err := Decode([]byte(`{"field":"last_visit","operator":"between","value":"2024-01-01","valueTo":"2024-03-31"}`))
	require.NoError(t, err)
	leaf := node.(Leaf)
	assert.Equal(t, "2024-01-01", leaf.Value)
	assert.Equal(t, "2024-03-31", leaf.ValueTo)

	node, err = Decode([]byte(`{"field":"email","operator":"in","values":["a@x.com","b@y.com"]}`))
	require.NoError(t, err)
	assert.Len(t, node.(Leaf).Values, 2)

	_, err = Decode([]byte(`{"field":"visits","operator":">","value":{"nested":true}}`))
	assert.Error(t, err, "object comparands are rejected at decode time")

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeUnknownCombinator(t *testing.T) {
	_, err := Decode([]byte(`{"combinator":"XOR","rules":[]}`))
	assert.Error(t, err)
}

func TestValidateRejectsConfigurationErrors(t *testing.T) {
	cases := []struct {
		name string
		node Node
	}{
		{"unknown field", Leaf{Field: "shoe_size", Operator: OpGreater, Value: "9"}},
		{"unknown operator", Leaf{Field: FieldVisits, Operator: "~=", Value: "9"}},
		{"operator kind mismatch", Leaf{Field: FieldEmail, Operator: OpGreater, Value: "9"}},
		{"bad number", Leaf{Field: FieldVisits, Operator: OpGreater, Value: "many"}},
		{"bad date", Leaf{Field: FieldLastVisit, Operator: OpBefore, Value: "yesterday"}},
		{"between without upper bound", Leaf{Field: FieldTotalSpend, Operator: OpBetween, Value: "10"}},
		{"in without values", Leaf{Field: FieldVisits, Operator: OpIn}},
		{"nested bad leaf", Group{Combinator: And, Rules: []Node{
			Leaf{Field: FieldVisits, Operator: OpGreater, Value: "1"},
			Group{Combinator: Or, Rules: []Node{Leaf{Field: "bogus", Operator: OpEqual, Value: "x"}}},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEmpty(t, Validate(tc.node))
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tree := Group{
		Combinator: And,
		Rules: []Node{
			Leaf{Field: FieldTotalSpend, Operator: OpBetween, Value: "100", ValueTo: "5000"},
			Group{Combinator: Or, Rules: []Node{
				Leaf{Field: FieldEmail, Operator: OpIn, Values: []string{"a@x.com"}},
			}},
		},
	}

	data, err := Encode(tree)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, tree, back)
}
