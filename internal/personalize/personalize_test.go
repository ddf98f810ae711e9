package personalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/engage/internal/domain"
)

var jane = domain.Customer{
	Name:       "Jane Cooper",
	Email:      "jane@example.com",
	TotalSpend: 1250.5,
	Visits:     7,
}

func TestPersonalize(t *testing.T) {
	cases := []struct {
		name     string
		template string
		want     string
	}{
		{"first name", "Hi {{firstName}}!", "Hi Jane!"},
		{"first name with spaces", "Hi {{ firstName }}!", "Hi Jane!"},
		{"full name", "Dear {{name}},", "Dear Jane Cooper,"},
		{"email", "Sent to {{email}}", "Sent to jane@example.com"},
		{"spend and visits", "{{totalSpend}} over {{visits}} visits", "1250.5 over 7 visits"},
		{"unknown token passes through", "Hi {{nickname}}", "Hi {{nickname}}"},
		{"mixed known and unknown", "Hi {{firstName}}, your code is {{promoCode}}", "Hi Jane, your code is {{promoCode}}"},
		{"no tokens", "Plain text", "Plain text"},
		{"empty template", "", ""},
		{"repeated token", "{{firstName}} {{firstName}}", "Jane Jane"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Personalize(tc.template, jane))
		})
	}
}

func TestPersonalizeSingleWordName(t *testing.T) {
	c := domain.Customer{Name: "Cher"}
	assert.Equal(t, "Hi Cher!", Personalize("Hi {{firstName}}!", c))
}

func TestRichRenderer(t *testing.T) {
	r := NewRichRenderer()

	out, err := r.Render(`Hi {{ first_name | default: "there" }}!`, jane)
	require.NoError(t, err)
	assert.Equal(t, "Hi Jane!", out)

	out, err = r.Render(`Hi {{ first_name | default: "there" }}!`, domain.Customer{})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", out)

	out, err = r.Render(`{{ name | capitalize }}`, domain.Customer{Name: "jane"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", out)

	_, err = r.Render(`{% if %}`, jane)
	assert.Error(t, err, "malformed templates fail loudly in preview")
}
