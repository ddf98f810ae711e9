package personalize

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/engage/internal/domain"
)

// RichRenderer renders campaign content through the Liquid template
// language for the content-preview endpoint, where authors want filters
// and defaults ({{ first_name | default: "there" }}) beyond the plain
// token substitution used on the send path.
type RichRenderer struct {
	engine *liquid.Engine
}

// NewRichRenderer creates a Liquid renderer with the CRM filters
// registered.
func NewRichRenderer() *RichRenderer {
	engine := liquid.NewEngine()

	// Default value filter: {{ first_name | default: "there" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// Capitalize first letter: {{ name | capitalize }}
	engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	})

	return &RichRenderer{engine: engine}
}

// Render resolves the template against the customer's attributes.
// Unlike Personalize, a malformed template is an error here: previews
// should surface authoring mistakes, not hide them.
func (r *RichRenderer) Render(template string, c domain.Customer) (string, error) {
	bindings := map[string]interface{}{
		"first_name":  c.FirstName(),
		"name":        c.Name,
		"email":       c.Email,
		"total_spend": c.TotalSpend,
		"visits":      c.Visits,
	}
	out, err := r.engine.ParseAndRenderString(template, bindings)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}
