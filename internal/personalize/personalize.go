// Package personalize resolves placeholder tokens in campaign content
// against a customer record.
//
// The dispatcher uses Personalize, which substitutes the fixed token set
// and passes unknown tokens through untouched, so a templating mistake
// can never abort a send. The richer Liquid renderer in this package is
// a preview-time tool only.
package personalize

import (
	"regexp"
	"strconv"

	"github.com/ignite/engage/internal/domain"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z][a-zA-Z0-9_]*)\s*\}\}`)

// Personalize substitutes the known placeholder tokens in template with
// the customer's attributes. Unknown tokens are left exactly as written;
// this function never fails.
//
// Supported tokens: firstName, name, email, totalSpend, visits.
func Personalize(template string, c domain.Customer) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		token := tokenPattern.FindStringSubmatch(match)[1]
		val, ok := tokenValue(token, c)
		if !ok {
			return match
		}
		return val
	})
}

func tokenValue(token string, c domain.Customer) (string, bool) {
	switch token {
	case "firstName":
		return c.FirstName(), true
	case "name":
		return c.Name, true
	case "email":
		return c.Email, true
	case "totalSpend":
		return strconv.FormatFloat(c.TotalSpend, 'f', -1, 64), true
	case "visits":
		return strconv.Itoa(c.Visits), true
	}
	return "", false
}
