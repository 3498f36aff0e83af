// Package phone provides phone number normalization for contact matching.
//
// Numbers are matched by stripping formatting characters only. No country
// code canonicalization or digit validation is performed: "+1 (555) 123-4567"
// and "+15551234567" normalize to the same value, but "1-555-123-4567" and
// "555-123-4567" do not.
package phone

import "strings"

// formattingReplacer removes the characters callers commonly insert when
// formatting a phone number: spaces, hyphens, dots, and parentheses.
var formattingReplacer = strings.NewReplacer(
	" ", "",
	"-", "",
	".", "",
	"(", "",
	")", "",
)

// Normalize strips formatting characters from a phone number so it can be
// compared for exact equality. Idempotent.
func Normalize(number string) string {
	return formattingReplacer.Replace(number)
}
