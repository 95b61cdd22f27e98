package check

import (
	"regexp"
)

// syntaxPattern is a conservative local@domain pattern: no quoted local
// parts, no internationalized domains, final label of two or more letters.
var syntaxPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidSyntax reports whether address is worth a network round trip.
// It never fails, it only returns false for non-conformant input.
func ValidSyntax(address string) bool {
	return syntaxPattern.MatchString(address)
}
