package parse

import (
	"strings"

	"golang.org/x/net/idna"
)

// Email is the internal representation of a parsed email address.
// The check/ packages receive this as parameter.
type Email struct {
	Raw          string // the input exactly as given
	Local        string // the part before the last @
	Domain       string // the part after the last @, original casing (for RCPT TO)
	LookupDomain string // lower-cased ASCII domain (for DNS)
	Valid        bool   // false if Raw has no local part or no domain
}

// NewEmail splits raw into its local part and domain.
// Raw is never modified: the address under test is echoed and probed
// exactly as the caller supplied it.
func NewEmail(raw string) Email {
	atIdx := strings.LastIndex(raw, "@")
	if atIdx < 1 || atIdx >= len(raw)-1 {
		return Email{Raw: raw, Valid: false}
	}

	local := raw[:atIdx]
	domain := raw[atIdx+1:]

	lookup, ok := LookupName(domain)
	if !ok {
		return Email{Raw: raw, Valid: false}
	}

	return Email{
		Raw:          raw,
		Local:        local,
		Domain:       domain,
		LookupDomain: lookup,
		Valid:        true,
	}
}

// LookupName normalises a domain or host name for DNS and SMTP use:
// lower-cased, trailing root dot removed, IDN labels converted to Punycode.
// ok is false for an empty name or one that fails IDNA2008 conversion.
func LookupName(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	if name == "" {
		return "", false
	}

	for _, r := range name {
		if r > 127 {
			a, err := idna.Lookup.ToASCII(name)
			if err != nil {
				return "", false
			}
			return a, true
		}
	}
	return name, true
}
