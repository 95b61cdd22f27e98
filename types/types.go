// Package types contains the shared types for mailprobe.
// This package does not import anything from other mailprobe packages
// to avoid circular imports.
package types

// Verdict is the terminal classification of one address.
type Verdict string

const (
	VerdictInvalidFormat               Verdict = "invalid_format"
	VerdictNoMailExchanger             Verdict = "no_mail_exchanger"
	VerdictDomainAbsent                Verdict = "domain_absent"
	VerdictRecipientRejected           Verdict = "recipient_rejected"
	VerdictRecipientAccepted           Verdict = "recipient_accepted"
	VerdictDomainValidUnknownRecipient Verdict = "domain_valid_unknown_recipient"
)

// Verdicts lists every verdict in pipeline order.
var Verdicts = []Verdict{
	VerdictInvalidFormat,
	VerdictNoMailExchanger,
	VerdictDomainAbsent,
	VerdictRecipientRejected,
	VerdictRecipientAccepted,
	VerdictDomainValidUnknownRecipient,
}

var verdictLabels = map[Verdict]string{
	VerdictInvalidFormat:               "invalid email format",
	VerdictNoMailExchanger:             "no mail exchanger",
	VerdictDomainAbsent:                "domain absent",
	VerdictRecipientRejected:           "recipient does not exist",
	VerdictRecipientAccepted:           "recipient accepted",
	VerdictDomainValidUnknownRecipient: "domain valid, recipient unknown",
}

// Label returns a short human-readable form of the verdict.
func (v Verdict) Label() string {
	if l, ok := verdictLabels[v]; ok {
		return l
	}
	return string(v)
}

// DomainValid reports whether the verdict implies working mail
// infrastructure for the domain.
func (v Verdict) DomainValid() bool {
	switch v {
	case VerdictRecipientRejected, VerdictRecipientAccepted, VerdictDomainValidUnknownRecipient:
		return true
	}
	return false
}

// MXRecord is the mail exchanger selected for a domain.
type MXRecord struct {
	Host       string `json:"host"` // without the trailing root dot
	Preference uint16 `json:"preference"`
}

// Result is the outcome of verifying a single address.
// SMTPCode is zero unless an RCPT TO reply was received, and it is
// never set without MXHost.
type Result struct {
	Email    string  `json:"email"`
	Verdict  Verdict `json:"verdict"`
	MXHost   string  `json:"mxHost,omitempty"`
	SMTPCode int     `json:"smtpCode,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}

// HasSMTPCode reports whether an SMTP reply was received for RCPT TO.
func (r Result) HasSMTPCode() bool {
	return r.SMTPCode != 0
}
