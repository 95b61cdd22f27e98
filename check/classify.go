package check

import (
	"github.com/optimode/mailprobe/types"
)

// Classification is the verdict derived from a probe outcome.
type Classification struct {
	Verdict  types.Verdict
	SMTPCode int // set only for OutcomeReply
	Detail   string
}

// Fixed detail strings for the verdicts that carry no server text.
const (
	DetailInvalidFormat   = "invalid email format"
	DetailNoMailExchanger = "MX records missing or invalid"
	DetailRefused         = "connection refused"
	DetailAccepted        = "user exists"
	DetailDisconnected    = "server closed the connection (greylisting or protection)"
	DetailTimeout         = "connection timed out"
)

// Classify maps a probe outcome onto a verdict.
//
// Only 250, 550 and a refused connection are decisive. Every other reply
// code (temporary 4xx failures included) and every other transport fault
// lands in VerdictDomainValidUnknownRecipient: the exchanger exists, but it
// did not say whether the mailbox does. OutcomeCanceled says nothing about
// the exchanger; callers drop it instead of classifying it.
func Classify(o ProbeOutcome) Classification {
	switch o.Kind {
	case OutcomeReply:
		switch o.Code {
		case 250:
			return Classification{Verdict: types.VerdictRecipientAccepted, SMTPCode: o.Code, Detail: DetailAccepted}
		case 550:
			return Classification{Verdict: types.VerdictRecipientRejected, SMTPCode: o.Code, Detail: o.Text}
		default:
			return Classification{
				Verdict:  types.VerdictDomainValidUnknownRecipient,
				SMTPCode: o.Code,
				Detail:   "undetermined response: " + o.Text,
			}
		}
	case OutcomeRefused:
		return Classification{Verdict: types.VerdictDomainAbsent, Detail: DetailRefused}
	case OutcomeDisconnected:
		return Classification{Verdict: types.VerdictDomainValidUnknownRecipient, Detail: DetailDisconnected}
	case OutcomeTimeout:
		return Classification{Verdict: types.VerdictDomainValidUnknownRecipient, Detail: DetailTimeout}
	}

	detail := "error"
	if o.Err != nil {
		detail = "error: " + o.Err.Error()
	}
	return Classification{Verdict: types.VerdictDomainValidUnknownRecipient, Detail: detail}
}
