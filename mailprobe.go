// Package mailprobe checks whether an email address is deliverable without
// sending a message: syntax, DNS MX discovery, and an SMTP callout that
// stops after RCPT TO.
//
// Basic usage:
//
//	result, err := mailprobe.New(mailprobe.Config{}).Verify(ctx, "user@example.com")
//
// With an explicit identity, nameserver and logger:
//
//	v := mailprobe.New(mailprobe.Config{
//	    SenderIdentity: "verify@myapp.com",
//	    ClientHeloName: "myapp.com",
//	    Timeout:        10 * time.Second,
//	}).
//	    WithNameserver("1.1.1.1").
//	    WithLogger(logger)
//	results, err := v.VerifyMany(ctx, emails)
package mailprobe

import "github.com/optimode/mailprobe/types"

// Result is a re-export from the types package so that consumers
// don't need to import the types package directly.
type Result = types.Result

// Verdict is a re-export.
type Verdict = types.Verdict

// Verdict constants re-exported.
const (
	VerdictInvalidFormat               = types.VerdictInvalidFormat
	VerdictNoMailExchanger             = types.VerdictNoMailExchanger
	VerdictDomainAbsent                = types.VerdictDomainAbsent
	VerdictRecipientRejected           = types.VerdictRecipientRejected
	VerdictRecipientAccepted           = types.VerdictRecipientAccepted
	VerdictDomainValidUnknownRecipient = types.VerdictDomainValidUnknownRecipient
)

// Verdicts lists every verdict in pipeline order.
var Verdicts = types.Verdicts
