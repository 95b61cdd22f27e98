// Package report renders verification results for people: a coloured
// terminal listing and a plain-text summary for notifications.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/optimode/mailprobe"
)

const rule = "=================================================="

var (
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
	unknown = color.New(color.FgYellow)
	faint   = color.New(color.Faint)
	bold    = color.New(color.Bold)
)

func statusColor(v mailprobe.Verdict) *color.Color {
	switch v {
	case mailprobe.VerdictRecipientAccepted:
		return good
	case mailprobe.VerdictDomainValidUnknownRecipient:
		return unknown
	}
	return bad
}

// Banner writes a framed title.
func Banner(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w, rule)
	_, _ = bold.Fprintln(w, title)
	_, _ = fmt.Fprintln(w, rule)
}

// Write renders one result. index is 1-based. Optional fields are
// printed only when the result carries them.
func Write(w io.Writer, index int, r mailprobe.Result) {
	_, _ = fmt.Fprintf(w, "\n[%d] Email: %s\n", index, r.Email)
	_, _ = fmt.Fprint(w, "  Status: ")
	_, _ = statusColor(r.Verdict).Fprintln(w, r.Verdict.Label())
	if r.MXHost != "" {
		_, _ = fmt.Fprintf(w, "  MX server: %s\n", r.MXHost)
	}
	if r.HasSMTPCode() {
		_, _ = fmt.Fprintf(w, "  SMTP code: %d\n", r.SMTPCode)
	}
	if r.Detail != "" {
		_, _ = fmt.Fprint(w, "  Details: ")
		_, _ = faint.Fprintln(w, r.Detail)
	}
}

// Totals writes the per-verdict counts after a listing.
func Totals(w io.Writer, results []mailprobe.Result) {
	counts := mailprobe.CountVerdicts(results)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, rule)
	for _, v := range mailprobe.Verdicts {
		if n := counts[v]; n > 0 {
			_, _ = statusColor(v).Fprintf(w, "%-32s %d\n", v.Label(), n)
		}
	}
	_, _ = fmt.Fprintf(w, "%-32s %d\n", "total", counts.Total())
}

// Summary renders results as plain text, without colour, for delivery
// through a chat channel.
func Summary(results []mailprobe.Result) string {
	counts := mailprobe.CountVerdicts(results)

	var b strings.Builder
	fmt.Fprintf(&b, "Email verification: %d address(es)\n", counts.Total())
	for _, v := range mailprobe.Verdicts {
		if n := counts[v]; n > 0 {
			fmt.Fprintf(&b, "%s: %d\n", v.Label(), n)
		}
	}
	b.WriteString("\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s: %s", i+1, r.Email, r.Verdict.Label())
		if r.HasSMTPCode() {
			fmt.Fprintf(&b, " (%d)", r.SMTPCode)
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// JSON writes results as a JSON array.
func JSON(w io.Writer, results []mailprobe.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if results == nil {
		results = []mailprobe.Result{}
	}
	return enc.Encode(results)
}
