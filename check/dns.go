package check

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/optimode/mailprobe/internal/parse"
	"github.com/optimode/mailprobe/types"
)

// MXLookup is the MX query the resolver depends on.
// *dnscache.Cache satisfies it.
type MXLookup interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

// MXResolver selects the preferred mail exchanger of a domain.
type MXResolver struct {
	lookup MXLookup
	log    logrus.FieldLogger
}

func NewMXResolver(lookup MXLookup, log logrus.FieldLogger) *MXResolver {
	return &MXResolver{lookup: lookup, log: log}
}

// Resolve returns the lowest-preference exchanger for domain.
// Every failure (no such domain, no answer, empty set, null MX, timeout)
// is reported as false; the cause only goes to the debug log.
// The first record wins on equal preference, and no other exchanger is
// ever returned as a fallback.
func (r *MXResolver) Resolve(ctx context.Context, domain string) (types.MXRecord, bool) {
	log := r.log.WithField("domain", domain)

	records, err := r.lookup.LookupMX(ctx, domain)
	if err != nil {
		log.WithError(err).Debug("MX lookup failed")
		return types.MXRecord{}, false
	}
	if len(records) == 0 {
		log.Debug("no MX records")
		return types.MXRecord{}, false
	}

	best := records[0]
	for _, mx := range records[1:] {
		if mx.Pref < best.Pref {
			best = mx
		}
	}

	host, ok := parse.LookupName(best.Host)
	if !ok {
		// RFC 7505 null MX ("0 .") or an unusable host name
		log.WithField("host", best.Host).Debug("preferred MX host is unusable")
		return types.MXRecord{}, false
	}

	return types.MXRecord{Host: host, Preference: best.Pref}, true
}
