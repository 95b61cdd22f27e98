// Package dnsclient queries MX records from an explicit nameserver,
// bypassing the system resolver configuration.
package dnsclient

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

// Client sends MX queries over UDP and retries over TCP when the
// answer is truncated.
type Client struct {
	server string
	udp    *dns.Client
	tcp    *dns.Client
}

// New creates a client for server ("1.1.1.1" or "1.1.1.1:53").
func New(server string, timeout time.Duration) *Client {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &Client{
		server: server,
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

// Server returns the nameserver address queries are sent to.
func (c *Client) Server() string {
	return c.server
}

// LookupMX returns the MX records of name in the shape of net.Resolver.LookupMX.
// A non-success rcode is reported as *net.DNSError.
func (c *Client) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeMX)
	m.RecursionDesired = true

	in, _, err := c.udp.ExchangeContext(ctx, m, c.server)
	if err != nil {
		return nil, errors.Wrapf(err, "query MX %s via %s", name, c.server)
	}
	if in.Truncated {
		in, _, err = c.tcp.ExchangeContext(ctx, m, c.server)
		if err != nil {
			return nil, errors.Wrapf(err, "query MX %s via %s (tcp)", name, c.server)
		}
	}

	if in.Rcode != dns.RcodeSuccess {
		return nil, &net.DNSError{
			Err:        dns.RcodeToString[in.Rcode],
			Name:       name,
			Server:     c.server,
			IsNotFound: in.Rcode == dns.RcodeNameError,
		}
	}

	var out []*net.MX
	for _, rr := range in.Answer {
		if mx, ok := rr.(*dns.MX); ok {
			out = append(out, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	return out, nil
}
