package check_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optimode/mailprobe/check"
	"github.com/optimode/mailprobe/internal/logging"
)

type lookupFunc func(ctx context.Context, domain string) ([]*net.MX, error)

func (f lookupFunc) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	return f(ctx, domain)
}

func staticMX(records []*net.MX, err error) check.MXLookup {
	return lookupFunc(func(context.Context, string) ([]*net.MX, error) {
		return records, err
	})
}

func TestMXResolver_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		records  []*net.MX
		lookErr  error
		wantOK   bool
		wantHost string
	}{
		{
			name:     "single record, trailing dot stripped",
			records:  []*net.MX{{Host: "mx.example.com.", Pref: 10}},
			wantOK:   true,
			wantHost: "mx.example.com",
		},
		{
			name: "lowest preference wins",
			records: []*net.MX{
				{Host: "mx2.example.com.", Pref: 20},
				{Host: "mx1.example.com.", Pref: 10},
				{Host: "mx3.example.com.", Pref: 30},
			},
			wantOK:   true,
			wantHost: "mx1.example.com",
		},
		{
			name: "tie keeps first",
			records: []*net.MX{
				{Host: "a.example.com.", Pref: 5},
				{Host: "b.example.com.", Pref: 5},
			},
			wantOK:   true,
			wantHost: "a.example.com",
		},
		{
			name:     "host is lower-cased",
			records:  []*net.MX{{Host: "MX.Example.COM.", Pref: 0}},
			wantOK:   true,
			wantHost: "mx.example.com",
		},
		{
			name:    "empty set",
			records: []*net.MX{},
			wantOK:  false,
		},
		{
			name:    "null MX",
			records: []*net.MX{{Host: ".", Pref: 0}},
			wantOK:  false,
		},
		{
			name:    "no such host",
			lookErr: &net.DNSError{Err: "no such host", IsNotFound: true},
			wantOK:  false,
		},
		{
			name:    "server failure",
			lookErr: &net.DNSError{Err: "server misbehaving", IsTemporary: true},
			wantOK:  false,
		},
		{
			name:    "timeout",
			lookErr: context.DeadlineExceeded,
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := check.NewMXResolver(staticMX(tt.records, tt.lookErr), logging.NewNop())
			mx, ok := r.Resolve(context.Background(), "example.com")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantHost, mx.Host)
		})
	}
}

func TestMXResolver_QueriesGivenDomain(t *testing.T) {
	var asked string
	r := check.NewMXResolver(lookupFunc(func(_ context.Context, domain string) ([]*net.MX, error) {
		asked = domain
		return nil, nil
	}), logging.NewNop())

	_, ok := r.Resolve(context.Background(), "example.org")
	assert.False(t, ok)
	assert.Equal(t, "example.org", asked)
}
