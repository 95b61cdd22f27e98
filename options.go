package mailprobe

import (
	"strings"
	"time"
)

// Config is the construction-time configuration of a Verifier.
// Zero values are replaced by the defaults below.
type Config struct {
	// SenderIdentity is the address sent with MAIL FROM. Default: verify@example.com
	SenderIdentity string
	// ClientHeloName is the name sent with HELO. Default: verify.local
	ClientHeloName string
	// Timeout bounds the MX lookup, the TCP connect and every SMTP round trip.
	// Default: 10s
	Timeout time.Duration
	// Port is the SMTP port of the exchanger. Default: 25
	Port string
	// CacheTTL is how long MX answers are reused within this Verifier. Default: 5m
	CacheTTL time.Duration
}

const (
	DefaultSenderIdentity = "verify@example.com"
	DefaultClientHeloName = "verify.local"
	DefaultTimeout        = 10 * time.Second
	DefaultPort           = "25"
	DefaultCacheTTL       = 5 * time.Minute
)

// withDefaults fills unset fields. Only a negative Timeout is left as is,
// so that validate can reject it.
func (c Config) withDefaults() Config {
	if c.SenderIdentity == "" {
		c.SenderIdentity = DefaultSenderIdentity
	}
	if c.ClientHeloName == "" {
		c.ClientHeloName = DefaultClientHeloName
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	return c
}

func (c Config) validate() error {
	if c.Timeout < 0 {
		return ErrInvalidConfig
	}
	// these end up verbatim on an SMTP command line
	for _, v := range []string{c.SenderIdentity, c.ClientHeloName, c.Port} {
		if strings.ContainsAny(v, " \t\r\n<>") {
			return ErrInvalidConfig
		}
	}
	return nil
}

// ConcurrencyOptions configures concurrent processing for VerifyMany and VerifyEach.
type ConcurrencyOptions struct {
	// Workers is the number of concurrent goroutines. Default: 5
	Workers int
}

func (o ConcurrencyOptions) workers(n int) int {
	w := o.Workers
	if w <= 0 {
		w = 5
	}
	if w > n {
		w = n
	}
	return w
}
