package check

import (
	"context"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/optimode/mailprobe/internal/parse"
	"github.com/optimode/mailprobe/internal/smtpwire"
)

// OutcomeKind tags how a probe session ended.
type OutcomeKind int

const (
	// OutcomeReply means RCPT TO was answered; Code and Text are set.
	OutcomeReply OutcomeKind = iota
	OutcomeRefused
	OutcomeTimeout
	OutcomeDisconnected
	OutcomeTransportError
	// OutcomeCanceled means the caller's context ended first. It carries no
	// evidence about the exchanger and must not be classified.
	OutcomeCanceled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReply:
		return "reply"
	case OutcomeRefused:
		return "connection refused"
	case OutcomeTimeout:
		return "timed out"
	case OutcomeDisconnected:
		return "server disconnected"
	case OutcomeTransportError:
		return "transport error"
	case OutcomeCanceled:
		return "canceled"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// ProbeOutcome is the raw result of one probe session.
type ProbeOutcome struct {
	Kind OutcomeKind
	Code int    // RCPT TO reply code, OutcomeReply only
	Text string // RCPT TO reply text, OutcomeReply only
	Err  error  // underlying fault for the transport kinds
}

// SMTPConfig is the probe session configuration.
type SMTPConfig struct {
	HeloName string // sent with HELO
	MailFrom string // sent with MAIL FROM, never the address under test
	Timeout  time.Duration
	Port     string
}

// Prober runs the HELO / MAIL FROM / RCPT TO / QUIT callout against one
// exchanger. It never sends DATA.
type Prober struct {
	cfg  SMTPConfig
	dial smtpwire.DialFunc
	log  logrus.FieldLogger
}

func NewProber(cfg SMTPConfig, dial smtpwire.DialFunc, log logrus.FieldLogger) *Prober {
	if dial == nil {
		dial = smtpwire.DirectDialer()
	}
	return &Prober{cfg: cfg, dial: dial, log: log}
}

// Probe asks host whether it accepts email as a recipient.
// Every fault is converted into an outcome kind; the connection is closed
// on all paths.
func (p *Prober) Probe(ctx context.Context, email parse.Email, host string) ProbeOutcome {
	log := p.log.WithFields(logrus.Fields{"email": email.Raw, "mx": host})
	address := net.JoinHostPort(host, p.cfg.Port)

	conn, err := smtpwire.Dial(ctx, p.dial, address, p.cfg.Timeout)
	if err != nil {
		return p.fault(ctx, log, "connect", err)
	}
	defer func() { _ = conn.Close() }()

	greeting, err := conn.ReadReply()
	if err != nil {
		return p.fault(ctx, log, "greeting", err)
	}
	if !greeting.Positive() {
		return ProbeOutcome{
			Kind: OutcomeTransportError,
			Err:  errors.Errorf("connection rejected: %d %s", greeting.Code, greeting.Text()),
		}
	}

	// HELO and MAIL FROM replies are not decisive; a refused sender
	// surfaces as the RCPT TO reply.
	reply, err := conn.Cmd("HELO %s", p.cfg.HeloName)
	if err != nil {
		return p.fault(ctx, log, "HELO", err)
	}
	log.Tracef("HELO: %d", reply.Code)

	reply, err = conn.Cmd("MAIL FROM:<%s>", p.cfg.MailFrom)
	if err != nil {
		return p.fault(ctx, log, "MAIL FROM", err)
	}
	log.Tracef("MAIL FROM: %d", reply.Code)

	rcpt, err := conn.Cmd("RCPT TO:<%s>", email.Raw)
	if err != nil {
		return p.fault(ctx, log, "RCPT TO", err)
	}
	log.Debugf("RCPT TO: %d %s", rcpt.Code, rcpt.Text())

	conn.Quit()
	return ProbeOutcome{Kind: OutcomeReply, Code: rcpt.Code, Text: rcpt.Text()}
}

func (p *Prober) fault(ctx context.Context, log logrus.FieldLogger, step string, err error) ProbeOutcome {
	// a cancelled context closes the socket, so the I/O error it causes
	// says nothing about the server
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.WithError(ctxErr).Debugf("%s: aborted", step)
		return ProbeOutcome{Kind: OutcomeCanceled, Err: errors.Wrap(ctxErr, step)}
	}
	kind := transportKind(err)
	log.WithError(err).Debugf("%s: %s", step, kind)
	return ProbeOutcome{Kind: kind, Err: errors.Wrap(err, step)}
}

// transportKind maps a networking error onto the closed outcome set.
func transportKind(err error) OutcomeKind {
	var ne net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return OutcomeRefused
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &ne) && ne.Timeout():
		return OutcomeTimeout
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return OutcomeDisconnected
	}
	return OutcomeTransportError
}
