// Package smtpwire is the line-level SMTP client used by the probe session:
// dialing, deadline-bounded command round trips and reply parsing.
package smtpwire

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DialFunc opens the TCP connection to an exchanger.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ErrMalformedReply is returned for reply lines that do not start with a
// three-digit code, and for replies over the RFC 5321 size limits.
var ErrMalformedReply = errors.New("smtpwire: malformed reply")

// Reply is one (possibly multi-line) server reply.
type Reply struct {
	Code  int
	Lines []string // text of each line with the code and separator removed
}

// Text joins the reply lines with newlines, keeping any enhanced status
// code or other decoration the server sent.
func (r Reply) Text() string {
	return strings.Join(r.Lines, "\n")
}

// Positive reports a 2xx reply.
func (r Reply) Positive() bool {
	return r.Code >= 200 && r.Code < 300
}

// Conn is a single SMTP client connection. It is not safe for concurrent
// use; the probe session owns it exclusively.
type Conn struct {
	netConn   net.Conn
	reader    *bufio.Reader
	writer    *bufio.Writer
	timeout   time.Duration
	closeOnce sync.Once
	closeErr  error
	stop      func() bool
}

// Dial connects to address. Every later round trip is bounded by timeout,
// and cancelling ctx closes the socket at once, which unblocks any
// in-flight read or write.
func Dial(ctx context.Context, dial DialFunc, address string, timeout time.Duration) (*Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	netConn, err := dial(dctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", address)
	}

	c := &Conn{
		netConn: netConn,
		reader:  bufio.NewReader(netConn),
		writer:  bufio.NewWriter(netConn),
		timeout: timeout,
	}
	c.stop = context.AfterFunc(ctx, func() { _ = c.closeSocket() })
	return c, nil
}

// ReadReply reads the next reply, e.g. the greeting.
func (c *Conn) ReadReply() (Reply, error) {
	if err := c.netConn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return Reply{}, errors.Wrap(err, "set deadline")
	}
	return readReply(c.reader)
}

// Cmd sends one command line and reads its reply.
func (c *Conn) Cmd(format string, args ...interface{}) (Reply, error) {
	if err := c.netConn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return Reply{}, errors.Wrap(err, "set deadline")
	}
	if _, err := fmt.Fprintf(c.writer, format+"\r\n", args...); err != nil {
		return Reply{}, err
	}
	if err := c.writer.Flush(); err != nil {
		return Reply{}, err
	}
	return readReply(c.reader)
}

// Quit sends QUIT and waits briefly for the reply; errors are ignored
// because the connection is closed right after.
func (c *Conn) Quit() {
	_ = c.netConn.SetDeadline(time.Now().Add(min(c.timeout, 2*time.Second)))
	_, _ = c.writer.WriteString("QUIT\r\n")
	if c.writer.Flush() == nil {
		_, _ = readReply(c.reader)
	}
}

// Close releases the connection. Safe to call more than once.
func (c *Conn) Close() error {
	if c.stop != nil {
		c.stop()
	}
	return c.closeSocket()
}

// closeSocket may run on the context's goroutine, so it must not touch
// stop, which the owner is still writing in Dial.
func (c *Conn) closeSocket() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.netConn.Close()
	})
	return c.closeErr
}

// RFC 5321 limits a reply line to 512 octets including CRLF.
const (
	maxReplyLine  = 512
	maxReplyLines = 100
)

// readReply reads a (possibly multi-line) SMTP reply.
func readReply(r *bufio.Reader) (Reply, error) {
	var reply Reply
	for {
		if len(reply.Lines) == maxReplyLines {
			return Reply{}, errors.Wrapf(ErrMalformedReply, "more than %d lines", maxReplyLines)
		}
		line, err := readLine(r)
		if err != nil {
			return Reply{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return Reply{}, errors.Wrapf(ErrMalformedReply, "%q", line)
		}
		code, err := strconv.Atoi(line[:3])
		if err != nil || code < 100 || code > 599 {
			return Reply{}, errors.Wrapf(ErrMalformedReply, "%q", line)
		}
		reply.Code = code

		text := ""
		if len(line) > 4 {
			text = line[4:]
		}
		reply.Lines = append(reply.Lines, text)

		// a '-' after the code marks a continuation line
		if len(line) < 4 || line[3] != '-' {
			return reply, nil
		}
	}
}

// readLine reads up to and including '\n', failing once the line grows
// past maxReplyLine instead of buffering whatever the peer sends.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(buf)+len(chunk) > maxReplyLine {
			return "", errors.Wrapf(ErrMalformedReply, "line longer than %d bytes", maxReplyLine)
		}
		buf = append(buf, chunk...)
		switch {
		case err == nil:
			return string(buf), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return "", err
		}
	}
}
