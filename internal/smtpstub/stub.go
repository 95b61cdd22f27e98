// Package smtpstub provides throwaway SMTP servers on loopback for tests
// of the probe session and the verifier.
package smtpstub

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/emersion/go-smtp"
)

// RcptFunc decides the reply to RCPT TO. Returning nil accepts the recipient,
// an *smtp.SMTPError rejects it with that code and text.
type RcptFunc func(to string) error

// Reject builds an RCPT TO reply without an enhanced status code, so the
// server writes exactly "<code> <message>".
func Reject(code int, message string) error {
	return &smtp.SMTPError{Code: code, EnhancedCode: smtp.NoEnhancedCode, Message: message}
}

// Server is a go-smtp server listening on 127.0.0.1.
type Server struct {
	Addr string // host:port
	Host string
	Port string

	mu    sync.Mutex
	rcpts []string
	mails []string
	datas int
}

// Start runs a go-smtp server whose RCPT TO answers come from rcpt.
// It is shut down when the test ends.
func Start(t testing.TB, rcpt RcptFunc) *Server {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("smtpstub: listen: %v", err)
	}

	s := &Server{Addr: l.Addr().String()}
	s.Host, s.Port, _ = net.SplitHostPort(s.Addr)

	srv := smtp.NewServer(&backend{stub: s, rcpt: rcpt})
	srv.Domain = "stub.test"
	srv.AllowInsecureAuth = true

	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })
	return s
}

// Recipients returns every RCPT TO argument received so far.
func (s *Server) Recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.rcpts...)
}

// Senders returns every MAIL FROM argument received so far.
func (s *Server) Senders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.mails...)
}

// DataCommands returns how many DATA transactions were attempted.
func (s *Server) DataCommands() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datas
}

type backend struct {
	stub *Server
	rcpt RcptFunc
}

func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{b: b}, nil
}

type session struct {
	b *backend
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.b.stub.mu.Lock()
	s.b.stub.mails = append(s.b.stub.mails, from)
	s.b.stub.mu.Unlock()
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.b.stub.mu.Lock()
	s.b.stub.rcpts = append(s.b.stub.rcpts, to)
	s.b.stub.mu.Unlock()
	if s.b.rcpt == nil {
		return nil
	}
	return s.b.rcpt(to)
}

func (s *session) Data(r io.Reader) error {
	s.b.stub.mu.Lock()
	s.b.stub.datas++
	s.b.stub.mu.Unlock()
	_, err := io.Copy(io.Discard, r)
	return err
}

func (s *session) Reset() {}

func (s *session) Logout() error { return nil }

// Script is a raw line-level server for behaviour go-smtp will not produce:
// dropping the connection, going silent, odd greetings. It counts open
// connections so tests can check that the client released its socket.
type Script struct {
	Addr string
	Host string
	Port string

	open     atomic.Int64
	accepted atomic.Int64
	closed   chan struct{}
}

// Handler drives one accepted connection. Returning ends the connection
// from the server side; a handler that wants to wait for the client to
// hang up should call Drain.
type Handler func(conn net.Conn, r *bufio.Reader)

// StartScript serves every connection with h.
func StartScript(t testing.TB, h Handler) *Script {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("smtpstub: listen: %v", err)
	}

	s := &Script{Addr: l.Addr().String(), closed: make(chan struct{}, 64)}
	s.Host, s.Port, _ = net.SplitHostPort(s.Addr)

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			s.accepted.Add(1)
			s.open.Add(1)
			go func() {
				defer func() {
					_ = conn.Close()
					s.open.Add(-1)
					select {
					case s.closed <- struct{}{}:
					default:
					}
				}()
				h(conn, bufio.NewReader(conn))
			}()
		}
	}()
	t.Cleanup(func() { _ = l.Close() })
	return s
}

// Open returns the number of connections the server still holds.
func (s *Script) Open() int64 { return s.open.Load() }

// Accepted returns the number of connections accepted so far.
func (s *Script) Accepted() int64 { return s.accepted.Load() }

// Closed receives once per finished connection.
func (s *Script) Closed() <-chan struct{} { return s.closed }

// Expect reads one command line and checks its verb.
func Expect(r *bufio.Reader, verb string) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return err
	}
	if !strings.HasPrefix(strings.ToUpper(line), verb) {
		return fmt.Errorf("smtpstub: got %q, want %s", strings.TrimSpace(line), verb)
	}
	return nil
}

// Drain blocks until the client closes its side of the connection.
func Drain(r *bufio.Reader) {
	_, _ = io.Copy(io.Discard, r)
}

// Send writes raw reply lines, each terminated with CRLF.
func Send(conn net.Conn, lines ...string) {
	for _, l := range lines {
		_, _ = fmt.Fprintf(conn, "%s\r\n", l)
	}
}

// RefusedAddr returns a loopback host and port with nothing listening.
func RefusedAddr(t testing.TB) (host, port string) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("smtpstub: listen: %v", err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		t.Fatalf("smtpstub: close: %v", err)
	}
	host, port, _ = net.SplitHostPort(addr)
	return host, port
}
