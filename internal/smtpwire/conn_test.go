package smtpwire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadReply(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCode  int
		wantText  string
		wantError bool
	}{
		{"single line", "250 OK\r\n", 250, "OK", false},
		{"bare code", "250\r\n", 250, "", false},
		{"enhanced code kept", "550 5.1.1 <x@example.com>: Recipient address rejected\r\n", 550, "5.1.1 <x@example.com>: Recipient address rejected", false},
		{"multi line", "250-mx.example.com\r\n250-SIZE 1000\r\n250 HELP\r\n", 250, "mx.example.com\nSIZE 1000\nHELP", false},
		{"lf only", "221 Bye\n", 221, "Bye", false},
		{"too short", "25\r\n", 0, "", true},
		{"not a code", "abc hello\r\n", 0, "", true},
		{"eof mid reply", "250-first\r\n", 0, "", true},
		{"line at limit", "250 " + strings.Repeat("x", 506) + "\r\n", 250, strings.Repeat("x", 506), false},
		{"line over limit", "250 " + strings.Repeat("x", 507) + "\r\n", 0, "", true},
		{"too many lines", strings.Repeat("250-x\r\n", 100) + "250 end\r\n", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := readReply(bufio.NewReader(strings.NewReader(tt.input)))
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, r.Code)
			assert.Equal(t, tt.wantText, r.Text())
		})
	}
}

// endless never produces a newline.
type endless struct{}

func (endless) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestReadReply_EndlessLineFails(t *testing.T) {
	_, err := readReply(bufio.NewReader(io.MultiReader(strings.NewReader("250 "), endless{})))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedReply))
}

func TestReadReply_EOFIsUnwrapped(t *testing.T) {
	_, err := readReply(bufio.NewReader(strings.NewReader("")))
	assert.True(t, errors.Is(err, io.EOF))
}

func pipeDialer(serve func(server net.Conn)) DialFunc {
	return func(_ context.Context, _, _ string) (net.Conn, error) {
		client, server := net.Pipe()
		go serve(server)
		return client, nil
	}
}

func TestConn_Conversation(t *testing.T) {
	seen := make(chan string, 4)
	dial := pipeDialer(func(server net.Conn) {
		defer func() { _ = server.Close() }()
		_, _ = fmt.Fprint(server, "220 stub ESMTP\r\n")
		r := bufio.NewReader(server)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			seen <- strings.TrimRight(line, "\r\n")
			if strings.HasPrefix(line, "QUIT") {
				_, _ = fmt.Fprint(server, "221 Bye\r\n")
				return
			}
			_, _ = fmt.Fprint(server, "250 OK\r\n")
		}
	})

	c, err := Dial(context.Background(), dial, "mx.example.com:25", time.Second)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	greeting, err := c.ReadReply()
	require.NoError(t, err)
	assert.Equal(t, 220, greeting.Code)
	assert.True(t, greeting.Positive())

	reply, err := c.Cmd("HELO %s", "verify.local")
	require.NoError(t, err)
	assert.Equal(t, 250, reply.Code)
	assert.Equal(t, "HELO verify.local", <-seen)

	c.Quit()
	assert.Equal(t, "QUIT", <-seen)
}

func TestConn_TimeoutOnSilentServer(t *testing.T) {
	dial := pipeDialer(func(server net.Conn) {
		// accept and never speak
		_, _ = io.Copy(io.Discard, server)
	})

	c, err := Dial(context.Background(), dial, "mx.example.com:25", 50*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.ReadReply()
	require.Error(t, err)
	var ne net.Error
	require.True(t, errors.As(err, &ne))
	assert.True(t, ne.Timeout())
}

func TestConn_CancelClosesSocket(t *testing.T) {
	closed := make(chan struct{})
	dial := pipeDialer(func(server net.Conn) {
		_, _ = io.Copy(io.Discard, server)
		close(closed)
	})

	ctx, cancel := context.WithCancel(context.Background())
	c, err := Dial(ctx, dial, "mx.example.com:25", time.Minute)
	require.NoError(t, err)

	cancel()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not closed on cancellation")
	}
	assert.NoError(t, c.Close())
}

func TestConn_CloseTwice(t *testing.T) {
	dial := pipeDialer(func(server net.Conn) { _, _ = io.Copy(io.Discard, server) })

	c, err := Dial(context.Background(), dial, "mx.example.com:25", time.Second)
	require.NoError(t, err)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestDial_Error(t *testing.T) {
	dial := func(context.Context, string, string) (net.Conn, error) {
		return nil, io.ErrClosedPipe
	}
	_, err := Dial(context.Background(), dial, "mx.example.com:25", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
	assert.Contains(t, err.Error(), "connect to mx.example.com:25")
}

func TestProxyDialer(t *testing.T) {
	_, err := ProxyDialer("socks5://127.0.0.1:1080")
	assert.NoError(t, err)

	_, err = ProxyDialer("gopher://127.0.0.1:70")
	assert.Error(t, err)

	_, err = ProxyDialer("://bad")
	assert.Error(t, err)
}
