package email

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura/internal/delivery"
	dErrors "procura/pkg/domain-errors"
)

// stalledRelay accepts connections and never sends the SMTP greeting. It
// counts connections the client has closed.
type stalledRelay struct {
	host   string
	port   int
	closed atomic.Int32
}

func newStalledRelay(t *testing.T) *stalledRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	r := &stalledRelay{}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_, _ = bufio.NewReader(conn).ReadString('\n')
				r.closed.Add(1)
			}()
		}
	}()
	addr := ln.Addr().(*net.TCPAddr)
	r.host, r.port = addr.IP.String(), addr.Port
	return r
}

// fakeRelay speaks just enough SMTP to accept one message per connection and
// records the DATA section.
type fakeRelay struct {
	host string
	port int

	mu       sync.Mutex
	rcpts    []string
	messages []string
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	r := &fakeRelay{}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go r.serve(conn)
		}
	}()
	addr := ln.Addr().(*net.TCPAddr)
	r.host, r.port = addr.IP.String(), addr.Port
	return r
}

func (r *fakeRelay) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 fake.local ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250 fake.local")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			_ = tp.PrintfLine("250 ok")
		case strings.HasPrefix(cmd, "RCPT TO"):
			r.mu.Lock()
			r.rcpts = append(r.rcpts, line[len("RCPT TO:"):])
			r.mu.Unlock()
			_ = tp.PrintfLine("250 ok")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			r.mu.Lock()
			r.messages = append(r.messages, string(body))
			r.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func (r *fakeRelay) snapshot() (rcpts, messages []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rcpts...), append([]string(nil), r.messages...)
}

func TestSMTPSenderTimesOut(t *testing.T) {
	relay := newStalledRelay(t)
	sender := NewSMTPSender(Config{Host: relay.host, Port: relay.port, From: "noreply@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := sender.Send(ctx, delivery.Message{To: "a@example.com", Subject: "s", HTMLBody: "<p>b</p>"})
	require.Error(t, err)
	assert.ErrorIs(t, err, delivery.ErrTransportTimeout)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))

	assert.Eventually(t, func() bool { return relay.closed.Load() == 1 },
		time.Second, 10*time.Millisecond, "relay should see the session closed")
}

func TestSMTPSenderReleasesStalledSessions(t *testing.T) {
	relay := newStalledRelay(t)
	sender := NewSMTPSender(Config{Host: relay.host, Port: relay.port, From: "noreply@example.com"})

	const sends = 20
	for range sends {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		err := sender.Send(ctx, delivery.Message{To: "a@example.com", Subject: "s", HTMLBody: "b"})
		cancel()
		require.ErrorIs(t, err, delivery.ErrTransportTimeout)
	}

	assert.Eventually(t, func() bool { return relay.closed.Load() == sends },
		2*time.Second, 10*time.Millisecond, "every timed-out session should be torn down")
}

func TestSMTPSenderCancellationTearsDownSession(t *testing.T) {
	relay := newStalledRelay(t)
	sender := NewSMTPSender(Config{Host: relay.host, Port: relay.port, From: "noreply@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	err := sender.Send(ctx, delivery.Message{To: "a@example.com", Subject: "s", HTMLBody: "b"})
	require.ErrorIs(t, err, delivery.ErrTransportTimeout)
	assert.Eventually(t, func() bool { return relay.closed.Load() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestSMTPSenderDeliversThroughRelay(t *testing.T) {
	relay := newFakeRelay(t)
	sender := NewSMTPSender(Config{Host: relay.host, Port: relay.port, From: "noreply@example.com", FromName: "Procura"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := sender.Send(ctx, delivery.Message{
		To:       "ops@example.com",
		Subject:  "Manager assignment required",
		HTMLBody: "<p>Engineering has several managers</p>",
	})
	require.NoError(t, err)

	rcpts, messages := relay.snapshot()
	require.Len(t, rcpts, 1)
	assert.Contains(t, rcpts[0], "ops@example.com")
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Subject: Manager assignment required")
	assert.Contains(t, messages[0], "<noreply@example.com>")
	assert.Contains(t, messages[0], "Engineering has several managers")
}

func TestSMTPSenderRejectsUnreachableRelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	sender := NewSMTPSender(Config{Host: "127.0.0.1", Port: port, From: "noreply@example.com"})
	err = sender.Send(context.Background(), delivery.Message{To: "a@example.com", Subject: "s", HTMLBody: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, delivery.ErrTransportRejected)
}
