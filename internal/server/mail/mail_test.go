package mail

import (
	"bufio"
	"context"
	"errors"
	"html"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

func TestConfirmationURL(t *testing.T) {
	got := ConfirmationURL("https://auth.example.com/", "u-1", "abc123")
	assert.Equal(t, "https://auth.example.com/v1/auth/verification/confirm?key=abc123&uid=u-1", got)
}

func TestConfirmationMessage_EmbedsURLTwice(t *testing.T) {
	u := ConfirmationURL("http://localhost:8080", "u-1", "c0de")

	msg, err := ConfirmationMessage(`"Credgate" <noreply@localhost>`, "alice@example.com", u)
	require.NoError(t, err)

	assert.Equal(t, ConfirmationSubject, msg.Subject)
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, 2, strings.Count(html.UnescapeString(msg.HTML), u))
}

// fakeSMTP speaks just enough SMTP for a client that does not need STARTTLS
// or AUTH. Commands it does not know are acknowledged with 250.
type fakeSMTP struct {
	ln       net.Listener
	mu       sync.Mutex
	from     string
	rcpt     string
	data     string
	rejectTo bool
}

func startFakeSMTP(t *testing.T, rejectTo bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeSMTP{ln: ln, rejectTo: rejectTo}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	write := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	write("220 localhost fake")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		upper := strings.ToUpper(cmd)
		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			write("250-localhost")
			write("250 8BITMIME")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			s.mu.Lock()
			s.from = cmd[len("MAIL FROM:"):]
			s.mu.Unlock()
			write("250 OK")
		case strings.HasPrefix(upper, "RCPT TO:"):
			if s.rejectTo {
				write("550 no such user")
				continue
			}
			s.mu.Lock()
			s.rcpt = cmd[len("RCPT TO:"):]
			s.mu.Unlock()
			write("250 OK")
		case upper == "DATA":
			write("354 go ahead")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			s.mu.Lock()
			s.data = b.String()
			s.mu.Unlock()
			write("250 queued")
		case upper == "QUIT":
			write("221 bye")
			return
		default:
			write("250 OK")
		}
	}
}

func TestSMTPSender_Send(t *testing.T) {
	srv := startFakeSMTP(t, false)

	sender, err := NewSMTPSender(srv.ln.Addr().String(), "", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = sender.Send(ctx, Message{
		From:    `"Credgate" <noreply@localhost>`,
		To:      "alice@example.com",
		Subject: ConfirmationSubject,
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Contains(t, srv.from, "<noreply@localhost>")
	assert.Contains(t, srv.rcpt, "<alice@example.com>")
	assert.Contains(t, srv.data, "Subject: Verify your account\r\n")
	assert.Contains(t, srv.data, "text/html")
	assert.Contains(t, srv.data, "Content-Transfer-Encoding: quoted-printable")
	assert.Contains(t, srv.data, "<p>hi</p>")
}

func TestSMTPSender_WrapsLongLines(t *testing.T) {
	srv := startFakeSMTP(t, false)

	sender, err := NewSMTPSender(srv.ln.Addr().String(), "", "")
	require.NoError(t, err)

	link := "http://localhost:8080/v1/auth/verification/confirm?key=" + strings.Repeat("ab", 600) + "&uid=u-1"
	msg, err := ConfirmationMessage("noreply@localhost", "alice@example.com", link)
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), msg))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.NotEmpty(t, srv.data)
	for _, line := range strings.Split(srv.data, "\r\n") {
		assert.LessOrEqual(t, len(line), 998, "line exceeds the SMTP limit: %.40q", line)
	}
	assert.NotContains(t, srv.data, strings.Repeat("ab", 100), "long runs must be soft-wrapped")
}

func TestSMTPSender_RecipientRejected(t *testing.T) {
	srv := startFakeSMTP(t, true)

	sender, err := NewSMTPSender(srv.ln.Addr().String(), "", "")
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{From: "noreply@localhost", To: "ghost@example.com", Subject: "s", HTML: "b"})
	require.Error(t, err)

	var sendErr *gomail.SendError
	require.True(t, errors.As(err, &sendErr), "got %v", err)
	assert.Equal(t, gomail.ErrSMTPRcptTo, sendErr.Reason)
}

func TestSMTPSender_BadAddresses(t *testing.T) {
	_, err := NewSMTPSender("no-port", "", "")
	require.Error(t, err)
	_, err = NewSMTPSender("localhost:smtp", "", "")
	require.Error(t, err)

	sender, err := NewSMTPSender("127.0.0.1:1", "", "")
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{From: "not an address", To: "a@b.c"})
	require.Error(t, err)
	err = sender.Send(context.Background(), Message{From: "a@b.c", To: "nope"})
	require.Error(t, err)
}

func TestSMTPSender_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	sender, err := NewSMTPSender(addr, "", "")
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{From: "a@b.c", To: "d@e.f"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp send")
}
