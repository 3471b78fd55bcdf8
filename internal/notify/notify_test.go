package notify

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net"
	netmail "net/mail"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func TestNewPicksImplementation(t *testing.T) {
	assert.IsType(t, LogNotifier{}, New(config.MailConfig{Enabled: false, Host: "smtp.example.com"}))
	assert.IsType(t, LogNotifier{}, New(config.MailConfig{Enabled: true}))
	assert.IsType(t, &SMTPNotifier{}, New(config.MailConfig{Enabled: true, Host: "smtp.example.com", Port: 465}))

	assert.NoError(t, LogNotifier{}.SendWelcome(context.Background(), domain.User{Username: "anna"}))
}

func TestWelcomeMessage(t *testing.T) {
	n := NewSMTPNotifier(config.MailConfig{From: "noreply@example.com"})
	n.now = func() time.Time { return time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC) }

	m, err := n.buildWelcome(domain.User{Username: "anna", Email: "anna@example.com", StoreName: `Shop <"Best">`})
	require.NoError(t, err)

	var raw bytes.Buffer
	_, err = m.WriteTo(&raw)
	require.NoError(t, err)

	msg, err := netmail.ReadMessage(&raw)
	require.NoError(t, err)

	to, err := netmail.ParseAddress(msg.Header.Get("To"))
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", to.Address)

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, welcomeSubject, subject)

	date, err := msg.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var bodies []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(part)
		require.NoError(t, err)
		bodies = append(bodies, string(b))
	}

	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[0], "Добро пожаловать, anna!")
	assert.Contains(t, bodies[0], `Shop <"Best">`)
	assert.True(t, strings.Contains(bodies[1], "Shop &lt;&#34;Best&#34;&gt;"), bodies[1])
}

func TestWelcomeRejectsBadRecipient(t *testing.T) {
	n := NewSMTPNotifier(config.MailConfig{From: "noreply@example.com"})
	_, err := n.buildWelcome(domain.User{Username: "anna", Email: "not an address"})
	assert.Error(t, err)
}

func TestSendWelcomeStopsAtContextDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Accept and hold the connection without ever sending the 220 greeting.
	held := make(chan net.Conn, 1)
	go func() {
		if conn, err := ln.Accept(); err == nil {
			held <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-held:
			_ = conn.Close()
		default:
		}
	}()

	host, portRaw, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portRaw)
	require.NoError(t, err)

	n := NewSMTPNotifier(config.MailConfig{Enabled: true, Host: host, Port: port, From: "noreply@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- n.SendWelcome(ctx, domain.User{Username: "anna", Email: "anna@example.com"})
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("SendWelcome ignored the context deadline")
	}
}

func TestSendWelcomeExpiredContext(t *testing.T) {
	n := NewSMTPNotifier(config.MailConfig{Enabled: true, Host: "127.0.0.1", Port: 25, From: "noreply@example.com"})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := n.SendWelcome(ctx, domain.User{Username: "anna", Email: "anna@example.com"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
