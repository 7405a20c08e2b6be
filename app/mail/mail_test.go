package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     "587",
		Username: "user",
		Password: "pass",
		From:     "no-reply@example.com",
	})
	m.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	var gotAddr, gotFrom string
	var gotTo []string
	var gotAuth smtp.Auth
	var gotMsg string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	err := m.Send(context.Background(), "a@x.com", "Password Reset Request", "line one\nline two")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "no-reply@example.com", gotFrom)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Password Reset Request\r\n")
	assert.Contains(t, gotMsg, "To: a@x.com\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\nline one\r\nline two\r\n")
}

func TestSMTPMailer_NoAuthWithoutUsername(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: "25", From: "f@x.com"})

	var gotAuth smtp.Auth
	m.send = func(_ string, a smtp.Auth, _ string, _ []string, _ []byte) error {
		gotAuth = a
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "a@x.com", "s", "b"))
	assert.Nil(t, gotAuth)
}

func TestSMTPMailer_HeaderInjection(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: "25", From: "f@x.com"})

	var gotMsg string
	m.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = string(msg)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "a@x.com", "hi\r\nBcc: evil@x.com", "b"))
	headers := strings.SplitN(gotMsg, "\r\n\r\n", 2)[0]
	assert.NotContains(t, headers, "\r\nBcc:")
}

func TestSMTPMailer_ErrorsAndCancellation(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: "25", From: "f@x.com"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	assert.Error(t, m.Send(context.Background(), "a@x.com", "s", "b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, "a@x.com", "s", "b"), context.Canceled)
}

type flakyMailer struct {
	failures int
	calls    int
}

func (f *flakyMailer) Send(context.Context, string, string, string) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("temporary failure")
	}
	return nil
}

func TestRetryingMailer_RetriesUntilSuccess(t *testing.T) {
	next := &flakyMailer{failures: 2}
	m := NewRetryingMailer(next, 3, time.Millisecond)

	require.NoError(t, m.Send(context.Background(), "a@x.com", "s", "b"))
	assert.Equal(t, 3, next.calls)
}

func TestRetryingMailer_GivesUp(t *testing.T) {
	next := &flakyMailer{failures: 10}
	m := NewRetryingMailer(next, 2, time.Millisecond)

	assert.Error(t, m.Send(context.Background(), "a@x.com", "s", "b"))
	assert.Equal(t, 3, next.calls)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, NewLogMailer().Send(context.Background(), "a@x.com", "s", "b"))
}

func TestLogMailer_DoesNotLogBody(t *testing.T) {
	hook := logrustest.NewGlobal()
	prevLevel := logrus.GetLevel()
	logrus.SetLevel(logrus.TraceLevel)
	t.Cleanup(func() {
		logrus.SetLevel(prevLevel)
		hook.Reset()
	})

	const token = "s3cr3t-reset-token"
	body := "Click the following link to reset your password: http://localhost:8080/users/password-reset/confirm?token=" + token
	require.NoError(t, NewLogMailer().Send(context.Background(), "a@x.com", "Password Reset Request", body))

	require.NotEmpty(t, hook.AllEntries())
	for _, entry := range hook.AllEntries() {
		line, err := entry.String()
		require.NoError(t, err)
		assert.NotContains(t, line, token)
	}
}
