package mail

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogMailer writes messages to the log instead of delivering them. It is used
// when no SMTP relay is configured.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// Send logs the envelope only. Bodies carry reset tokens and are never logged.
func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	logrus.WithFields(logrus.Fields{
		"to":         to,
		"subject":    subject,
		"body_bytes": len(body),
	}).Info("Mail delivery disabled, message not sent")
	return nil
}
