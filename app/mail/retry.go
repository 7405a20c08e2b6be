package mail

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// RetryingMailer retries failed sends with exponential backoff.
type RetryingMailer struct {
	next    Mailer
	retries uint64
	base    time.Duration
}

func NewRetryingMailer(next Mailer, retries int, base time.Duration) *RetryingMailer {
	if retries < 0 {
		retries = 0
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	return &RetryingMailer{next: next, retries: uint64(retries), base: base}
}

func (m *RetryingMailer) Send(ctx context.Context, to, subject, body string) error {
	backoff := retry.WithMaxRetries(m.retries, retry.NewExponential(m.base))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := m.next.Send(ctx, to, subject, body); err != nil {
			logrus.WithError(err).WithField("attempt", attempt).Debug("Mail send attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})
}
