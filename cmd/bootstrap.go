package cmd

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/mail"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/app/security"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/app/session"
	"github.com/vibast-solutions/ms-go-accounts/app/storage"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

const (
	dbConnectRetries = 5
	dbConnectBackoff = 500 * time.Millisecond
	mailRetryBackoff = time.Second
)

// openDatabase connects with retries and applies migrations when enabled.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := repository.Open(cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return nil, err
	}

	backoff := retry.WithMaxRetries(dbConnectRetries, retry.NewExponential(dbConnectBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			logrus.WithError(pingErr).Warn("Database not reachable yet")
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err = repository.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			_ = db.Close()
			return nil, err
		}
		logrus.Info("Database migrations applied")
	}

	return db, nil
}

// newSessionManager falls back to in-memory revocation when rdb is nil.
func newSessionManager(cfg *config.Config, rdb redis.Cmdable) (*session.Manager, error) {
	secret, err := sessionSecret(cfg)
	if err != nil {
		return nil, err
	}

	opts := []session.Option{
		session.WithCookieName(cfg.Session.CookieName),
		session.WithTTL(cfg.Session.TTL),
		session.WithSecureCookie(cfg.Session.CookieSecure),
	}
	if rdb != nil {
		opts = append(opts, session.WithRevocationStore(session.NewRedisRevocationStore(rdb)))
	}

	return session.NewManager(secret, opts...)
}

func sessionSecret(cfg *config.Config) ([]byte, error) {
	if cfg.Session.Secret == "" {
		logrus.Warn("SESSION_SECRET not set, sessions will not survive a restart")
		return session.NewSecret()
	}
	if decoded, err := hex.DecodeString(cfg.Session.Secret); err == nil && len(decoded) >= 16 {
		return decoded, nil
	}
	return []byte(cfg.Session.Secret), nil
}

func newRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	if cfg.Images.Backend == config.ImageBackendS3 {
		return storage.NewS3ImageStoreFromConfig(ctx, storage.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PublicURL: cfg.S3.PublicURL,
			MaxBytes:  cfg.Images.MaxBytes,
		})
	}
	return storage.NewLocalImageStore(cfg.Images.Dir, "static", cfg.Images.MaxBytes), nil
}

func newMailer(cfg *config.Config) mail.Mailer {
	if cfg.Mail.SMTPHost == "" {
		logrus.Warn("SMTP_HOST not set, reset emails will only be logged")
		return mail.NewLogMailer()
	}

	smtpMailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		Username: cfg.Mail.SMTPUsername,
		Password: cfg.Mail.SMTPPassword,
		From:     cfg.Mail.From,
	})
	return mail.NewRetryingMailer(smtpMailer, cfg.Mail.Retries, mailRetryBackoff)
}

type accountDeps struct {
	db       *sql.DB
	redis    *redis.Client
	sessions *session.Manager
	metrics  *metrics.Metrics
	accounts service.AccountService
}

func (d *accountDeps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}

func buildAccountDeps(ctx context.Context, cfg *config.Config, opts ...service.AccountServiceOption) (*accountDeps, error) {
	deps := &accountDeps{metrics: metrics.New()}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps.db = db

	rdb, err := newRedisClient(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.redis = rdb

	var revocation redis.Cmdable
	if rdb != nil {
		revocation = rdb
	}
	deps.sessions, err = newSessionManager(cfg, revocation)
	if err != nil {
		deps.Close()
		return nil, err
	}

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}

	opts = append([]service.AccountServiceOption{service.WithMetrics(deps.metrics)}, opts...)
	deps.accounts = service.NewAccountService(
		repository.NewUserRepository(db),
		deps.sessions,
		security.NewBcryptHasher(cfg.Password.BcryptCost),
		images,
		newMailer(cfg),
		cfg,
		opts...,
	)

	return deps, nil
}

func listenAddr(host, port string) string {
	return net.JoinHostPort(host, port)
}
