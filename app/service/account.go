package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/entity"
	"github.com/vibast-solutions/ms-go-accounts/app/mail"
	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/repository"
	"github.com/vibast-solutions/ms-go-accounts/app/security"
	"github.com/vibast-solutions/ms-go-accounts/app/session"
	"github.com/vibast-solutions/ms-go-accounts/app/storage"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/sirupsen/logrus"
)

const (
	MsgRegistered  = "User registered successfully"
	MsgLoginFirst  = "Login first!"
	MsgLoggedOut   = "User logged out successfully"
	MsgLoginToView = "Login to visit profile page!"

	ResetEmailSubject = "Password Reset Request"

	loginPath   = "/users/login"
	profilePath = "/users/profile"
	resetPath   = "/users/password-reset/confirm"

	mailTimeout = 30 * time.Second
)

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*entity.User, error)
	UpdateProfile(ctx context.Context, id uint64, fullname, email, imagePath string) error
	SetResetToken(ctx context.Context, id uint64, tokenHash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, userID uint64, tokenHash, passwordHash string, now time.Time) (bool, error)
}

type sessionManager interface {
	Login(w http.ResponseWriter, userID uint64) error
	CurrentUser(r *http.Request) (uint64, bool)
	Logout(w http.ResponseWriter, r *http.Request) error
}

type AccountService interface {
	Register(ctx context.Context, in dto.RegisterInput) (*dto.Outcome, error)
	Login(w http.ResponseWriter, r *http.Request, in dto.LoginInput) (*dto.Outcome, error)
	Logout(w http.ResponseWriter, r *http.Request) (*dto.Outcome, error)
	ViewProfile(r *http.Request) (*dto.Profile, error)
	UpdateProfile(r *http.Request, in dto.UpdateProfileInput) (*dto.Outcome, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	GetProfile(ctx context.Context, userID uint64) (*dto.Profile, error)
}

type AsyncRunner func(task func())

type AccountServiceOption func(*accountService)

type accountService struct {
	users       userRepository
	sessions    sessionManager
	hasher      security.PasswordHasher
	images      storage.ImageStore
	mailer      mail.Mailer
	cfg         *config.Config
	metrics     *metrics.Metrics
	now         func() time.Time
	asyncRunner AsyncRunner

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(
	users userRepository,
	sessions sessionManager,
	hasher security.PasswordHasher,
	images storage.ImageStore,
	mailer mail.Mailer,
	cfg *config.Config,
	opts ...AccountServiceOption,
) AccountService {
	svc := &accountService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		images:   images,
		mailer:   mailer,
		cfg:      cfg,
		now:      time.Now,
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithAsyncRunner(runner AsyncRunner) AccountServiceOption {
	return func(s *accountService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

func WithClock(now func() time.Time) AccountServiceOption {
	return func(s *accountService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *metrics.Metrics) AccountServiceOption {
	return func(s *accountService) {
		s.metrics = m
	}
}

func (s *accountService) Register(ctx context.Context, in dto.RegisterInput) (out *dto.Outcome, err error) {
	defer s.observe("register", &err)

	fullname := strings.TrimSpace(in.Fullname)
	if fullname == "" {
		return nil, ErrInvalidFullname
	}

	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	if err = s.cfg.Password.Policy.Validate(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &entity.User{
		Fullname:     fullname,
		Email:        email,
		PasswordHash: hash,
		ImagePath:    s.cfg.Images.DefaultPath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err = s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return &dto.Outcome{Redirect: loginPath, Message: MsgRegistered}, nil
}

func (s *accountService) Login(w http.ResponseWriter, r *http.Request, in dto.LoginInput) (out *dto.Outcome, err error) {
	defer s.observe("login", &err)

	email, emailErr := NormalizeEmail(in.Email)

	var user *entity.User
	if emailErr == nil {
		user, err = s.users.FindByEmail(r.Context(), email)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}

	if user == nil {
		// keep timing close to a real mismatch
		s.hasher.Verify(in.Password, s.dummyPasswordHash())
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if err = s.sessions.Login(w, user.ID); err != nil {
		return nil, err
	}

	return &dto.Outcome{Redirect: "/"}, nil
}

func (s *accountService) Logout(w http.ResponseWriter, r *http.Request) (out *dto.Outcome, err error) {
	defer s.observe("logout", &err)

	if err = s.sessions.Logout(w, r); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return &dto.Outcome{Redirect: loginPath, Message: MsgLoginFirst}, nil
		}
		return nil, err
	}

	return &dto.Outcome{Redirect: loginPath, Message: MsgLoggedOut}, nil
}

func (s *accountService) ViewProfile(r *http.Request) (out *dto.Profile, err error) {
	defer s.observe("view_profile", &err)

	userID, ok := s.sessions.CurrentUser(r)
	if !ok {
		return nil, ErrUnauthenticated
	}

	return s.profile(r.Context(), userID)
}

func (s *accountService) GetProfile(ctx context.Context, userID uint64) (*dto.Profile, error) {
	return s.profile(ctx, userID)
}

func (s *accountService) UpdateProfile(r *http.Request, in dto.UpdateProfileInput) (out *dto.Outcome, err error) {
	defer s.observe("update_profile", &err)

	ctx := r.Context()
	userID, ok := s.sessions.CurrentUser(r)
	if !ok {
		return nil, ErrUnauthenticated
	}

	fullname := strings.TrimSpace(in.Fullname)
	if fullname == "" {
		return nil, ErrInvalidFullname
	}
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	newImage := ""
	if in.Image != nil && in.Image.Filename != "" {
		newImage, err = s.images.Save(ctx, in.Image.Filename, in.Image.Content)
		if err != nil {
			if errors.Is(err, storage.ErrImageTooLarge) || errors.Is(err, storage.ErrUnsupportedImageType) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrFilesystem, err)
		}
	}

	imagePath := user.ImagePath
	if newImage != "" {
		imagePath = newImage
	}

	if err = s.users.UpdateProfile(ctx, user.ID, fullname, email, imagePath); err != nil {
		if newImage != "" {
			if delErr := s.images.Delete(ctx, newImage); delErr != nil {
				logrus.WithError(delErr).WithField("image_path", newImage).Warn("failed to remove orphaned profile image")
			}
		}
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrDuplicateEmail
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return &dto.Outcome{Redirect: profilePath}, nil
}

func (s *accountService) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer s.observe("request_password_reset", &err)

	email, err = NormalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if user == nil {
		return ErrNotFound
	}

	token, err := security.GenerateToken()
	if err != nil {
		return err
	}

	expiresAt := s.now().UTC().Add(s.cfg.Tokens.ResetTTL)
	if err = s.users.SetResetToken(ctx, user.ID, security.HashToken(token), expiresAt); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	to := user.Email
	body := "Click the following link to reset your password: " + s.resetURL(token)
	s.asyncRunner(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		if sendErr := s.mailer.Send(sendCtx, to, ResetEmailSubject, body); sendErr != nil {
			logrus.WithError(sendErr).WithField("user_id", user.ID).Error("failed to send password reset email")
			s.metrics.Observe("send_reset_email", metrics.OutcomeError)
			return
		}
		s.metrics.Observe("send_reset_email", metrics.OutcomeSuccess)
	})

	return nil
}

func (s *accountService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) (err error) {
	defer s.observe("confirm_password_reset", &err)

	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	digest := security.HashToken(token)
	user, err := s.users.FindByResetToken(ctx, digest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	now := s.now().UTC()
	if user == nil || !user.HasActiveResetToken(now) {
		return ErrInvalidOrExpiredToken
	}

	if err = s.cfg.Password.Policy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	consumed, err := s.users.ConsumeResetToken(ctx, user.ID, digest, hash, now)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !consumed {
		return ErrInvalidOrExpiredToken
	}

	return nil
}

func (s *accountService) profile(ctx context.Context, userID uint64) (*dto.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	return &dto.Profile{
		UserID:    user.ID,
		Fullname:  user.Fullname,
		Email:     user.Email,
		ImagePath: user.ImagePath,
		ImageURL:  s.images.URL(user.ImagePath),
	}, nil
}

func (s *accountService) resetURL(token string) string {
	return s.cfg.Tokens.ResetURLBase + resetPath + "?" + url.Values{"token": {token}}.Encode()
}

// hashPassword reports passwords bcrypt cannot take as ErrWeakPassword.
func (s *accountService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, security.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}
	return hash, err
}

func (s *accountService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		token, err := security.GenerateToken()
		if err != nil {
			token = "dummy-password"
		}
		if hash, err := s.hasher.Hash(token); err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func (s *accountService) observe(operation string, errp *error) {
	s.metrics.Observe(operation, outcomeOf(*errp))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrStorage), errors.Is(err, ErrFilesystem):
		return metrics.OutcomeError
	case IsBusinessError(err):
		return metrics.OutcomeFailure
	default:
		return metrics.OutcomeError
	}
}

// IsBusinessError reports whether err is an expected, client-caused failure.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrDuplicateEmail,
		ErrInvalidCredentials,
		ErrNotFound,
		ErrInvalidOrExpiredToken,
		ErrInvalidImage,
		ErrInvalidEmail,
		ErrInvalidFullname,
		ErrWeakPassword,
		ErrUnauthenticated,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
