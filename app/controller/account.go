package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	httpdto "github.com/vibast-solutions/ms-go-accounts/app/dto/http"
	"github.com/vibast-solutions/ms-go-accounts/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	MsgResetEmailSent = "Password reset email sent"
	MsgPasswordReset  = "Password successfully reset"
)

type AccountController struct {
	accounts service.AccountService
}

func NewAccountController(accounts service.AccountService) *AccountController {
	return &AccountController{accounts: accounts}
}

func (c *AccountController) Register(ctx echo.Context) error {
	var req httpdto.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	logrus.WithField("email", req.Email).Info("Register request received")
	out, err := c.accounts.Register(ctx.Request().Context(), dto.RegisterInput{
		Fullname: req.DisplayName(),
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			logrus.WithField("email", req.Email).Warn("Register failed: email already registered")
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: "Email already registered"})
		}
		if isValidationError(err) {
			logrus.WithField("email", req.Email).Debug("Register validation failed")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("User registered")
	return ctx.Redirect(http.StatusSeeOther, out.Location())
}

func (c *AccountController) Login(ctx echo.Context) error {
	var req httpdto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		logrus.Debug("Login validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "email and password are required"})
	}

	logrus.WithField("email", req.Email).Info("Login request received")
	out, err := c.accounts.Login(ctx.Response(), ctx.Request(), dto.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "Invalid credentials"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("Login successful")
	return ctx.Redirect(http.StatusSeeOther, out.Location())
}

func (c *AccountController) Logout(ctx echo.Context) error {
	out, err := c.accounts.Logout(ctx.Response(), ctx.Request())
	if err != nil {
		logrus.WithError(err).Error("Logout failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("message", out.Message).Info("Logout handled")
	return ctx.Redirect(http.StatusSeeOther, out.Location())
}

func (c *AccountController) Profile(ctx echo.Context) error {
	profile, err := c.accounts.ViewProfile(ctx.Request())
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			logrus.Debug("Profile requested without session")
			return redirectToLogin(ctx, service.MsgLoginToView)
		}
		if errors.Is(err, service.ErrNotFound) {
			logrus.Warn("Profile failed: user not found")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "User not found"})
		}
		logrus.WithError(err).Error("Profile failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, toProfileResponse(profile))
}

func (c *AccountController) UpdateProfile(ctx echo.Context) error {
	var req httpdto.UpdateProfileRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind update profile request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	in := dto.UpdateProfileInput{Fullname: req.Fullname, Email: req.Email}

	fileHeader, err := ctx.FormFile("image")
	switch {
	case err == nil && fileHeader.Filename != "":
		file, openErr := fileHeader.Open()
		if openErr != nil {
			logrus.WithError(openErr).Debug("Failed to open uploaded image")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid image upload"})
		}
		defer file.Close()
		in.Image = &dto.ImageUpload{Filename: fileHeader.Filename, Content: file}
	case err == nil, errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		logrus.WithError(err).Debug("Failed to read uploaded image")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid image upload"})
	}

	out, err := c.accounts.UpdateProfile(ctx.Request(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthenticated):
			logrus.Debug("Profile update without session")
			return redirectToLogin(ctx, service.MsgLoginFirst)
		case errors.Is(err, service.ErrDuplicateEmail):
			logrus.WithField("email", req.Email).Warn("Profile update failed: email already registered")
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: "Email already registered"})
		case errors.Is(err, service.ErrNotFound):
			logrus.Warn("Profile update failed: user not found")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "User not found"})
		case isValidationError(err):
			logrus.WithError(err).Debug("Profile update validation failed")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrFilesystem):
			logrus.WithError(err).Error("Profile update failed: image not saved")
			return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: service.ErrFilesystem.Error()})
		}
		logrus.WithError(err).Error("Profile update failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.Info("Profile updated")
	return ctx.Redirect(http.StatusSeeOther, out.Location())
}

func (c *AccountController) RequestPasswordReset(ctx echo.Context) error {
	var req httpdto.RequestPasswordResetRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind password reset request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	logrus.WithField("email", req.Email).Info("Password reset request received")
	if err := c.accounts.RequestPasswordReset(ctx.Request().Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logrus.WithField("email", req.Email).Warn("Password reset request failed: user not found")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "User not found"})
		}
		if errors.Is(err, service.ErrInvalidEmail) {
			logrus.WithField("email", req.Email).Debug("Password reset request validation failed")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Password reset request failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Msg: MsgResetEmailSent})
}

// ConfirmPasswordResetPage is the target of the emailed link. It echoes the
// token back so a client can post it together with the new password.
func (c *AccountController) ConfirmPasswordResetPage(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	if token == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "Invalid or expired token"})
	}
	return ctx.JSON(http.StatusOK, httpdto.PasswordResetTokenResponse{Token: token})
}

func (c *AccountController) ConfirmPasswordReset(ctx echo.Context) error {
	var req httpdto.ConfirmPasswordResetRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind password reset confirmation")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Token == "" {
		req.Token = ctx.QueryParam("token")
	}

	logrus.Info("Password reset confirmation received")
	if err := c.accounts.ConfirmPasswordReset(ctx.Request().Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredToken) {
			logrus.Warn("Password reset confirmation failed: invalid or expired token")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "Invalid or expired token"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			logrus.Debug("Password reset confirmation failed: weak password")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).Error("Password reset confirmation failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.Info("Password reset completed")
	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Msg: MsgPasswordReset})
}

func redirectToLogin(ctx echo.Context, message string) error {
	out := &dto.Outcome{Redirect: "/users/login", Message: message}
	return ctx.Redirect(http.StatusSeeOther, out.Location())
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidFullname) ||
		errors.Is(err, service.ErrInvalidEmail) ||
		errors.Is(err, service.ErrWeakPassword) ||
		errors.Is(err, service.ErrInvalidImage)
}

func toProfileResponse(p *dto.Profile) httpdto.ProfileResponse {
	return httpdto.ProfileResponse{
		UserID:    p.UserID,
		Fullname:  p.Fullname,
		Email:     p.Email,
		ImagePath: p.ImagePath,
		ImageURL:  p.ImageURL,
	}
}
