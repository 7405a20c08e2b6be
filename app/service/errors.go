package service

import "errors"

var (
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrNotFound              = errors.New("user not found")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrStorage               = errors.New("storage failure")
	ErrFilesystem            = errors.New("an error occurred while saving the image")
	ErrInvalidImage          = errors.New("invalid image")
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrInvalidFullname       = errors.New("fullname is required")
	ErrWeakPassword          = errors.New("password does not meet policy requirements")
	ErrUnauthenticated       = errors.New("not logged in")
)
