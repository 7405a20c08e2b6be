package dto

import (
	"io"
	"net/url"
)

// Outcome is the result of an account operation that ends in a redirect.
type Outcome struct {
	Redirect string
	Message  string
}

// Location returns the redirect target with the message as a query parameter.
func (o *Outcome) Location() string {
	if o.Message == "" {
		return o.Redirect
	}
	return o.Redirect + "?" + url.Values{"message": {o.Message}}.Encode()
}

type Profile struct {
	UserID    uint64
	Fullname  string
	Email     string
	ImagePath string
	ImageURL  string
}

type RegisterInput struct {
	Fullname string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type ImageUpload struct {
	Filename string
	Content  io.Reader
}

type UpdateProfileInput struct {
	Fullname string
	Email    string
	Image    *ImageUpload
}
