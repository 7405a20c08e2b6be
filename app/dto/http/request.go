package http

type RegisterRequest struct {
	Name     string `form:"name" json:"name"`
	Fullname string `form:"fullname" json:"fullname"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// DisplayName prefers fullname and falls back to the legacy name field.
func (r RegisterRequest) DisplayName() string {
	if r.Fullname != "" {
		return r.Fullname
	}
	return r.Name
}

type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

type UpdateProfileRequest struct {
	Fullname string `form:"fullname" json:"fullname"`
	Email    string `form:"email" json:"email"`
}

type RequestPasswordResetRequest struct {
	Email string `form:"email" json:"email"`
}

type ConfirmPasswordResetRequest struct {
	Token       string `query:"token" form:"token" json:"token"`
	NewPassword string `form:"new_password" json:"new_password"`
}
