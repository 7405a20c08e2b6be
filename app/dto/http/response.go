package http

type ProfileResponse struct {
	UserID    uint64 `json:"user_id"`
	Fullname  string `json:"fullname"`
	Email     string `json:"email"`
	ImagePath string `json:"image_path"`
	ImageURL  string `json:"image_url"`
}

type PasswordResetTokenResponse struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Msg string `json:"msg"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
