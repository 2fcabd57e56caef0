package httpserver

import (
	"time"

	"github.com/MrEthical07/forumauth"
	"github.com/MrEthical07/forumauth/tokens"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	RefreshToken    string `json:"refresh_token"`
}

// tokenResponse carries the pair for clients that do not use cookies.
// Durations are whole seconds.
type tokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresIn  int64     `json:"access_expires_in"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresIn int64     `json:"refresh_expires_in"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type loginResponse struct {
	User   forumauth.User `json:"user"`
	Tokens tokenResponse  `json:"tokens"`
}

type validateResponse struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Mode      string    `json:"mode"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func newTokenResponse(p tokens.Pair) tokenResponse {
	return tokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresIn:  int64(p.AccessExpiresIn / time.Second),
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresIn: int64(p.RefreshExpiresIn / time.Second),
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func newValidateResponse(res *forumauth.AuthResult) validateResponse {
	return validateResponse{
		UserID:    res.UserID,
		Role:      res.Role,
		TokenID:   res.TokenID,
		ExpiresAt: res.ExpiresAt,
		Mode:      res.Mode.String(),
	}
}
