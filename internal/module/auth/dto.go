package auth

import "github.com/simp-lee/bankoffice/internal/domain"

// LoginRequest represents the input for user login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// RegisterRequest represents the input for user registration.
type RegisterRequest struct {
	Name     string `json:"name" form:"name" binding:"required,max=100"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=6,max=72"`
}

// TokenResponse is returned after login or registration.
type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public view of a staff user.
type UserResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// ValidateResponse reports the state of the presented token.
type ValidateResponse struct {
	Valid     bool  `json:"valid"`
	ExpiresAt int64 `json:"expiresAt"`
}
