// Package auth provides authentication services for the mobility API.
// Clients register once for an API key, then exchange it for short
// lived JWT access tokens.
package auth

import "time"

// User represents an authenticated API consumer.
type User struct {
	ID        string    `json:"userId"`
	Label     string    `json:"label,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// APIKey represents a stored API key. Only a hash of the key material
// is persisted; the plaintext key is shown once at registration.
type APIKey struct {
	ID         string
	UserID     string
	KeyHash    string
	Label      string
	LastUsedAt *time.Time
	CreatedAt  time.Time
	RevokedAt  *time.Time
}

// TokenRequest represents the request body for the API key exchange.
type TokenRequest struct {
	// APIKey is the key issued at registration, prefixed "key_".
	APIKey string `json:"apiKey"`
}

// Validate validates the token request.
func (r *TokenRequest) Validate() []FieldError {
	var errors []FieldError

	if r.APIKey == "" {
		errors = append(errors, FieldError{
			Field:   "apiKey",
			Message: "api key is required",
			Code:    "REQUIRED",
		})
	}

	return errors
}

// RegisterRequest represents the request body for API key registration.
type RegisterRequest struct {
	// Label identifies the client application.
	Label string `json:"label"`

	// Email is an optional contact address.
	Email string `json:"email,omitempty"`
}

// Validate validates the registration request.
func (r *RegisterRequest) Validate() []FieldError {
	var errors []FieldError

	if r.Label == "" {
		errors = append(errors, FieldError{
			Field:   "label",
			Message: "label is required",
			Code:    "REQUIRED",
		})
	}

	return errors
}

// RegisterResponse is returned once at registration. The key is not
// recoverable afterwards.
type RegisterResponse struct {
	APIKey string `json:"apiKey"`
	User   *User  `json:"user"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TokenResponse represents the response after successful authentication.
type TokenResponse struct {
	// AccessToken is the JWT access token for API authentication.
	AccessToken string `json:"accessToken"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresIn is the number of seconds until the access token expires.
	ExpiresIn int64 `json:"expiresIn"`

	// RefreshToken is the opaque token used to obtain new access tokens.
	RefreshToken string `json:"refreshToken,omitempty"`

	// User contains the authenticated user's information.
	User *User `json:"user"`
}

// RefreshTokenRequest represents the request to refresh an access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate validates the refresh token request.
func (r *RefreshTokenRequest) Validate() []FieldError {
	var errors []FieldError

	if r.RefreshToken == "" {
		errors = append(errors, FieldError{
			Field:   "refreshToken",
			Message: "refresh token is required",
			Code:    "REQUIRED",
		})
	}

	return errors
}
