package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCaptchaInvalid     = errors.New("captcha invalid")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrUserNotFound       = errors.New("user not found")
)

// Refinements. Each one matches its parent class with errors.Is.
var (
	ErrChallengeNotFound = fmt.Errorf("challenge not found: %w", ErrCaptchaInvalid)

	ErrTokenMalformed = fmt.Errorf("token is malformed: %w", ErrUnauthorized)
	ErrTokenExpired   = fmt.Errorf("token has expired: %w", ErrUnauthorized)
	ErrTokenRevoked   = fmt.Errorf("token has been revoked: %w", ErrUnauthorized)

	ErrUsernameTaken = fmt.Errorf("username already registered: %w", ErrValidation)
)
