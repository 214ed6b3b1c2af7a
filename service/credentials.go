package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword generates a bcrypt hash of password at cost
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is empty: %w", core.ErrValidation)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("password too long: %w", core.ErrValidation)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// CredentialVerifier checks username and password pairs against the user directory
type CredentialVerifier struct {
	directory ports.UserDirectory
	// dummyHash is compared against when the user does not exist so both failure
	// paths cost one bcrypt comparison
	dummyHash []byte
}

// NewCredentialVerifier creates a verifier. cost should match the cost of stored hashes.
func NewCredentialVerifier(directory ports.UserDirectory, cost int) (*CredentialVerifier, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &CredentialVerifier{
		directory: directory,
		dummyHash: dummy,
	}, nil
}

// Verify returns the identity for valid credentials. Unknown users and wrong passwords
// both fail with core.ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, credential core.Credential) (*core.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record, err := v.directory.FindByUsername(ctx, credential.Username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(credential.Password))
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(credential.Password)); err != nil {
		return nil, core.ErrInvalidCredentials
	}

	identity := record.Identity
	return &identity, nil
}
