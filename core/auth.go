package core

import "time"

// Identity is a user as seen by the auth subsystem. It is owned by the user directory
// and never mutated here.
type Identity struct {
	ID          string   // Opaque user id
	Username    string   // Login identifier
	DisplayName string   // Human readable name
	Email       string   // Contact address, may be empty
	Roles       []string // Role claims carried into tokens
}

// UserRecord is a directory row: the identity plus its stored secret hash
type UserRecord struct {
	Identity
	PasswordHash string
	CreatedBy    string
	CreatedAt    time.Time
}

// Credential is a submitted identifier+secret pair. It only lives for one verification.
type Credential struct {
	Username string
	Password string
}

// Challenge represents a captcha challenge
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Answer    string    // Expected answer
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Expired reports whether the challenge is past its expiry at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Session represents an authenticated user session, the payload of a token
type Session struct {
	ID        string    // Unique token identifier (jti)
	Subject   string    // Identity id the token is bound to
	Username  string    // Username at issuance
	Roles     []string  // Roles at issuance
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the token stops validating
}

// Identity rebuilds the identity bound to the session.
func (s *Session) Identity() Identity {
	return Identity{
		ID:       s.Subject,
		Username: s.Username,
		Roles:    s.Roles,
	}
}

// SessionToken is a signed token value together with the session it encodes
type SessionToken struct {
	Value   string
	Session *Session
}

// Profile is the user-facing projection of an identity.
type Profile struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
}

// ProfileOf projects an identity into a profile.
func ProfileOf(i Identity) Profile {
	roles := i.Roles
	if roles == nil {
		roles = []string{}
	}
	return Profile{
		ID:          i.ID,
		Username:    i.Username,
		DisplayName: i.DisplayName,
		Email:       i.Email,
		Roles:       roles,
	}
}
