package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the identity attributes carried by a session
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string   `json:"usr,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}
