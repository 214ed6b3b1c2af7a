package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/gatekeeper/core"
)

const AudienceAccess = "session:access"

// JWTTokenizer implements ports.Tokenizer with HS256 JWTs signed by a process-wide secret
type JWTTokenizer struct {
	signKey []byte
	issuer  string
	clock   func() time.Time
}

// Option configures a JWTTokenizer
type Option func(*JWTTokenizer)

// WithIssuer sets the iss claim written and required on parse.
func WithIssuer(issuer string) Option {
	return func(j *JWTTokenizer) {
		j.issuer = issuer
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(j *JWTTokenizer) {
		if clock != nil {
			j.clock = clock
		}
	}
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey []byte, opts ...Option) *JWTTokenizer {
	j := &JWTTokenizer{
		signKey: signKey,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}
	return j
}

// SessionToToken converts a Session to a signed access token
func (j *JWTTokenizer) SessionToToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   session.Subject,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		Username: session.Username,
		Roles:    session.Roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// TokenToSession parses an access token and returns the associated session
func (j *JWTTokenizer) TokenToSession(tokenStr string) (*core.Session, error) {
	options := []jwt.ParserOption{
		jwt.WithAudience(AudienceAccess),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if j.issuer != "" {
		options = append(options, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.signKey, nil
	}, options...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrTokenMalformed, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, core.ErrTokenMalformed
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or id", core.ErrTokenMalformed)
	}

	session := &core.Session{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Username:  claims.Username,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}

	return session, nil
}
