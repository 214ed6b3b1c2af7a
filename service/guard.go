package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/layer-3/gatekeeper/core"
)

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an Authorization header value. The header must
// start with the literal "Bearer " and carry at least one character after it.
func BearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix)+1 || header[:len(bearerPrefix)] != bearerPrefix {
		return "", false
	}
	return header[len(bearerPrefix):], true
}

// Guard decides per request whether an operation may proceed
type Guard struct {
	tokens *TokenService
	logger *slog.Logger
}

// NewGuard creates a guard validating tokens with tokens
func NewGuard(tokens *TokenService, logger *slog.Logger) *Guard {
	return &Guard{
		tokens: tokens,
		logger: orDiscard(logger),
	}
}

// Authorize applies the access class of an operation to the request's Authorization
// header. Public and credential-only operations are allowed without an identity.
// Token-required operations return the identity bound to the token, or
// core.ErrUnauthorized without further detail.
func (g *Guard) Authorize(ctx context.Context, access core.Access, authorization string) (*core.Identity, error) {
	switch access {
	case core.AccessPublic, core.AccessCredentials:
		return nil, nil
	}

	token, ok := BearerToken(authorization)
	if !ok {
		g.logger.DebugContext(ctx, "request rejected")
		return nil, core.ErrUnauthorized
	}

	session, err := g.tokens.Validate(ctx, token)
	if err != nil {
		// Which token check failed is not recorded anywhere
		if errors.Is(err, core.ErrUnauthorized) {
			g.logger.DebugContext(ctx, "request rejected")
		} else {
			g.logger.WarnContext(ctx, "token validation failed", "error", err)
		}
		return nil, core.ErrUnauthorized
	}

	identity := session.Identity()
	return &identity, nil
}
