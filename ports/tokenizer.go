package ports

import "github.com/layer-3/gatekeeper/core"

// Tokenizer converts between sessions and signed tokens
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	// TokenToSession verifies signature and expiry. It fails with core.ErrTokenMalformed
	// or core.ErrTokenExpired.
	TokenToSession(token string) (*core.Session, error)
}
