package core

// Access classifies an operation for the access guard.
type Access int

const (
	// AccessToken requires a valid bearer token. It is the zero value so that an
	// unclassified operation fails closed.
	AccessToken Access = iota
	// AccessPublic performs no check.
	AccessPublic
	// AccessCredentials skips token validation; the operation verifies credentials itself.
	AccessCredentials
)

// String returns the name of the access class used in logs.
func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessCredentials:
		return "credential-only"
	default:
		return "token-required"
	}
}
