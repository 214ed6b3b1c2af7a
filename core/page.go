package core

import "math"

// Pagination bounds applied by ListQuery.Normalize
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxPage keeps Offset within an int at any limit
	MaxPage = math.MaxInt/MaxLimit + 1
)

// ListQuery selects a page of users.
type ListQuery struct {
	Page     int
	Limit    int
	Username string // optional substring filter
}

// Normalize replaces non-positive page and limit values with the defaults and caps
// both page and limit.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// Offset is the number of rows skipped before the page starts.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Page is one page of user profiles.
type Page struct {
	Items []Profile `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// NewUser carries the fields of a registration.
type NewUser struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	Roles       []string
}
