package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		filter string
		want   string
	}{
		{"", "%%"},
		{"alice", "%alice%"},
		{"a_b", `%a\_b%`},
		{"100%", `%100\%%`},
		{`back\slash`, `%back\\slash%`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsPattern(tt.filter), "filter %q", tt.filter)
	}
}
