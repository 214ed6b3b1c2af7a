package captcha

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRenderer_Render(t *testing.T) {
	r := NewImageRenderer(0, 0)

	image, err := r.Render("7gK2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(image, "data:image/png;base64,"))

	other, err := r.Render("7gK2")
	require.NoError(t, err)
	assert.NotEqual(t, image, other, "noise should differ between renders")
}
