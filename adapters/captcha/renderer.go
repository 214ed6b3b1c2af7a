package captcha

import (
	"fmt"

	"github.com/mojocn/base64Captcha"
)

const (
	DefaultWidth  = 120
	DefaultHeight = 40
)

// ImageRenderer implements ports.CaptchaRenderer with distorted PNG images
type ImageRenderer struct {
	driver *base64Captcha.DriverString
}

// NewImageRenderer creates a renderer drawing images of the given size. The answer
// alphabet is chosen by the caller; the driver only draws what it is given.
func NewImageRenderer(width, height int) *ImageRenderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	driver := base64Captcha.NewDriverString(
		height,
		width,
		12,
		base64Captcha.OptionShowHollowLine|base64Captcha.OptionShowSlimeLine,
		4,
		base64Captcha.TxtAlphabet+base64Captcha.TxtNumbers,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		[]string{"wqy-microhei.ttc"},
	)

	return &ImageRenderer{driver: driver.ConvertFonts()}
}

// Render draws the answer and returns a base64 PNG data URI
func (r *ImageRenderer) Render(answer string) (string, error) {
	item, err := r.driver.DrawCaptcha(answer)
	if err != nil {
		return "", fmt.Errorf("failed to draw captcha: %w", err)
	}

	return item.EncodeB64string(), nil
}
