package ports

// CaptchaRenderer draws a captcha answer as an image
type CaptchaRenderer interface {
	// Render returns the image as a data URI.
	Render(answer string) (string, error)
}
