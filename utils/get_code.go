package utils

import "net/url"

// GetCode returns the code query parameter of a redirect URL, or "" when the
// URL has none or cannot be parsed.
func GetCode(redirectedURL string) string {
	u, err := url.Parse(redirectedURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("code")
}
