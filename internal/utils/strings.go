// Package utils provides common utility functions.
package utils

// MaskToken masks an auth token for safe logging (shows first 8 and last 4 chars).
// Use this to avoid logging credentials in plain text.
func MaskToken(token string) string {
	if token == "" {
		return "(empty)"
	}
	if len(token) < 16 {
		return "****"
	}
	return token[:8] + "..." + token[len(token)-4:]
}
