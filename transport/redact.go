package transport

import (
	"log/slog"
	"regexp"
	"strings"
)

const (
	hiddenPassword = `"password":"***HIDDEN***"`
	hiddenBearer   = "Bearer ****"
	hiddenValue    = "****"

	// tokenEdge is how many characters of a token stay visible at each end.
	tokenEdge = 4
)

// JSON string bodies are matched escape-aware so an embedded \" cannot end
// the match early.
var (
	passwordField = regexp.MustCompile(`"password"\s*:\s*"(?:[^"\\]|\\.)*"`)
	bearerValue   = regexp.MustCompile(`(?i)\bbearer\s+\S+`)
	tokenField    = regexp.MustCompile(`"token"\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

// Redact masks secrets in a logged request or response line. Password
// values are replaced and bearer credentials are hidden. Token fields keep
// only their first and last four characters; shorter tokens are hidden
// entirely.
func Redact(s string) string {
	s = passwordField.ReplaceAllLiteralString(s, hiddenPassword)
	s = bearerValue.ReplaceAllLiteralString(s, hiddenBearer)
	s = tokenField.ReplaceAllStringFunc(s, func(m string) string {
		value := tokenField.FindStringSubmatch(m)[1]
		return `"token":"` + maskToken(value) + `"`
	})
	return s
}

func maskToken(value string) string {
	runes := []rune(value)
	if len(runes) <= 2*tokenEdge || strings.ContainsRune(value, '\\') {
		return hiddenValue
	}
	return string(runes[:tokenEdge]) + hiddenValue + string(runes[len(runes)-tokenEdge:])
}

// RedactedAttr returns a slog string attribute whose value has been passed
// through Redact.
func RedactedAttr(key, value string) slog.Attr {
	return slog.String(key, Redact(value))
}
