package goSession

import "regexp"

// emailPattern accepts the same addresses as the Android EMAIL_ADDRESS
// matcher: a local part of up to 256 characters and at least one dotted
// domain label.
var emailPattern = regexp.MustCompile(
	`^[a-zA-Z0-9+._%\-]{1,256}@[a-zA-Z0-9][a-zA-Z0-9\-]{0,64}(\.[a-zA-Z0-9][a-zA-Z0-9\-]{0,25})+$`,
)

// ValidEmail reports whether s is shaped like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
