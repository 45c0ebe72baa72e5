package content

import (
	"errors"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy = bluemonday.UGCPolicy()

	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// Sanitize removes unsafe HTML from the input string. It is applied to
// user-supplied text such as message content before it is persisted or
// broadcast.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// ValidateUsername checks that the username contains only allowed characters
// (alphanumeric, dot, dash, underscore) and is not empty.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username cannot be empty")
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("username contains invalid characters (allowed: alphanumeric, dot, dash, underscore)")
	}
	return nil
}

// ValidateRoomName rejects empty room names. Validation happens at the
// boundary; the room registry stores names exactly as given.
func ValidateRoomName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("room name cannot be empty")
	}
	return nil
}
