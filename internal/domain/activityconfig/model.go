package activityconfig

import (
	"crypto/subtle"
	"errors"
	"regexp"
)

// ErrInvalidPassword is returned when a passcode is not exactly four ASCII digits.
var ErrInvalidPassword = errors.New("activity password must be exactly 4 digits")

var passwordPattern = regexp.MustCompile(`^[0-9]{4}$`)

// Config is the per-activity settings document, keyed by activity name.
type Config struct {
	Activity string `json:"activity" bson:"_id"`
	Password string `json:"-" bson:"password"`
}

// ValidatePassword checks the passcode shape.
// PRE: none
// POST: Returns nil iff p is four ASCII digits
func ValidatePassword(p string) error {
	if !passwordPattern.MatchString(p) {
		return ErrInvalidPassword
	}
	return nil
}

// Matches reports whether attempt equals the stored passcode.
// A config without a passcode never matches.
// INVARIANT: Config fields are not mutated
func (c *Config) Matches(attempt string) bool {
	if c.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Password), []byte(attempt)) == 1
}
