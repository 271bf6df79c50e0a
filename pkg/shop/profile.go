package shop

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Profile is the descriptive identity of the stand.
type Profile struct {
	ClassName string `json:"class_name" yaml:"class_name"`
	Year      string `json:"year" yaml:"year"`
	ShopName  string `json:"shop_name" yaml:"shop_name"`
}

// Settings is what staff edit on the shop setting screen.
type Settings struct {
	Profile
	MaxTicket int `json:"max_ticket" yaml:"max_ticket"`
}

// ValidationError reports a rejected settings field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// IsValidation reports whether err is a settings validation failure.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// Normalize validates the settings and fills generated values.
// An empty shop name becomes "<year> - <class>".
func (s Settings) Normalize() (Settings, error) {
	s.ClassName = strings.TrimSpace(s.ClassName)
	s.Year = strings.TrimSpace(s.Year)
	s.ShopName = strings.TrimSpace(s.ShopName)

	if s.MaxTicket <= 0 {
		return Settings{}, ValidationError{Field: "max_ticket", Message: "must be at least 1"}
	}
	if s.ClassName == "" {
		return Settings{}, ValidationError{Field: "class_name", Message: "is required"}
	}
	if s.Year == "" {
		return Settings{}, ValidationError{Field: "year", Message: "is required"}
	}
	if s.ShopName == "" {
		s.ShopName = fmt.Sprintf("%s - %s", s.Year, s.ClassName)
	}
	return s, nil
}

// DefaultProfile is used before any settings were saved.
func DefaultProfile(now time.Time) Profile {
	return Profile{Year: now.Format("2006")}
}
