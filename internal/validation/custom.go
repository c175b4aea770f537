package validation

import (
	"net/url"
	"regexp"
	"strings"
)

// CustomValidator is a pure predicate over a field value.
type CustomValidator func(value interface{}) bool

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[+]?[1-9][0-9]{0,15}$`)
)

// defaultCustomValidators is the built-in named validator table. Adding a
// validator is a table insertion, not a new code path in the evaluator.
var defaultCustomValidators = map[string]CustomValidator{
	"email": validEmail,
	"phone": validPhone,
	"url":   validURL,
}

func validEmail(value interface{}) bool {
	return emailPattern.MatchString(asString(value))
}

// validPhone strips whitespace before matching, so "+1 415 555 1234" and
// "+14155551234" are treated the same.
func validPhone(value interface{}) bool {
	cleaned := strings.Join(strings.Fields(asString(value)), "")
	return phonePattern.MatchString(cleaned)
}

func validURL(value interface{}) bool {
	parsed, err := url.Parse(asString(value))
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}
