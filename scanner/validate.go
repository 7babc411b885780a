package scanner

import (
	"strings"
	"unicode/utf8"
)

const (
	minJobNumberLen    = 5
	maxJobNumberLen    = 8
	minJobNumberPrefix = 5
)

// Reason identifies which job number rule rejected an input.
type Reason int

const (
	ReasonBadLength Reason = iota + 1
	ReasonBadPrefix
	ReasonInvalidCharacters
	ReasonNotAllDigits
	ReasonShortPrefix
	ReasonBadSuffix
	ReasonMultipleDashes
)

// String returns a stable machine code, used as a metrics label.
func (r Reason) String() string {
	switch r {
	case ReasonBadLength:
		return "bad_length"
	case ReasonBadPrefix:
		return "bad_prefix"
	case ReasonInvalidCharacters:
		return "invalid_characters"
	case ReasonNotAllDigits:
		return "not_all_digits"
	case ReasonShortPrefix:
		return "short_prefix"
	case ReasonBadSuffix:
		return "bad_suffix"
	case ReasonMultipleDashes:
		return "multiple_dashes"
	default:
		return "unknown"
	}
}

// Message is the operator-facing text shown by the display.
func (r Reason) Message() string {
	switch r {
	case ReasonBadLength:
		return "Job number must be 5-8 characters"
	case ReasonBadPrefix:
		return "Job number must start with 5, 6, 7, or 8"
	case ReasonInvalidCharacters:
		return "Invalid characters (only digits, '-', and 'R' allowed)"
	case ReasonNotAllDigits:
		return "Job number without '-' must be all digits"
	case ReasonShortPrefix:
		return "At least 5 digits required before '-'"
	case ReasonBadSuffix:
		return "After '-': single digit 1-9, optionally followed by 'R'"
	case ReasonMultipleDashes:
		return "Only one '-' allowed"
	default:
		return "Invalid job number"
	}
}

// Rejection is returned by ValidateJobNumber for inputs that break a rule.
type Rejection struct {
	Input  string
	Reason Reason
}

func (r *Rejection) Error() string {
	return r.Reason.Message()
}

// ValidateJobNumber checks input against the job number grammar and returns
// nil when it is accepted. The accepted value is the input as given.
func ValidateJobNumber(input string) error {
	reject := func(reason Reason) error {
		return &Rejection{Input: input, Reason: reason}
	}

	n := utf8.RuneCountInString(input)
	if n < minJobNumberLen || n > maxJobNumberLen {
		return reject(ReasonBadLength)
	}

	first, _ := utf8.DecodeRuneInString(input)
	if first < '5' || first > '8' {
		return reject(ReasonBadPrefix)
	}

	for _, c := range input {
		if !isDigit(c) && c != '-' && c != 'R' {
			return reject(ReasonInvalidCharacters)
		}
	}

	switch strings.Count(input, "-") {
	case 0:
		if !allDigits(input) {
			return reject(ReasonNotAllDigits)
		}
	case 1:
		prefix, suffix, _ := strings.Cut(input, "-")
		if !allDigits(prefix) || len(prefix) < minJobNumberPrefix {
			return reject(ReasonShortPrefix)
		}
		if !validSuffix(suffix) {
			return reject(ReasonBadSuffix)
		}
	default:
		return reject(ReasonMultipleDashes)
	}

	return nil
}

// validSuffix reports whether s is one digit 1-9, optionally followed by R.
func validSuffix(s string) bool {
	switch len(s) {
	case 1:
		return s[0] >= '1' && s[0] <= '9'
	case 2:
		return s[0] >= '1' && s[0] <= '9' && s[1] == 'R'
	default:
		return false
	}
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !isDigit(c) {
			return false
		}
	}
	return true
}
