package api

import (
	"encoding/json"
	"regexp"
	"unicode/utf8"
)

// maxNameLen is the maximum length for name and title fields.
const maxNameLen = 200

// maxEmailLen is the maximum length for email addresses (RFC 5321).
const maxEmailLen = 254

// maxPasswordLen is the maximum length for passwords.
const maxPasswordLen = 256

// minPasswordLen is the minimum length for passwords.
const minPasswordLen = 8

// maxPhoneLen is the maximum length for phone numbers.
const maxPhoneLen = 40

// maxURLLen is the maximum length for URL fields.
const maxURLLen = 2048

// maxLongStringLen is the maximum length for longer text fields
// (descriptions, prompts, notes).
const maxLongStringLen = 10000

// maxContentLen is the maximum length for knowledge base content and
// transcripts (512 KB).
const maxContentLen = 512 * 1024

// emailRe is a basic email format regex. Not exhaustive; validates structure only.
var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// validateStringLen checks that a string does not exceed maxLen characters.
// Returns an error message if invalid, empty string if OK.
func validateStringLen(field, value string, maxLen int) string {
	if utf8.RuneCountInString(value) > maxLen {
		return field + " exceeds maximum length"
	}
	return ""
}

// validateRequiredStringLen checks that a non-empty string does not exceed
// maxLen characters.
func validateRequiredStringLen(field, value string, maxLen int) string {
	if value == "" {
		return field + " is required"
	}
	return validateStringLen(field, value, maxLen)
}

// validateEmail checks that a string is a valid-looking email address.
func validateEmail(field, value string) string {
	if value == "" {
		return ""
	}
	if len(value) > maxEmailLen {
		return field + " exceeds maximum length"
	}
	if !emailRe.MatchString(value) {
		return field + " is not a valid email address"
	}
	return ""
}

// validateJSONArray checks that raw is either empty or a JSON array.
func validateJSONArray(field string, raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return field + " must be a JSON array"
	}
	return ""
}

// validateJSONObject checks that raw is either empty or a JSON object.
func validateJSONObject(field string, raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return field + " must be a JSON object"
	}
	return ""
}
