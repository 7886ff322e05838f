package api

import "regexp"

var keyField = regexp.MustCompile(`("key"\s*:\s*")(?:[^"\\]|\\.)*(")`)

// RedactKey masks the value of every "key" field in a JSON document so
// request payloads can be logged.
func RedactKey(payload string) string {
	return keyField.ReplaceAllString(payload, `${1}[REDACTED]${2}`)
}
