package util

import "strings"

// CollapseWhitespace trims the string and collapses internal runs of
// whitespace (including newlines from the transcription service) into
// single spaces.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// SanitizeText removes invalid UTF-8 sequences and NUL bytes that some
// transcription backends leak into segment text.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}
