package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultMaxLines is the number of description lines shown before truncating.
const DefaultMaxLines = 15

// TitleCase upper-cases the first letter of each word, e.g. "bug" -> "Bug".
func TitleCase(s string) string {
	// A Caser keeps state between calls and is not safe to share.
	return cases.Title(language.English).String(s)
}

// TruncateSimple performs simple end truncation with "..." suffix.
// UTF-8 safe.
func TruncateSimple(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	runes := []rune(text)
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateLines keeps the first maxLines lines of text and appends a
// muted note saying how many were hidden.
func TruncateLines(text string, maxLines int) string {
	if text == "" || maxLines <= 0 {
		return text
	}

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) <= maxLines {
		return text
	}

	hidden := len(lines) - maxLines
	return strings.Join(lines[:maxLines], "\n") + "\n" +
		RenderMuted(fmt.Sprintf("... (%d more lines)", hidden)) + "\n"
}
