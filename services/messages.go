package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMessageLength is Telegram's limit for a single text message, counted in
// UTF-16 code units.
const MaxMessageLength = 4096

// SplitMessage cuts text into chunks of at most limit UTF-16 code units,
// preferring to break after a newline. Runes are never split. Concatenating
// the chunks yields the original text.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	var chunks []string
	for UTF16Len(text) > limit {
		cut := byteOffset(text, limit)
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 {
			cut = nl + 1
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" || len(chunks) == 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

// UTF16Len is the length of s as Telegram counts it.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

// byteOffset returns the byte index just past the longest prefix of s that
// fits in n UTF-16 code units. At least one rune is always taken.
func byteOffset(s string, n int) int {
	units := 0
	for i, r := range s {
		w := runeUnits(r)
		if units+w > n {
			if i == 0 {
				_, size := utf8.DecodeRuneInString(s)
				return size
			}
			return i
		}
		units += w
	}
	return len(s)
}

func runeUnits(r rune) int {
	// Same result as utf16.RuneLen (Go 1.23+) with invalid runes counted as 1.
	if r >= 0x10000 && r <= unicode.MaxRune {
		return 2
	}
	return 1
}
