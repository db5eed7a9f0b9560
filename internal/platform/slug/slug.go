// Package slug turns identifiers into safe journal path segments.
package slug

import (
	"strings"
	"unicode"
)

// MaxLen bounds a slug so journal paths stay short.
const MaxLen = 64

// Make lowercases input and collapses every run of characters other than
// letters and digits into a single hyphen. An input with nothing usable
// becomes "untitled".
func Make(input string) string {
	var b strings.Builder
	pendingHyphen := false
	n := 0
	for _, r := range strings.ToLower(input) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingHyphen = n > 0
			continue
		}
		if pendingHyphen {
			if n+1 >= MaxLen {
				break
			}
			b.WriteByte('-')
			n++
			pendingHyphen = false
		}
		if n >= MaxLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
