// Package email holds address helpers shared by outbound mail code.
package email

import (
	"strings"
	"unicode"
)

// NameFromAddress guesses a display name from the local part of addr:
// "mia.jones+ops@example.com" becomes "Mia Jones". The result is empty when
// the local part has no usable words.
func NameFromAddress(addr string) string {
	local := addr
	if at := strings.IndexByte(addr, '@'); at >= 0 {
		local = addr[:at]
	}
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}

	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
