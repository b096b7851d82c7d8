// Package snowflake validates chat-platform identifier strings.
//
// Platform ids are numeric strings between 17 and 22 digits. Emoji keys are
// either a platform id (custom emoji) or a literal unicode emoji character.
package snowflake

import (
	"regexp"
	"unicode/utf8"
)

// Most ids are 17 to 19 digits, but custom emoji ids have been observed at
// 20, so the upper bound is padded to 22.
var idPattern = regexp.MustCompile(`^\d{17,22}$`)

// IsID reports whether value is a well-formed platform id.
func IsID(value string) bool {
	return idPattern.MatchString(value)
}

// IsEmojiLiteral reports whether value starts with a unicode emoji rune.
func IsEmojiLiteral(value string) bool {
	if value == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(value)
	if r == utf8.RuneError {
		return false
	}
	return isEmojiRune(r)
}

// IsEmojiKey reports whether value can key an emoji column: either a custom
// emoji id or a unicode emoji literal.
func IsEmojiKey(value string) bool {
	return IsID(value) || IsEmojiLiteral(value)
}

// isEmojiRune covers the unicode blocks emoji are drawn from. The stdlib
// regexp engine has no \p{Emoji} class, so the ranges are spelled out.
func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // mahjong tiles through symbols extended-A
		return true
	case r >= 0x2600 && r <= 0x27BF: // miscellaneous symbols, dingbats
		return true
	case r >= 0x2190 && r <= 0x21FF: // arrows
		return true
	case r >= 0x2300 && r <= 0x23FF: // miscellaneous technical (watch, hourglass)
		return true
	case r >= 0x25A0 && r <= 0x25FF: // geometric shapes
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows and stars
		return true
	case r >= 0x2900 && r <= 0x297F: // supplemental arrows
		return true
	case r == 0x00A9 || r == 0x00AE: // copyright, registered
		return true
	case r == 0x203C || r == 0x2049 || r == 0x2122 || r == 0x2139: // punctuation marks, tm, info
		return true
	case r >= 0x3297 && r <= 0x3299: // circled ideographs
		return true
	case r == 0x3030 || r == 0x303D:
		return true
	case r >= 0x2702 && r <= 0x27B0:
		return true
	default:
		return false
	}
}
