package menu

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds text into the form used for matching. Queries, names and
// aliases all pass through it, so two spellings that differ only in case,
// diacritics, hamza placement, tatweel or punctuation compare equal.
func Normalize(text string) string {
	text = strings.ToLower(text)

	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, text)
	if err != nil {
		result = text
	}

	result = strings.Map(foldRune, result)

	return strings.Join(strings.Fields(result), " ")
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// foldRune unifies Arabic letter variants and blanks out punctuation.
// NFD has already split hamza and madda off alef, so only the standalone
// forms are left here.
func foldRune(r rune) rune {
	switch r {
	case 'أ', 'إ', 'آ', 'ٱ':
		return 'ا'
	case 'ى':
		return 'ي'
	case 'ة':
		return 'ه'
	case 'ـ': // tatweel
		return -1
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return r
	}
	if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
		return ' '
	}
	return -1
}

// tokens splits normalized text into words.
func tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// hasArabic reports whether s contains any Arabic letter.
func hasArabic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Arabic, r) && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// hasLatin reports whether s contains any Latin letter.
func hasLatin(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
