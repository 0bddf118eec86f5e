package wiki

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CategoryPrefix is the namespace prefix of category titles.
const CategoryPrefix = "Category:"

// StripCategory removes the "Category:" prefix from a category title.
func StripCategory(title string) string {
	return strings.Replace(title, CategoryPrefix, "", 1)
}

// TitleKey folds the first character after the namespace separator to lower
// case. The remote service may return either case for that position, so two
// titles name the same page when their keys are equal.
func TitleKey(title string) string {
	i := strings.Index(title, ":") + 1
	r, size := utf8.DecodeRuneInString(title[i:])
	if size == 0 {
		return title
	}
	return title[:i] + string(unicode.ToLower(r)) + title[i+size:]
}

// SameTitle reports whether two titles name the same page.
func SameTitle(a, b string) bool {
	return TitleKey(a) == TitleKey(b)
}
