package badge

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify derives a URL-safe slug from a display name.
//
// The name is decomposed (NFKD), combining marks are dropped, letters are
// lowercased and every run of characters outside [a-z0-9] collapses into a
// single hyphen. Leading and trailing hyphens are trimmed.
//
//	Slugify("Python Lover")  // "python-lover"
//	Slugify("Crème brûlée!") // "creme-brulee"
func Slugify(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// ValidSlug reports whether s is non-empty and already in slug form.
func ValidSlug(s string) bool {
	return s != "" && Slugify(s) == s
}
