package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SlugPlaceholder stands in for names that normalize to nothing.
const SlugPlaceholder = "untitled"

// Slugify turns a display name into a lowercase, hyphen-separated, URL-safe token.
// Accents are folded to their base letter, other non-ASCII runes and punctuation are
// dropped, and runs of whitespace or hyphens collapse into a single hyphen.
func Slugify(name string) string {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastDash := true // suppresses leading hyphens
	for _, r := range strings.ToLower(folded) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
			lastDash = false
		case r == '-' || unicode.IsSpace(r):
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-_")
	if slug == "" {
		return SlugPlaceholder
	}
	return slug
}

// TruncateSlug cuts slug to at most max bytes without leaving a dangling separator.
func TruncateSlug(slug string, max int) string {
	if max <= 0 || len(slug) <= max {
		return slug
	}
	cut := strings.TrimRight(slug[:max], "-_")
	if cut == "" {
		return SlugPlaceholder[:min(len(SlugPlaceholder), max)]
	}
	return cut
}
