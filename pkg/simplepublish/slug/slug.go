// Package slug derives URL-safe identifiers from titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// \s is ASCII-only in RE2; Unicode separators count as whitespace too.
	disallowed  = regexp.MustCompile(`[^\w\s\p{Z}\v\x{85}-]`)
	whitespace  = regexp.MustCompile(`[\s\p{Z}\v\x{85}]+`)
	hyphens     = regexp.MustCompile(`-+`)
	validSlugRe = regexp.MustCompile(`^[a-z0-9_]+(-[a-z0-9_]+)*$`)
)

// Generate turns a title into a slug.
//
// The title is decomposed (NFD) and combining marks are dropped, so "é"
// becomes "e". Anything that is not an ASCII word character, whitespace or a
// hyphen is removed. The result may be empty; callers decide whether an empty
// slug is acceptable.
func Generate(title string) string {
	s := stripMarks(title)
	s = strings.ToLower(s)
	s = disallowed.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphens.ReplaceAllString(s, "-")
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '-' || unicode.IsSpace(r)
	})
}

// IsValid reports whether s already has the shape Generate produces.
func IsValid(s string) bool {
	return validSlugRe.MatchString(s)
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
