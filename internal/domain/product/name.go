package product

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeName canonicalizes a product name for storage and uniqueness
// comparison: trim, collapse internal whitespace, lowercase, strip diacritics.
// "  Açúcar   Cristal  " becomes "acucar cristal".
func NormalizeName(name string) string {
	name = strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(name), " "))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		return name
	}
	return stripped
}
