// =============================================================================
// Register Interests Parser - Amount Extraction
// =============================================================================
//
// Amounts in the register are free text: "£1,000", "£5-10,000", "£1.000.69",
// "3 payments of £200, total £600". Extract returns the largest value found
// in a piece of text, which for itemised entries is the stated total.
//
// =============================================================================

package amount

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/register-interests/internal/textnorm"
)

// Marker is the currency symbol that introduces an amount.
const Marker = "£"

var (
	currencyToken = regexp.MustCompile(`£\s*([0-9,.\-]+)`)
	nonNumeric    = regexp.MustCompile(`[^\d.]`)
)

// Extract returns the maximum amount found in text. Remuneration bands are
// ignored unless they are the only amounts present. Tokens that cannot be
// parsed are skipped. The second result is false when no amount was found.
func Extract(text string) (decimal.Decimal, bool) {
	tokens := Tokens(textnorm.RemoveRemunerationBands(text))
	if len(tokens) == 0 {
		tokens = Tokens(text)
	}

	var (
		best  decimal.Decimal
		found bool
	)
	for _, token := range tokens {
		value, ok := ParseToken(token)
		if !ok {
			continue
		}
		if !found || value.GreaterThan(best) {
			best, found = value, true
		}
	}
	return best, found
}

// Tokens returns the raw numeric text following every currency marker.
func Tokens(text string) []string {
	matches := currencyToken.FindAllStringSubmatch(text, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m[1])
	}
	return tokens
}

// ParseToken converts one currency token to a decimal.
//
// RULES:
//   - trailing "." and "-" are punctuation, not part of the number
//   - when more than one "." remains, all but the last are thousands separators
//   - a hyphenated range resolves to its upper bound
func ParseToken(token string) (decimal.Decimal, bool) {
	token = strings.TrimSpace(token)
	token = strings.TrimRight(token, ".")
	token = strings.TrimRight(token, "-")

	if n := strings.Count(token, "."); n > 1 {
		token = strings.Replace(token, ".", "", n-1)
	}

	if _, upper, ok := strings.Cut(token, "-"); ok {
		upper, _, _ = strings.Cut(upper, "-")
		token = upper
	}

	token = strings.ReplaceAll(token, ",", "")
	token = strings.TrimRight(token, ".")
	token = nonNumeric.ReplaceAllString(token, "")
	if token == "" {
		return decimal.Decimal{}, false
	}

	value, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

// HasMarker reports whether text mentions an amount outside of a
// remuneration band.
func HasMarker(text string) bool {
	return strings.Contains(textnorm.RemoveRemunerationBands(text), Marker)
}
