// Package address cleans free-form store addresses that embed their own
// city, province and postal code.
package address

import (
	"regexp"
	"strings"
)

// postalPattern matches a Canadian postal code with or without the middle space.
var postalPattern = regexp.MustCompile(`[A-Za-z]\d[A-Za-z]\s?\d[A-Za-z]\d`)

// ExtractPostal returns the first postal-code substring in s, or "".
func ExtractPostal(s string) string {
	return postalPattern.FindString(s)
}

// Normalize splits a combined address such as
// "123 Main St, Vancouver, British Columbia V5K0A1" into the street part and
// the embedded postal code. The trailing ", <city>[,] <province> [<postal>]"
// suffix is removed case-insensitively; everything else is left as-is apart
// from surrounding whitespace. postal is "" when no code is present.
func Normalize(fullAddress, city, province string) (cleaned, postal string) {
	postal = ExtractPostal(fullAddress)

	if city == "" && province == "" {
		return strings.TrimSpace(fullAddress), postal
	}

	var b strings.Builder
	b.WriteString(`(?i),\s*`)
	b.WriteString(regexp.QuoteMeta(city))
	b.WriteString(`\s*,?\s*`)
	b.WriteString(regexp.QuoteMeta(province))
	if postal != "" {
		b.WriteString(`\s*`)
		b.WriteString(regexp.QuoteMeta(postal))
	}
	b.WriteString(`\s*$`)

	suffix, err := regexp.Compile(b.String())
	if err != nil {
		return strings.TrimSpace(fullAddress), postal
	}
	return strings.TrimSpace(suffix.ReplaceAllString(fullAddress, "")), postal
}
