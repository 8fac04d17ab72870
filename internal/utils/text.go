package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var upper = cases.Upper(language.Und)

// NormalizeName applies NFKC and collapses runs of whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// NormalizeCode is NormalizeName upper-cased without spaces, used for flat
// and vehicle numbers ("a 101" and "A101" are the same flat).
func NormalizeCode(s string) string {
	return strings.ReplaceAll(upper.String(NormalizeName(s)), " ", "")
}

// OptionalCode normalises an optional code, mapping blank to nil.
func OptionalCode(s *string) *string {
	if s == nil {
		return nil
	}
	v := NormalizeCode(*s)
	if v == "" {
		return nil
	}
	return &v
}
