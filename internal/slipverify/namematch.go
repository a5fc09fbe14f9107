package slipverify

import (
	"strings"
	"unicode"
)

// minMaskedPrefix is the shortest masked prefix accepted as a name match.
// Bank slips mask receiver names ("SOMCHAI J***"), so exact comparison is
// impossible; a too-short prefix would match almost anything.
const minMaskedPrefix = 3

// NormalizeName folds a display name for comparison: lower-cased, honorifics
// dropped, everything that is not a letter, digit or combining mark removed.
// Combining marks stay because Thai vowels and tone marks are category Mn;
// stripping them would corrupt every Thai name.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range []string{"mr.", "mrs.", "ms.", "mr ", "mrs ", "ms ", "นางสาว", "นาง", "นาย", "น.ส."} {
		name = strings.TrimPrefix(name, prefix)
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchesReceiver reports whether the verified receiver name matches any of
// the configured merchant name variants. The OCR'd name is often masked or
// truncated, so a variant matches when the names are equal after
// normalization, or when the masked part of the receiver name is a prefix
// of the variant.
func MatchesReceiver(receiver string, variants []string) bool {
	masked := strings.ContainsAny(receiver, "*…")
	prefix := maskedPrefix(receiver)
	normalized := NormalizeName(receiver)

	for _, variant := range variants {
		v := NormalizeName(variant)
		if v == "" {
			continue
		}
		if normalized != "" && normalized == v {
			return true
		}
		if masked && len(prefix) >= minMaskedPrefix && strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}

// maskedPrefix returns the normalized part of the name before the first
// mask character.
func maskedPrefix(name string) string {
	if i := strings.IndexAny(name, "*…"); i >= 0 {
		return NormalizeName(name[:i])
	}
	return ""
}
