// Package normalize provides the text canonicalization and string similarity
// primitives used by field matching.
//
// Raw OCR labels arrive with inconsistent casing, full-width punctuation,
// stray whitespace and legacy variant Han characters. Normalize folds all of
// that to a canonical form so the matcher compares like with like, and
// Similarity scores two already-normalized strings on a [0,1] scale.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// variantChars folds legacy and variant Han spellings to their standard form.
// The table is carried over from field observations of OCR output; variant
// folding must run before case folding so no variant survives into matching.
var variantChars = map[rune]rune{
	'爲': '為',
	'綫': '線',
	'衆': '眾',
	'羣': '群',
	'硏': '研',
	'眞': '真',
	'臺': '台',
	'彙': '匯',
	'著': '着',
	'裏': '裡',
	'髮': '發',
	'麵': '面',
}

// Normalize canonicalizes a raw label string. It is deterministic, pure and
// total: empty or garbage input normalizes to an empty or best-effort string,
// never an error.
//
// Steps, in fixed order: fold variant Han characters, strip all whitespace,
// fold full-width code points to half-width, lowercase.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if folded, ok := variantChars[r]; ok {
			r = folded
		}
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.ToLower(width.Narrow.String(b.String()))
}
