// Package slug derives unique URL identifiers for posts.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/oksasatya/go-blog/internal/domain/apperror"
)

// Fallback is used when a title has no ASCII alphanumerics at all.
const Fallback = "post"

// MaxLen is the longest slug a post can store.
const MaxLen = 220

// suffixRoom is kept free after a derived base for "-N".
const suffixRoom = 10

// TakenFunc reports whether candidate is already used by another post.
// Implementations must compare case-insensitively and exclude the post being edited.
type TakenFunc func(candidate string) (bool, error)

// Slugify lower-cases and hyphenates title: diacritics are folded, characters
// without an ASCII form are dropped and every other run of non-alphanumerics
// becomes a single hyphen.
func Slugify(title string) string {
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(unicode.ToLower(r))
		case r >= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsNumber(r)):
			// no ASCII form; dropped without breaking the word
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// Assign returns Slugify(title) when it is free, otherwise the first free
// "<base>-N" for N = 1, 2, 3, ... Bases longer than MaxLen leave room for
// the suffix and are cut at a word boundary.
func Assign(title string, taken TakenFunc) (string, error) {
	base := truncate(Slugify(title), MaxLen-suffixRoom)
	if base == "" {
		base = Fallback
	}
	return Resolve(base, taken)
}

// truncate cuts s to at most n bytes, at the last hyphen when there is one.
// s is ASCII.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	if i := strings.LastIndexByte(s, '-'); i > 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "-")
}

// Resolve runs the numeric-suffix search for base.
func Resolve(base string, taken TakenFunc) (string, error) {
	candidate := base
	for n := 1; ; n++ {
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// CheckExplicit validates a caller-supplied slug. A taken slug yields a
// DuplicateSlug validation error; no alternative is picked.
func CheckExplicit(s string, taken TakenFunc) error {
	used, err := taken(s)
	if err != nil {
		return err
	}
	if used {
		return apperror.DuplicateSlug(s)
	}
	return nil
}
