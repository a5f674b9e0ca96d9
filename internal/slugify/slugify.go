// Package slugify derives URL-safe identifiers from arbitrary text.
package slugify

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug converts text into a lowercase, hyphen-separated, ASCII-safe slug.
// Diacritics are folded to their base letters; runs of non-alphanumeric
// characters collapse into a single hyphen.
func Slug(text string) string {
	folded, _, err := transform.String(stripMarks, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// Uniquer hands out document-scoped unique slugs. The first occurrence keeps
// the plain slug; repeats get a numeric suffix in encounter order.
type Uniquer struct {
	seen   map[string]bool
	counts map[string]int
}

func NewUniquer() *Uniquer {
	return &Uniquer{seen: make(map[string]bool), counts: make(map[string]int)}
}

// Next returns the unique form of slug within this Uniquer's scope
// (intro, intro-1, intro-2, ...). A suffixed candidate can itself collide
// with an already-emitted slug ("intro-1" after literal "Intro 1"), so the
// counter keeps advancing until the candidate is unseen.
func (u *Uniquer) Next(slug string) string {
	for {
		n := u.counts[slug]
		u.counts[slug] = n + 1
		candidate := slug
		if n > 0 {
			candidate = slug + "-" + strconv.Itoa(n)
		}
		if !u.seen[candidate] {
			u.seen[candidate] = true
			return candidate
		}
	}
}
