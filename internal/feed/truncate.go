package feed

import (
	"strings"

	"golang.org/x/net/html"
)

// voidElements never take a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// TruncateHTML cuts fragment to at most limit bytes at a token boundary,
// then closes any elements left open. The result is always well formed; a
// tag is never split in the middle.
func TruncateHTML(fragment string, limit int) string {
	if limit <= 0 || len(fragment) <= limit {
		return fragment
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	var open []string

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())

		var pushes string
		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); !voidElements[string(name)] {
				pushes = string(name)
			}
		}

		// Budget the raw token plus the closers the open stack would need if
		// the document were cut right after this token.
		needed := closersLen(open)
		if pushes != "" {
			needed += len(pushes) + 3
		}
		if b.Len()+len(raw)+needed > limit {
			break
		}

		switch tt {
		case html.StartTagToken:
			if pushes != "" {
				open = append(open, pushes)
			}
		case html.EndTagToken:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
		b.WriteString(raw)
	}

	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}
	return b.String()
}

func closersLen(open []string) int {
	n := 0
	for _, tag := range open {
		n += len(tag) + 3 // </tag>
	}
	return n
}
