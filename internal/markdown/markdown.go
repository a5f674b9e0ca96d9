// Package markdown renders post bodies to HTML and derives document structure
// (table of contents, images, description, reading time) from the AST.
package markdown

import (
	"bytes"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/pageforge/internal/slugify"
)

// Heading is one table-of-contents entry in document order.
type Heading struct {
	Level  int
	Text   string
	Anchor string
}

// Image records an image reference found in a document. Relative sources are
// rewritten to Target under /assets/ before rendering.
type Image struct {
	Source string
	Target string
}

// Document is the rendered form of one Markdown body.
type Document struct {
	HTML        []byte
	Headings    []Heading
	Images      []Image
	Description string
	ReadingTime int // minutes, at 225 words per minute
}

const wordsPerMinute = 225

// descriptionWords caps the auto-extracted description length.
const descriptionWords = 25

// Render parses body, assigns stable anchor ids to headings, rewrites
// relative image destinations under /assets/, and renders the HTML fragment.
//
// Structurally invalid input (an unterminated code fence) fails; unknown
// inline syntax degrades to literal text per CommonMark.
func Render(body []byte) (*Document, error) {
	if err := checkFences(body); err != nil {
		return nil, err
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	doc := &Document{}
	anchors := slugify.NewUniquer()
	wordCount := 0

	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gmast.Heading:
			heading := Heading{
				Level:  node.Level,
				Text:   nodeText(node, body),
				Anchor: anchors.Next(slugify.Slug(nodeText(node, body))),
			}
			node.SetAttributeString("id", []byte(heading.Anchor))
			doc.Headings = append(doc.Headings, heading)

		case *gmast.Image:
			img := Image{Source: string(node.Destination)}
			if target, ok := assetTarget(img.Source); ok {
				img.Target = target
				node.Destination = []byte(target)
			} else {
				img.Target = img.Source
			}
			doc.Images = append(doc.Images, img)

		case *gmast.Paragraph:
			if doc.Description == "" {
				doc.Description = summarize(nodeText(node, body))
			}

		case *gmast.Text:
			wordCount += len(strings.Fields(string(node.Segment.Value(body))))

		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			for i := 0; i < node.Lines().Len(); i++ {
				line := node.Lines().At(i)
				wordCount += len(strings.Fields(string(line.Value(body))))
			}
		}
		return gmast.WalkContinue, nil
	})

	doc.ReadingTime = (wordCount + wordsPerMinute - 1) / wordsPerMinute

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, body, root); err != nil {
		return nil, err
	}
	doc.HTML = buf.Bytes()

	return doc, nil
}

// nodeText collects the plain text content beneath a node in document order.
func nodeText(n gmast.Node, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// assetTarget maps a relative image destination onto the published assets path.
// Absolute URLs and absolute site paths are left untouched.
func assetTarget(dest string) (string, bool) {
	if dest == "" || strings.HasPrefix(dest, "/") || strings.Contains(dest, "://") || strings.HasPrefix(dest, "data:") {
		return "", false
	}
	return "/assets/" + path.Base(dest), true
}

// summarize truncates text to the description word budget.
func summarize(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if len(words) <= descriptionWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:descriptionWords], " ") + "..."
}
