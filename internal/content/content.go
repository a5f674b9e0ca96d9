// Package content loads source files and produces unrendered Post and Page
// records with stable content hashes.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Kind distinguishes feed-bearing posts from standalone pages.
type Kind string

const (
	KindPost Kind = "post"
	KindPage Kind = "page"
)

// SourceFile is one file read from the source tree. Read-only after load.
type SourceFile struct {
	Path string
	Raw  []byte
	Hash string
}

// Metadata is the parsed front matter of a post or page.
type Metadata struct {
	Title       string   `yaml:"title"`
	Author      string   `yaml:"author,omitempty"`
	Slug        string   `yaml:"slug,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Date        string   `yaml:"date,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	TOC         bool     `yaml:"table_of_contents,omitempty"`
}

// Post is one unrendered content item. Rendering happens downstream in the
// build graph; no partial Post is ever handed out by the loader.
type Post struct {
	Kind       Kind
	Slug       string
	Title      string
	Author     string
	Date       time.Time
	Tags       []string
	Desc       string
	ShowTOC    bool
	Body       []byte
	SourcePath string
	Hash       string
}

// Set is the full loaded content of a site.
type Set struct {
	Posts []*Post // feed-bearing posts, canonical order
	Pages []*Post // standalone pages, slug order
}

// All returns posts then pages in canonical order.
func (s *Set) All() []*Post {
	out := make([]*Post, 0, len(s.Posts)+len(s.Pages))
	out = append(out, s.Posts...)
	out = append(out, s.Pages...)
	return out
}

// HashBytes returns the hex sha256 of data, the content hash used across the
// build graph.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
