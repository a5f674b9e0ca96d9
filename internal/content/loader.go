package content

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/pageforge/internal/frontmatter"
	"git.home.luguber.info/inful/pageforge/internal/pferrors"
	"git.home.luguber.info/inful/pageforge/internal/slugify"
)

// markdownExtensions lists the source file extensions the loader accepts.
var markdownExtensions = map[string]bool{".md": true, ".markdown": true}

// dateFormats are accepted front matter date layouts, tried in order.
var dateFormats = []string{"2006-01-02", time.RFC3339}

// Load reads the posts and pages directories and returns the fully loaded
// content set. Any malformed file (bad front matter, missing title or date,
// duplicate slug) aborts the load with a content error naming the file.
//
// A directory that does not exist yields no items rather than an error; the
// posts directory is the only one a site actually needs.
func Load(postsDir, pagesDir string) (*Set, error) {
	set := &Set{}
	bySlug := map[string]string{} // slug -> source path, for collision reporting

	posts, err := loadDir(postsDir, KindPost, bySlug)
	if err != nil {
		return nil, err
	}
	set.Posts = posts

	pages, err := loadDir(pagesDir, KindPage, bySlug)
	if err != nil {
		return nil, err
	}
	set.Pages = pages

	SortCanonical(set.Posts)
	sort.Slice(set.Pages, func(i, j int) bool { return set.Pages[i].Slug < set.Pages[j].Slug })

	return set, nil
}

// SortCanonical orders posts by date descending, slug ascending on ties.
// Listing pages and the feed must never depend on filesystem order.
func SortCanonical(posts []*Post) {
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Slug < posts[j].Slug
	})
}

func loadDir(dir string, kind Kind, bySlug map[string]string) ([]*Post, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return pferrors.IOError("walk", path, err)
		}
		if d.IsDir() || !markdownExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Walk order is already lexical, but make it explicit: load order must
	// not influence anything downstream.
	sort.Strings(files)

	posts := make([]*Post, 0, len(files))
	for _, path := range files {
		post, err := loadFile(path, kind)
		if err != nil {
			return nil, err
		}
		if other, taken := bySlug[post.Slug]; taken {
			return nil, pferrors.DuplicateSlug(post.Slug, path, other)
		}
		bySlug[post.Slug] = path
		posts = append(posts, post)
	}
	return posts, nil
}

func loadFile(path string, kind Kind) (*Post, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pferrors.IOError("read", path, err)
	}

	fm, body, had, err := frontmatter.Split(raw)
	if err != nil {
		return nil, pferrors.ContentWrap(path, err)
	}
	if !had {
		return nil, pferrors.ContentError(path, "missing front matter")
	}

	var meta Metadata
	if err := frontmatter.Parse(fm, &meta); err != nil {
		return nil, pferrors.ContentWrap(path, err)
	}
	if meta.Title == "" {
		return nil, pferrors.ContentError(path, "front matter missing required field: title")
	}

	post := &Post{
		Kind:       kind,
		Title:      meta.Title,
		Author:     meta.Author,
		Tags:       meta.Tags,
		Desc:       meta.Description,
		ShowTOC:    meta.TOC,
		Body:       body,
		SourcePath: path,
		Hash:       HashBytes(raw),
	}

	if meta.Slug != "" {
		post.Slug = slugify.Slug(meta.Slug)
	} else {
		post.Slug = slugify.Slug(meta.Title)
	}
	if post.Slug == "" {
		return nil, pferrors.ContentError(path, "cannot derive a slug from title")
	}

	if kind == KindPost {
		if meta.Date == "" {
			return nil, pferrors.ContentError(path, "front matter missing required field: date")
		}
		date, err := parseDate(meta.Date)
		if err != nil {
			return nil, pferrors.ContentError(path, "unparseable date: "+meta.Date)
		}
		post.Date = date
	}

	return post, nil
}

func parseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
