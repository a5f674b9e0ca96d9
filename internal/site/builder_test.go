package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pageforge/internal/config"
	"git.home.luguber.info/inful/pageforge/internal/pferrors"
	"git.home.luguber.info/inful/pageforge/internal/state"
)

func testSite(t *testing.T) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()

	cfg := &config.Config{
		Title:     "Test Site",
		Author:    "Tester",
		BaseURL:   "https://example.com",
		Output:    filepath.Join(root, "dist"),
		Posts:     filepath.Join(root, "posts"),
		Pages:     filepath.Join(root, "pages"),
		Templates: filepath.Join(root, "templates"),
		Assets:    filepath.Join(root, "assets"),
		Port:      8080,
	}

	require.NoError(t, os.MkdirAll(cfg.Posts, 0o755))
	require.NoError(t, os.MkdirAll(cfg.Pages, 0o755))
	require.NoError(t, os.MkdirAll(cfg.Assets, 0o755))

	writeFile(t, filepath.Join(cfg.Posts, "first.md"), `---
title: First Post
date: 2024-01-10
tags: [go, web]
---
# Hello

First post body with enough words to read.
`)
	writeFile(t, filepath.Join(cfg.Posts, "second.md"), `---
title: Second Post
date: 2024-03-05
tags: [go]
---
Second post body.
`)
	writeFile(t, filepath.Join(cfg.Pages, "about.md"), `---
title: About
---
About this site.
`)
	writeFile(t, filepath.Join(cfg.Assets, "styles.css"), "body { margin: 0 }\n")

	return cfg, root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildProducesExpectedArtifacts(t *testing.T) {
	cfg, _ := testSite(t)
	b := NewBuilder(cfg, nil)

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	paths := res.Snapshot.Paths()
	assert.Contains(t, paths, "index.html")
	assert.Contains(t, paths, "first-post.html")
	assert.Contains(t, paths, "second-post.html")
	assert.Contains(t, paths, "about.html")
	assert.Contains(t, paths, "tags.html")
	assert.Contains(t, paths, "tags/go.html")
	assert.Contains(t, paths, "tags/web.html")
	assert.Contains(t, paths, "feed.xml")
	assert.Contains(t, paths, "assets/styles.css")

	// same tree on disk
	data, err := os.ReadFile(filepath.Join(cfg.Output, "index.html"))
	require.NoError(t, err)
	art, ok := res.Snapshot.Get("index.html")
	require.True(t, ok)
	assert.Equal(t, art.Data, data)
}

func TestBuildCanonicalOrder(t *testing.T) {
	cfg, _ := testSite(t)
	b := NewBuilder(cfg, nil)

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	art, ok := res.Snapshot.Get("index.html")
	require.True(t, ok)
	html := string(art.Data)

	// newest first: Second Post (2024-03-05) before First Post (2024-01-10)
	second := strings.Index(html, "Second Post")
	first := strings.Index(html, "First Post")
	require.GreaterOrEqual(t, second, 0)
	require.GreaterOrEqual(t, first, 0)
	assert.Less(t, second, first)

	// the feed follows the same canonical order
	rss, ok := res.Snapshot.Get("feed.xml")
	require.True(t, ok)
	xml := string(rss.Data)
	assert.Less(t, strings.Index(xml, "Second Post"), strings.Index(xml, "First Post"))
}

func TestBuildDeterministic(t *testing.T) {
	cfg, _ := testSite(t)

	res1, err := NewBuilder(cfg, nil).Build(context.Background())
	require.NoError(t, err)
	res2, err := NewBuilder(cfg, nil).Build(context.Background())
	require.NoError(t, err)

	require.Equal(t, res1.Snapshot.Paths(), res2.Snapshot.Paths())
	for _, p := range res1.Snapshot.Paths() {
		a1, _ := res1.Snapshot.Get(p)
		a2, _ := res2.Snapshot.Get(p)
		assert.Equal(t, a1.Data, a2.Data, "artifact %s differs between builds", p)
	}
}

func TestRebuildSkipsUnchangedNodes(t *testing.T) {
	cfg, _ := testSite(t)
	b := NewBuilder(cfg, nil)

	res1, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res1.Stats.Skipped)

	res2, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res2.Stats.Rendered)
	assert.Equal(t, res1.Stats.Rendered, res2.Stats.Skipped)
	assert.Equal(t, res1.Snapshot.Revision+1, res2.Snapshot.Revision)
}

func TestRebuildAfterEditRendersOnlyAffected(t *testing.T) {
	cfg, _ := testSite(t)
	b := NewBuilder(cfg, nil)

	res1, err := b.Build(context.Background())
	require.NoError(t, err)

	writeFile(t, filepath.Join(cfg.Posts, "first.md"), `---
title: First Post
date: 2024-01-10
tags: [go, web]
---
Edited body.
`)

	res2, err := b.Build(context.Background())
	require.NoError(t, err)

	n, ok := res2.Graph.Get("post:first-post")
	require.True(t, ok)
	assert.Equal(t, StateFresh, n.State)

	// the untouched leaf is reused byte for byte
	a1, _ := res1.Snapshot.Get("second-post.html")
	a2, _ := res2.Snapshot.Get("second-post.html")
	assert.Equal(t, a1.Data, a2.Data)
	assert.Greater(t, res2.Stats.Skipped, 0)

	// aggregates see the edit
	edited, _ := res2.Snapshot.Get("first-post.html")
	assert.Contains(t, string(edited.Data), "Edited body.")
}

func TestDuplicateSlugAbortsWithoutTouchingOutput(t *testing.T) {
	cfg, _ := testSite(t)
	b := NewBuilder(cfg, nil)

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(cfg.Output, "index.html"))
	require.NoError(t, err)

	writeFile(t, filepath.Join(cfg.Posts, "clash.md"), `---
title: First Post
date: 2024-05-01
---
Same title, same slug.
`)

	_, err = b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, pferrors.IsCategory(err, pferrors.CategoryContent))

	after, err := os.ReadFile(filepath.Join(cfg.Output, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, before, after, "live output must be untouched by a failed build")
}

func TestParseFailureKeepsLiveOutput(t *testing.T) {
	cfg, _ := testSite(t)
	b := NewBuilder(cfg, nil)

	_, err := b.Build(context.Background())
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(cfg.Output, "second-post.html"))
	require.NoError(t, err)

	writeFile(t, filepath.Join(cfg.Posts, "second.md"), `---
title: Second Post
date: 2024-03-05
---
`+"```go\nfunc broken() {\n")

	_, err = b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, pferrors.IsCategory(err, pferrors.CategoryParse))

	after, err := os.ReadFile(filepath.Join(cfg.Output, "second-post.html"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStatePersistsAcrossBuilders(t *testing.T) {
	cfg, root := testSite(t)

	st, err := state.Open(filepath.Join(root, "state.db"))
	require.NoError(t, err)

	b1 := NewBuilder(cfg, st)
	res1, err := b1.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// fresh process: restore hashes, reuse the live output tree
	st2, err := state.Open(filepath.Join(root, "state.db"))
	require.NoError(t, err)
	defer st2.Close()

	b2 := NewBuilder(cfg, st2)
	require.NoError(t, b2.RestoreState(context.Background()))
	res2, err := b2.Build(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res2.Stats.Rendered)
	assert.Equal(t, res1.Stats.Rendered, res2.Stats.Skipped)
}

func TestFeedDisabled(t *testing.T) {
	cfg, _ := testSite(t)
	off := false
	cfg.Feed.Enabled = &off

	res, err := NewBuilder(cfg, nil).Build(context.Background())
	require.NoError(t, err)
	_, ok := res.Snapshot.Get("feed.xml")
	assert.False(t, ok)
}

func TestTagSpellingsShareOnePage(t *testing.T) {
	cfg, _ := testSite(t)

	// "Go" and "go" both map to tags/go.html; neither render may shadow
	// the other's posts
	writePost3 := func(name, title, date, tag string) {
		writeFile(t, filepath.Join(cfg.Posts, name), `---
title: `+title+`
date: `+date+`
tags: [`+tag+`]
---
Body.
`)
	}
	writePost3("upper.md", "Upper Tagged", "2024-06-01", "Go")
	writePost3("lower.md", "Lower Tagged", "2024-06-02", "go")

	res, err := NewBuilder(cfg, nil).Build(context.Background())
	require.NoError(t, err)

	page, ok := res.Snapshot.Get("tags/go.html")
	require.True(t, ok)
	html := string(page.Data)
	assert.Contains(t, html, "Upper Tagged")
	assert.Contains(t, html, "Lower Tagged")

	_, ok = res.Graph.Get("tag:go")
	assert.True(t, ok)

	// a single tags-index entry links the shared page
	index, ok := res.Snapshot.Get("tags.html")
	require.True(t, ok)
	assert.Equal(t, 1, strings.Count(string(index.Data), `href="/tags/go.html"`))
}

func TestPostImagesPublishedUnderAssets(t *testing.T) {
	cfg, _ := testSite(t)

	writeFile(t, filepath.Join(cfg.Posts, "diagram.png"), "not-really-a-png")
	writeFile(t, filepath.Join(cfg.Posts, "third.md"), `---
title: Third Post
date: 2024-04-01
---
![diagram](diagram.png)
`)

	res, err := NewBuilder(cfg, nil).Build(context.Background())
	require.NoError(t, err)

	art, ok := res.Snapshot.Get("assets/diagram.png")
	require.True(t, ok)
	assert.Equal(t, "not-really-a-png", string(art.Data))

	post, _ := res.Snapshot.Get("third-post.html")
	assert.Contains(t, string(post.Data), `src="/assets/diagram.png"`)
}
