// Package site owns the build graph and turns loaded content into published
// snapshots: deciding what must re-render, running leaf renders on a worker
// pool, computing aggregates, and publishing output atomically.
package site

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pageforge/internal/config"
	"git.home.luguber.info/inful/pageforge/internal/content"
	"git.home.luguber.info/inful/pageforge/internal/feed"
	"git.home.luguber.info/inful/pageforge/internal/logfields"
	"git.home.luguber.info/inful/pageforge/internal/markdown"
	"git.home.luguber.info/inful/pageforge/internal/pferrors"
	"git.home.luguber.info/inful/pageforge/internal/slugify"
	"git.home.luguber.info/inful/pageforge/internal/state"
	"git.home.luguber.info/inful/pageforge/internal/templates"
)

// Stats summarizes one build pass.
type Stats struct {
	Rendered int
	Skipped  int
	Duration time.Duration
}

// Result is the outcome of a successful build pass.
type Result struct {
	Snapshot *Snapshot
	Graph    *Graph
	Stats    Stats
}

// Builder runs build passes. It is single-consumer: one Build at a time.
type Builder struct {
	cfg        *config.Config
	stateStore *state.Store // optional persistent node hashes

	revision    uint64
	prevSnap    *Snapshot
	prevRecords map[string]state.Record
}

// NewBuilder creates a Builder. st may be nil; persistent incrementality is
// then disabled and freshness tracking is in-memory only.
func NewBuilder(cfg *config.Config, st *state.Store) *Builder {
	return &Builder{cfg: cfg, stateStore: st, prevRecords: make(map[string]state.Record)}
}

type leafResult struct {
	post    *content.Post
	doc     *markdown.Document
	art     Artifact
	skipped bool
}

// Build runs one full pass: load, render stale nodes, publish atomically.
// On any content, parse, or template error the pass aborts with no output
// changes; the previously published output stays live.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	buildID := uuid.NewString()
	slog.Info("build started", logfields.BuildID(buildID))

	store, err := templates.Load(b.cfg.Templates)
	if err != nil {
		return nil, err
	}

	set, err := content.Load(b.cfg.Posts, b.cfg.Pages)
	if err != nil {
		return nil, err
	}

	cfgHash, err := b.configHash()
	if err != nil {
		return nil, err
	}

	graph := NewGraph()
	all := set.All()
	for _, p := range all {
		graph.Add(&Node{
			ID:   string(p.Kind) + ":" + p.Slug,
			Kind: KindLeaf,
			Path: p.Slug + ".html",
		})
	}

	results, err := b.renderLeaves(ctx, graph, store, all, cfgHash)
	if err != nil {
		return nil, err
	}

	artifacts := make(map[string]Artifact, len(results)+8)
	stats := Stats{}
	docs := make(map[string]*markdown.Document, len(results))
	for _, r := range results {
		artifacts[r.art.Path] = r.art
		docs[r.post.Slug] = r.doc
		if r.skipped {
			stats.Skipped++
		} else {
			stats.Rendered++
		}
	}

	// Aggregate inputs: the ordered post set. Any leaf change flows into
	// every aggregate through these hashes.
	postHashes := make([]string, 0, len(set.Posts))
	for _, p := range set.Posts {
		postHashes = append(postHashes, p.Slug+":"+p.Hash)
	}
	setHash := joinHashes(postHashes)

	if err := b.renderAggregates(graph, store, set, docs, cfgHash, setHash, artifacts, &stats); err != nil {
		return nil, err
	}

	if err := b.collectAssets(set, docs, artifacts); err != nil {
		return nil, err
	}

	if err := publishDir(b.cfg.Output, buildID, artifacts); err != nil {
		return nil, err
	}

	snap := newSnapshot(buildID, artifacts)
	b.revision++
	snap.Revision = b.revision

	b.rememberPass(ctx, graph, snap)

	stats.Duration = time.Since(start)
	slog.Info("build complete",
		logfields.BuildID(buildID),
		logfields.Revision(snap.Revision),
		slog.Int("rendered", stats.Rendered),
		slog.Int("skipped", stats.Skipped),
		logfields.DurationMS(float64(stats.Duration.Milliseconds())))

	return &Result{Snapshot: snap, Graph: graph, Stats: stats}, nil
}

// renderLeaves renders all leaf nodes on a bounded worker pool. Leaves share
// no mutable state; results are collected positionally and merged in the
// caller's canonical order.
func (b *Builder) renderLeaves(ctx context.Context, graph *Graph, store *templates.Store, posts []*content.Post, cfgHash string) ([]*leafResult, error) {
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}

	results := make([]*leafResult, len(posts))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, post := range posts {
		wg.Add(1)
		go func(i int, post *content.Post) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			stop := firstErr != nil || ctx.Err() != nil
			mu.Unlock()
			if stop {
				return
			}

			res, err := b.renderLeaf(graph, store, post, cfgHash)
			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			results[i] = res
			mu.Unlock()
		}(i, post)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Builder) renderLeaf(graph *Graph, store *templates.Store, post *content.Post, cfgHash string) (*leafResult, error) {
	node, _ := graph.Get(string(post.Kind) + ":" + post.Slug)

	doc, err := markdown.Render(post.Body)
	if err != nil {
		return nil, pferrors.Wrap(err, pferrors.CategoryParse, pferrors.SeverityFatal, "markdown parse failed").
			WithContext("path", post.SourcePath)
	}

	tplID := "post"
	if post.Kind == content.KindPage {
		tplID = "page"
	}
	node.InputHash = hashInputs(string(post.Kind), post.Hash, store.Hash(tplID), cfgHash)

	if art, ok := b.reusePrevious(node); ok {
		return &leafResult{post: post, doc: doc, art: art, skipped: true}, nil
	}

	node.State = StateRendering
	var ctx templates.Context
	if post.Kind == content.KindPage {
		ctx = templates.NewMap().
			Set("site", siteContext(b.cfg)).
			Set("page", pageContext(post, doc))
	} else {
		ctx = templates.NewMap().
			Set("site", siteContext(b.cfg)).
			Set("post", postContext(b.cfg, post, doc))
	}

	html, err := store.Render(tplID, ctx)
	if err != nil {
		return nil, pferrors.BuildFailed(node.ID, err).WithContext("file", post.SourcePath)
	}

	art := Artifact{Path: node.Path, Data: []byte(html), Hash: content.HashBytes([]byte(html))}
	node.OutputHash = art.Hash
	node.State = StateFresh
	return &leafResult{post: post, doc: doc, art: art}, nil
}

func (b *Builder) renderAggregates(graph *Graph, store *templates.Store, set *content.Set, docs map[string]*markdown.Document, cfgHash, setHash string, artifacts map[string]Artifact, stats *Stats) error {
	site := siteContext(b.cfg)

	// index listing
	index := graph.Add(&Node{ID: "index", Kind: KindAggregate, Path: "index.html"})
	index.InputHash = hashInputs("index", cfgHash, store.Hash("index"), setHash)
	if err := b.renderAggregate(index, artifacts, stats, func() ([]byte, error) {
		list := make(templates.List, 0, len(set.Posts))
		for _, p := range set.Posts {
			list = append(list, summaryContext(b.cfg, p, docs[p.Slug]))
		}
		out, err := store.Render("index", templates.NewMap().Set("site", site).Set("posts", list))
		return []byte(out), err
	}); err != nil {
		return err
	}

	if err := b.renderTagPages(graph, store, set, docs, cfgHash, setHash, artifacts, stats); err != nil {
		return err
	}

	// RSS feed
	if b.cfg.FeedEnabled() {
		fn := graph.Add(&Node{ID: "feed", Kind: KindAggregate, Path: "feed.xml"})
		fn.InputHash = hashInputs("feed", cfgHash, setHash)
		if err := b.renderAggregate(fn, artifacts, stats, func() ([]byte, error) {
			return b.buildFeed(set, docs)
		}); err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) renderTagPages(graph *Graph, store *templates.Store, set *content.Set, docs map[string]*markdown.Document, cfgHash, setHash string, artifacts map[string]Artifact, stats *Stats) error {
	site := siteContext(b.cfg)

	// Tags group by URL path segment, not raw name: "Go" and "go" are the
	// same tag page. The first-seen spelling (canonical post order) is the
	// display name.
	tagged := make(map[string][]*content.Post)
	display := make(map[string]string)
	var segments []string
	for _, p := range set.Posts {
		counted := make(map[string]bool)
		for _, tag := range p.Tags {
			seg := tagPathSegment(tag)
			if seg == "" || counted[seg] {
				continue
			}
			counted[seg] = true
			if _, seen := tagged[seg]; !seen {
				segments = append(segments, seg)
				display[seg] = tag
			}
			tagged[seg] = append(tagged[seg], p)
		}
	}
	sort.Strings(segments)

	// tags index
	tagsNode := graph.Add(&Node{ID: "tags", Kind: KindAggregate, Path: "tags.html"})
	tagsNode.InputHash = hashInputs("tags", cfgHash, store.Hash("tags"), setHash)
	if err := b.renderAggregate(tagsNode, artifacts, stats, func() ([]byte, error) {
		list := make(templates.List, 0, len(segments))
		for _, seg := range segments {
			list = append(list, templates.NewMap().
				Set("name", templates.String(display[seg])).
				Set("url", templates.String("/tags/"+seg+".html")).
				Set("count", templates.Number(len(tagged[seg]))))
		}
		out, err := store.Render("tags", templates.NewMap().Set("site", site).Set("tags", list))
		return []byte(out), err
	}); err != nil {
		return err
	}

	// one listing per tag
	for _, seg := range segments {
		node := graph.Add(&Node{
			ID:   "tag:" + seg,
			Kind: KindAggregate,
			Path: "tags/" + seg + ".html",
		})
		node.InputHash = hashInputs("tag", seg, display[seg], cfgHash, store.Hash("tag"), setHash)
		posts := tagged[seg]
		name := display[seg]
		if err := b.renderAggregate(node, artifacts, stats, func() ([]byte, error) {
			list := make(templates.List, 0, len(posts))
			for _, p := range posts {
				list = append(list, summaryContext(b.cfg, p, docs[p.Slug]))
			}
			out, err := store.Render("tag", templates.NewMap().
				Set("site", site).
				Set("tag", templates.String(name)).
				Set("posts", list))
			return []byte(out), err
		}); err != nil {
			return err
		}
	}

	return nil
}

// renderAggregate runs the node state machine for one aggregate: skip when
// inputs are unchanged and the previous artifact is still available,
// otherwise render.
func (b *Builder) renderAggregate(node *Node, artifacts map[string]Artifact, stats *Stats, render func() ([]byte, error)) error {
	if art, ok := b.reusePrevious(node); ok {
		artifacts[art.Path] = art
		stats.Skipped++
		return nil
	}

	node.State = StateRendering
	data, err := render()
	if err != nil {
		return pferrors.BuildFailed(node.ID, err)
	}

	art := Artifact{Path: node.Path, Data: data, Hash: content.HashBytes(data)}
	node.OutputHash = art.Hash
	node.State = StateFresh
	artifacts[art.Path] = art
	stats.Rendered++
	return nil
}

// reusePrevious reports whether node's inputs are unchanged since the last
// pass and its previous output bytes are still retrievable.
func (b *Builder) reusePrevious(node *Node) (Artifact, bool) {
	rec, ok := b.prevRecords[node.ID]
	if !ok || rec.InputHash != node.InputHash {
		return Artifact{}, false
	}

	if b.prevSnap != nil {
		if art, ok := b.prevSnap.Get(node.Path); ok && art.Hash == rec.OutputHash {
			node.State = StateFresh
			node.OutputHash = rec.OutputHash
			return art, true
		}
	}

	// Cold start: fall back to the live output directory.
	data, err := os.ReadFile(filepath.Join(b.cfg.Output, filepath.FromSlash(node.Path)))
	if err != nil || content.HashBytes(data) != rec.OutputHash {
		return Artifact{}, false
	}
	node.State = StateFresh
	node.OutputHash = rec.OutputHash
	return Artifact{Path: node.Path, Data: data, Hash: rec.OutputHash}, true
}

func (b *Builder) buildFeed(set *content.Set, docs map[string]*markdown.Document) ([]byte, error) {
	base := strings.TrimRight(b.cfg.BaseURL, "/")
	entries := make([]feed.Entry, 0, len(set.Posts))
	for _, p := range set.Posts {
		entries = append(entries, feed.Entry{
			Title: p.Title,
			URL:   base + "/" + p.Slug + ".html",
			Date:  p.Date,
			Tags:  p.Tags,
			HTML:  string(docs[p.Slug].HTML),
		})
	}
	return feed.Build(feed.Site{Title: b.cfg.Title, Author: b.cfg.Author, BaseURL: base}, entries, b.cfg.Feed.Truncate)
}

// collectAssets copies the assets directory plus every image referenced by a
// post into the snapshot under assets/.
func (b *Builder) collectAssets(set *content.Set, docs map[string]*markdown.Document, artifacts map[string]Artifact) error {
	if b.cfg.Assets != "" {
		if _, err := os.Stat(b.cfg.Assets); err == nil {
			err := filepath.WalkDir(b.cfg.Assets, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return pferrors.IOError("walk", p, err)
				}
				if d.IsDir() {
					return nil
				}
				rel, err := filepath.Rel(b.cfg.Assets, p)
				if err != nil {
					return pferrors.IOError("rel", p, err)
				}
				data, err := os.ReadFile(p)
				if err != nil {
					return pferrors.IOError("read", p, err)
				}
				ap := "assets/" + filepath.ToSlash(rel)
				artifacts[ap] = Artifact{Path: ap, Data: data, Hash: content.HashBytes(data)}
				return nil
			})
			if err != nil {
				return err
			}
		}
	}

	// Images referenced with relative paths resolve against the source file's
	// directory and publish under assets/ (matching the rewritten URLs).
	for _, p := range set.All() {
		doc := docs[p.Slug]
		if doc == nil {
			continue
		}
		for _, img := range doc.Images {
			if !strings.HasPrefix(img.Target, "/assets/") {
				continue
			}
			src := filepath.Join(filepath.Dir(p.SourcePath), filepath.FromSlash(img.Source))
			data, err := os.ReadFile(src)
			if err != nil {
				slog.Warn("referenced image not found",
					logfields.File(p.SourcePath), logfields.Path(img.Source))
				continue
			}
			ap := strings.TrimPrefix(img.Target, "/")
			artifacts[ap] = Artifact{Path: ap, Data: data, Hash: content.HashBytes(data)}
		}
	}
	return nil
}

// rememberPass records node hashes for the next pass, in memory and (when
// configured) in the persistent state store.
func (b *Builder) rememberPass(ctx context.Context, graph *Graph, snap *Snapshot) {
	records := make(map[string]state.Record, len(graph.IDs()))
	keep := make(map[string]bool)
	for _, id := range graph.IDs() {
		n, _ := graph.Get(id)
		records[id] = state.Record{InputHash: n.InputHash, OutputHash: n.OutputHash}
		keep[id] = true
	}
	b.prevRecords = records
	b.prevSnap = snap

	if b.stateStore == nil {
		return
	}
	for id, rec := range records {
		if err := b.stateStore.Put(ctx, id, rec); err != nil {
			slog.Warn("failed to persist node state", logfields.Node(id), logfields.Error(err))
			return
		}
	}
	if _, err := b.stateStore.Prune(ctx, keep); err != nil {
		slog.Warn("failed to prune node state", logfields.Error(err))
	}
}

// RestoreState seeds freshness tracking from the persistent store, enabling
// incremental builds across process restarts.
func (b *Builder) RestoreState(ctx context.Context) error {
	if b.stateStore == nil {
		return nil
	}
	records, err := b.stateStore.All(ctx)
	if err != nil {
		return err
	}
	b.prevRecords = records
	return nil
}

func (b *Builder) configHash() (string, error) {
	data, err := json.Marshal(b.cfg)
	if err != nil {
		return "", pferrors.Wrap(err, pferrors.CategoryInternal, pferrors.SeverityFatal, "failed to hash config")
	}
	return content.HashBytes(data), nil
}

// tagPathSegment derives the URL path segment for a tag name.
func tagPathSegment(tag string) string {
	return slugify.Slug(tag)
}
