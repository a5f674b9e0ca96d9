package site

import (
	"git.home.luguber.info/inful/pageforge/internal/config"
	"git.home.luguber.info/inful/pageforge/internal/content"
	"git.home.luguber.info/inful/pageforge/internal/markdown"
	"git.home.luguber.info/inful/pageforge/internal/slugify"
	"git.home.luguber.info/inful/pageforge/internal/templates"
)

// siteContext builds the site-wide template value shared by every page.
func siteContext(cfg *config.Config) *templates.Map {
	return templates.NewMap().
		Set("title", templates.String(cfg.Title)).
		Set("author", templates.String(cfg.Author)).
		Set("base_url", templates.String(cfg.BaseURL))
}

// postContext builds the full per-post template value, including the rendered
// body and table of contents.
func postContext(cfg *config.Config, post *content.Post, doc *markdown.Document) *templates.Map {
	author := post.Author
	if author == "" {
		author = cfg.Author
	}
	desc := post.Desc
	if desc == "" {
		desc = doc.Description
	}

	toc := make(templates.List, 0, len(doc.Headings))
	for _, h := range doc.Headings {
		toc = append(toc, templates.NewMap().
			Set("level", templates.Number(h.Level)).
			Set("text", templates.String(h.Text)).
			Set("anchor", templates.String(h.Anchor)))
	}

	tags := make(templates.List, 0, len(post.Tags))
	for _, tag := range post.Tags {
		tags = append(tags, templates.NewMap().
			Set("name", templates.String(tag)).
			Set("url", templates.String("/tags/"+slugify.Slug(tag)+".html")))
	}

	return templates.NewMap().
		Set("title", templates.String(post.Title)).
		Set("author", templates.String(author)).
		Set("date", templates.String(post.Date.Format("2006-01-02"))).
		Set("tags", tags).
		Set("description", templates.String(desc)).
		Set("content", templates.String(doc.HTML)).
		Set("reading_time", templates.Number(doc.ReadingTime)).
		Set("show_toc", templates.Bool(post.ShowTOC)).
		Set("toc", toc).
		Set("url", templates.String("/"+post.Slug+".html"))
}

// pageContext builds the template value for a standalone page.
func pageContext(post *content.Post, doc *markdown.Document) *templates.Map {
	desc := post.Desc
	if desc == "" {
		desc = doc.Description
	}

	toc := make(templates.List, 0, len(doc.Headings))
	for _, h := range doc.Headings {
		toc = append(toc, templates.NewMap().
			Set("level", templates.Number(h.Level)).
			Set("text", templates.String(h.Text)).
			Set("anchor", templates.String(h.Anchor)))
	}

	return templates.NewMap().
		Set("title", templates.String(post.Title)).
		Set("description", templates.String(desc)).
		Set("content", templates.String(doc.HTML)).
		Set("show_toc", templates.Bool(post.ShowTOC)).
		Set("toc", toc).
		Set("url", templates.String("/"+post.Slug+".html"))
}

// summaryContext builds the abbreviated per-post value used by listings.
func summaryContext(cfg *config.Config, post *content.Post, doc *markdown.Document) *templates.Map {
	desc := post.Desc
	if desc == "" {
		desc = doc.Description
	}
	return templates.NewMap().
		Set("title", templates.String(post.Title)).
		Set("date", templates.String(post.Date.Format("2006-01-02"))).
		Set("description", templates.String(desc)).
		Set("reading_time", templates.Number(doc.ReadingTime)).
		Set("url", templates.String("/"+post.Slug+".html"))
}
