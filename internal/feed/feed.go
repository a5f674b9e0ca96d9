// Package feed builds the RSS 2.0 document for a site's post set.
package feed

import (
	"encoding/xml"
	"time"
)

// Site carries the channel-level feed fields.
type Site struct {
	Title   string
	Author  string
	BaseURL string
}

// Entry is one feed item. Entries are expected in the site's canonical order
// (date descending, slug ascending on ties).
type Entry struct {
	Title string
	URL   string
	Date  time.Time
	Tags  []string
	HTML  string
}

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	LastBuildDate string `xml:"lastBuildDate,omitempty"`
	Items         []item `xml:"item"`
}

type item struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	PubDate     string   `xml:"pubDate"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category,omitempty"`
	Description string   `xml:"description"`
}

// Build renders the RSS 2.0 document. Entry HTML is carried in <description>
// (escaped by the XML encoder), truncated to at most truncate bytes without
// splitting a tag when truncate > 0.
//
// The channel lastBuildDate is the newest entry date, not wall-clock time, so
// identical inputs produce byte-identical feeds.
func Build(site Site, entries []Entry, truncate int) ([]byte, error) {
	ch := channel{
		Title:       site.Title,
		Link:        site.BaseURL,
		Description: site.Title,
	}

	for _, e := range entries {
		content := e.HTML
		if truncate > 0 {
			content = TruncateHTML(content, truncate)
		}
		ch.Items = append(ch.Items, item{
			Title:       e.Title,
			Link:        e.URL,
			GUID:        e.URL,
			PubDate:     e.Date.UTC().Format(time.RFC1123Z),
			Author:      site.Author,
			Categories:  e.Tags,
			Description: content,
		})
	}

	if len(entries) > 0 {
		ch.LastBuildDate = entries[0].Date.UTC().Format(time.RFC1123Z)
	}

	doc, err := xml.MarshalIndent(rss{Version: "2.0", Channel: ch}, "", "  ")
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(xml.Header)+len(doc)+1)
	out = append(out, xml.Header...)
	out = append(out, doc...)
	out = append(out, '\n')
	return out, nil
}
