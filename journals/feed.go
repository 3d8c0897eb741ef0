package journals

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/pevans/papersync/articles"
)

var stripPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// FeedParser reads journals that publish their latest articles as RSS or
// Atom. gofeed detects the format and normalizes both into one item shape.
type FeedParser struct {
	journal string
	logger  *slog.Logger
}

// NewFeedParser creates a parser for an RSS or Atom listing. opts.Journal
// should be set; when empty the feed's own title is used.
func NewFeedParser(opts Options) *FeedParser {
	return &FeedParser{
		journal: opts.Journal,
		logger:  opts.logger(),
	}
}

// Journal returns the configured name. Without one it is empty until the
// first Parse, which adopts the feed's own title.
func (p *FeedParser) Journal() string {
	return p.journal
}

func (p *FeedParser) Parse(_ context.Context, raw string) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return &Result{Records: []articles.Article{}}, nil
	}

	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	if p.journal == "" {
		p.journal = cleanText(feed.Title)
	}

	c := newCollector(p.journal, p.logger)
	for i, item := range feed.Items {
		c.add(i, func() articles.Article {
			return articles.Article{
				Date:     p.date(c, i, item),
				Title:    optional(item.Title),
				Author:   feedAuthors(item),
				Type:     firstCategory(item),
				Abstract: summary(item),
				Link:     optional(item.Link),
			}
		})
	}

	return c.done(), nil
}

func (p *FeedParser) date(c *collector, index int, item *gofeed.Item) *string {
	var parsed *time.Time
	var raw string
	switch {
	case item.PublishedParsed != nil:
		parsed = item.PublishedParsed
	case item.UpdatedParsed != nil:
		parsed = item.UpdatedParsed
	case item.Published != "":
		raw = item.Published
	case item.Updated != "":
		raw = item.Updated
	}

	if parsed != nil {
		date := parsed.Format(time.DateOnly)
		return &date
	}
	if raw != "" {
		c.problem(index, "date", fmt.Errorf("%w: %q", ErrUnparsableDate, raw))
	}
	return nil
}

// summary strips any markup from the item description.
func summary(item *gofeed.Item) *string {
	desc := item.Description
	if desc == "" {
		desc = item.Content
	}
	if strings.TrimSpace(desc) == "" {
		return nil
	}

	// The strict policy escapes what it keeps, so entities are decoded after
	return optional(html.UnescapeString(stripPolicy.Sanitize(desc)))
}

// feedAuthors collects names from the item's author fields and Dublin Core
// creators, without repeats, in order of appearance.
func feedAuthors(item *gofeed.Item) *string {
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		name = cleanText(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		names = append(names, name)
	}

	for _, a := range item.Authors {
		if a != nil {
			add(a.Name)
		}
	}
	if item.Author != nil {
		add(item.Author.Name)
	}
	if item.DublinCoreExt != nil {
		for _, creator := range item.DublinCoreExt.Creator {
			add(creator)
		}
	}

	if len(names) == 0 {
		return nil
	}
	joined := strings.Join(names, ", ")
	return &joined
}

func firstCategory(item *gofeed.Item) *string {
	for _, category := range item.Categories {
		if s := optional(category); s != nil {
			return s
		}
	}
	return nil
}
