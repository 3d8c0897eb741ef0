package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/papersync/articles"
	"github.com/pevans/papersync/fetch"
	"golang.org/x/time/rate"
)

const (
	jdsJournal = "Journal of Data Science"
	jdsBaseURL = "https://jds-online.org"

	// AbstractNotFound is stored when an article page has no abstract.
	AbstractNotFound = "Abstract not found."

	// DefaultAbstractRate paces the per-article page requests.
	DefaultAbstractRate = 2.0

	// Some entries carry a bare date without the time part, so
	// time.DateOnly is tried as well
	jdsPublishedLayout = "2006-01-02 15:04:05"
)

// JDSParser reads the Journal of Data Science "to appear" page. The listing
// itself only carries title, date and type as data attributes, so the
// parser also loads every article page for its abstract. A run therefore
// costs one request per listed article.
type JDSParser struct {
	journal string
	base    *url.URL
	fetcher fetch.Fetcher
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewJDSParser creates the Journal of Data Science parser. opts.Fetcher is
// required.
func NewJDSParser(opts Options) (*JDSParser, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("jds parser needs a fetcher for article pages")
	}

	journal := opts.Journal
	if journal == "" {
		journal = jdsJournal
	}
	base := opts.BaseURL
	if base == "" {
		base = jdsBaseURL
	}
	perSecond := opts.AbstractRate
	if perSecond <= 0 {
		perSecond = DefaultAbstractRate
	}

	return &JDSParser{
		journal: journal,
		base:    mustBase(base),
		fetcher: opts.Fetcher,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:  opts.logger(),
	}, nil
}

func (p *JDSParser) Journal() string {
	return p.journal
}

func (p *JDSParser) Parse(ctx context.Context, raw string) (*Result, error) {
	doc, err := newDocument(raw)
	if err != nil {
		return nil, err
	}

	c := newCollector(p.journal, p.logger)

	var pageErr error
	doc.Find("div.row.filtered-item").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if err := ctx.Err(); err != nil {
			pageErr = err
			return false
		}

		c.add(i, func() articles.Article {
			a := articles.Article{
				Date:  p.date(c, i, s),
				Title: attrOf(s, "data-title"),
				Type:  attrOf(s, "data-type"),
				Link:  resolveLink(p.base, attrOf(s.Find("a.article-title"), "href")),
			}
			if a.Link != nil {
				a.Abstract = p.abstract(ctx, c, i, *a.Link)
			}
			return a
		})
		return true
	})
	if pageErr != nil {
		return nil, fmt.Errorf("parse %s listing: %w", p.journal, pageErr)
	}

	return c.done(), nil
}

func (p *JDSParser) date(c *collector, index int, s *goquery.Selection) *string {
	raw := attrOf(s, "data-published")
	if raw == nil {
		return nil
	}

	date, err := NormalizeDate(*raw, jdsPublishedLayout, time.DateOnly)
	if err != nil {
		c.problem(index, "date", err)
		return nil
	}
	return &date
}

// abstract loads the article page and returns its first paragraph block.
// Any failure leaves the sentinel text in place.
func (p *JDSParser) abstract(ctx context.Context, c *collector, index int, link string) *string {
	notFound := AbstractNotFound

	if err := p.limiter.Wait(ctx); err != nil {
		c.problem(index, "abstract", err)
		return &notFound
	}

	page, err := p.fetcher.Fetch(ctx, link)
	if err != nil {
		c.problem(index, "abstract", err)
		return &notFound
	}

	doc, err := newDocument(page)
	if err != nil {
		c.problem(index, "abstract", err)
		return &notFound
	}

	if text := blockTextOf(doc.Find("div.first.para")); text != nil {
		return text
	}
	return &notFound
}
