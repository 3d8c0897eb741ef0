package journals

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/papersync/articles"
)

const (
	jpmJournal = "Journal of Portfolio Management"
	jpmBaseURL = "https://www.pm-research.com"
	// The citation line carrying the date reads
	// "05 March 2024 - The Journal of Portfolio Management ..."
	jpmCitationMarker = "The Journal of Portfolio Management"
)

// JPMParser reads the latest-articles list on pm-research.com. The page is
// rendered client side, so it has to be fetched in browser mode.
type JPMParser struct {
	journal string
	base    *url.URL
	logger  *slog.Logger
}

// NewJPMParser creates the Journal of Portfolio Management parser.
func NewJPMParser(opts Options) *JPMParser {
	journal := opts.Journal
	if journal == "" {
		journal = jpmJournal
	}
	base := opts.BaseURL
	if base == "" {
		base = jpmBaseURL
	}

	return &JPMParser{
		journal: journal,
		base:    mustBase(base),
		logger:  opts.logger(),
	}
}

func (p *JPMParser) Journal() string {
	return p.journal
}

func (p *JPMParser) Parse(_ context.Context, raw string) (*Result, error) {
	doc, err := newDocument(raw)
	if err != nil {
		return nil, err
	}

	c := newCollector(p.journal, p.logger)

	list := doc.Find("div.item-list").First()
	list.Find("article").Each(func(i int, s *goquery.Selection) {
		c.add(i, func() articles.Article {
			return articles.Article{
				Date:   p.date(c, i, s),
				Title:  textOf(s.Find("span.field--highwire-content-title")),
				Author: p.authors(s),
				Link:   resolveLink(p.base, attrOf(s.Find("a.latest-articles"), "href")),
			}
		})
	})

	return c.done(), nil
}

func (p *JPMParser) authors(s *goquery.Selection) *string {
	list := s.Find("ul.contributor-list").First()
	if list.Length() == 0 {
		return nil
	}
	if names := joinNames(list.Find("li")); names != nil {
		return names
	}
	return optional(list.Text())
}

func (p *JPMParser) date(c *collector, index int, s *goquery.Selection) *string {
	var citation string
	s.Find("span.author-name").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if text := span.Text(); strings.Contains(text, jpmCitationMarker) {
			citation = text
			return false
		}
		return true
	})
	if citation == "" {
		return nil
	}

	raw, _, _ := strings.Cut(citation, " - ")
	date, err := NormalizeDate(raw, dateLayout)
	if err != nil {
		c.problem(index, "date", err)
		return nil
	}
	return &date
}
