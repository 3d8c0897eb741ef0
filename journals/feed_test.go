package journals

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pevans/papersync/articles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Review of Financial Studies - Advance Articles</title>
    <link>https://academic.oup.com/rfs</link>
    <item>
      <title>  Liquidity Cycles and
        Asset Prices </title>
      <link>https://academic.oup.com/rfs/article/1</link>
      <description>&lt;p&gt;We study &lt;b&gt;liquidity&lt;/b&gt; cycles.&lt;/p&gt;</description>
      <category>Research Article</category>
      <dc:creator>Ann Smith</dc:creator>
      <dc:creator>Bob Jones</dc:creator>
      <pubDate>Tue, 05 Mar 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Corrigendum</title>
      <link>https://academic.oup.com/rfs/article/2</link>
      <pubDate>sometime in spring</pubDate>
    </item>
  </channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Quantitative Finance</title>
  <entry>
    <title>Deep hedging with frictions</title>
    <link href="https://example.org/qf/1"/>
    <author><name>Carla Diaz</name></author>
    <author><name>Dan Wu</name></author>
    <published>2024-02-10T00:00:00Z</published>
    <summary>Hedging under transaction costs.</summary>
  </entry>
</feed>`

// TestFeedParser_RSS verifies RSS items map onto articles
func TestFeedParser_RSS(t *testing.T) {
	logger, _ := bufferLogger()
	result, err := NewFeedParser(Options{Journal: "Review of Financial Studies", Logger: logger}).Parse(context.Background(), rssFixture)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	first := result.Records[0]
	assert.Equal(t, "Review of Financial Studies", first.Journal)
	assert.Equal(t, "Liquidity Cycles and Asset Prices", str(first.Title))
	assert.Equal(t, "Ann Smith, Bob Jones", str(first.Author))
	assert.Equal(t, "2024-03-05", str(first.Date))
	assert.Equal(t, "Research Article", str(first.Type))
	assert.Equal(t, "We study liquidity cycles.", str(first.Abstract))
	assert.Equal(t, "https://academic.oup.com/rfs/article/1", str(first.Link))

	second := result.Records[1]
	assert.Nil(t, second.Date)
	assert.Nil(t, second.Author)
	assert.Nil(t, second.Abstract)

	require.Len(t, result.Problems, 1)
	assert.Equal(t, 1, result.Problems[0].Index)
	assert.Equal(t, "date", result.Problems[0].Field)
}

// TestFeedParser_Atom verifies Atom entries and the feed title fallback
func TestFeedParser_Atom(t *testing.T) {
	parser := NewFeedParser(Options{})
	result, err := parser.Parse(context.Background(), atomFixture)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	a := result.Records[0]
	assert.Equal(t, "Quantitative Finance", a.Journal, "journal falls back to the feed title")
	assert.Equal(t, a.Journal, parser.Journal(), "records are stored under the parser's journal")
	assert.Equal(t, "Deep hedging with frictions", str(a.Title))
	assert.Equal(t, "Carla Diaz, Dan Wu", str(a.Author))
	assert.Equal(t, "2024-02-10", str(a.Date))
	assert.Equal(t, "Hedging under transaction costs.", str(a.Abstract))
	assert.Equal(t, "https://example.org/qf/1", str(a.Link))
}

// TestFeedParser_TitleFallbackStored verifies records from an unnamed feed
// land under the feed title when stored with the parser's journal
func TestFeedParser_TitleFallbackStored(t *testing.T) {
	parser := NewFeedParser(Options{})
	result, err := parser.Parse(context.Background(), atomFixture)
	require.NoError(t, err)

	store, err := articles.NewArticleStore(filepath.Join(t.TempDir(), "articles.db"))
	require.NoError(t, err)
	defer store.Close()

	added, err := store.InsertIfAbsent(parser.Journal(), result.Records)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	journal := "Quantitative Finance"
	n, err := store.Count(articles.Filter{Journal: &journal})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestFeedParser_Empty verifies empty input is zero results
func TestFeedParser_Empty(t *testing.T) {
	result, err := NewFeedParser(Options{Journal: "J"}).Parse(context.Background(), "  \n")
	require.NoError(t, err)
	assert.Empty(t, result.Records)
}

// TestFeedParser_NotAFeed verifies garbage is a page-level error
func TestFeedParser_NotAFeed(t *testing.T) {
	_, err := NewFeedParser(Options{Journal: "J"}).Parse(context.Background(), "<html><body>login required</body></html>")
	assert.Error(t, err)
}
