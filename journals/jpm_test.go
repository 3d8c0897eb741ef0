package journals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jpmFixture = `
<html><body>
<div class="view-content">
  <div class="item-list">
    <ul>
      <li>
        <article>
          <a class="latest-articles" href="/content/iijpormgmt/50/6/12">
            <span class="field--highwire-content-title">
              Factor Timing with Machine Learning
            </span>
          </a>
          <ul class="contributor-list">
            <li> Jane Doe </li>
            <li>Richard Roe</li>
          </ul>
          <span class="author-name">Jane Doe</span>
          <span class="author-name">05 March 2024 - The Journal of Portfolio Management 50 (6) 12-30</span>
        </article>
      </li>
      <li>
        <article>
          <a class="latest-articles" href="/content/iijpormgmt/50/6/31">
            <span class="field--highwire-content-title">Tail Risk Parity</span>
          </a>
          <span class="author-name">The Journal of Portfolio Management Special Issue - online first</span>
        </article>
      </li>
      <li>
        <article>
          <span class="field--highwire-content-title">Untitled Link</span>
          <ul class="contributor-list">Single Author Without List Items</ul>
        </article>
      </li>
    </ul>
  </div>
</div>
</body></html>
`

// TestJPMParser_Fixture verifies extraction for complete and partial entries
func TestJPMParser_Fixture(t *testing.T) {
	logger, _ := bufferLogger()
	result, err := NewJPMParser(Options{Logger: logger}).Parse(context.Background(), jpmFixture)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	first := result.Records[0]
	assert.Equal(t, "Journal of Portfolio Management", first.Journal)
	assert.Equal(t, "Factor Timing with Machine Learning", str(first.Title))
	assert.Equal(t, "Jane Doe, Richard Roe", str(first.Author))
	assert.Equal(t, "2024-03-05", str(first.Date))
	assert.Equal(t, "https://www.pm-research.com/content/iijpormgmt/50/6/12", str(first.Link))
	assert.Nil(t, first.Type)
	assert.Nil(t, first.Abstract)

	second := result.Records[1]
	assert.Equal(t, "Tail Risk Parity", str(second.Title))
	assert.Nil(t, second.Author, "missing contributor list")
	assert.Nil(t, second.Date, "citation without a date")

	third := result.Records[2]
	assert.Equal(t, "Single Author Without List Items", str(third.Author))
	assert.Nil(t, third.Link)
	assert.Nil(t, third.Date, "no citation line at all")

	require.Len(t, result.Problems, 1, "only the malformed citation is a problem")
	assert.Equal(t, 1, result.Problems[0].Index)
	assert.Equal(t, "date", result.Problems[0].Field)
}

// TestJPMParser_NoItemList verifies a page without the list is zero results
func TestJPMParser_NoItemList(t *testing.T) {
	html := `<html><body><article><span class="field--highwire-content-title">Stray</span></article></body></html>`

	result, err := NewJPMParser(Options{}).Parse(context.Background(), html)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
}

// TestJPMParser_CustomBase verifies links resolve against a configured base
func TestJPMParser_CustomBase(t *testing.T) {
	result, err := NewJPMParser(Options{BaseURL: "https://mirror.example"}).Parse(context.Background(), jpmFixture)
	require.NoError(t, err)
	require.NotEmpty(t, result.Records)
	assert.Equal(t, "https://mirror.example/content/iijpormgmt/50/6/12", str(result.Records[0].Link))
}
