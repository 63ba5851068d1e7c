package browser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopHTML = `<html><head><title>Shop</title><script>track()</script></head>
<body data-playwright-visible="true">
  <button id="buy" data-playwright-visible="true">Buy</button>
  <div id="promo">Below the fold</div>
</body></html>`

func TestDistillBlankPageIsNotLoaded(t *testing.T) {
	tab := newFakeTab(&recorder{}, "t")
	d := NewContentDistiller(true, testDistillerConfig())

	page, err := d.Distill(tab)
	assert.Nil(t, page)
	assert.ErrorIs(t, err, ErrPageNotLoaded)
	assert.Zero(t, tab.annotations)
}

func TestDistillFullKeepsWholeDocument(t *testing.T) {
	tab := newFakeTab(&recorder{}, "t")
	tab.url = "https://shop.test/"
	tab.html = shopHTML

	page, err := NewContentDistiller(false, testDistillerConfig()).Distill(tab)
	require.NoError(t, err)

	assert.Zero(t, tab.annotations)
	assert.Equal(t, "Shop", page.Title)
	assert.Equal(t, "https://shop.test/", page.URL)
	assert.Contains(t, page.HTML, "Below the fold")
	assert.NotContains(t, page.HTML, "track()")
	assert.Positive(t, page.Tokens)
	assert.False(t, page.Truncated)
}

func TestDistillVisibleOnlyAnnotatesAndFilters(t *testing.T) {
	tab := newFakeTab(&recorder{}, "t")
	tab.url = "https://shop.test/"
	tab.html = shopHTML

	page, err := NewContentDistiller(true, testDistillerConfig()).Distill(tab)
	require.NoError(t, err)

	assert.Equal(t, 1, tab.annotations)
	assert.Contains(t, page.HTML, `<button id="buy" data-playwright-visible="true">`)
	assert.NotContains(t, page.HTML, "Below the fold")
}

func TestDistillRetriesOnceAfterContextDestroyed(t *testing.T) {
	tab := newFakeTab(&recorder{}, "t")
	tab.url = "https://shop.test/checkout"
	tab.html = shopHTML
	tab.annotateErrs = []error{ErrContextDestroyed}

	page, err := NewContentDistiller(true, testDistillerConfig()).Distill(tab)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Equal(t, 2, tab.annotations)
	assert.Equal(t, []string{"https://shop.test/checkout"}, tab.waitedURLs)
}

func TestDistillRetriesAtMostOnce(t *testing.T) {
	tab := newFakeTab(&recorder{}, "t")
	tab.url = "https://shop.test/"
	tab.annotateErrs = []error{ErrContextDestroyed, ErrContextDestroyed}

	_, err := NewContentDistiller(true, testDistillerConfig()).Distill(tab)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContextDestroyed)
	assert.Equal(t, 2, tab.annotations)
}

func TestDistillDoesNotRetryOtherErrors(t *testing.T) {
	tab := newFakeTab(&recorder{}, "t")
	tab.url = "https://shop.test/"
	tab.annotateErrs = []error{errors.New("syntax error")}

	_, err := NewContentDistiller(true, testDistillerConfig()).Distill(tab)
	require.Error(t, err)
	assert.Equal(t, 1, tab.annotations)
	assert.Empty(t, tab.waitedURLs)
}

func TestDistillTruncatesToTokenBudget(t *testing.T) {
	tab := newFakeTab(&recorder{}, "t")
	tab.url = "https://shop.test/"
	tab.html = "<html><body><p>" + strings.Repeat("lorem ipsum ", 500) + "</p></body></html>"

	cfg := testDistillerConfig()
	cfg.MaxTokens = 50
	page, err := NewContentDistiller(false, cfg).Distill(tab)
	require.NoError(t, err)

	assert.True(t, page.Truncated)
	assert.Contains(t, page.HTML, "[Content truncated to 50 tokens.")
	assert.Less(t, len(page.HTML), 400)
}
