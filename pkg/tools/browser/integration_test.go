package browser

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/qa-browser/pkg/logging"
)

const fixturePage = `<!DOCTYPE html>
<html><head><title>Fixture</title></head>
<body>
  <div id="list" style="height:50px;overflow:auto">
    <p>one</p><p>two</p><p>three</p><p>four</p><p>five</p>
  </div>
  <input id="name" value="initial">
  <input id="hidden" style="visibility:hidden">
  <a id="open" href="/popup" target="_blank">Open</a>
  <div style="margin-top:3000px" id="far">Far below</div>
</body></html>`

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, fixturePage)
	})
	mux.HandleFunc("/popup", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Popup</title></head><body><h1>Popup content</h1></body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newRealSession(t *testing.T) *Session {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping real browser test in short mode")
	}

	s, err := NewSession(SessionOptions{Headless: true, CaptureScreenshots: true},
		VisibleOnlyVariant(testDistillerConfig()),
		WithLogger(logging.Discard("browser")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

var markerPattern = regexp.MustCompile(`data-playwright-(visible|scrollable)="true"`)

func TestRealBrowserScenario(t *testing.T) {
	s := newRealSession(t)
	server := newFixtureServer(t)

	got, err := s.Navigate(server.URL + "/missing")
	require.NoError(t, err)
	assert.Contains(t, got, "404")

	got, err = s.Navigate(server.URL + "/")
	require.NoError(t, err)
	assert.Contains(t, got, "status code 200")

	first, err := s.ContextSnapshot()
	require.NoError(t, err)
	second, err := s.ContextSnapshot()
	require.NoError(t, err)

	assert.Equal(t,
		markerPattern.FindAllString(first.Page.HTML, -1),
		markerPattern.FindAllString(second.Page.HTML, -1),
		"annotation must be deterministic on an unchanged DOM")
	assert.Contains(t, first.Page.HTML, `data-playwright-scrollable="true"`)
	assert.Contains(t, first.Page.HTML, `data-playwright-value="initial"`)
	assert.NotContains(t, first.Page.HTML, "Far below")
	assert.NotEmpty(t, first.Screenshot)

	got, err = s.FillText("#hidden", "secret")
	require.NoError(t, err)
	assert.Contains(t, got, "No element found")

	got, err = s.FillText("#name", "changed")
	require.NoError(t, err)
	assert.Equal(t, outcomeFilled, got)

	got, err = s.Click("p")
	require.NoError(t, err)
	assert.Contains(t, got, "more than one element")

	got, err = s.Click("#open")
	require.NoError(t, err)
	assert.Equal(t, outcomeClicked, got)

	popup, err := s.ContextSnapshot()
	require.NoError(t, err)
	assert.Contains(t, popup.Text, "Popup content")

	got, err = s.AssertText("Popup content", "h1")
	require.NoError(t, err)
	assert.Equal(t, outcomeAsserted, got)

	got, err = s.Finish()
	require.NoError(t, err)
	assert.Equal(t, outcomeFinished, got)

	snap, err := s.ContextSnapshot()
	require.NoError(t, err)
	assert.Contains(t, snap.Text, "No page loaded yet.")
}
