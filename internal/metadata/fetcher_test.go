package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!doctype html>
<html>
<head>
  <title>Mother of Learning | Some Site</title>
  <meta property="og:image" content="/covers/mol.jpg">
</head>
<body>
  <h1>Mother of Learning</h1>
  <div class="description">
    Zorian is a teenage mage of humble birth and slightly above-average skill,
    attending his third year of education at Cyoria's magical academy.
  </div>
  <span class="rating-value">4.8</span>
</body>
</html>`

func newTestFetcher(handler http.Handler) (*Fetcher, *httptest.Server) {
	srv := httptest.NewServer(handler)
	f := NewFetcher(srv.Client(), DefaultOptions(), nil)
	return f, srv
}

func TestFetch_FullPage(t *testing.T) {
	f, srv := newTestFetcher(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	info := f.Fetch(context.Background(), srv.URL+"/novel")

	assert.Equal(t, "Mother of Learning", info.Title)
	assert.Contains(t, info.Description, "Zorian is a teenage mage")
	assert.NotContains(t, info.Description, "\n", "whitespace should be collapsed")
	assert.Equal(t, srv.URL+"/covers/mol.jpg", info.CoverImage, "relative cover resolves against the page")
	assert.Equal(t, "4.8", info.Rating)
}

func TestFetch_FallbackOnNetworkFailure(t *testing.T) {
	f, srv := newTestFetcher(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // refuse all connections

	info := f.Fetch(context.Background(), srv.URL)
	assert.Equal(t, Fallback, info)
}

func TestFetch_TitleFallsBackToPageTitle(t *testing.T) {
	f, srv := newTestFetcher(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Only A Title</title></head><body><p>x</p></body></html>`)
	}))
	defer srv.Close()

	info := f.Fetch(context.Background(), srv.URL)
	assert.Equal(t, "Only A Title", info.Title)
	assert.Equal(t, "No description available", info.Description)
	assert.Empty(t, info.CoverImage)
}

func TestFetch_DescriptionSkipsTitleRepeats(t *testing.T) {
	page := `<html><body>
	  <h1>The Novel</h1>
	  <div class="description">The Novel is a story about The Novel and nothing else here.</div>
	  <div class="synopsis">A completely independent synopsis block that is long enough to qualify.</div>
	</body></html>`

	f, srv := newTestFetcher(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	info := f.Fetch(context.Background(), srv.URL)
	assert.Contains(t, info.Description, "independent synopsis")
}

func TestFetch_DescriptionTruncated(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'a'
	}
	page := fmt.Sprintf(`<html><body><h1>T</h1><div class="summary">%s</div></body></html>`, long)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.DescMaxLen = 300
	f := NewFetcher(srv.Client(), opts, nil)

	info := f.Fetch(context.Background(), srv.URL)
	require.Len(t, info.Description, 300)
}

func TestFetch_ShortDescriptionRejected(t *testing.T) {
	page := `<html><body><h1>T</h1><div class="description">too short</div></body></html>`

	f, srv := newTestFetcher(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	info := f.Fetch(context.Background(), srv.URL)
	assert.Equal(t, "No description available", info.Description)
}

func TestFetch_MalformedCoverSrcDoesNotPanic(t *testing.T) {
	page := "<html><body><h1>T</h1><img class=\"cover\" src=\"/c\x1fbad.jpg\"></body></html>"

	f, srv := newTestFetcher(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	// Control characters make url.Parse fail; the raw src comes back
	// instead of a panic.
	info := f.Fetch(context.Background(), srv.URL)
	assert.Equal(t, "/c\x1fbad.jpg", info.CoverImage)
}

func TestFetch_TruncationRespectsRuneBoundaries(t *testing.T) {
	// 400 two-byte runes; an odd byte cap lands mid-rune.
	page := fmt.Sprintf(`<html><body><h1>T</h1><div class="summary">%s</div></body></html>`,
		strings.Repeat("ä", 400))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.DescMaxLen = 301
	f := NewFetcher(srv.Client(), opts, nil)

	info := f.Fetch(context.Background(), srv.URL)
	assert.True(t, utf8.ValidString(info.Description))
	assert.Len(t, info.Description, 300, "cut backs up to the rune start")
}

func TestFetch_AbsoluteCoverKeptAsIs(t *testing.T) {
	page := `<html><body><h1>T</h1><img class="cover" src="https://cdn.example.org/c.jpg"></body></html>`

	f, srv := newTestFetcher(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	info := f.Fetch(context.Background(), srv.URL)
	assert.Equal(t, "https://cdn.example.org/c.jpg", info.CoverImage)
}
