package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopScraper struct{}

func (nopScraper) ScrapeNovel(_ context.Context, _ string, _ int, _ ProgressFunc) (*Novel, error) {
	return &Novel{}, nil
}

func newTestRegistry() *Registry {
	return NewRegistry(func(Profile) Scraper { return nopScraper{} })
}

func TestResolve_KnownSites(t *testing.T) {
	reg := newTestRegistry()

	cases := []struct {
		url  string
		name string
	}{
		{"https://www.royalroad.com/fiction/12345/some-novel", "Royal Road"},
		{"https://freewebnovel.com/the-novel.html", "FreeWebNovel"},
		{"https://www.scribblehub.com/series/1/x/", "ScribbleHub"},
		{"https://archiveofourown.org/works/555", "Archive of Our Own"},
		{"https://www.fanfiction.net/s/1234/1/Story", "FanFiction.net"},
		{"https://www.wuxiaworld.com/novel/x", "Wuxiaworld"},
		{"https://boxnovel.com/novel/y/", "BoxNovel"},
		{"https://novelfull.com/z.html", "NovelFull"},
		{"https://www.mtlnovel.com/w/", "MTLNovel"},
		{"https://www.wattpad.com/story/99", "Wattpad"},
		{"https://www.webnovel.com/book/88", "WebNovel"},
		{"https://www.novelupdates.com/series/a/", "Novel Updates"},
		{"https://www.readlightnovel.me/b", "ReadLightNovel"},
	}

	for _, tc := range cases {
		site := reg.Resolve(tc.url)
		assert.Equal(t, tc.name, site.Name, "url %s", tc.url)
		assert.NotNil(t, site.Scraper)
	}
}

func TestResolve_UnknownFallsBackToGeneric(t *testing.T) {
	reg := newTestRegistry()

	for _, u := range []string{
		"https://example.org/x",
		"https://somefictionsite.io/novel/1",
		"http://localhost:8080/toc",
	} {
		site := reg.Resolve(u)
		assert.Equal(t, GenericName, site.Name, "url %s", u)
		require.NotNil(t, site.Scraper)
	}
}

func TestResolve_MatchesHostnameNotPath(t *testing.T) {
	reg := newTestRegistry()

	// The token must appear in the hostname, not in the path.
	site := reg.Resolve("https://example.org/royalroad/fiction/1")
	assert.Equal(t, GenericName, site.Name)
}

func TestResolve_MalformedURL(t *testing.T) {
	reg := newTestRegistry()

	site := reg.Resolve("://not a url")
	assert.Equal(t, GenericName, site.Name)
}

func TestResolve_CaseInsensitiveHost(t *testing.T) {
	reg := newTestRegistry()

	site := reg.Resolve("https://WWW.RoyalRoad.COM/fiction/1")
	assert.Equal(t, "Royal Road", site.Name)
}
