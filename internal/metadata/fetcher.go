// Package metadata does the best-effort info lookup shown to the user
// before they commit to a full scrape. It never fails: anything that goes
// wrong degrades to a fixed fallback.
package metadata

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

type Info struct {
	Title       string
	Description string
	CoverImage  string
	Rating      string
}

// Fallback is returned whenever the page cannot be fetched or parsed.
var Fallback = Info{Title: "Novel", Description: "Unable to fetch description"}

// Options carry the deployment-tunable parts of extraction. Selector order
// and the description length cap vary per deployment, so they are
// configuration rather than constants.
type Options struct {
	DescSelectors  []string
	CoverSelectors []string
	RatingSelector string
	DescMaxLen     int
	DescMinLen     int
}

func DefaultOptions() Options {
	return Options{
		DescSelectors: []string{
			".novel-intro",
			".description",
			"[class*='desc']",
			".synopsis",
			".summary",
			".novel-summary",
			"#summary",
			".entry-content p",
		},
		CoverSelectors: []string{
			"meta[property='og:image']",
			".cover img",
			"img.cover",
			".novel-cover img",
			".book-img img",
			".fic-header img",
		},
		RatingSelector: ".rating-value, .score, .rating",
		DescMaxLen:     500,
		DescMinLen:     30,
	}
}

type Fetcher struct {
	client *http.Client
	opts   Options
	log    interface{ Debugf(string, ...any) }
}

func NewFetcher(c *http.Client, opts Options, log interface{ Debugf(string, ...any) }) *Fetcher {
	if opts.DescMaxLen <= 0 {
		opts = DefaultOptions()
	}

	return &Fetcher{client: c, opts: opts, log: log}
}

var reSpace = regexp.MustCompile(`\s+`)

// Fetch scans pageURL for a title, description, cover image and rating.
// Each part is independent; an empty result for one never aborts the
// others, and any hard failure returns Fallback.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) Info {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return Fallback
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if f.log != nil {
			f.log.Debugf("metadata fetch %s: %v\n", pageURL, err)
		}
		return Fallback
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Fallback
	}

	info := Info{
		Title:       f.title(doc),
		CoverImage:  f.cover(doc, pageURL),
		Rating:      strings.TrimSpace(doc.Find(f.opts.RatingSelector).First().Text()),
	}
	info.Description = f.description(doc, info.Title)

	return info
}

func (f *Fetcher) title(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}

	return Fallback.Title
}

// description takes the first candidate block that is long enough and does
// not simply repeat the title, collapses whitespace and truncates.
func (f *Fetcher) description(doc *goquery.Document, title string) string {
	lowTitle := strings.ToLower(title)

	for _, sel := range f.opts.DescSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if len(text) <= f.opts.DescMinLen {
			continue
		}
		if lowTitle != "" && strings.Contains(strings.ToLower(text), lowTitle) {
			continue
		}

		text = reSpace.ReplaceAllString(text, " ")
		if len(text) > f.opts.DescMaxLen {
			cut := f.opts.DescMaxLen
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}

		return text
	}

	return "No description available"
}

func (f *Fetcher) cover(doc *goquery.Document, pageURL string) string {
	for _, sel := range f.opts.CoverSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}

		src, ok := node.Attr("src")
		if !ok {
			src, ok = node.Attr("content")
		}
		if !ok || strings.TrimSpace(src) == "" {
			continue
		}

		return resolveURL(pageURL, strings.TrimSpace(src))
	}

	return ""
}

func resolveURL(baseURL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		// Scraped srcs can carry control characters and other garbage.
		return href
	}
	if u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(baseURL)
	if err != nil {
		return href
	}

	return b.ResolveReference(u).String()
}
