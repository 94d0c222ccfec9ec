package generic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/noveld/internal/providers"
	"github.com/brogergvhs/noveld/internal/util"
)

// fetchDelay is the politeness gap between chapter requests.
const fetchDelay = 250 * time.Millisecond

// maxNextHops bounds the next-link crawl used when a page has no visible
// table of contents.
const maxNextHops = 500

type Scraper struct {
	client  *http.Client
	profile providers.Profile
	log     interface{ Debugf(string, ...any) }
}

func NewScraper(c *http.Client, profile providers.Profile, log interface{ Debugf(string, ...any) }) *Scraper {
	return &Scraper{client: c, profile: profile, log: log}
}

func (s *Scraper) fetchDOM(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := util.DoWithRetry(s.client, req, 3, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return goquery.NewDocumentFromReader(resp.Body)
}

func (s *Scraper) ScrapeNovel(ctx context.Context, pageURL string, limit int, progress providers.ProgressFunc) (*providers.Novel, error) {
	doc, err := s.fetchDOM(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch index page: %w", err)
	}

	title := s.novelTitle(doc)
	links := s.chapterLinks(doc, pageURL)

	if len(links) == 0 {
		if s.log != nil {
			s.log.Debugf("no TOC links on %s, trying next-link crawl\n", pageURL)
		}
		return s.crawlByNextLinks(ctx, doc, pageURL, title, limit, progress)
	}

	if limit != providers.AllChapters && limit > 0 && limit < len(links) {
		links = links[:limit]
	}

	total := len(links)
	chapters := make([]providers.Chapter, 0, total)

	for i, link := range links {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(fetchDelay):
			}
		}

		chDoc, err := s.fetchDOM(ctx, link.url)
		if err != nil {
			return nil, fmt.Errorf("chapter %d (%s): %w", i+1, link.url, err)
		}

		content := extractContent(chDoc, s.profile.ContentSelectors)
		if content == "" {
			if s.log != nil {
				s.log.Debugf("no content extracted from %s, skipping\n", link.url)
			}
		} else {
			chapters = append(chapters, providers.Chapter{
				Title:   chapterTitle(chDoc, link.title),
				Content: content,
			})
		}

		// Every processed link ticks, skipped or not, so the last tick is
		// always current == total.
		if progress != nil {
			progress(i+1, total)
		}
	}

	return &providers.Novel{Title: title, Chapters: chapters}, nil
}

// crawlByNextLinks treats the given page as chapter one and follows
// rel=next style links until there is no next page or the limit is hit.
// Total is unknown up front, so progress reports current==total each hop
// and a final tick when the crawl stops.
func (s *Scraper) crawlByNextLinks(ctx context.Context, doc *goquery.Document, pageURL, title string, limit int, progress providers.ProgressFunc) (*providers.Novel, error) {
	max := limit
	if limit == providers.AllChapters || limit <= 0 {
		max = maxNextHops
	}

	var chapters []providers.Chapter
	seen := map[string]bool{pageURL: true}
	cur := doc
	curURL := pageURL

	for len(chapters) < max {
		content := extractContent(cur, s.profile.ContentSelectors)
		if content == "" {
			break
		}

		chapters = append(chapters, providers.Chapter{
			Title:   chapterTitle(cur, fmt.Sprintf("Chapter %d", len(chapters)+1)),
			Content: content,
		})
		if progress != nil {
			progress(len(chapters), len(chapters))
		}

		next := nextLink(cur, curURL)
		if next == "" || seen[next] {
			break
		}
		seen[next] = true

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(fetchDelay):
		}

		var err error
		cur, err = s.fetchDOM(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("next page %s: %w", next, err)
		}
		curURL = next
	}

	if progress != nil && len(chapters) > 0 {
		progress(len(chapters), len(chapters))
	}

	return &providers.Novel{Title: title, Chapters: chapters}, nil
}

func (s *Scraper) novelTitle(doc *goquery.Document) string {
	if s.profile.TitleSelector != "" {
		if t := strings.TrimSpace(doc.Find(s.profile.TitleSelector).First().Text()); t != "" {
			return t
		}
	}

	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}

	return "Novel"
}

type chapterLink struct {
	url   string
	title string
	num   int
}

// chapterLinks collects chapter anchors in DOM order, deduplicated by
// resolved URL. DOM order is reading order on most TOC pages; when the
// numeric labels run backwards (newest-first listings) the slice is
// reversed.
func (s *Scraper) chapterLinks(doc *goquery.Document, baseURL string) []chapterLink {
	sel := s.profile.TOCSelector
	if sel == "" {
		sel = "a[href]"
	}

	var out []chapterLink
	seen := map[string]bool{}

	doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := strings.TrimSpace(a.Text())

		if s.profile.TOCSelector == "" && !looksLikeChapterLink(href, text) {
			return
		}
		if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}

		u := resolveURL(baseURL, href)
		if seen[u] {
			return
		}
		seen[u] = true

		out = append(out, chapterLink{url: u, title: text, num: chapterNumber(href, text)})
	})

	if descending(out) {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	return out
}

func descending(links []chapterLink) bool {
	first, last := -1, -1
	for _, l := range links {
		if l.num >= 0 {
			if first < 0 {
				first = l.num
			}
			last = l.num
		}
	}

	return first >= 0 && last >= 0 && first > last
}

func chapterNumber(href, text string) int {
	if m := reChapterNum.FindStringSubmatch(strings.ToLower(href)); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := reChapterNum.FindStringSubmatch(strings.ToLower(text)); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}

	return -1
}

func resolveURL(baseURL, href string) string {
	if href == "" {
		return baseURL
	}

	u, err := url.Parse(href)
	if err != nil {
		// Scraped hrefs can carry control characters and other garbage.
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
