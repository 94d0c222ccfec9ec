package generic

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reChapterNum  = regexp.MustCompile(`(?i)(?:^|[/_\-\s])(?:chapter|chap|ch)[/_\-\s]?0*([0-9]+)`)
	reLikelyHref  = regexp.MustCompile(`(?i)(?:^|[-_/])(?:ch|chap|chapter)[-_]?\d+`)
	reExcludeHref = regexp.MustCompile(`(?i)(comment|review|tag|author|genre|login|register|bookmark|#)`)
)

// defaultContentSelectors are tried when a site profile does not pin down
// the chapter body. Ordered roughly by how specific they are.
var defaultContentSelectors = []string{
	".chapter-content",
	"#chapter-content",
	".chapter-inner",
	"#chapter-container",
	".reading-content",
	".chapter-c",
	"#chp_raw",
	".entry-content",
	".post-content",
	"article",
	"#content",
	".content",
}

// minContentLen is the plain-text size below which a candidate block is
// treated as navigation chrome rather than chapter text.
const minContentLen = 200

var strippedTags = "script, style, iframe, ins, noscript, .ads, .adsbygoogle, .code-block, .google-auto-placed"

func looksLikeChapterLink(href, text string) bool {
	h := strings.ToLower(href)
	if reExcludeHref.MatchString(h) {
		return false
	}
	if reLikelyHref.MatchString(h) {
		return true
	}

	t := strings.ToLower(text)

	return strings.HasPrefix(t, "chapter ") || strings.HasPrefix(t, "ch ") || reChapterNum.MatchString(t)
}

// extractContent returns the chapter body as an HTML fragment, or "" when
// nothing usable is found. Profile selectors win over the default list; the
// last resort is the densest paragraph block on the page.
func extractContent(doc *goquery.Document, profileSelectors []string) string {
	for _, sel := range profileSelectors {
		if html := fragmentFrom(doc.Find(sel).First()); html != "" {
			return html
		}
	}

	for _, sel := range defaultContentSelectors {
		if html := fragmentFrom(doc.Find(sel).First()); html != "" {
			return html
		}
	}

	return fragmentFrom(densestBlock(doc))
}

func fragmentFrom(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}

	clone := sel.Clone()
	clone.Find(strippedTags).Remove()

	if len(strings.TrimSpace(clone.Text())) < minContentLen {
		return ""
	}

	html, err := clone.Html()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(html)
}

// densestBlock picks the container with the most paragraph text on the
// page, which on reader pages is almost always the chapter body.
func densestBlock(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestScore := 0

	doc.Find("div, section, td").Each(func(_ int, s *goquery.Selection) {
		score := 0
		s.ChildrenFiltered("p").Each(func(_ int, p *goquery.Selection) {
			score += len(strings.TrimSpace(p.Text()))
		})

		if score > bestScore {
			bestScore = score
			best = s
		}
	})

	if bestScore < minContentLen {
		return nil
	}

	return best
}

func chapterTitle(doc *goquery.Document, fallback string) string {
	for _, sel := range []string{".chapter-title", "h1.font-white", "h1", "h2"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}

	if fallback != "" {
		return fallback
	}

	return "Chapter"
}

// nextLink finds a "next chapter" style anchor for the next-link crawl.
func nextLink(doc *goquery.Document, baseURL string) string {
	if href, ok := doc.Find("link[rel='next']").Attr("href"); ok {
		return resolveURL(baseURL, href)
	}
	if href, ok := doc.Find("a[rel='next']").First().Attr("href"); ok {
		return resolveURL(baseURL, href)
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		t := strings.ToLower(strings.TrimSpace(a.Text()))
		if t == "next" || t == "next chapter" || strings.HasPrefix(t, "next ") || t == ">" || t == "»" {
			href, _ := a.Attr("href")
			if href != "" && !strings.HasPrefix(href, "#") {
				found = resolveURL(baseURL, href)
				return false
			}
		}
		return true
	})

	return found
}
