package providers

import (
	"net/url"
	"strings"
)

// Profile carries the site-specific selectors a scraping engine needs. An
// empty selector means "use the engine's heuristics".
type Profile struct {
	// TOCSelector matches the chapter links on the novel's index page.
	TOCSelector string
	// ContentSelectors are tried in order against a chapter page; the first
	// match with usable text wins.
	ContentSelectors []string
	// TitleSelector overrides the default novel-title lookup.
	TitleSelector string
}

type Site struct {
	Name    string
	Scraper Scraper
}

type entry struct {
	token   string
	name    string
	profile Profile
}

// Ordered. First hostname-substring match wins; tokens are distinct site
// names so order only matters for the fanfiction/freewebnovel style
// near-collisions, which these tokens avoid.
var knownSites = []entry{
	{"freewebnovel", "FreeWebNovel", Profile{
		TOCSelector:      "#idData li a, .m-newest2 li a",
		ContentSelectors: []string{"#article", ".txt", ".m-read .txt"},
	}},
	{"readlightnovel", "ReadLightNovel", Profile{
		TOCSelector:      ".chapters .chapter-chs a",
		ContentSelectors: []string{".desc", ".hidden-content"},
	}},
	{"archiveofourown", "Archive of Our Own", Profile{
		TOCSelector:      "ol.chapter.index.group a",
		ContentSelectors: []string{"div.userstuff", "#workskin"},
	}},
	{"fanfiction.net", "FanFiction.net", Profile{
		ContentSelectors: []string{"#storytext"},
	}},
	{"scribblehub", "ScribbleHub", Profile{
		TOCSelector:      ".toc_ol a.toc_a",
		ContentSelectors: []string{"#chp_raw", ".chp_raw"},
	}},
	{"novelupdates", "Novel Updates", Profile{}},
	{"wuxiaworld", "Wuxiaworld", Profile{
		ContentSelectors: []string{".chapter-content", "#chapter-content"},
	}},
	{"boxnovel", "BoxNovel", Profile{
		TOCSelector:      ".wp-manga-chapter a",
		ContentSelectors: []string{".reading-content", ".text-left"},
	}},
	{"novelfull", "NovelFull", Profile{
		TOCSelector:      "#list-chapter .list-chapter a, .list-chapter a",
		ContentSelectors: []string{"#chapter-content", ".chapter-c"},
	}},
	{"mtlnovel", "MTLNovel", Profile{
		TOCSelector:      ".ch-list a",
		ContentSelectors: []string{".par", ".post-content"},
	}},
	{"royalroad", "Royal Road", Profile{
		TOCSelector:      "table#chapters a",
		ContentSelectors: []string{".chapter-inner", ".chapter-content"},
		TitleSelector:    "h1[property='name']",
	}},
	{"wattpad", "Wattpad", Profile{
		ContentSelectors: []string{"pre", ".panel-reading"},
	}},
	{"webnovel", "WebNovel", Profile{
		ContentSelectors: []string{".cha-words", ".cha-paragraph"},
	}},
}

const GenericName = "Generic"

// Registry resolves a URL to a named site variant and its scraper. The
// factory materializes one engine per selector profile; everything else in
// the flow goes through the Scraper interface and never branches on site
// identity.
type Registry struct {
	tokens  []string
	byToken map[string]Site
	generic Site
}

func NewRegistry(build func(Profile) Scraper) *Registry {
	r := &Registry{
		byToken: make(map[string]Site, len(knownSites)),
		generic: Site{Name: GenericName, Scraper: build(Profile{})},
	}
	for _, e := range knownSites {
		r.tokens = append(r.tokens, e.token)
		r.byToken[e.token] = Site{Name: e.name, Scraper: build(e.profile)}
	}
	return r
}

// Resolve never fails: URLs that do not parse or do not match any known
// token fall through to the generic variant.
func (r *Registry) Resolve(rawURL string) Site {
	u, err := url.Parse(rawURL)
	if err != nil {
		return r.generic
	}

	host := strings.ToLower(u.Hostname())
	for _, token := range r.tokens {
		if strings.Contains(host, token) {
			return r.byToken[token]
		}
	}

	return r.generic
}
