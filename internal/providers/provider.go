package providers

import "context"

// Chapter is one unit of reading order. Content is an HTML fragment as
// extracted from the site.
type Chapter struct {
	Title   string
	Content string
}

type Novel struct {
	Title    string
	Chapters []Chapter
}

// ProgressFunc is invoked by a scraper from its own fetch loop with strictly
// increasing current, up to current == total.
type ProgressFunc func(current, total int)

// AllChapters is the chapter-limit sentinel meaning "everything the site
// has". Scrapers interpret it as unbounded.
const AllChapters = 999

type Scraper interface {
	ScrapeNovel(ctx context.Context, url string, limit int, progress ProgressFunc) (*Novel, error)
}
