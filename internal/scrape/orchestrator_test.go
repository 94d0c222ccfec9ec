package scrape

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/noveld/internal/providers"
)

type fakeMessenger struct {
	mu    sync.Mutex
	sent  []string
	edits []string
	docs  []string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{}
}

func (f *fakeMessenger) SendText(_ int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return len(f.sent), nil
}

func (f *fakeMessenger) EditText(_ int64, _ int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeMessenger) SendDocument(_ int64, path, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, path)
	return nil
}

func (f *fakeMessenger) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeMessenger) editTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.edits...)
}

func (f *fakeMessenger) documents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.docs...)
}

type fakeScraper struct {
	novel *providers.Novel
	err   error
	limit int
	block chan struct{}
}

func (f *fakeScraper) ScrapeNovel(_ context.Context, _ string, limit int, progress providers.ProgressFunc) (*providers.Novel, error) {
	f.limit = limit
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}

	if progress != nil && f.novel != nil {
		total := len(f.novel.Chapters)
		for i := 1; i <= total; i++ {
			progress(i, total)
		}
	}

	return f.novel, nil
}

type fakeAssembler struct {
	mu       sync.Mutex
	dir      string
	calls    int
	title    string
	category string
	chapters []providers.Chapter
	err      error
}

func (f *fakeAssembler) Assemble(title, category string, chapters []providers.Chapter) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.title = title
	f.category = category
	f.chapters = append([]providers.Chapter(nil), chapters...)

	if f.err != nil {
		return "", f.err
	}

	path := filepath.Join(f.dir, "out.epub")
	if err := os.WriteFile(path, []byte("epub bytes"), 0644); err != nil {
		return "", err
	}

	return path, nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Errorf(string, ...any) {}

func newTestOrchestrator(t *testing.T, scr providers.Scraper) (*Orchestrator, *fakeMessenger, *fakeAssembler) {
	t.Helper()

	reg := providers.NewRegistry(func(providers.Profile) providers.Scraper { return scr })
	msg := newFakeMessenger()
	asm := &fakeAssembler{dir: t.TempDir()}

	return NewOrchestrator(reg, asm, msg, nopLogger{}), msg, asm
}

func chapterList(n int) []providers.Chapter {
	out := make([]providers.Chapter, n)
	for i := range out {
		out[i] = providers.Chapter{
			Title:   "Chapter " + string(rune('A'+i)),
			Content: "<p>text</p>",
		}
	}
	return out
}

func TestRun_SuccessDeliversAndCleansUp(t *testing.T) {
	scr := &fakeScraper{novel: &providers.Novel{Title: "My Novel", Chapters: chapterList(12)}}
	o, msg, asm := newTestOrchestrator(t, scr)

	o.Run(context.Background(), 1, "https://example.org/x", providers.AllChapters, 0)

	// The sentinel reaches the scraper untouched.
	assert.Equal(t, providers.AllChapters, scr.limit)

	// Assembler got every chapter in original order.
	require.Equal(t, 1, asm.calls)
	assert.Equal(t, "My Novel", asm.title)
	assert.Equal(t, Category, asm.category)
	require.Len(t, asm.chapters, 12)
	for i, ch := range asm.chapters {
		assert.Equal(t, "Chapter "+string(rune('A'+i)), ch.Title)
	}

	// Final stats rendered, document delivered, file removed afterwards.
	edits := msg.editTexts()
	require.NotEmpty(t, edits)
	assert.Contains(t, edits[len(edits)-1], "Chapters: 12")

	docs := msg.documents()
	require.Len(t, docs, 1)
	_, err := os.Stat(docs[0])
	assert.True(t, os.IsNotExist(err), "delivered file should be deleted")
}

func TestRun_EmptyChapterListNeverAssembles(t *testing.T) {
	scr := &fakeScraper{novel: &providers.Novel{Title: "Empty", Chapters: nil}}
	o, msg, asm := newTestOrchestrator(t, scr)

	o.Run(context.Background(), 1, "https://example.org/x", 50, 0)

	assert.Equal(t, 0, asm.calls, "assembler must not run without chapters")

	edits := msg.editTexts()
	require.NotEmpty(t, edits)
	assert.Contains(t, edits[len(edits)-1], "No chapters found")
}

func TestRun_ScraperErrorRendersFailure(t *testing.T) {
	scr := &fakeScraper{err: errors.New("boom")}
	o, msg, asm := newTestOrchestrator(t, scr)

	o.Run(context.Background(), 1, "https://example.org/x", 50, 0)

	assert.Equal(t, 0, asm.calls)

	edits := msg.editTexts()
	require.NotEmpty(t, edits)
	assert.Contains(t, edits[len(edits)-1], "Scrape failed")
	assert.Contains(t, edits[len(edits)-1], "boom")
}

func TestRun_AssemblyErrorRendersFailure(t *testing.T) {
	scr := &fakeScraper{novel: &providers.Novel{Title: "N", Chapters: chapterList(2)}}
	o, msg, asm := newTestOrchestrator(t, scr)
	asm.err = errors.New("disk full")

	o.Run(context.Background(), 1, "https://example.org/x", 50, 0)

	edits := msg.editTexts()
	require.NotEmpty(t, edits)
	assert.Contains(t, edits[len(edits)-1], "Scrape failed")

	assert.Empty(t, msg.documents())
}

func TestRun_RejectsConcurrentScrapeForSameChat(t *testing.T) {
	scr := &fakeScraper{
		novel: &providers.Novel{Title: "N", Chapters: chapterList(1)},
		block: make(chan struct{}),
	}
	o, msg, _ := newTestOrchestrator(t, scr)

	done := make(chan struct{})
	go func() {
		o.Run(context.Background(), 1, "https://example.org/x", 50, 0)
		close(done)
	}()

	// Wait until the first run is inside the scraper.
	require.Eventually(t, func() bool {
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.active[1]
	}, time.Second, 5*time.Millisecond)

	o.Run(context.Background(), 1, "https://example.org/x", 50, 0)

	found := false
	for _, s := range msg.sentTexts() {
		if strings.Contains(s, "already running") {
			found = true
		}
	}
	assert.True(t, found, "second run should be rejected")

	close(scr.block)
	<-done

	// A different chat is not affected by chat 1's slot.
	o.Run(context.Background(), 2, "https://example.org/x", 50, 0)
}

func TestClassify_Timeout(t *testing.T) {
	msg := classify(errors.New("Get \"https://x\": context deadline exceeded (Client.Timeout exceeded)"))
	assert.Contains(t, msg, "timed out")

	msg = classify(context.DeadlineExceeded)
	assert.Contains(t, msg, "timed out")
}

func TestClassify_TruncatesLongErrors(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}

	msg := classify(errors.New(string(long)))
	assert.LessOrEqual(t, len(msg), maxErrLen+50)
}
