// Package scrape drives the whole pipeline for one chat flow: resolve the
// site variant, run its scraper with a throttled progress display, hand the
// chapters to the EPUB assembler and deliver the file. Every failure on
// that path is caught here and turned into a user-facing message.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/brogergvhs/noveld/internal/providers"
	"github.com/brogergvhs/noveld/internal/util"
)

// renderInterval throttles status-message edits. The final render at
// current == total always goes through regardless.
const renderInterval = 2 * time.Second

// Category is the fixed genre label handed to the assembler.
const Category = "Fiction"

// Messenger is the slice of the chat transport the orchestrator needs.
// Edit failures are expected (the display may be gone) and are swallowed.
type Messenger interface {
	SendText(chatID int64, text string) (int, error)
	EditText(chatID int64, messageID int, text string) error
	SendDocument(chatID int64, path, caption string) error
}

// Assembler packages an ordered chapter list into a single file on disk.
type Assembler interface {
	Assemble(title, category string, chapters []providers.Chapter) (string, error)
}

type state int

const (
	stateIdle state = iota
	stateConnecting
	stateScraping
	stateAssembling
	stateDelivering
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateScraping:
		return "scraping"
	case stateAssembling:
		return "assembling"
	case stateDelivering:
		return "delivering"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "idle"
	}
}

var errNoChapters = errors.New("no chapters found")

type logger interface {
	Debugf(string, ...any)
	Errorf(string, ...any)
}

type Orchestrator struct {
	registry  *providers.Registry
	assembler Assembler
	msg       Messenger
	log       logger
	now       func() time.Time

	mu     sync.Mutex
	active map[int64]bool
}

func NewOrchestrator(reg *providers.Registry, asm Assembler, msg Messenger, log logger) *Orchestrator {
	return &Orchestrator{
		registry:  reg,
		assembler: asm,
		msg:       msg,
		log:       log,
		now:       time.Now,
		active:    make(map[int64]bool),
	}
}

// Run executes one scrape for a chat. statusMsg is an existing message to
// reuse for the live display, or 0 to create one. A second Run for a chat
// that is already scraping is rejected. The caller clamps limit; the 999
// sentinel passes through to the scraper untouched.
func (o *Orchestrator) Run(ctx context.Context, chatID int64, url string, limit int, statusMsg int) {
	if !o.acquire(chatID) {
		_, _ = o.msg.SendText(chatID, "⚠️ A scrape is already running in this chat. Please wait for it to finish.")
		return
	}
	defer o.release(chatID)

	site := o.registry.Resolve(url)
	o.log.Debugf("chat %d: %s via %s, limit %d\n", chatID, url, site.Name, limit)

	display := o.display(chatID, statusMsg, fmt.Sprintf("🔌 *Connecting to %s...*", site.Name))

	start := o.now()
	r := &renderer{
		msg:     o.msg,
		chatID:  chatID,
		message: display,
		site:    site.Name,
		start:   start,
		now:     o.now,
	}

	st := stateScraping
	novel, err := site.Scraper.ScrapeNovel(ctx, url, limit, r.onProgress)
	if err == nil && (novel == nil || len(novel.Chapters) == 0) {
		err = errNoChapters
	}
	if err != nil {
		o.fail(chatID, display, st, err)
		return
	}

	st = stateAssembling
	o.edit(chatID, display, fmt.Sprintf("📦 *Assembling EPUB...*\n\n📖 %d chapters scraped", len(novel.Chapters)))

	path, err := o.assembler.Assemble(novel.Title, Category, novel.Chapters)
	if err != nil {
		o.fail(chatID, display, st, fmt.Errorf("assembly: %w", err))
		return
	}

	st = stateDelivering
	size := fileSize(path)
	elapsed := o.now().Sub(start)

	o.edit(chatID, display, fmt.Sprintf(
		"✅ *Done!*\n\n📚 %s\n📖 Chapters: %d\n💾 Size: %s\n⏱ Time: %s",
		novel.Title, len(novel.Chapters), util.Human(size), FormatDuration(elapsed),
	))

	caption := fmt.Sprintf("📚 %s (%d chapters)", novel.Title, len(novel.Chapters))
	if err := o.msg.SendDocument(chatID, path, caption); err != nil {
		_ = os.Remove(path)
		o.fail(chatID, display, st, fmt.Errorf("delivery: %w", err))
		return
	}

	_ = os.Remove(path)

	st = stateDone
	o.log.Debugf("chat %d: %s (%d chapters, %s)\n", chatID, st, len(novel.Chapters), FormatDuration(elapsed))
}

func (o *Orchestrator) acquire(chatID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active[chatID] {
		return false
	}
	o.active[chatID] = true

	return true
}

func (o *Orchestrator) release(chatID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.active, chatID)
}

// display binds the live status to a reusable message, creating one when
// the flow has none yet.
func (o *Orchestrator) display(chatID int64, statusMsg int, text string) int {
	if statusMsg != 0 {
		if err := o.msg.EditText(chatID, statusMsg, text); err == nil {
			return statusMsg
		}
	}

	id, err := o.msg.SendText(chatID, text)
	if err != nil {
		o.log.Errorf("chat %d: cannot create status message: %v\n", chatID, err)
		return 0
	}

	return id
}

func (o *Orchestrator) edit(chatID int64, messageID int, text string) {
	if messageID == 0 {
		return
	}
	_ = o.msg.EditText(chatID, messageID, text)
}

// fail replaces the status display with a classified error message so the
// user is never left staring at a stale "in progress" display.
func (o *Orchestrator) fail(chatID int64, display int, st state, err error) {
	o.log.Errorf("chat %d: %s failed: %v\n", chatID, st, err)

	text := classify(err)
	if display != 0 {
		if e := o.msg.EditText(chatID, display, text); e == nil {
			return
		}
	}
	_, _ = o.msg.SendText(chatID, text)
}

const maxErrLen = 200

func classify(err error) string {
	switch {
	case errors.Is(err, errNoChapters):
		return "❌ No chapters found. The site may be unsupported, or the URL doesn't point to a novel page."
	case isTimeout(err):
		return "❌ Connection timed out. The site may be blocking scrapers or responding very slowly. Try again later."
	default:
		msg := err.Error()
		if len(msg) > maxErrLen {
			msg = msg[:maxErrLen] + "..."
		}
		return "❌ Scrape failed: " + msg
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}

	return info.Size()
}

// renderer owns the throttled progress display for one scrape. It is
// called synchronously from the scraper's fetch loop.
type renderer struct {
	msg     Messenger
	chatID  int64
	message int
	site    string
	start   time.Time
	last    time.Time
	now     func() time.Time
}

func (r *renderer) onProgress(current, total int) {
	now := r.now()
	if current < total && !r.last.IsZero() && now.Sub(r.last) < renderInterval {
		return
	}
	r.last = now

	elapsed := now.Sub(r.start)
	eta := ETA(elapsed, current, total)

	text := fmt.Sprintf(
		"⏳ *Scraping from %s...*\n\n%s %d%%\n\n📖 Chapter %d/%d\n⏱ Elapsed: %s | ETA: %s",
		r.site, Bar(current, total), Percent(current, total),
		current, total, FormatDuration(elapsed), FormatDuration(eta),
	)

	if r.message != 0 {
		_ = r.msg.EditText(r.chatID, r.message, text)
	}
}
