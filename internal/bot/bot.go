// Package bot is the conversational front end: it watches messages for
// novel URLs, walks the user through picking a chapter count and kicks off
// scrapes. State between the URL message and the chapter-count choice lives
// in the session store; everything after the choice belongs to the
// orchestrator.
package bot

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/brogergvhs/noveld/internal/metadata"
	"github.com/brogergvhs/noveld/internal/providers"
	"github.com/brogergvhs/noveld/internal/scrape"
	"github.com/brogergvhs/noveld/internal/session"
	"github.com/brogergvhs/noveld/internal/ui"
)

var reURL = regexp.MustCompile(`https?://\S+`)

const metadataTimeout = 10 * time.Second

const helpText = "💬 Send a novel link and I'll help you convert it to EPUB!\n\n" +
	"Example: https://royalroad.com/fiction/12345"

type Bot struct {
	api         *tgbotapi.BotAPI
	m           *Messenger
	sessions    *session.Store
	meta        *metadata.Fetcher
	registry    *providers.Registry
	orch        *scrape.Orchestrator
	log         *ui.Logger
	maxChapters int
}

func New(api *tgbotapi.BotAPI, m *Messenger, sessions *session.Store, meta *metadata.Fetcher,
	reg *providers.Registry, orch *scrape.Orchestrator, log *ui.Logger, maxChapters int) *Bot {
	return &Bot{
		api:         api,
		m:           m,
		sessions:    sessions,
		meta:        meta,
		registry:    reg,
		orch:        orch,
		log:         log,
		maxChapters: maxChapters,
	}
}

// Run polls for updates until ctx is cancelled. Each scrape runs in its
// own goroutine so the poll loop never blocks; the orchestrator rejects a
// second scrape for a chat that already has one in flight.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := b.api.GetUpdatesChan(cfg)
	b.log.Infof("bot initialized, polling as @%s\n", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			switch {
			case update.Message != nil && update.Message.Text != "":
				b.handleMessage(ctx, update.Message)
			case update.CallbackQuery != nil:
				b.handleCallback(ctx, update.CallbackQuery)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		_, _ = b.m.SendText(chatID, helpText)
		return
	}

	if raw := reURL.FindString(msg.Text); raw != "" {
		b.handleNovelURL(ctx, chatID, raw)
		return
	}

	if pending, ok := b.sessions.GetPendingRange(chatID); ok {
		b.handleRangeReply(ctx, chatID, msg.Text, pending)
		return
	}

	_, _ = b.m.SendText(chatID, helpText)
}

// handleNovelURL runs the pre-scrape part of the flow: site detection,
// metadata preview, session issuance and the chapter-count keyboard.
func (b *Bot) handleNovelURL(ctx context.Context, chatID int64, rawURL string) {
	if !validURL(rawURL) {
		_, _ = b.m.SendText(chatID, "❌ Invalid URL. Please send a valid website link.")
		return
	}

	site := b.registry.Resolve(rawURL)
	loading, _ := b.m.SendText(chatID, fmt.Sprintf("⏳ Fetching *%s* info...", site.Name))

	mctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	info := b.meta.Fetch(mctx, rawURL)
	cancel()

	sessionID := b.sessions.CreateSession(rawURL)
	kb := chapterKeyboard(sessionID)
	text := previewText(info)

	if loading != 0 {
		_ = b.m.DeleteMessage(chatID, loading)
	}

	if info.CoverImage != "" {
		if _, err := b.m.SendPhoto(chatID, info.CoverImage, text, kb); err == nil {
			return
		}
		b.log.Debugf("chat %d: photo send failed, falling back to text\n", chatID)
	}

	if _, err := b.m.SendTextWithKeyboard(chatID, text, kb); err != nil {
		b.log.Errorf("chat %d: cannot send novel info: %v\n", chatID, err)
	}
}

// handleRangeReply interprets a free-text message as the chapter count the
// chat was asked for. Invalid input leaves the marker set so the user can
// just try again.
func (b *Bot) handleRangeReply(ctx context.Context, chatID int64, text string, pending session.Pending) {
	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || count <= 0 {
		_, _ = b.m.SendText(chatID, "❌ Please enter a valid number of chapters (e.g., 50)")
		return
	}

	b.sessions.ClearPendingRange(chatID)

	novelURL, ok := b.sessions.LookupSession(pending.SessionID)
	if !ok {
		_, _ = b.m.SendText(chatID, "❌ Session expired. Please send the novel URL again.")
		return
	}

	limit := clampLimit(count, b.maxChapters)
	status, _ := b.m.SendText(chatID, "⏳ Starting scrape...")

	go b.orch.Run(ctx, chatID, novelURL, limit, status)
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil {
		b.m.AnswerCallback(q.ID, "", false)
		return
	}

	chatID := q.Message.Chat.ID
	kind, limit, sessionID := parseCallback(q.Data)

	switch kind {
	case callbackCustomRange:
		b.sessions.SetPendingRange(chatID, sessionID, q.Message.MessageID)
		b.m.AnswerCallback(q.ID, "📝 Send the number of chapters", false)
		_, _ = b.m.SendText(chatID, fmt.Sprintf("📝 How many chapters do you want? (1-%d)\n\nExample: 50", b.maxChapters))

	case callbackScrape:
		novelURL, ok := b.sessions.LookupSession(sessionID)
		if !ok {
			b.m.AnswerCallback(q.ID, "❌ Session expired. Please send the URL again.", true)
			return
		}

		b.m.AnswerCallback(q.ID, "⏳ Starting to scrape...", false)
		go b.orch.Run(ctx, chatID, novelURL, buttonLimit(limit, b.maxChapters), q.Message.MessageID)

	default:
		b.m.AnswerCallback(q.ID, "", false)
	}
}

const (
	callbackCustomRange = "cr"
	callbackScrape      = "sc"
)

// parseCallback splits the underscore-delimited button payloads
// "cr_<sessionID>" and "sc_<limit>_<sessionID>". Session ids contain
// underscores themselves, so the tail is rejoined.
func parseCallback(data string) (kind string, limit int, sessionID string) {
	parts := strings.Split(data, "_")
	if len(parts) < 2 {
		return "", 0, ""
	}

	switch parts[0] {
	case callbackCustomRange:
		return callbackCustomRange, 0, strings.Join(parts[1:], "_")
	case callbackScrape:
		if len(parts) < 3 {
			return "", 0, ""
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return "", 0, ""
		}
		return callbackScrape, n, strings.Join(parts[2:], "_")
	}

	return "", 0, ""
}

// clampLimit bounds a user-chosen chapter count to [1, max]. A typed 999
// is just a big number; "all chapters" is only ever expressed through the
// button payload.
func clampLimit(n, max int) int {
	if n > max {
		return max
	}
	if n < 1 {
		return 1
	}

	return n
}

// buttonLimit interprets a callback-payload count, where the "all
// chapters" sentinel passes through untouched.
func buttonLimit(n, max int) int {
	if n == providers.AllChapters {
		return n
	}

	return clampLimit(n, max)
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)

	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func chapterKeyboard(sessionID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Custom Range", callbackCustomRange+"_"+sessionID),
			tgbotapi.NewInlineKeyboardButtonData("📖 All Chapters",
				fmt.Sprintf("%s_%d_%s", callbackScrape, providers.AllChapters, sessionID)),
		),
	)
}

func previewText(info metadata.Info) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📚 *%s*\n\n", info.Title)
	if info.Description != "" {
		sb.WriteString(info.Description + "\n\n")
	}
	if info.Rating != "" {
		fmt.Fprintf(&sb, "🌟 _Rating:_ %s\n\n", info.Rating)
	}
	sb.WriteString("_Select option or enter custom chapter count:_")

	return sb.String()
}
