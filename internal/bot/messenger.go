package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger wraps the Telegram API behind the small surface the rest of
// the flow uses. All outbound text uses Markdown formatting. Edit and
// delete failures are the caller's problem to ignore; nothing here panics
// or retries.
type Messenger struct {
	api *tgbotapi.BotAPI
}

func NewMessenger(api *tgbotapi.BotAPI) *Messenger {
	return &Messenger{api: api}
}

func (m *Messenger) SendText(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	sent, err := m.api.Send(msg)
	if err != nil {
		return 0, err
	}

	return sent.MessageID, nil
}

// SendTextWithKeyboard attaches an inline keyboard to a text message.
func (m *Messenger) SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = kb

	sent, err := m.api.Send(msg)
	if err != nil {
		return 0, err
	}

	return sent.MessageID, nil
}

// SendPhoto sends a photo by URL with a Markdown caption and keyboard.
func (m *Messenger) SendPhoto(chatID int64, photoURL, caption string, kb tgbotapi.InlineKeyboardMarkup) (int, error) {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	p.Caption = caption
	p.ParseMode = tgbotapi.ModeMarkdown
	p.ReplyMarkup = kb

	sent, err := m.api.Send(p)
	if err != nil {
		return 0, err
	}

	return sent.MessageID, nil
}

func (m *Messenger) EditText(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown

	_, err := m.api.Send(edit)

	return err
}

func (m *Messenger) DeleteMessage(chatID int64, messageID int) error {
	_, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))

	return err
}

func (m *Messenger) SendDocument(chatID int64, path, caption string) error {
	d := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	d.Caption = caption

	_, err := m.api.Send(d)

	return err
}

// AnswerCallback acknowledges a button press with a toast (or an alert
// popup). Fire and forget.
func (m *Messenger) AnswerCallback(callbackID, text string, alert bool) {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert

	_, _ = m.api.Request(cb)
}
