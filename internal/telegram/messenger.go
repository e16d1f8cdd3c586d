// Package telegram delivers formatted posts and reports to Telegram chats.
package telegram

import (
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/captaintwin/itnews-portal/internal/model"
)

// captionLimit is Telegram's maximum photo caption length.
const captionLimit = 1024

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Messenger sends messages to a single Telegram chat or channel.
type Messenger struct {
	api  telegramAPI
	chat string
	log  *slog.Logger
}

// New creates a Messenger with the given bot token. The chat may be a
// numeric chat id or an @channel username.
func New(token, chat string, log *slog.Logger) (*Messenger, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Messenger{api: api, chat: chat, log: log}, nil
}

// NewWithAPI creates a Messenger around an existing API client (useful for
// testing).
func NewWithAPI(api telegramAPI, chat string, log *slog.Logger) *Messenger {
	return &Messenger{api: api, chat: chat, log: log}
}

// SendPost publishes one item: title, cleaned summary and link, with the
// preview image attached when one was downloaded.
func (m *Messenger) SendPost(item model.Item) error {
	var msg tgbotapi.Chattable
	if item.ImagePath != "" {
		photo := m.newPhoto(item.ImagePath)
		photo.Caption = formatCaption(item)
		photo.ParseMode = tgbotapi.ModeHTML
		msg = photo
	} else {
		plain := m.newMessage(FormatPost(item))
		plain.ParseMode = tgbotapi.ModeHTML
		msg = plain
	}

	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("send post: %w", err)
	}
	m.log.Debug("post sent", "id", item.ID, "title", item.Title)
	return nil
}

// SendReport sends an HTML status message, e.g. the publication plan.
func (m *Messenger) SendReport(text string) error {
	msg := m.newMessage(text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := m.api.Send(msg); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}

func (m *Messenger) newMessage(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(m.chat, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(m.chat, text)
}

func (m *Messenger) newPhoto(path string) tgbotapi.PhotoConfig {
	file := tgbotapi.FilePath(path)
	if id, err := strconv.ParseInt(m.chat, 10, 64); err == nil {
		return tgbotapi.NewPhoto(id, file)
	}
	return tgbotapi.NewPhotoToChannel(m.chat, file)
}

// formatCaption renders an item as a photo caption within Telegram's limit.
// The plain summary and title are shortened before escaping and formatting,
// so the cut can never split an escaped entity or leave a tag unclosed.
func formatCaption(item model.Item) string {
	item.Summary = CleanHTML(item.Summary)
	for {
		text := FormatPost(item)
		over := utf8.RuneCountInString(text) - captionLimit
		if over <= 0 {
			return text
		}
		switch {
		case item.Summary != "":
			item.Summary = shorten(item.Summary, over)
		case item.Title != "":
			item.Title = shorten(item.Title, over)
		default:
			// Nothing left to shorten but the link itself.
			item.URL = ""
		}
	}
}

// shorten drops at least over runes from the end of s and marks the cut
// with an ellipsis. Escaping only ever lengthens text, so trimming the
// plain form by the formatted overshoot always converges.
func shorten(s string, over int) string {
	runes := []rune(s)
	cut := len(runes) - over - 1
	if cut < 1 {
		return ""
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}

// FormatPost renders an item as the HTML message body.
func FormatPost(item model.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>", html.EscapeString(item.Title))
	if summary := CleanHTML(item.Summary); summary != "" {
		b.WriteString("\n\n")
		b.WriteString(html.EscapeString(summary))
	}
	if item.URL != "" {
		fmt.Fprintf(&b, "\n\n<a href=%q>Read more →</a>", item.URL)
	}
	return b.String()
}

var tagExpr = regexp.MustCompile(`<[^>]+>`)

// CleanHTML strips markup from feed summaries, leaving plain text.
func CleanHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagExpr.ReplaceAllString(s, "")))
}
