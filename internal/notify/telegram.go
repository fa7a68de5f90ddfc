package notify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMaxLen is Telegram's per-message text limit.
const telegramMaxLen = 4096

// Telegram sends messages to one chat through a bot.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegram authenticates the bot token and returns a sink for chatID.
func NewTelegram(token string, chatID int64, logger *slog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return NewTelegramWithBot(bot, chatID, logger), nil
}

// NewTelegramWithBot wraps an existing bot client.
func NewTelegramWithBot(bot *tgbotapi.BotAPI, chatID int64, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{bot: bot, chatID: chatID, logger: logger.With("component", "telegram")}
}

func (t *Telegram) Name() string { return "telegram" }

// Send delivers markdown as Telegram HTML, splitting long messages.
// When Telegram rejects the HTML the chunk is resent as plain text.
func (t *Telegram) Send(_ context.Context, markdown string) error {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}
	for _, chunk := range splitLines(markdown, telegramMaxLen) {
		msg := tgbotapi.NewMessage(t.chatID, MarkdownToTelegramHTML(chunk))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Warn("HTML send failed, falling back to plain text", "chat_id", t.chatID, "error", err)
			msg.Text = StripMarkdown(chunk)
			msg.ParseMode = ""
			if _, err := t.bot.Send(msg); err != nil {
				return fmt.Errorf("telegram: send: %w", err)
			}
		}
	}
	return nil
}

var (
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic     = regexp.MustCompile(`\*(.+?)\*`)
)

// MarkdownToTelegramHTML converts the Markdown subset used in
// notifications to Telegram's HTML subset.
func MarkdownToTelegramHTML(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		var codes []string
		line = reInlineCode.ReplaceAllStringFunc(line, func(m string) string {
			codes = append(codes, "<code>"+escapeHTML(m[1:len(m)-1])+"</code>")
			return fmt.Sprintf("\x00%d\x00", len(codes)-1)
		})
		line = escapeHTML(line)
		line = reBold.ReplaceAllString(line, "<b>$1</b>")
		line = reItalic.ReplaceAllString(line, "<i>$1</i>")
		for n, c := range codes {
			line = strings.Replace(line, fmt.Sprintf("\x00%d\x00", n), c, 1)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// StripMarkdown removes emphasis and code markers.
func StripMarkdown(md string) string {
	out := reInlineCode.ReplaceAllString(md, "$1")
	out = reBold.ReplaceAllString(out, "$1")
	return reItalic.ReplaceAllString(out, "$1")
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}

// splitLines cuts s into chunks of at most max bytes, breaking between
// lines where possible.
func splitLines(s string, max int) []string {
	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		for len(line) > max {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			chunks = append(chunks, line[:max])
			line = line[max:]
		}
		if cur.Len()+len(line) > max {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
