package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTelegramAPI is the Telegram Bot API root.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramChannel delivers the plain-text summary through a Telegram bot.
type TelegramChannel struct {
	BotToken string
	ChatID   string
	// API overrides the Bot API root, used by tests.
	API string

	client *resty.Client
}

// NewTelegramChannel creates the Telegram channel.
func NewTelegramChannel(botToken, chatID string) *TelegramChannel {
	return &TelegramChannel{
		BotToken: botToken,
		ChatID:   chatID,
		API:      DefaultTelegramAPI,
		client:   resty.New().SetTimeout(30 * time.Second),
	}
}

func (c *TelegramChannel) Name() string { return "Telegram" }

func (c *TelegramChannel) Send(ctx context.Context, msg Message) error {
	text := fmt.Sprintf("*%s*\n\n%s", EscapeMarkdown(msg.Title), EscapeMarkdown(msg.Text))

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id":    c.ChatID,
			"text":       text,
			"parse_mode": "MarkdownV2",
		}).
		Post(fmt.Sprintf("%s/bot%s/sendMessage", c.API, c.BotToken))
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("telegram returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// markdownSpecial are the characters MarkdownV2 requires escaping.
var markdownSpecial = []string{
	"_", "*", "[", "]", "(", ")", "~", "`", ">", "#",
	"+", "-", "=", "|", "{", "}", ".", "!",
}

// EscapeMarkdown escapes Telegram MarkdownV2 special characters.
func EscapeMarkdown(text string) string {
	for _, ch := range markdownSpecial {
		text = strings.ReplaceAll(text, ch, `\`+ch)
	}
	return text
}
