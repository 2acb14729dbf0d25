package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends alerts via the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  telegramAPI,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	prefix := "ℹ️"
	switch alert.Level {
	case AlertWarning:
		prefix = "⚠️"
	case AlertCritical:
		prefix = "🚨"
	}
	body, err := json.Marshal(map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("%s *%s*\n\n%s", prefix, escapeMarkdown(alert.Title), escapeMarkdown(alert.Message)),
		"parse_mode": "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}
	if err := post(ctx, t.client, fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken), body); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// escapeMarkdown escapes the MarkdownV2 reserved characters.
func escapeMarkdown(s string) string {
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		if bytes.IndexByte([]byte("_*[]()~`>#+-=|{}.!"), s[i]) >= 0 {
			buf.WriteByte('\\')
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
