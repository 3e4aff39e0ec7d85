package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/treumlabs/signalcast/pkg/config"
)

const telegramMaxChars = 4096

// Telegram posts messages to a channel through the bot API. A follow footer
// pointing at the channel is appended when the content does not already
// mention it.
type Telegram struct {
	token     string
	channelID string
	baseURL   string
	http      *http.Client
}

// NewTelegram builds the Telegram poster.
func NewTelegram(cfg config.TelegramConfig) *Telegram {
	return &Telegram{
		token:     cfg.BotToken,
		channelID: cfg.ChannelID,
		baseURL:   "https://api.telegram.org",
		http:      defaultHTTPClient(),
	}
}

// Post sends an HTML-parsed channel message and returns its message ID.
func (t *Telegram) Post(ctx context.Context, content string) (string, error) {
	text := content
	if t.channelID != "" && !strings.Contains(text, t.channelID) {
		text += "\n\n\U0001F4CA Follow: " + t.channelID
	}

	payload := map[string]any{
		"chat_id":    t.channelID,
		"text":       truncate(text, telegramMaxChars),
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting to telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("telegram http error: status %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Result      struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding telegram response: %w", err)
	}
	if !result.OK {
		if result.Description == "" {
			result.Description = "unknown error"
		}
		return "", fmt.Errorf("telegram api error: %s", result.Description)
	}
	return strconv.FormatInt(result.Result.MessageID, 10), nil
}
