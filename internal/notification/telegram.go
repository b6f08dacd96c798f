package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier posts order alerts to one chat through the Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

// NewTelegramNotifier posts to chatID as the bot identified by botToken.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   telegramAPI,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(telegramMessage{
		ChatID:    t.chatID,
		Text:      telegramText(alert),
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal: %w", err)
	}

	endpoint := t.apiURL + "/bot" + t.botToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send %s order %d: %w", alert.Symbol, alert.OrderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: send %s order %d: status %d", alert.Symbol, alert.OrderID, resp.StatusCode)
	}
	return nil
}

// telegramText renders an order alert as a MarkdownV2 message: the title in
// bold, then side, quantity and symbol, then the exchange and client order
// ids. Alerts without order fields fall back to their message.
func telegramText(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", escapeMarkdown(a.Title))

	if a.Symbol == "" {
		b.WriteString(escapeMarkdown(a.Message))
		return b.String()
	}
	fmt.Fprintf(&b, "%s `%s` %s\n", escapeMarkdown(a.Side), escapeMarkdown(a.Quantity), escapeMarkdown(a.Symbol))
	if a.OrderID != 0 {
		fmt.Fprintf(&b, "order %d", a.OrderID)
		if a.ClientOrderID != "" {
			fmt.Fprintf(&b, " \\(%s\\)", escapeMarkdown(a.ClientOrderID))
		}
		b.WriteByte('\n')
	}
	if !a.Time.IsZero() {
		b.WriteString(escapeMarkdown(a.Time.UTC().Format("02/01 15:04:05 UTC")))
	}
	return strings.TrimRight(b.String(), "\n")
}

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(s string) string {
	const reserved = "_*[]()~`>#+-=|{}.!\\"
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(reserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
