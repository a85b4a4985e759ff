package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shyim/backup-pruner/internal/notification"
)

const defaultAPIURL = "https://api.telegram.org"

func init() {
	notification.Register(&TelegramType{})
}

// TelegramType implements NotifierType for Telegram
type TelegramType struct{}

// Name returns the notifier type identifier
func (t *TelegramType) Name() string {
	return "telegram"
}

// Create instantiates a Telegram notifier from options
func (t *TelegramType) Create(name string, options map[string]string) (notification.Notifier, error) {
	token, ok := options["token"]
	if !ok || token == "" {
		return nil, fmt.Errorf("telegram notifier %q requires 'token' option", name)
	}

	chatID, ok := options["chat-id"]
	if !ok || chatID == "" {
		return nil, fmt.Errorf("telegram notifier %q requires 'chat-id' option", name)
	}

	apiURL := strings.TrimSuffix(options["api-url"], "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	return &TelegramNotifier{
		name:   name,
		token:  token,
		chatID: chatID,
		apiURL: apiURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// TelegramNotifier sends notifications via Telegram Bot API
type TelegramNotifier struct {
	name   string
	token  string
	chatID string
	apiURL string
	client *http.Client
}

// Name returns the notifier instance name
func (t *TelegramNotifier) Name() string {
	return t.name
}

// Type returns the notifier type
func (t *TelegramNotifier) Type() string {
	return "telegram"
}

// Send sends a notification to Telegram
func (t *TelegramNotifier) Send(ctx context.Context, event notification.Event) error {
	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       t.formatMessage(event),
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// formatMessage formats an event into a Telegram message
func (t *TelegramNotifier) formatMessage(event notification.Event) string {
	var emoji, title string

	switch event.Type {
	case notification.EventPruneCompleted:
		emoji = "✅"
		title = "Prune Completed"
		if event.Failed > 0 {
			emoji = "⚠️"
			title = "Prune Completed With Errors"
		}
	case notification.EventPruneFailed:
		emoji = "❌"
		title = "Prune Failed"
	default:
		emoji = "ℹ️"
		title = string(event.Type)
	}
	if event.DryRun {
		title += " (dry run)"
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "%s <b>%s</b>\n\n", emoji, title)
	fmt.Fprintf(&msg, "📁 Group: <code>%s</code>\n", html.EscapeString(event.Group))

	if event.Policy != "" {
		fmt.Fprintf(&msg, "📜 Policy: <code>%s</code>\n", html.EscapeString(event.Policy))
	}

	if event.Total > 0 {
		fmt.Fprintf(&msg, "📦 Kept: %d, deleted: %d of %d\n", event.Kept, event.Deleted, event.Total)
		fmt.Fprintf(&msg, "📊 Reclaimed: %s\n", humanize.IBytes(uint64(max(event.Reclaimed(), 0))))
	}

	if event.Failed > 0 {
		fmt.Fprintf(&msg, "🚫 Failed deletions: %d\n", event.Failed)
	}

	if event.Duration > 0 {
		fmt.Fprintf(&msg, "⏱ Duration: %s\n", event.Duration.Round(time.Millisecond))
	}

	if event.Error != nil {
		fmt.Fprintf(&msg, "\n⚠️ Error: <code>%s</code>", html.EscapeString(event.Error.Error()))
	}

	return msg.String()
}
