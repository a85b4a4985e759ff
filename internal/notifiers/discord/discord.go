package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shyim/backup-pruner/internal/notification"
)

func init() {
	notification.Register(&DiscordType{})
}

// DiscordType implements NotifierType for Discord
type DiscordType struct{}

// Name returns the notifier type identifier
func (t *DiscordType) Name() string {
	return "discord"
}

// Create instantiates a Discord notifier from options
func (t *DiscordType) Create(name string, options map[string]string) (notification.Notifier, error) {
	webhookURL, ok := options["webhook-url"]
	if !ok || webhookURL == "" {
		return nil, fmt.Errorf("discord notifier %q requires 'webhook-url' option", name)
	}

	username := options["username"]
	if username == "" {
		username = "Backup Pruner"
	}

	return &DiscordNotifier{
		name:       name,
		webhookURL: webhookURL,
		username:   username,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// DiscordNotifier sends notifications via Discord Webhooks
type DiscordNotifier struct {
	name       string
	webhookURL string
	username   string
	client     *http.Client
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Fields    []embedField `json:"fields"`
	Timestamp string       `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// Name returns the notifier instance name
func (d *DiscordNotifier) Name() string {
	return d.name
}

// Type returns the notifier type
func (d *DiscordNotifier) Type() string {
	return "discord"
}

// Send sends a notification to Discord
func (d *DiscordNotifier) Send(ctx context.Context, event notification.Event) error {
	body, err := json.Marshal(webhookPayload{
		Username: d.username,
		Embeds:   []embed{d.createEmbed(event)},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	return nil
}

func (d *DiscordNotifier) createEmbed(event notification.Event) embed {
	var title string
	var color int

	switch event.Type {
	case notification.EventPruneCompleted:
		title = "Prune Completed"
		color = 3066993 // Green
		if event.Failed > 0 {
			title = "Prune Completed With Errors"
			color = 15105570 // Orange
		}
	case notification.EventPruneFailed:
		title = "Prune Failed"
		color = 15158332 // Red
	default:
		title = string(event.Type)
		color = 9807270 // Gray
	}
	if event.DryRun {
		title += " (dry run)"
	}

	fields := []embedField{
		{Name: "Group", Value: fmt.Sprintf("`%s`", event.Group), Inline: true},
	}

	if event.Policy != "" {
		fields = append(fields, embedField{Name: "Policy", Value: fmt.Sprintf("`%s`", event.Policy), Inline: true})
	}

	if event.Total > 0 {
		fields = append(fields,
			embedField{Name: "Kept", Value: fmt.Sprint(event.Kept), Inline: true},
			embedField{Name: "Deleted", Value: fmt.Sprint(event.Deleted), Inline: true},
			embedField{Name: "Reclaimed", Value: humanize.IBytes(uint64(max(event.Reclaimed(), 0))), Inline: true},
		)
	}

	if event.Failed > 0 {
		fields = append(fields, embedField{Name: "Failed", Value: fmt.Sprint(event.Failed), Inline: true})
	}

	if event.Duration > 0 {
		fields = append(fields, embedField{Name: "Duration", Value: event.Duration.Round(time.Millisecond).String(), Inline: true})
	}

	if event.Error != nil {
		fields = append(fields, embedField{Name: "Error", Value: fmt.Sprintf("```%s```", event.Error.Error())})
	}

	e := embed{
		Title:  title,
		Color:  color,
		Fields: fields,
	}
	if !event.Timestamp.IsZero() {
		e.Timestamp = event.Timestamp.Format(time.RFC3339)
	}

	return e
}
