package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	discordUsername = "Illyrian Tracker"
	discordFooter   = "Illyrian Project Wallet Tracker"
)

// Discord posts embeds to a Discord webhook.
type Discord struct {
	webhookURL string
	httpClient *http.Client
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type discordEmbed struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Color       int               `json:"color"`
	Footer      discordFooterText `json:"footer"`
	Timestamp   string            `json:"timestamp"`
}

type discordFooterText struct {
	Text string `json:"text"`
}

type discordPayload struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Notify(ctx context.Context, msg Message) error {
	at := msg.At
	if at.IsZero() {
		at = time.Now()
	}
	body, err := json.Marshal(discordPayload{
		Username: discordUsername,
		Embeds: []discordEmbed{{
			Title:       msg.Title,
			Description: msg.Body,
			Color:       msg.Color,
			Footer:      discordFooterText{Text: discordFooter},
			Timestamp:   at.UTC().Format(time.RFC3339),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord webhook error %d: %s", resp.StatusCode, string(text))
	}
	return nil
}
