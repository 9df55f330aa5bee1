package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cliphub/internal/database"
	"cliphub/internal/logging"
	"cliphub/internal/metrics"
)

// Notifier announces a clip whose thumbnail is ready.
type Notifier interface {
	Notify(ctx context.Context, clip *database.Clip, owner *database.User) error
}

// Nop discards notifications.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, *database.Clip, *database.User) error {
	metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
	return nil
}

// EmbedColor is the embed accent colour (#58b9ff).
const EmbedColor = 5814783

// Discord posts clip announcements to a Discord webhook.
type Discord struct {
	WebhookURL  string
	FrontendURL string
	BackendURL  string
	Client      *http.Client
}

// NewDiscord returns a Discord notifier with a bounded HTTP client.
func NewDiscord(webhookURL, frontendURL, backendURL string) *Discord {
	return &Discord{
		WebhookURL:  webhookURL,
		FrontendURL: strings.TrimRight(frontendURL, "/"),
		BackendURL:  strings.TrimRight(backendURL, "/"),
		Client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// New returns a Discord notifier when a webhook is configured and Nop
// otherwise.
func New(webhookURL, frontendURL, backendURL string) Notifier {
	if webhookURL == "" {
		logging.Info("Discord webhook not configured, notifications disabled")
		return Nop{}
	}
	return NewDiscord(webhookURL, frontendURL, backendURL)
}

type embedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Author      embedAuthor  `json:"author"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Image       *embedImage  `json:"image,omitempty"`
	Timestamp   string       `json:"timestamp"`
	Footer      embedFooter  `json:"footer"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

func (d *Discord) buildEmbed(clip *database.Clip, owner *database.User) embed {
	author := embedAuthor{Name: owner.Username}
	if owner.ProfilePictureURL != nil && *owner.ProfilePictureURL != "" {
		author.IconURL = d.BackendURL + *owner.ProfilePictureURL
	}

	description := "No description"
	if clip.Description != nil && *clip.Description != "" {
		description = *clip.Description
	}

	duration := "unknown"
	if clip.Duration != nil {
		duration = strconv.FormatInt(*clip.Duration, 10) + "s"
	}

	e := embed{
		Author:      author,
		Title:       clip.Title,
		Description: description,
		URL:         fmt.Sprintf("%s/clip/%d", d.FrontendURL, clip.ID),
		Color:       EmbedColor,
		Fields:      []embedField{{Name: "Duration", Value: duration, Inline: true}},
		Timestamp:   clip.UploadedAt.UTC().Format(time.RFC3339),
		Footer:      embedFooter{Text: "ClipHub"},
	}
	if clip.HasThumbnail() {
		e.Image = &embedImage{URL: d.BackendURL + "/" + *clip.ThumbnailPath}
	}
	return e
}

// Notify posts a single embed for clip. Any non-2xx response is an error.
func (d *Discord) Notify(ctx context.Context, clip *database.Clip, owner *database.User) (err error) {
	defer func() {
		status := "sent"
		if err != nil {
			status = "failed"
		}
		metrics.NotificationsTotal.WithLabelValues(status).Inc()
	}()

	body, err := json.Marshal(webhookPayload{Embeds: []embed{d.buildEmbed(clip, owner)}})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug("failed to close webhook response body: %v", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	logging.Debug("Discord notification sent for clip %d", clip.ID)
	return nil
}
