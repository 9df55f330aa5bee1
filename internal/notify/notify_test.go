package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cliphub/internal/database"
)

func strPtr(s string) *string { return &s }
func intPtr(n int64) *int64   { return &n }

func testClip() *database.Clip {
	return &database.Clip{
		ID:            7,
		UserID:        1,
		Title:         "Triple kill",
		Duration:      intPtr(42),
		ThumbnailPath: strPtr("uploads/thumbnails/7_thumb_md.jpg"),
		UploadedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildEmbed(t *testing.T) {
	d := NewDiscord("http://hook", "https://clips.example.com/", "https://api.example.com")

	tests := []struct {
		name  string
		clip  func() *database.Clip
		owner *database.User
		check func(t *testing.T, e embed)
	}{
		{
			name:  "full clip",
			clip:  testClip,
			owner: &database.User{Username: "alice", ProfilePictureURL: strPtr("/uploads/avatars/1.png")},
			check: func(t *testing.T, e embed) {
				if e.Title != "Triple kill" {
					t.Errorf("Title = %q", e.Title)
				}
				if e.Description != "No description" {
					t.Errorf("Description = %q, want default", e.Description)
				}
				if e.URL != "https://clips.example.com/clip/7" {
					t.Errorf("URL = %q", e.URL)
				}
				if e.Image == nil || e.Image.URL != "https://api.example.com/uploads/thumbnails/7_thumb_md.jpg" {
					t.Errorf("Image = %+v", e.Image)
				}
				if e.Author.IconURL != "https://api.example.com/uploads/avatars/1.png" {
					t.Errorf("Author.IconURL = %q", e.Author.IconURL)
				}
				if len(e.Fields) != 1 || e.Fields[0].Name != "Duration" || e.Fields[0].Value != "42s" || !e.Fields[0].Inline {
					t.Errorf("Fields = %+v", e.Fields)
				}
				if e.Color != EmbedColor || e.Footer.Text != "ClipHub" {
					t.Errorf("Color/Footer = %d/%q", e.Color, e.Footer.Text)
				}
				if e.Timestamp != "2026-03-01T12:00:00Z" {
					t.Errorf("Timestamp = %q", e.Timestamp)
				}
			},
		},
		{
			name: "description and no avatar",
			clip: func() *database.Clip {
				c := testClip()
				c.Description = strPtr("what a round")
				c.Duration = nil
				return c
			},
			owner: &database.User{Username: "bob"},
			check: func(t *testing.T, e embed) {
				if e.Description != "what a round" {
					t.Errorf("Description = %q", e.Description)
				}
				if e.Author.Name != "bob" || e.Author.IconURL != "" {
					t.Errorf("Author = %+v", e.Author)
				}
				if e.Fields[0].Value != "unknown" {
					t.Errorf("Duration value = %q, want unknown", e.Fields[0].Value)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, d.buildEmbed(tt.clip(), tt.owner))
		})
	}
}

func TestDiscordNotify(t *testing.T) {
	var got webhookPayload
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("invalid payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, "https://clips.example.com", "https://api.example.com")
	if err := d.Notify(context.Background(), testClip(), &database.User{Username: "alice"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if len(got.Embeds) != 1 || got.Embeds[0].Title != "Triple kill" {
		t.Errorf("payload = %+v", got)
	}
}

func TestDiscordNotifyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, "", "")
	if err := d.Notify(context.Background(), testClip(), &database.User{Username: "alice"}); err == nil {
		t.Error("Notify() on 429 expected error")
	}
}

func TestDiscordNotifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := NewDiscord(url, "", "")
	if err := d.Notify(context.Background(), testClip(), &database.User{Username: "alice"}); err == nil {
		t.Error("Notify() to closed server expected error")
	}
}

func TestNew(t *testing.T) {
	if _, ok := New("", "", "").(Nop); !ok {
		t.Error("New() without webhook should return Nop")
	}
	if _, ok := New("http://hook", "", "").(*Discord); !ok {
		t.Error("New() with webhook should return *Discord")
	}
	if err := (Nop{}).Notify(context.Background(), testClip(), &database.User{}); err != nil {
		t.Errorf("Nop.Notify() error = %v", err)
	}
}
