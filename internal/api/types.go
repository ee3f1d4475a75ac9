package api

import (
	"fmt"
	"time"
)

// Post is a voice clip as the feed service reports it.
type Post struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	AudioURL        string    `json:"audio_url"`
	DurationSeconds int       `json:"duration_seconds"`
	ChannelID       string    `json:"channel_id,omitempty"`
	ParentID        string    `json:"parent_id,omitempty"`
	LikeCount       int       `json:"like_count"`
	ReplyCount      int       `json:"reply_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Channel is a topical feed.
type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PostCount int    `json:"post_count"`
}

// ClipUpload is one clip bound for the post-creation endpoint. Audio holds
// the finished PCM WAV bytes; the payload is sent as-is.
type ClipUpload struct {
	Audio           []byte
	DurationSeconds int
	ChannelID       string // optional target channel
	ParentID        string // optional parent post for replies
}

// APIError is a non-2xx response from the feed service, carrying the
// server-provided message when one was given.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}
