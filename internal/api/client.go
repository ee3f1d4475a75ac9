package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxdroplab/voxdrop/internal/config"
)

// Feed cache paths, shared with the upload coordinator so it can name the
// views a new post makes stale.
const (
	FeedPath = "/api/posts"
)

// ChannelFeedPath returns the cache path for one channel's feed.
func ChannelFeedPath(channelID string) string {
	return FeedPath + "/channel/" + channelID
}

// RepliesPath returns the cache path for one post's reply thread.
func RepliesPath(postID string) string {
	return FeedPath + "/" + postID + "/replies"
}

// Client talks to the feed service. Reads go through the response cache;
// writes never touch it, leaving invalidation to the caller.
type Client struct {
	cfg        *config.APIConfig
	httpClient *http.Client
	cache      *Cache
}

// NewClient validates the API configuration and builds a client.
func NewClient(cfg *config.APIConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("api config is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api base_url is required")
	}
	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("api timeout_seconds must be > 0, got %d", cfg.TimeoutSeconds)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: false,
			},
		},
		cache: NewCache(30 * time.Second),
	}, nil
}

// Cache exposes the response cache so the coordinator can invalidate it.
func (c *Client) Cache() *Cache {
	return c.cache
}

// CreatePost uploads a finished clip as a multipart submission and returns
// the created post.
func (c *Client) CreatePost(ctx context.Context, clip ClipUpload) (*Post, error) {
	if len(clip.Audio) == 0 {
		return nil, fmt.Errorf("clip audio is empty")
	}

	req, err := c.createUploadRequest(ctx, clip)
	if err != nil {
		return nil, fmt.Errorf("error creating upload request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var post Post
	if err := json.Unmarshal(body, &post); err != nil {
		return nil, fmt.Errorf("error unmarshaling post response: %w", err)
	}
	return &post, nil
}

func (c *Client) createUploadRequest(ctx context.Context, clip ClipUpload) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := part.Write(clip.Audio); err != nil {
		return nil, fmt.Errorf("error writing audio payload: %w", err)
	}

	if err := writer.WriteField("duration", strconv.Itoa(clip.DurationSeconds)); err != nil {
		return nil, fmt.Errorf("error writing duration field: %w", err)
	}
	if clip.ChannelID != "" {
		if err := writer.WriteField("channel_id", clip.ChannelID); err != nil {
			return nil, fmt.Errorf("error writing channel_id field: %w", err)
		}
	}
	if clip.ParentID != "" {
		if err := writer.WriteField("parent_id", clip.ParentID); err != nil {
			return nil, fmt.Errorf("error writing parent_id field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("error closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(FeedPath), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setCommonHeaders(req)
	return req, nil
}

// Feed returns the global feed, newest first.
func (c *Client) Feed(ctx context.Context) ([]Post, error) {
	return c.fetchPosts(ctx, FeedPath)
}

// ChannelFeed returns the feed for one channel.
func (c *Client) ChannelFeed(ctx context.Context, channelID string) ([]Post, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel id is required")
	}
	return c.fetchPosts(ctx, ChannelFeedPath(channelID))
}

// Replies returns the reply thread of one post.
func (c *Client) Replies(ctx context.Context, postID string) ([]Post, error) {
	if postID == "" {
		return nil, fmt.Errorf("post id is required")
	}
	return c.fetchPosts(ctx, RepliesPath(postID))
}

func (c *Client) fetchPosts(ctx context.Context, path string) ([]Post, error) {
	if posts, ok := c.cache.Get(path); ok {
		return posts, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, err
	}
	c.setCommonHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var posts []Post
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("error unmarshaling posts: %w", err)
	}

	c.cache.Put(path, posts)
	return posts, nil
}

// Channels lists the available channels. Channel listings are small and
// change rarely, so they bypass the post cache.
func (c *Client) Channels(ctx context.Context) ([]Channel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/channels"), nil)
	if err != nil {
		return nil, err
	}
	c.setCommonHeaders(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var channels []Channel
	if err := json.Unmarshal(body, &channels); err != nil {
		return nil, fmt.Errorf("error unmarshaling channels: %w", err)
	}
	return channels, nil
}

// Like toggles a like on a post and drops the cached views that carry its
// like count.
func (c *Client) Like(ctx context.Context, postID string) error {
	if postID == "" {
		return fmt.Errorf("post id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(FeedPath+"/"+postID+"/like"), nil)
	if err != nil {
		return err
	}
	c.setCommonHeaders(req)

	if _, err := c.do(req); err != nil {
		return err
	}

	c.cache.Invalidate(FeedPath)
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}
	return body, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}

func (c *Client) url(path string) string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + path
}

// errorMessage pulls the message out of an {"error": "..."} body, falling
// back to the raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
