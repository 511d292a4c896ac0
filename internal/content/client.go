// Package content reads journal entries from the site's content API.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the content API URL or key is missing.
var ErrNotConfigured = errors.New("content API not configured: GPT_API_URL and GPT_API_KEY are required")

// ThoughtSummary is one item of the thoughts listing.
type ThoughtSummary struct {
	Slug string `json:"slug"`
}

// Meta is the front matter of a thought.
type Meta struct {
	Date  string  `json:"date"`
	Title string  `json:"title"`
	Mood  *string `json:"mood"`
}

// Thought is a full journal entry.
type Thought struct {
	Slug    string `json:"slug"`
	Meta    Meta   `json:"meta"`
	Content string `json:"content"`
}

// Client talks to the content API
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a new content API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Configured reports whether both the URL and the key are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// ListThoughts fetches the slugs of every published thought.
func (c *Client) ListThoughts(ctx context.Context) ([]ThoughtSummary, error) {
	var thoughts []ThoughtSummary
	if err := c.get(ctx, "/api/v1/content/thoughts", &thoughts); err != nil {
		return nil, fmt.Errorf("fetch thoughts: %w", err)
	}
	return thoughts, nil
}

// GetThought fetches the full detail of one thought.
func (c *Client) GetThought(ctx context.Context, slug string) (*Thought, error) {
	var thought Thought
	if err := c.get(ctx, "/api/v1/content/thoughts/"+url.PathEscape(slug), &thought); err != nil {
		return nil, fmt.Errorf("fetch thought %s: %w", slug, err)
	}
	return &thought, nil
}

// get sends an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
