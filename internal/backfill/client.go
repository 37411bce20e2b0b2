package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/comigor/ridechat/internal/chat"
	"github.com/comigor/ridechat/internal/config"
)

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// Client fetches conversation history from the messages API
type Client struct {
	baseURL string
	headers http.Header
	client  *http.Client
}

// NewClient creates a new Client
func NewClient(cfg config.ServerConfig) *Client {
	headers := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Messages retrieves every stored message of a conversation, oldest first.
func (c *Client) Messages(ctx context.Context, id chat.ConversationID) ([]chat.Message, error) {
	endpoint := fmt.Sprintf("%s/api/messages/%s", c.baseURL, url.PathEscape(id.Key()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.headers {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var body struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	return body.Messages, nil
}
