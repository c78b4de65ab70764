package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client provides REST API access to the PulseChat backend.
type Client struct {
	baseURL    string
	tokens     func() string
	httpClient *http.Client
}

// NewClient creates a new REST API client.
// baseURL should be the base URL of the API, e.g., "http://localhost:8000/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetTokenSource sets a callback that supplies the bearer token per request,
// so externally refreshed credentials are picked up without reconfiguring.
func (c *Client) SetTokenSource(fn func() string) {
	c.tokens = fn
}

// ListRooms returns all rooms visible to the authenticated user.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var resp []Room
	if err := c.get(ctx, "/chat/rooms/", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateRoom creates a new room.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*Room, error) {
	var resp Room
	if err := c.post(ctx, "/chat/rooms/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMessages retrieves the message history for a room, oldest first.
func (c *Client) GetMessages(ctx context.Context, roomID string) ([]Message, error) {
	var resp []Message
	if err := c.get(ctx, fmt.Sprintf("/chat/rooms/%s/messages/", roomID), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SendMessage persists a message and returns the confirmed record.
func (c *Client) SendMessage(ctx context.Context, roomID, content string) (*Message, error) {
	var resp Message
	req := SendMessageRequest{Content: content, Type: MessageText}
	if err := c.post(ctx, fmt.Sprintf("/chat/rooms/%s/messages/", roomID), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LikeMessage toggles the current user's like on a message.
func (c *Client) LikeMessage(ctx context.Context, messageID string) (*LikeResult, error) {
	var resp LikeResult
	if err := c.post(ctx, fmt.Sprintf("/chat/messages/%s/like/", messageID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkMessageRead records a read receipt for a message.
func (c *Client) MarkMessageRead(ctx context.Context, messageID string) error {
	return c.post(ctx, fmt.Sprintf("/chat/messages/%s/read/", messageID), nil, nil)
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	return c.do(req, dest)
}

func (c *Client) authorize(req *http.Request) {
	if c.tokens == nil {
		return
	}
	if token := c.tokens(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
