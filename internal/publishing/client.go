package publishing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public blog backend
const DefaultBaseURL = "https://blog0-backend.vercel.app"

const apiPrefix = "/api/p/v1"

// Client handles authenticated calls to the blog publishing API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new publishing client. The bearer token is required.
func NewClient(baseURL, token string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("PROCESSOR_TOKEN must be set")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// CreatePost creates a post. With Publish set the post is visible immediately,
// otherwise it is stored as a draft.
func (c *Client) CreatePost(ctx context.Context, post CreatePostRequest) (*PostRecord, error) {
	var record PostRecord
	if err := c.do(ctx, http.MethodPost, "/posts", post, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + endpoint, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, payload)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func newAPIError(status int, payload []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(payload)}

	var errResp errorResponse
	if err := json.Unmarshal(payload, &errResp); err == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(payload))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
