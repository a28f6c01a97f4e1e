package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SnapshotLoader fetches the full, ordered question list of a room.
type SnapshotLoader interface {
	FetchQuestions(ctx context.Context, roomID string) ([]Question, error)
}

// Service is the complete request/response surface of the AMA API.
// This interface is implemented by *Client and can be used for testing.
type Service interface {
	SnapshotLoader
	FetchRoom(ctx context.Context, roomID string) (*Room, error)
	CreateRoom(ctx context.Context, name string) (*Room, error)
	CreateQuestion(ctx context.Context, roomID, value string) (*Question, error)
	ReactQuestion(ctx context.Context, questionID string) (*Question, error)
}

// Ensure Client implements Service at compile time.
var _ Service = (*Client)(nil)

// Client talks to the AMA HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultBaseURL   = "127.0.0.1:3333"
	defaultUserAgent = "amaroom/0.1"
	defaultTimeout   = 5 * time.Second
	maxErrorBody     = 64 * 1024
)

// NewClient builds a Client for the API at baseURL. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchQuestions retrieves the ordered question snapshot for a room.
func (c *Client) FetchQuestions(ctx context.Context, roomID string) ([]Question, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrMissingID
	}
	var payload []Question
	path := "/room/" + url.PathEscape(roomID) + "/questions"
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchRoom retrieves room metadata; a missing room yields *NotFoundError.
func (c *Client) FetchRoom(ctx context.Context, roomID string) (*Room, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrMissingID
	}
	var payload Room
	if err := c.do(ctx, http.MethodGet, "/room/"+url.PathEscape(roomID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CreateRoom opens a new room.
func (c *Client) CreateRoom(ctx context.Context, name string) (*Room, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyRoomName
	}
	var payload Room
	if err := c.do(ctx, http.MethodPost, "/room", createRoomRequest{Name: name}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CreateQuestion posts a question. The matching Create event arrives on the
// room stream; callers should not insert the returned value themselves.
func (c *Client) CreateQuestion(ctx context.Context, roomID, value string) (*Question, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrMissingID
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrEmptyQuestion
	}
	var payload Question
	body := createQuestionRequest{RoomID: roomID, Value: value}
	if err := c.do(ctx, http.MethodPost, "/question", body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ReactQuestion upvotes a question. The resulting Update event arrives on the stream.
func (c *Client) ReactQuestion(ctx context.Context, questionID string) (*Question, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return nil, ErrMissingID
	}
	var payload Question
	path := "/question/" + url.PathEscape(questionID) + "/react"
	if err := c.do(ctx, http.MethodPatch, path, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// do sends a request to path, an already escaped path under the base URL.
func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	op := method + " " + path
	reqURL := c.baseURL.JoinPath(path)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{Op: op, Message: readErrorMessage(resp.Body)}
	}
	if resp.StatusCode >= 400 {
		return &TransportError{Op: op, Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readErrorMessage extracts the "error" field of an ErrorResponse body,
// falling back to the trimmed raw body for non-JSON replies.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload ErrorResponse
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", baseURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
