// Package appium is a small WebDriver client for the Appium server.
package appium

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every request, including session creation which
// may install and boot the app.
const DefaultTimeout = 90 * time.Second

// ErrNoSuchElement is returned when a locator matches nothing.
var ErrNoSuchElement = errors.New("no such element")

// Error is a WebDriver error response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("webdriver: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("webdriver: %s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrNoSuchElement && e.Code == "no such element"
}

// Client talks to one Appium server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for the server at url.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(url, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Session is a live automation session.
type Session struct {
	ID     string
	client *Client
}

// NewSession creates a session with caps.
func (c *Client) NewSession(ctx context.Context, caps Capabilities) (*Session, error) {
	var req newSessionRequest
	req.Capabilities.AlwaysMatch = caps
	req.DesiredCapabilities = caps

	var resp struct {
		SessionID string `json:"sessionId"`
		Value     struct {
			SessionID string `json:"sessionId"`
		} `json:"value"`
	}
	if err := c.do(ctx, http.MethodPost, "/session", req, &resp); err != nil {
		return nil, err
	}
	id := resp.Value.SessionID
	if id == "" {
		id = resp.SessionID
	}
	if id == "" {
		return nil, errors.New("webdriver: new session response carries no session id")
	}
	return &Session{ID: id, client: c}, nil
}

func (s *Session) path(elem ...string) string {
	return "/session/" + s.ID + strings.Join(append([]string{""}, elem...), "/")
}

// FindElement returns the id of the first element matching the locator,
// for example ("accessibility id", "LoginButton").
func (s *Session) FindElement(ctx context.Context, using, value string) (string, error) {
	var resp struct {
		Value map[string]string `json:"value"`
	}
	body := map[string]string{"using": using, "value": value}
	if err := s.client.do(ctx, http.MethodPost, s.path("element"), body, &resp); err != nil {
		return "", err
	}
	if id := resp.Value[elementKey]; id != "" {
		return id, nil
	}
	if id := resp.Value["ELEMENT"]; id != "" {
		return id, nil
	}
	return "", fmt.Errorf("webdriver: %w: empty element reference", ErrNoSuchElement)
}

// Rect returns the element's bounding rectangle.
func (s *Session) Rect(ctx context.Context, id string) (Rect, error) {
	var resp struct {
		Value Rect `json:"value"`
	}
	err := s.client.do(ctx, http.MethodGet, s.path("element", id, "rect"), nil, &resp)
	return resp.Value, err
}

// Location returns the element's top-left corner on the page.
func (s *Session) Location(ctx context.Context, id string) (Point, error) {
	return s.point(ctx, s.path("element", id, "location"))
}

// LocationInView scrolls the element into view and returns its location
// on screen.
func (s *Session) LocationInView(ctx context.Context, id string) (Point, error) {
	return s.point(ctx, s.path("element", id, "location_in_view"))
}

func (s *Session) point(ctx context.Context, path string) (Point, error) {
	var resp struct {
		Value Point `json:"value"`
	}
	err := s.client.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Value, err
}

// Click taps the element.
func (s *Session) Click(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodPost, s.path("element", id, "click"), struct{}{}, nil)
}

// SendKeys types text into the element.
func (s *Session) SendKeys(ctx context.Context, id, text string) error {
	body := map[string]any{"text": text, "value": strings.Split(text, "")}
	return s.client.do(ctx, http.MethodPost, s.path("element", id, "value"), body, nil)
}

// Source returns the current UI hierarchy as XML.
func (s *Session) Source(ctx context.Context) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	err := s.client.do(ctx, http.MethodGet, s.path("source"), nil, &resp)
	return resp.Value, err
}

// UpdateSettings changes driver settings for the session.
func (s *Session) UpdateSettings(ctx context.Context, settings map[string]any) error {
	body := map[string]any{"settings": settings}
	return s.client.do(ctx, http.MethodPost, s.path("appium", "settings"), body, nil)
}

// Quit ends the session. Calling Quit twice is a no-op.
func (s *Session) Quit(ctx context.Context) error {
	if s.ID == "" {
		return nil
	}
	if err := s.client.do(ctx, http.MethodDelete, s.path(), nil, nil); err != nil {
		return err
	}
	s.ID = ""
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("webdriver: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("webdriver: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("webdriver: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("webdriver: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("webdriver: decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var resp struct {
		Value struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		} `json:"value"`
	}
	if json.Unmarshal(data, &resp) == nil && resp.Value.Error != "" {
		return &Error{Status: status, Code: resp.Value.Error, Message: resp.Value.Message}
	}
	return &Error{Status: status, Message: strings.TrimSpace(string(data))}
}
