// Package botapi is a minimal Telegram Bot API client covering the calls
// the delivery layer needs: liveness checks, text messages, and media
// uploads. It works against the hosted API and against a locally hosted
// Bot API server interchangeably.
package botapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrTooLarge indicates the server refused the upload because the file
// exceeds its size limit.
var ErrTooLarge = errors.New("file exceeds upload limit")

// Client is the subset of the Bot API used for media delivery.
type Client interface {
	// GetMe verifies the token and that the server is reachable.
	GetMe(ctx context.Context) (*User, error)
	// SendMessage sends a plain text message.
	SendMessage(ctx context.Context, chatID int64, text string) (*Message, error)
	// SendVideo uploads a video file.
	SendVideo(ctx context.Context, req Upload) (*Message, error)
	// SendAudio uploads an audio file.
	SendAudio(ctx context.Context, req Upload) (*Message, error)
	// SendDocument uploads a file without media-specific handling.
	SendDocument(ctx context.Context, req Upload) (*Message, error)
}

// Upload describes one media upload.
type Upload struct {
	ChatID   int64
	FilePath string
	Caption  string
}

// User is the bot account identity returned by getMe.
type User struct {
	ID       int64  `json:"id"`
	IsBot    bool   `json:"is_bot"`
	Username string `json:"username"`
}

// Message is the server acknowledgement for a sent message.
type Message struct {
	MessageID int64 `json:"message_id"`
}

// envelope is the uniform Bot API response wrapper.
type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// Config for creating a new Bot API client.
type Config struct {
	Token   string
	BaseURL string        // e.g. https://api.telegram.org or http://127.0.0.1:8081
	Timeout time.Duration // Optional, defaults to 5 minutes
}

// NewClient creates a new Bot API client.
func NewClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &HTTPClient{
		token:   cfg.Token,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// GetMe verifies the token and that the server is reachable.
func (c *HTTPClient) GetMe(ctx context.Context) (*User, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.endpoint("getMe"), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var user User
	if err := c.decode(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SendMessage sends a plain text message.
func (c *HTTPClient) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(chatID, 10))
	form.Set("text", text)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var msg Message
	if err := c.decode(resp, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendVideo uploads a video file.
func (c *HTTPClient) SendVideo(ctx context.Context, req Upload) (*Message, error) {
	return c.upload(ctx, "sendVideo", "video", req)
}

// SendAudio uploads an audio file.
func (c *HTTPClient) SendAudio(ctx context.Context, req Upload) (*Message, error) {
	return c.upload(ctx, "sendAudio", "audio", req)
}

// SendDocument uploads a file without media-specific handling.
func (c *HTTPClient) SendDocument(ctx context.Context, req Upload) (*Message, error) {
	return c.upload(ctx, "sendDocument", "document", req)
}

// upload streams the file as multipart form data. The body is piped rather
// than buffered; files routed through the local server can run to gigabytes.
func (c *HTTPClient) upload(ctx context.Context, method, field string, req Upload) (*Message, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		defer file.Close()

		if err := writer.WriteField("chat_id", strconv.FormatInt(req.ChatID, 10)); err != nil {
			pw.CloseWithError(fmt.Errorf("write chat_id field: %w", err))
			return
		}
		if req.Caption != "" {
			if err := writer.WriteField("caption", req.Caption); err != nil {
				pw.CloseWithError(fmt.Errorf("write caption field: %w", err))
				return
			}
		}

		part, err := writer.CreateFormFile(field, filepath.Base(req.FilePath))
		if err != nil {
			pw.CloseWithError(fmt.Errorf("create form file: %w", err))
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(fmt.Errorf("copy file data: %w", err))
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint(method), pr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var msg Message
	if err := c.decode(resp, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// decode unwraps the Bot API response envelope into result.
func (c *HTTPClient) decode(resp *http.Response, result any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode == http.StatusRequestEntityTooLarge {
			return fmt.Errorf("%w (status %d)", ErrTooLarge, resp.StatusCode)
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if !env.OK {
		if tooLarge(resp.StatusCode, env) {
			return fmt.Errorf("%w: %s", ErrTooLarge, env.Description)
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, env.Description)
	}

	if result != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

func tooLarge(status int, env envelope) bool {
	if status == http.StatusRequestEntityTooLarge || env.ErrorCode == http.StatusRequestEntityTooLarge {
		return true
	}
	return strings.Contains(strings.ToLower(env.Description), "too large")
}

func (c *HTTPClient) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}
