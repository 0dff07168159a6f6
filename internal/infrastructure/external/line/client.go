// Package line implements the LINE Messaging API client used by the bot:
// replies, pushes, member profile and member count lookups, plus webhook
// types and signature verification.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dailypractice/attendance-hub/internal/domain/shared"
	"github.com/dailypractice/attendance-hub/pkg/logger"
	"github.com/dailypractice/attendance-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// MaxMessagesPerRequest is the LINE limit on messages in one reply or push.
const MaxMessagesPerRequest = 5

// ClientConfig contains configuration for the LINE client.
type ClientConfig struct {
	// AccessToken is the channel access token.
	AccessToken string

	// BaseURL is the Messaging API base URL (default: https://api.line.me)
	BaseURL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RetryAttempts is the total number of attempts per call.
	RetryAttempts int

	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64

	// Logger for structured logging.
	Logger *logger.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(token string) ClientConfig {
	return ClientConfig{
		AccessToken:       token,
		BaseURL:           "https://api.line.me",
		Timeout:           10 * time.Second,
		RetryAttempts:     3,
		RequestsPerSecond: 20,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// API TYPES
// ══════════════════════════════════════════════════════════════════════════════

// TextMessage is an outbound text message.
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Profile is a chat member profile.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []TextMessage `json:"messages"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []TextMessage `json:"messages"`
}

type countResponse struct {
	Count int `json:"count"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// APIError is a non-2xx response from the Messaging API.
type APIError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line api error %d: %s", e.Status, e.Message)
}

// Unwrap maps the status onto the shared error taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return shared.ErrProfileNotFound
	case e.Status == http.StatusTooManyRequests:
		return shared.ErrLineAPIRateLimited
	case e.Status >= 500:
		return shared.ErrLineAPIUnavailable
	default:
		return shared.ErrLineAPIFailed
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the LINE Messaging API client. Safe for concurrent use.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	retrier    *retry.Retrier
	logger     *logger.Logger
}

// NewClient creates a new LINE client.
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.line.me"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	log := config.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("line-client"))

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RequestsPerSecond > 0 {
		burst := int(config.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    limiter,
		retrier: retry.LineAPIRetrier(config.RetryAttempts, func(attempt int, err error, delay time.Duration) {
			log.Warn("retrying line api call",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
		logger: log,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGING
// ══════════════════════════════════════════════════════════════════════════════

func textMessages(texts []string) []TextMessage {
	out := make([]TextMessage, 0, len(texts))
	for _, t := range texts {
		out = append(out, TextMessage{Type: MessageText, Text: t})
	}
	return out
}

// Reply answers an event. A reply token is single use, so at most
// MaxMessagesPerRequest texts are accepted.
func (c *Client) Reply(ctx context.Context, replyToken string, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	if replyToken == "" {
		return fmt.Errorf("reply: %w", shared.ErrInvalidInput)
	}
	if len(texts) > MaxMessagesPerRequest {
		return fmt.Errorf("reply: %d messages exceeds %d: %w", len(texts), MaxMessagesPerRequest, shared.ErrValueOutOfRange)
	}

	body := replyRequest{ReplyToken: replyToken, Messages: textMessages(texts)}
	if err := c.call(ctx, http.MethodPost, "/v2/bot/message/reply", body, nil); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

// Push sends texts to a chat in order, MaxMessagesPerRequest per request.
func (c *Client) Push(ctx context.Context, to string, texts []string) error {
	if to == "" {
		return fmt.Errorf("push: %w", shared.ErrInvalidChatID)
	}
	for start := 0; start < len(texts); start += MaxMessagesPerRequest {
		end := start + MaxMessagesPerRequest
		if end > len(texts) {
			end = len(texts)
		}
		body := pushRequest{To: to, Messages: textMessages(texts[start:end])}
		if err := c.call(ctx, http.MethodPost, "/v2/bot/message/push", body, nil); err != nil {
			return fmt.Errorf("push: %w", err)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAT MEMBERS
// ══════════════════════════════════════════════════════════════════════════════

// MemberProfile returns the member's profile within a group or room.
// Returns shared.ErrProfileNotFound when LINE does not know the member.
func (c *Client) MemberProfile(ctx context.Context, chatID, userID string) (Profile, error) {
	var path string
	switch ChatKind(chatID) {
	case SourceGroup:
		path = "/v2/bot/group/" + url.PathEscape(chatID) + "/member/" + url.PathEscape(userID)
	case SourceRoom:
		path = "/v2/bot/room/" + url.PathEscape(chatID) + "/member/" + url.PathEscape(userID)
	default:
		path = "/v2/bot/profile/" + url.PathEscape(userID)
	}

	var p Profile
	if err := c.call(ctx, http.MethodGet, path, nil, &p); err != nil {
		return Profile{}, fmt.Errorf("member profile: %w", err)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return p, nil
}

// MemberCount returns the number of members in a group or room.
func (c *Client) MemberCount(ctx context.Context, chatID string) (int, error) {
	var path string
	switch ChatKind(chatID) {
	case SourceGroup:
		path = "/v2/bot/group/" + url.PathEscape(chatID) + "/members/count"
	case SourceRoom:
		path = "/v2/bot/room/" + url.PathEscape(chatID) + "/members/count"
	default:
		return 0, fmt.Errorf("member count: %w", shared.ErrInvalidChatID)
	}

	var resp countResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, fmt.Errorf("member count: %w", err)
	}
	return resp.Count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSPORT
// ══════════════════════════════════════════════════════════════════════════════

// call throttles, then performs the request with retries on 429, 5xx and
// network errors.
func (c *Client) call(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}

	return c.retrier.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		return c.do(ctx, method, path, payload, result)
	})
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, result any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Permanent(ctx.Err())
		}
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("line api call",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Latency(time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er errorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Message != "" {
			apiErr.Message = er.Message
		}
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, convErr := strconv.Atoi(s); convErr == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return retry.RetryableAfter(apiErr, apiErr.RetryAfter)
		case resp.StatusCode >= 500:
			return retry.Retryable(apiErr)
		default:
			return apiErr
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
