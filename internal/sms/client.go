package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twilio.com"

// Reason classifies a send failure.
type Reason string

const (
	ReasonInvalidNumber       Reason = "invalid_number"
	ReasonProviderUnavailable Reason = "provider_unavailable"
	ReasonRateLimited         Reason = "rate_limited"
)

// SendError is returned when the SMS gateway rejects or fails a send.
type SendError struct {
	Reason  Reason
	Code    int // provider error code, 0 if none
	Message string
}

func (e *SendError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("sms: %s (code %d): %s", e.Reason, e.Code, e.Message)
	}
	return fmt.Sprintf("sms: %s: %s", e.Reason, e.Message)
}

// Retryable reports whether the failure may clear within the same run.
// Only gateway rate limiting is; invalid numbers and provider outages fail
// the lead for the day.
func (e *SendError) Retryable() bool {
	return e.Reason == ReasonRateLimited
}

// Twilio REST error codes for malformed or unreachable destination numbers.
var invalidNumberCodes = map[int]bool{
	21211: true, // invalid 'To' phone number
	21214: true, // 'To' number not a valid mobile number
	21217: true, // phone number not reachable
	21408: true, // permission not enabled for region
	21610: true, // recipient has unsubscribed at the carrier level
}

// Config holds SMS gateway credentials.
type Config struct {
	AccountSID string
	AuthToken  string
	From       string // sending phone number, E.164
	BaseURL    string // override for tests; default Twilio API
}

// Client sends SMS through a Twilio-style REST gateway. The client performs
// no retries; failures are surfaced to the caller.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// From returns the configured sending number.
func (c *Client) From() string {
	return c.cfg.From
}

type messageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send delivers one message and returns the provider delivery SID.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &SendError{Reason: ReasonProviderUnavailable, Message: "create request: " + err.Error()}
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &SendError{Reason: ReasonProviderUnavailable, Message: "do request: " + err.Error()}
	}
	defer resp.Body.Close()

	var result messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && resp.StatusCode < 400 {
		return "", &SendError{Reason: ReasonProviderUnavailable, Message: "decode response: " + err.Error()}
	}

	if resp.StatusCode >= 400 {
		return "", classifyFailure(resp.StatusCode, result.Code, result.Message)
	}

	if result.SID == "" {
		return "", &SendError{Reason: ReasonProviderUnavailable, Message: "response missing message sid"}
	}

	return result.SID, nil
}

func classifyFailure(status, code int, message string) *SendError {
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case invalidNumberCodes[code]:
		return &SendError{Reason: ReasonInvalidNumber, Code: code, Message: message}
	case status == http.StatusTooManyRequests || code == 20429:
		return &SendError{Reason: ReasonRateLimited, Code: code, Message: message}
	default:
		return &SendError{Reason: ReasonProviderUnavailable, Code: code, Message: message}
	}
}
