package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tilgo/leadline/internal/models"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultMaxTokens = 300
	apiVersion       = "2023-06-01"
)

// temperatureMarker is the line the model is instructed to end its output
// with, e.g. "TEMPERATURE: warm".
const temperatureMarker = "TEMPERATURE:"

// ErrorKind distinguishes classifier failure modes.
type ErrorKind string

const (
	KindProviderError   ErrorKind = "provider_error"
	KindMalformedOutput ErrorKind = "malformed_output"
)

// Error is returned for completion-endpoint failures.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("classifier: %s: %s", e.Kind, e.Message)
}

// Message is a single conversation turn sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Context is the full prompt for one classification call.
type Context struct {
	System   string
	Messages []Message
}

// Result holds the generated reply and the temperature label. On a
// malformed-output error the reply is still populated so the caller can fall
// back to a default label.
type Result struct {
	Reply       string
	Temperature string
}

// Client calls an Anthropic-style messages endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewClient creates a new completion-endpoint client.
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		maxTokens: defaultMaxTokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Classify sends the prompt context to the completion endpoint and returns
// the generated reply plus the temperature label parsed from the trailing
// marker line. A label outside the known set yields a malformed-output error
// alongside the parsed result.
func (c *Client) Classify(ctx context.Context, prompt *Context) (*Result, error) {
	text, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	reply, label, found := splitTemperature(text)
	if !found {
		return &Result{Reply: reply}, &Error{
			Kind:    KindMalformedOutput,
			Message: "response has no temperature line",
		}
	}

	if !models.ValidTemperature(label) {
		return &Result{Reply: reply}, &Error{
			Kind:    KindMalformedOutput,
			Message: fmt.Sprintf("unknown temperature label %q", label),
		}
	}

	return &Result{Reply: reply, Temperature: label}, nil
}

func (c *Client) complete(ctx context.Context, prompt *Context) (string, error) {
	body := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    prompt.System,
		Messages:  prompt.Messages,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", &Error{Kind: KindProviderError, Message: "marshal request: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", &Error{Kind: KindProviderError, Message: "create request: " + err.Error()}
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindProviderError, Message: "do request: " + err.Error()}
	}
	defer resp.Body.Close()

	var result messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode >= 400 {
			return "", &Error{Kind: KindProviderError, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
		}
		return "", &Error{Kind: KindMalformedOutput, Message: "decode response: " + err.Error()}
	}

	if resp.StatusCode >= 400 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", &Error{Kind: KindProviderError, Message: msg}
	}

	if len(result.Content) == 0 || strings.TrimSpace(result.Content[0].Text) == "" {
		return "", &Error{Kind: KindMalformedOutput, Message: "empty completion"}
	}

	return strings.TrimSpace(result.Content[0].Text), nil
}

// splitTemperature separates the reply text from the trailing temperature
// marker line.
func splitTemperature(text string) (reply, label string, found bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, temperatureMarker) {
			label = strings.ToLower(strings.TrimSpace(line[len(temperatureMarker):]))
			reply = strings.TrimSpace(strings.Join(lines[:i], "\n"))
			return reply, label, true
		}
		break
	}
	return strings.TrimSpace(text), "", false
}
