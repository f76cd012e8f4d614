package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Fallback replies returned to the counterparty when the dialogue
// service cannot produce one. Two flavors: the service answered badly,
// or the request never completed.
const (
	FallbackBadResponse   = "Arey beta, the network is very bad... can you say again?"
	FallbackRequestFailed = "I am pressing the button but nothing is happening..."
)

// ErrBadResponse marks a completed request whose response was unusable
// (non-2xx status, empty choices, undecodable body).
var ErrBadResponse = errors.New("dialogue: bad response")

// Turn is one prior message in the conversation, already mapped to the
// chat schema: "user" for the counterparty, "assistant" for the persona.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates the persona's next reply.
type Provider interface {
	Reply(ctx context.Context, system string, history []Turn, message string) (string, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter in the default deployment).
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewClient builds a dialogue client. The timeout bounds the whole
// request; this call sits on the conversational critical path.
func NewClient(baseURL, apiKey, model string, temperature float64, maxTokens int, timeout time.Duration) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Reply sends the system instruction, prior turns and the new message
// and returns the generated reply.
func (c *Client) Reply(ctx context.Context, system string, history []Turn, message string) (string, error) {
	messages := make([]Turn, 0, len(history)+2)
	messages = append(messages, Turn{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, Turn{Role: "user", Content: message})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrBadResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrBadResponse)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// FallbackFor maps a Reply error to the canned reply shown to the
// counterparty. The conversation never surfaces a hard failure.
func FallbackFor(err error) string {
	if errors.Is(err, ErrBadResponse) {
		return FallbackBadResponse
	}
	return FallbackRequestFailed
}
