package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient calls an OpenAI-compatible chat completions endpoint.
type HTTPClient struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		url:    baseURL + "/chat/completions",
		apiKey: strings.TrimSpace(apiKey),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends prompt as a single user message.
func (c *HTTPClient) Complete(ctx context.Context, prompt, model string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", &Error{Kind: KindTransport, Detail: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: KindTransport, Detail: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return "", &Error{Kind: KindTransport, Detail: "send request", Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", &Error{Kind: KindTransport, Status: res.StatusCode, Detail: "read response", Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", &Error{
			Kind:   classifyStatus(res.StatusCode),
			Status: res.StatusCode,
			Detail: errorDetail(body),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &Error{Kind: KindTransport, Status: res.StatusCode, Detail: "decode response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Kind: KindTransport, Status: res.StatusCode, Detail: "response has no choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}

func errorDetail(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && strings.TrimSpace(e.Error.Message) != "" {
		return truncate(strings.TrimSpace(e.Error.Message), 400)
	}
	return truncate(strings.TrimSpace(string(body)), 400)
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
