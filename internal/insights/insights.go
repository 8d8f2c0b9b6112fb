// Package insights asks a chat-completions endpoint for a structured
// reflection on a journal entry.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dhanaBhai/unposted/internal/model"
)

const systemPrompt = `You are an empathetic reflection assistant. Given a first-person journal entry or diary note, respond ONLY with valid JSON in this exact format:
{
  "keyPeopleEvents": ["item 1", "item 2", "item 3"],
  "reflectionBullets": ["reflection 1", "reflection 2", "reflection 3"]
}

Rules:
1. Extract key people and events as bullet points (identify specific people, main activities/events)
2. Write 3 concise reflection bullets capturing emotional insights (max 15 words each)
3. Keep tone supportive, realistic, and forward-looking
4. Return ONLY valid JSON, no other text`

// Reflection is the structured analysis of one journal entry.
type Reflection struct {
	KeyPeopleEvents   []string `json:"keyPeopleEvents"`
	ReflectionBullets []string `json:"reflectionBullets"`
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	client *resty.Client
	url    string
	model  string
}

func NewClient(url, chatModel, apiKey string) *Client {
	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &Client{client: c, url: url, model: chatModel}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Reflect analyzes one entry transcript. Failures never touch journal state,
// so callers may retry freely.
func (c *Client) Reflect(ctx context.Context, transcript string) (Reflection, error) {
	if strings.TrimSpace(transcript) == "" {
		return Reflection{}, model.NewValidationError("transcript", "cannot reflect on an empty entry")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Analyze this diary entry:\n\n%s", transcript)},
		},
		MaxTokens:   1024,
		Temperature: 0.7,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&reqBody).
		Post(c.url)
	if err != nil {
		return Reflection{}, model.NewCollaboratorError("insights", fmt.Errorf("request: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return Reflection{}, model.NewCollaboratorError("insights",
			fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}

	var cr chatResponse
	if err := json.Unmarshal(resp.Body(), &cr); err != nil {
		return Reflection{}, model.NewCollaboratorError("insights", fmt.Errorf("decode response: %w", err))
	}
	if len(cr.Choices) == 0 {
		return Reflection{}, model.NewCollaboratorError("insights", fmt.Errorf("response has no choices"))
	}

	var out Reflection
	content := stripFences(cr.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return Reflection{}, model.NewCollaboratorError("insights", fmt.Errorf("model returned non-JSON content: %w", err))
	}

	return out, nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
