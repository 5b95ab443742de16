package enrich

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

// ErrRateLimited marks a quota response from the text-generation service.
// The stage driver reacts with a long pause and retries the same record.
var ErrRateLimited = errors.New("text generation rate limited")

// Input carries everything the prompt is built from.
type Input struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Subcategory string            `json:"subcategory,omitempty"`
	Distillery  string            `json:"distillery,omitempty"`
	ABV         float64           `json:"abv,omitempty"`
	Region      string            `json:"region,omitempty"`
	Country     string            `json:"country,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Output is the structured result the service must return. A response that
// does not parse into this shape is a failed call.
type Output struct {
	NameEN         string   `json:"name_en"`
	DescriptionKO  string   `json:"description_ko"`
	DescriptionEN  string   `json:"description_en"`
	NoseTags       []string `json:"nose_tags"`
	PalateTags     []string `json:"palate_tags"`
	FinishTags     []string `json:"finish_tags"`
	PairingGuideKO string   `json:"pairing_guide_ko"`
	PairingGuideEN string   `json:"pairing_guide_en"`
	TastingNote    string   `json:"tasting_note,omitempty"`
}

func (o *Output) validate() error {
	if o.NameEN == "" {
		return errors.New("enrichment response missing name_en")
	}
	if o.DescriptionEN == "" {
		return errors.New("enrichment response missing description_en")
	}
	return nil
}

// Generator is the external text-generation capability.
type Generator interface {
	Enrich(ctx context.Context, in Input) (*Output, error)
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	modelName   string
	temperature float64
	httpClient  *http.Client
}

func NewClient(apiKey, baseURL, modelName string, temperature float64) *Client {
	return &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		modelName:   modelName,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Enrich(ctx context.Context, in Input) (*Output, error) {
	if in.Name == "" || in.Category == "" {
		return nil, errors.New("name and category are required")
	}

	raw, err := c.complete(ctx, BuildPrompt(in))
	if err != nil {
		return nil, err
	}

	out, err := ParseOutput(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing enrichment response: %w", err)
	}
	return out, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": c.modelName,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": c.temperature,
	}

	payloadBytes, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text generation returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", errors.New("no response from text generation service")
	}
	return result.Choices[0].Message.Content, nil
}

// ParseOutput extracts the JSON object from a model reply, tolerating
// markdown code fences and surrounding prose.
func ParseOutput(text string) (*Output, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[7:]
	} else if strings.HasPrefix(text, "```") {
		text = text[3:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in response")
	}

	var out Output
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}
