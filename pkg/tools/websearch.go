package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/errors"
)

const duckDuckGoAPIURL = "https://api.duckduckgo.com/"

// WebSearchTool answers queries through the DuckDuckGo Instant Answer API.
// It returns abstracts and related topics, not a full result page crawl.
type WebSearchTool struct {
	baseURL string
	client  *http.Client
}

// NewWebSearch creates a web search capability.
func NewWebSearch() *WebSearchTool {
	return &WebSearchTool{
		baseURL: duckDuckGoAPIURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWebSearchConstructor is the registry constructor for the tool.
func NewWebSearchConstructor(ctx context.Context) (core.Capability, error) {
	return NewWebSearch(), nil
}

// WithBaseURL points the tool at an alternate endpoint.
func (t *WebSearchTool) WithBaseURL(baseURL string) *WebSearchTool {
	t.baseURL = baseURL
	return t
}

func (t *WebSearchTool) Descriptor() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "websearch",
		Description: "Searches the web for a query and returns an instant-answer abstract plus related topics.",
		Version:     "1.0.0",
		InputTypes: map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query.",
				"required":    true,
			},
		},
		OutputTypes: map[string]any{
			"abstract": map[string]any{"type": "string", "description": "Instant answer abstract, possibly empty."},
			"source":   map[string]any{"type": "string", "description": "URL of the abstract source."},
			"related":  map[string]any{"type": "array", "description": "Related topic snippets."},
		},
		Available: true,
	}
}

// Execute performs the search. A query with no instant answer is still a
// successful result; the abstract is simply empty.
func (t *WebSearchTool) Execute(ctx context.Context, command string) (any, error) {
	query := strings.TrimSpace(command)
	if query == "" {
		return nil, errors.New(errors.CodeInvalidInput, "websearch: empty query", nil)
	}

	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "websearch: build request", err)
	}
	req.Header.Set("User-Agent", "telos/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "websearch: request failed", err).WithRecoverable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.New(errors.CodeToolFailure,
			fmt.Sprintf("websearch: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil).
			WithRecoverable(resp.StatusCode >= 500)
	}

	var payload struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.New(errors.CodeDecodeFailure, "websearch: decode response", err)
	}

	related := make([]map[string]string, 0, len(payload.RelatedTopics))
	for _, topic := range payload.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		related = append(related, map[string]string{
			"text": topic.Text,
			"url":  topic.FirstURL,
		})
	}

	return map[string]any{
		"abstract": payload.AbstractText,
		"source":   payload.AbstractURL,
		"related":  related,
	}, nil
}
