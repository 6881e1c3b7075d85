// Package tools provides the builtin capabilities shipped with Telos and
// their registry constructors.
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

const (
	wikipediaAPIURL     = "https://en.wikipedia.org/w/api.php"
	wikipediaMaxExtract = 2000
)

// WikipediaTool searches the MediaWiki API and returns article extracts.
// The command is a plain keyword or search term, not a full question.
type WikipediaTool struct {
	baseURL string
	client  *http.Client
}

// NewWikipedia creates a Wikipedia search capability.
func NewWikipedia() *WikipediaTool {
	return &WikipediaTool{
		baseURL: wikipediaAPIURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWikipediaConstructor is the registry constructor for the tool.
func NewWikipediaConstructor(ctx context.Context) (core.Capability, error) {
	return NewWikipedia(), nil
}

// WithBaseURL points the tool at an alternate MediaWiki endpoint.
func (t *WikipediaTool) WithBaseURL(baseURL string) *WikipediaTool {
	t.baseURL = baseURL
	return t
}

func (t *WikipediaTool) Descriptor() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "wikipedia",
		Description: "Searches Wikipedia with a keyword or search term and returns relevant article content. Use a simple term, not a full sentence or question.",
		Version:     "1.0.0",
		InputTypes: map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "A simple keyword or search term, e.g. 'Quantum Physics'.",
				"required":    true,
			},
		},
		OutputTypes: map[string]any{
			"search_results": map[string]any{"type": "array", "description": "Matching article titles."},
			"content":        map[string]any{"type": "string", "description": "Extract of the best matching article."},
		},
		Available: true,
	}
}

// Execute searches for the command term and returns the titles found plus an
// extract of the top match. A query with no matches is a successful result
// with an explanatory content string.
func (t *WikipediaTool) Execute(ctx context.Context, command string) (any, error) {
	query := strings.TrimSpace(command)
	if query == "" {
		return nil, errors.New(errors.CodeInvalidInput, "wikipedia: empty query", nil)
	}

	titles, err := t.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return map[string]any{
			"search_results": []string{},
			"content":        fmt.Sprintf("No results found for query: %s", query),
		}, nil
	}

	content, err := t.extract(ctx, titles[0])
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"search_results": titles,
		"content":        content,
	}, nil
}

func (t *WikipediaTool) search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"5"},
		"format":   {"json"},
	}
	var payload struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := t.get(ctx, params, &payload); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(payload.Query.Search))
	for _, hit := range payload.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

func (t *WikipediaTool) extract(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"extracts"},
		"titles":        {title},
		"explaintext":   {"1"},
		"exintro":       {"0"},
		"exchars":       {fmt.Sprint(wikipediaMaxExtract)},
		"redirects":     {"1"},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	var payload struct {
		Query struct {
			Pages []struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
				Missing bool   `json:"missing"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := t.get(ctx, params, &payload); err != nil {
		return "", err
	}
	for _, page := range payload.Query.Pages {
		if page.Missing {
			continue
		}
		return page.Extract, nil
	}
	return fmt.Sprintf("Page not found for: %s", title), nil
}

func (t *WikipediaTool) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return errors.New(errors.CodeToolFailure, "wikipedia: build request", err)
	}
	req.Header.Set("User-Agent", "telos/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.New(errors.CodeToolFailure, "wikipedia: request failed", err).WithRecoverable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.New(errors.CodeToolFailure,
			fmt.Sprintf("wikipedia: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil).
			WithRecoverable(resp.StatusCode >= 500)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(errors.CodeDecodeFailure, "wikipedia: decode response", err)
	}
	return nil
}
