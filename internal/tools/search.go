package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/model"
	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

const (
	NameSearchArticles = "search_articles"

	SourceSearch = "search"

	defaultSearchBase = "https://api.perplexity.ai"
	maxSearchResults  = 2
)

type SearchConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type searchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchAPIRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type searchAPIResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Snippet string `json:"snippet"`
}

type searchAPIResponse struct {
	Results []searchAPIResult `json:"results"`
}

// SearchTool queries an external web-search API and normalizes results
// into {title, url, content} items.
type SearchTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewSearchTool(cfg SearchConfig) *SearchTool {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultSearchBase
	}
	return &SearchTool{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: base,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *SearchTool) Name() string {
	return NameSearchArticles
}

func (t *SearchTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        NameSearchArticles,
			"description": "Search the web for articles related to a query. Use this when you need current information or when the answer is not in the knowledge base.",
			"parameters": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Keywords or topic to search for, e.g. 'AI regulation news'.",
					},
					"max_results": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of articles to return.",
						"minimum":     1,
						"maximum":     maxSearchResults,
						"default":     maxSearchResults,
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	params := &searchArgs{MaxResults: maxSearchResults}
	if err := json.Unmarshal(args, params); err != nil {
		return nil, fmt.Errorf("decode search args: %w", err)
	}
	if params.Query == "" {
		return nil, fmt.Errorf("%w: empty search query", appErr.ErrInvalid)
	}
	if params.MaxResults < 1 {
		params.MaxResults = 1
	}
	if params.MaxResults > maxSearchResults {
		params.MaxResults = maxSearchResults
	}
	if t.apiKey == "" {
		return nil, fmt.Errorf("%w: search api key not configured", appErr.ErrUnavailable)
	}

	results, err := t.search(ctx, params.Query, params.MaxResults)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("web search finished",
		zap.String("query", params.Query),
		zap.Int("results", len(results)),
	)

	res := &Result{}
	if len(results) == 0 {
		res.Text = fmt.Sprintf("No articles found for query: %s", params.Query)
		return res, nil
	}
	blocks := make([]string, 0, len(results))
	for i, article := range results {
		content := article.Content
		if content == "" {
			content = article.Snippet
		}
		blocks = append(blocks, fmt.Sprintf(
			"Article %d:\n  Title: %s\n  URL: %s\n  Content: %s\n",
			i+1, article.Title, article.URL, content,
		))
		res.Items = append(res.Items, model.ContextItem{
			Text:     content,
			FileName: article.Title,
			FilePath: article.URL,
			Source:   SourceSearch,
		})
	}
	res.Text = strings.Join(blocks, "\n")
	return res, nil
}

func (t *SearchTool) search(ctx context.Context, query string, maxResults int) ([]searchAPIResult, error) {
	body, err := json.Marshal(searchAPIRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	rsp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: call search api: %v", appErr.ErrToolExecution, err)
	}
	defer rsp.Body.Close()
	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read search response: %v", appErr.ErrToolExecution, err)
	}
	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search api status %d: %s", appErr.ErrToolExecution, rsp.StatusCode, string(data))
	}
	decoded := &searchAPIResponse{}
	if err := json.Unmarshal(data, decoded); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", appErr.ErrToolExecution, err)
	}
	if len(decoded.Results) > maxResults {
		decoded.Results = decoded.Results[:maxResults]
	}
	return decoded.Results, nil
}
