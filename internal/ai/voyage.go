package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

const defaultVoyageBaseURL = "https://api.voyageai.com/v1"

type voyageConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type voyageEmbedProvider struct {
	apiKey  string
	baseURL string
}

type voyageEmbedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	InputType  string   `json:"input_type,omitempty"`
	Truncation bool     `json:"truncation"`
}

type voyageEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *voyageEmbedProvider) Name() string {
	return "voyage"
}

func (p *voyageEmbedProvider) Embed(ctx context.Context, model string, texts []string, inputType string) ([][]float32, int, error) {
	if p.apiKey == "" {
		return nil, 0, appErr.ErrUnavailable
	}
	reqBody := voyageEmbedRequest{
		Input:      texts,
		Model:      model,
		InputType:  inputType,
		Truncation: true,
	}
	var out voyageEmbedResponse
	if err := p.post(ctx, "/embeddings", reqBody, &out); err != nil {
		return nil, 0, err
	}
	if len(out.Data) != len(texts) {
		return nil, 0, fmt.Errorf("voyage returned %d embeddings for %d inputs", len(out.Data), len(texts))
	}
	vectors := make([][]float32, 0, len(out.Data))
	for _, item := range out.Data {
		vectors = append(vectors, item.Embedding)
	}
	return vectors, out.Usage.TotalTokens, nil
}

type voyageRerankProvider struct {
	apiKey  string
	baseURL string
}

type voyageRerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopK      int      `json:"top_k,omitempty"`
}

type voyageRerankResponse struct {
	Data []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *voyageRerankProvider) Name() string {
	return "voyage"
}

func (p *voyageRerankProvider) Rerank(ctx context.Context, model string, query string, docs []string, topK int) ([]RerankResult, int, error) {
	if p.apiKey == "" {
		return nil, 0, appErr.ErrUnavailable
	}
	reqBody := voyageRerankRequest{
		Query:     query,
		Documents: docs,
		Model:     model,
		TopK:      topK,
	}
	var out voyageRerankResponse
	if err := p.post(ctx, "/rerank", reqBody, &out); err != nil {
		return nil, 0, err
	}
	results := make([]RerankResult, 0, len(out.Data))
	for _, item := range out.Data {
		results = append(results, RerankResult{Index: item.Index, Score: item.RelevanceScore})
	}
	return results, out.Usage.TotalTokens, nil
}

func (p *voyageEmbedProvider) post(ctx context.Context, path string, in interface{}, out interface{}) error {
	return voyagePost(ctx, p.apiKey, p.baseURL, path, in, out)
}

func (p *voyageRerankProvider) post(ctx context.Context, path string, in interface{}, out interface{}) error {
	return voyagePost(ctx, p.apiKey, p.baseURL, path, in, out)
}

func voyagePost(ctx context.Context, apiKey, baseURL, path string, in interface{}, out interface{}) error {
	endpoint := strings.TrimRight(baseURL, "/") + path
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("voyage request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func createVoyageEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &voyageConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultVoyageBaseURL
	}
	return &voyageEmbedProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
	}, nil
}

func createVoyageRerankFactory(args interface{}) (IRerankProvider, error) {
	cfg := &voyageConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultVoyageBaseURL
	}
	return &voyageRerankProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
	}, nil
}

func init() {
	RegisterEmbed("voyage", createVoyageEmbedFactory)
	RegisterRerank("voyage", createVoyageRerankFactory)
}
