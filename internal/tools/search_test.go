package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

func TestSearchToolExecute(t *testing.T) {
	var gotReq searchAPIRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(searchAPIResponse{Results: []searchAPIResult{
			{Title: "First", URL: "http://a.example", Content: "alpha content"},
			{Title: "Second", URL: "http://b.example", Snippet: "beta snippet"},
		}})
	}))
	defer srv.Close()

	tool := NewSearchTool(SearchConfig{APIKey: "sk-test", BaseURL: srv.URL})
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"go news","max_results":9}`))
	require.NoError(t, err)

	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "go news", gotReq.Query)
	require.Equal(t, 2, gotReq.MaxResults)

	require.Len(t, res.Items, 2)
	require.Equal(t, "alpha content", res.Items[0].Text)
	require.Equal(t, "First", res.Items[0].FileName)
	require.Equal(t, "http://a.example", res.Items[0].FilePath)
	require.Equal(t, SourceSearch, res.Items[0].Source)
	// Snippet substitutes for missing content.
	require.Equal(t, "beta snippet", res.Items[1].Text)
	require.Contains(t, res.Text, "Article 1:")
	require.Contains(t, res.Text, "Article 2:")
}

func TestSearchToolNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(searchAPIResponse{})
	}))
	defer srv.Close()

	tool := NewSearchTool(SearchConfig{APIKey: "sk-test", BaseURL: srv.URL})
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"nothing"}`))
	require.NoError(t, err)
	require.Equal(t, "No articles found for query: nothing", res.Text)
	require.Empty(t, res.Items)
}

func TestSearchToolMissingKey(t *testing.T) {
	tool := NewSearchTool(SearchConfig{})
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"x"}`))
	require.ErrorIs(t, err, appErr.ErrUnavailable)
}

func TestSearchToolEmptyQuery(t *testing.T) {
	tool := NewSearchTool(SearchConfig{APIKey: "sk-test"})
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"query":""}`))
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestSearchToolUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tool := NewSearchTool(SearchConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"x"}`))
	require.ErrorIs(t, err, appErr.ErrToolExecution)
	require.Contains(t, err.Error(), "status 500")
}
