package rag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/model"
	"github.com/xxxsen/docchat/internal/tools"
)

func TestStripReferencesTrailer(t *testing.T) {
	raw := `{"ai": "Paris is nice.\n\nReferences:\n1. Travel Guide p3", "context_utilized": false}`
	stripped := StripReferencesTrailer(raw)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stripped), &decoded))
	require.Equal(t, "Paris is nice.", decoded["ai"])
}

func TestStripReferencesTrailerNoTrailer(t *testing.T) {
	raw := `{"ai": "Plain answer.", "context_utilized": true}`
	require.Equal(t, raw, StripReferencesTrailer(raw))
}

func TestBuildResponseHappyPath(t *testing.T) {
	items := []model.ContextItem{
		{Text: "first chunk", Exact: "first chunk exact", Page: 2, Source: tools.SourceRetrieval},
		{Text: "second chunk", Exact: "second chunk exact", Page: 4, Source: tools.SourceRetrieval},
	}
	raw := `{"ai": "The answer.", "title": "Answer Title", "context_utilized": true, "document_references": [2]}`
	usage := model.TokenUsage{LLMInputTokens: 10, LLMOutputTokens: 5}

	rsp := BuildResponse(raw, items, usage, true)
	require.Equal(t, "The answer.", rsp.Response)
	require.Equal(t, "Answer Title", rsp.Title)
	require.Equal(t, usage, rsp.TokenUsage)
	require.Len(t, rsp.MetaData, 1)
	require.Equal(t, "second chunk exact", rsp.MetaData[0].Text)
	require.Equal(t, "Page 4", rsp.MetaData[0].Page)
}

func TestBuildResponseUnparseableFallsBack(t *testing.T) {
	rsp := BuildResponse("%%% not json %%%", nil, model.TokenUsage{}, false)
	require.Equal(t, "No answer/reference found.", rsp.Response)
	require.NotNil(t, rsp.MetaData)
	require.Empty(t, rsp.MetaData)
	require.Empty(t, rsp.Title)
}

func TestBuildResponseTitleGating(t *testing.T) {
	raw := `{"ai": "ok", "title": "Should Be Dropped"}`
	rsp := BuildResponse(raw, nil, model.TokenUsage{}, false)
	require.Empty(t, rsp.Title)
}
