package rag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/model"
	"github.com/xxxsen/docchat/internal/pkg/jsonx"
	"github.com/xxxsen/docchat/internal/tools"
)

func retrievalItems(n int) []model.ContextItem {
	items := make([]model.ContextItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, model.ContextItem{
			Text:     string(rune('a'+i)) + " cleaned",
			Exact:    string(rune('a'+i)) + " exact",
			Page:     i + 1,
			FileID:   "f1",
			FileName: "doc.pdf",
			Source:   tools.SourceRetrieval,
		})
	}
	return items
}

func TestResolveCitationsNumericRefs(t *testing.T) {
	answer := jsonx.ModelAnswer{References: []string{"1", "3"}}
	meta := ResolveCitations(answer, retrievalItems(5))
	require.Len(t, meta, 2)
	require.Equal(t, "a exact", meta[0].Text)
	require.Equal(t, "c exact", meta[1].Text)
	require.Equal(t, "Page 1", meta[0].Page)
	require.Equal(t, "Page 3", meta[1].Page)
}

func TestResolveCitationsDropsOutOfRange(t *testing.T) {
	answer := jsonx.ModelAnswer{References: []string{"0", "2", "9"}}
	meta := ResolveCitations(answer, retrievalItems(3))
	require.Len(t, meta, 1)
	require.Equal(t, "b exact", meta[0].Text)
}

func TestResolveCitationsDeduplicatesText(t *testing.T) {
	items := retrievalItems(2)
	items[1].Exact = items[0].Exact
	answer := jsonx.ModelAnswer{References: []string{"1", "2", "1"}}
	meta := ResolveCitations(answer, items)
	require.Len(t, meta, 1)
}

func TestResolveCitationsContextLabels(t *testing.T) {
	answer := jsonx.ModelAnswer{
		AI:              "See Context 2 and Context 3 for details.",
		ContextUtilized: true,
	}
	meta := ResolveCitations(answer, retrievalItems(4))
	require.Len(t, meta, 2)
	require.Equal(t, "b exact", meta[0].Text)
	require.Equal(t, "c exact", meta[1].Text)
}

func TestResolveCitationsContextNotUtilized(t *testing.T) {
	answer := jsonx.ModelAnswer{AI: "General knowledge answer."}
	meta := ResolveCitations(answer, retrievalItems(3))
	require.Nil(t, meta)
}

func TestResolveCitationsNonRetrievalKeepsAllItems(t *testing.T) {
	items := []model.ContextItem{
		{Text: "Weather in Paris", Source: tools.SourceWeather, FileName: "Paris"},
		{Text: "Some article", Source: tools.SourceSearch, FileName: "Title", FilePath: "http://example.com"},
	}
	meta := ResolveCitations(jsonx.ModelAnswer{AI: "answer"}, items)
	require.Len(t, meta, 2)
	require.Equal(t, "Weather in Paris", meta[0].Text)
	require.Equal(t, "http://example.com", meta[1].FilePath)
}

func TestResolveCitationsMixedSourcesUseRetrievalIndices(t *testing.T) {
	items := []model.ContextItem{
		{Text: "Weather in Paris", Source: tools.SourceWeather, FileName: "Paris"},
		{Text: "solar cleaned", Exact: "solar output rose", Page: 2, Source: tools.SourceRetrieval},
	}
	answer := jsonx.ModelAnswer{References: []string{"1"}}
	meta := ResolveCitations(answer, items)
	require.Len(t, meta, 1)
	require.Equal(t, "solar output rose", meta[0].Text)
}

func TestResolveCitationsContextLabelsSkipNonRetrieval(t *testing.T) {
	items := append([]model.ContextItem{
		{Text: "Weather in Paris", Source: tools.SourceWeather, FileName: "Paris"},
	}, retrievalItems(2)...)
	answer := jsonx.ModelAnswer{AI: "See Context 2.", ContextUtilized: true}
	meta := ResolveCitations(answer, items)
	require.Len(t, meta, 1)
	require.Equal(t, "b exact", meta[0].Text)
}

func TestResolveCitationsEmptyItems(t *testing.T) {
	answer := jsonx.ModelAnswer{References: []string{"1"}}
	require.Nil(t, ResolveCitations(answer, nil))
}

func TestResolveCitationsFallsBackToCleanText(t *testing.T) {
	items := retrievalItems(1)
	items[0].Exact = ""
	answer := jsonx.ModelAnswer{References: []string{"1"}}
	meta := ResolveCitations(answer, items)
	require.Len(t, meta, 1)
	require.Equal(t, "a cleaned", meta[0].Text)
}
