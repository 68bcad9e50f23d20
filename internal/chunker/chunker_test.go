package chunker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docchat/internal/pkg/errors"
)

func TestChunkProducesBoundedOrderedChunks(t *testing.T) {
	var sentences []string
	for i := 0; i < 40; i++ {
		sentences = append(sentences, fmt.Sprintf("Sentence number %d carries exactly nine words total here.", i))
	}
	page := strings.Join(sentences, " ")

	c := New()
	docs, err := c.Chunk(context.Background(), []string{page}, "f1", "doc.pdf", "documents/f1/doc.pdf")
	require.NoError(t, err)
	require.Greater(t, len(docs), 1)

	for i, doc := range docs {
		require.GreaterOrEqual(t, len(doc.Content), 20)
		require.Equal(t, 1, doc.Metadata.PageNumber)
		require.Equal(t, i+1, doc.Metadata.ChunkNumber)
		require.Equal(t, "f1", doc.Metadata.FileID)
		require.Equal(t, "doc.pdf", doc.Metadata.FileName)
		require.NotEmpty(t, doc.Metadata.ExactData)
	}
}

func TestChunkSkipsEmptyPages(t *testing.T) {
	pages := []string{
		"First page has enough text to form a chunk on its own.",
		"",
		"Third page also has enough text to form a chunk on its own.",
	}
	c := New()
	docs, err := c.Chunk(context.Background(), pages, "f1", "doc.pdf", "")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, 1, docs[0].Metadata.PageNumber)
	require.Equal(t, 3, docs[1].Metadata.PageNumber)
}

func TestChunkRemovesDuplicatesWithinPage(t *testing.T) {
	sentence := "This exact sentence repeats often enough to fill multiple chunks completely."
	page := strings.Repeat(sentence+" ", 6)

	c := New(WithWordLimit(10))
	docs, err := c.Chunk(context.Background(), []string{page}, "f1", "doc.pdf", "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, sentence, docs[0].Metadata.ExactData)
}

func TestChunkDropsShortChunks(t *testing.T) {
	c := New()
	docs, err := c.Chunk(context.Background(), []string{"Tiny."}, "f1", "doc.pdf", "")
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestChunkRejectsOversizedPage(t *testing.T) {
	c := New(WithMaxPageLen(100))
	_, err := c.Chunk(context.Background(), []string{strings.Repeat("a", 200)}, "f1", "doc.pdf", "")
	require.ErrorIs(t, err, appErr.ErrChunking)
}

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "terminal punctuation",
			in:   "Hello world. How are you? Fine!",
			want: []string{"Hello world.", "How are you?", "Fine!"},
		},
		{
			name: "no punctuation",
			in:   "just a fragment",
			want: []string{"just a fragment"},
		},
		{
			name: "trailing fragment",
			in:   "Complete sentence. trailing bit",
			want: []string{"Complete sentence.", "trailing bit"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SplitSentences(tc.in))
		})
	}
}

func TestCleanText(t *testing.T) {
	in := "Energy  use rose [12]  sharply\tin 2020 [3]."
	want := "Energy use rose sharply in 2020 ."
	require.Equal(t, want, CleanText(in))
}

func TestCleanTextIsIdempotent(t *testing.T) {
	inputs := []string{
		"plain text",
		"citation [1] markers [22] everywhere",
		"  lots\n\nof   whitespace \t here ",
		"[3][4][5]",
	}
	for _, in := range inputs {
		once := CleanText(in)
		require.Equal(t, once, CleanText(once))
	}
}
