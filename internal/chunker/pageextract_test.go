package chunker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPagesFromXHTML(t *testing.T) {
	content := `<html><body>
		<div class="page"><p>First page text.</p></div>
		<div class="page"><p>Second page text.</p></div>
	</body></html>`
	pages, err := PagesFromXHTML(content)
	require.NoError(t, err)
	require.Equal(t, []string{"First page text.", "Second page text."}, pages)
}

func TestPagesFromXHTMLWithoutPageDivs(t *testing.T) {
	pages, err := PagesFromXHTML(`<html><body><p>Only body text.</p></body></html>`)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "Only body text.", pages[0])
}

func TestTextFromMarkdown(t *testing.T) {
	md := "# Title\n\nSome *emphasized* body text.\n\n- item one\n- item two\n"
	text := TextFromMarkdown(md)
	require.Contains(t, text, "Title")
	require.Contains(t, text, "emphasized")
	require.Contains(t, text, "body text.")
	require.Contains(t, text, "item one")
	require.NotContains(t, text, "#")
	require.NotContains(t, text, "*")
}
