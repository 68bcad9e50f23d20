package chunker

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// PagesFromXHTML extracts per-page text from an XHTML document produced by
// the upstream text-extraction step. Pages are <div class="page"> blocks;
// a document without them is treated as a single page.
func PagesFromXHTML(content string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	var pages []string
	doc.Find("div.page").Each(func(_ int, sel *goquery.Selection) {
		pages = append(pages, CleanText(sel.Text()))
	})
	if len(pages) == 0 {
		pages = append(pages, CleanText(doc.Text()))
	}
	return pages, nil
}

// TextFromMarkdown renders markdown down to its plain text so markdown
// sources go through the same sentence chunking as extracted page text.
func TextFromMarkdown(markdown string) string {
	md := goldmark.New()
	reader := gmtext.NewReader([]byte(markdown))
	doc := md.Parser().Parse(reader)

	var parts []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if txt := extractText(node, reader.Source()); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
