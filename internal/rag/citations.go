package rag

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xxxsen/docchat/internal/model"
	"github.com/xxxsen/docchat/internal/pkg/jsonx"
	"github.com/xxxsen/docchat/internal/tools"
)

var reContextLabel = regexp.MustCompile(`Context\s+(\d+)`)

// ResolveCitations maps the model's stated references back to the
// retrieved context and builds the meta_data entries for display.
//
// Reference numbers are 1-based "Context N" block labels, and those
// blocks are numbered over the retrieval result alone, so references
// resolve against the retrieval items only; index N-1 of that list is
// the cited item. Resolution order: explicit document_references
// first; otherwise "Context N" labels scanned from the answer text.
// When no retrieval ran, every item is included, which covers search
// and weather results that are shown in full. Duplicate text keeps its
// first occurrence, out-of-range references are dropped.
func ResolveCitations(answer jsonx.ModelAnswer, items []model.ContextItem) []model.MetaData {
	if len(items) == 0 {
		return nil
	}
	var retrieved []model.ContextItem
	for _, item := range items {
		if item.Source == tools.SourceRetrieval {
			retrieved = append(retrieved, item)
		}
	}

	if len(retrieved) > 0 {
		if refs := numericRefs(answer.References); len(refs) > 0 {
			return collect(retrieved, refs)
		}
		if !answer.ContextUtilized {
			return nil
		}
		return collect(retrieved, labelRefs(answer.AI))
	}
	all := make([]int, len(items))
	for i := range items {
		all[i] = i
	}
	return collect(items, all)
}

// numericRefs converts 1-based reference labels into 0-based indices.
// Non-numeric entries are skipped.
func numericRefs(refs []string) []int {
	out := make([]int, 0, len(refs))
	for _, ref := range refs {
		n, err := strconv.Atoi(strings.TrimSpace(ref))
		if err != nil {
			continue
		}
		out = append(out, n-1)
	}
	return out
}

func labelRefs(text string) []int {
	var out []int
	for _, match := range reContextLabel.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(match[1]); err == nil {
			out = append(out, n-1)
		}
	}
	return out
}

func collect(items []model.ContextItem, indices []int) []model.MetaData {
	seen := make(map[string]struct{})
	var meta []model.MetaData
	for _, idx := range indices {
		if idx < 0 || idx >= len(items) {
			continue
		}
		item := items[idx]
		// Citations show the verbatim source text when it was preserved.
		text := item.Exact
		if text == "" {
			text = item.Text
		}
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		meta = append(meta, model.MetaData{
			Text:     text,
			Page:     FormatPageNumber(item.Page),
			FileID:   item.FileID,
			FileName: item.FileName,
			FilePath: item.FilePath,
		})
	}
	return meta
}
