// Package jsonx parses the loosely structured JSON that chat models emit.
// Parsing degrades through three tiers: strict decode, textual cleanup and
// re-decode, and finally per-field regex extraction that never fails.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ModelAnswer is the structured payload expected inside a model's final
// answer.
type ModelAnswer struct {
	AI              string `json:"ai"`
	Title           string `json:"title"`
	ContextUtilized bool   `json:"context_utilized"`
	// References hold the raw reference labels; they may arrive as numbers
	// or quoted strings depending on how well the model followed the
	// output format.
	References []string `json:"document_references"`
}

var (
	reCodeFence   = regexp.MustCompile("```json\\s*|\\s*```")
	reBoolValue   = regexp.MustCompile(`(?i):\s*"(true|false)"`)
	reYesNoValue  = regexp.MustCompile(`(?i)([,{])\s*"([^"]+)":\s*"(yes|no)"`)
	reListBody    = regexp.MustCompile(`\[([^\]]*)\]`)
	reListItem    = regexp.MustCompile(`"[^"]*"|'[^']*'|\S+`)
	reNumber      = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	reAIField     = regexp.MustCompile(`(?s)"ai"\s*:\s*"(.*?)(?:"\s*,\s*"[^"]+"\s*:|"\s*})`)
	reAILoose     = regexp.MustCompile(`(?s)"ai"\s*:\s*"((?:[^"\\]|\\.)*)`)
	reRefsField   = regexp.MustCompile(`(?s)"document_references"\s*:\s*\[([^\]]*)\]`)
	reTitleField  = regexp.MustCompile(`"title"\s*:\s*"([^"]*)"`)
	reCtxUtilized = regexp.MustCompile(`(?i)"context_utilized"\s*:\s*"?(true|yes)"?`)
)

// Parse decodes a model answer, falling through the three tiers. It never
// returns an error: tier three produces empty defaults for anything it
// cannot locate.
func Parse(raw string) ModelAnswer {
	if out, ok := tryDecode(raw); ok {
		return out
	}
	if out, ok := tryDecode(CleanJSONString(raw)); ok {
		return out
	}
	return ExtractFields(raw)
}

func tryDecode(raw string) (ModelAnswer, bool) {
	var loose struct {
		AI              string `json:"ai"`
		Title           string `json:"title"`
		ContextUtilized any    `json:"context_utilized"`
		References      []any  `json:"document_references"`
	}
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		return ModelAnswer{}, false
	}
	out := ModelAnswer{
		AI:              loose.AI,
		Title:           loose.Title,
		ContextUtilized: truthy(loose.ContextUtilized),
	}
	for _, ref := range loose.References {
		switch v := ref.(type) {
		case string:
			out.References = append(out.References, strings.TrimSpace(v))
		case float64:
			out.References = append(out.References, strings.TrimSpace(formatNumber(v)))
		}
	}
	return out, true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "yes"
	}
	return false
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	return strings.ReplaceAll(s, `\"`, `"`)
}

func formatNumber(f float64) string {
	data, _ := json.Marshal(f)
	return string(data)
}

// CleanJSONString is tier two: strip markdown fences, normalize string
// booleans and list item quoting, and return a string that is more likely
// to decode. It is a pure function over its input.
func CleanJSONString(raw string) string {
	s := reCodeFence.ReplaceAllString(raw, "")
	s = reBoolValue.ReplaceAllStringFunc(s, func(m string) string {
		sub := reBoolValue.FindStringSubmatch(m)
		return ": " + strings.ToLower(sub[1])
	})
	s = reYesNoValue.ReplaceAllStringFunc(s, func(m string) string {
		sub := reYesNoValue.FindStringSubmatch(m)
		return sub[1] + ` "` + sub[2] + `": ` + strings.ToLower(sub[3])
	})
	s = reListBody.ReplaceAllStringFunc(s, func(m string) string {
		sub := reListBody.FindStringSubmatch(m)
		return normalizeList(sub[1])
	})
	return strings.TrimSpace(s)
}

func normalizeList(body string) string {
	if strings.TrimSpace(body) == "" {
		return "[]"
	}
	items := reListItem.FindAllString(body, -1)
	normalized := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.Trim(item, ` ,"'`)
		if item == "" {
			continue
		}
		if !reNumber.MatchString(item) {
			item = `"` + item + `"`
		}
		normalized = append(normalized, item)
	}
	return "[" + strings.Join(normalized, ",") + "]"
}

// ExtractFields is tier three: pull known fields out of arbitrary text by
// name. Missing fields yield empty defaults.
func ExtractFields(raw string) ModelAnswer {
	out := ModelAnswer{References: []string{}}
	if m := reAIField.FindStringSubmatch(raw); m != nil {
		out.AI = unescape(m[1])
	} else if m := reAILoose.FindStringSubmatch(raw); m != nil {
		// Truncated output: take everything up to the next unescaped
		// quote, or the rest of the text when the quote never closes.
		out.AI = unescape(m[1])
	}
	if m := reRefsField.FindStringSubmatch(raw); m != nil {
		for _, ref := range strings.Split(m[1], ",") {
			ref = strings.Trim(strings.TrimSpace(ref), `"'`)
			if ref != "" {
				out.References = append(out.References, ref)
			}
		}
	}
	if m := reTitleField.FindStringSubmatch(raw); m != nil {
		out.Title = m[1]
	}
	out.ContextUtilized = reCtxUtilized.MatchString(raw)
	return out
}
