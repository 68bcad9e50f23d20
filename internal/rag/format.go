package rag

import (
	"regexp"

	"github.com/xxxsen/docchat/internal/model"
	"github.com/xxxsen/docchat/internal/pkg/jsonx"
)

// Some models append a plain-text "References: ..." trailer inside the
// quoted "ai" value even when told not to. Strip it before parsing so
// the trailer never reaches the client.
var reReferencesTrailer = regexp.MustCompile(`(?is)("ai"\s*:\s*")([\s\S]*?)(?:\\n(?:-{3,}\\n|\\n)?\s*)?[^\n\\]*\bReferences:[\s\S]*?(")`)

const fallbackAnswer = "No answer/reference found."

func StripReferencesTrailer(raw string) string {
	return reReferencesTrailer.ReplaceAllString(raw, "$1$2$3")
}

// BuildResponse turns the model's raw final answer into the client
// response: parse the JSON envelope, resolve citations against the
// retrieved context and attach the accumulated token usage. It never
// fails; when no answer text can be recovered from the raw output the
// response falls back to a fixed no-answer message with no citations.
func BuildResponse(raw string, items []model.ContextItem, usage model.TokenUsage, includeTitle bool) *model.ChatResponse {
	answer := jsonx.Parse(StripReferencesTrailer(raw))
	text := answer.AI
	if text == "" {
		text = fallbackAnswer
	}
	rsp := &model.ChatResponse{
		Response:   text,
		MetaData:   ResolveCitations(answer, items),
		TokenUsage: usage,
	}
	if rsp.MetaData == nil {
		rsp.MetaData = []model.MetaData{}
	}
	if includeTitle {
		rsp.Title = answer.Title
	}
	return rsp
}
