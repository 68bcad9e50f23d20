// Package tools defines the function-calling tools exposed to the chat
// model and the registry that dispatches model tool calls to them.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/model"
)

// Result is what one tool execution hands back to the orchestrator.
// Text goes into the tool message verbatim; Items carry the structured
// context used later for citation resolution.
type Result struct {
	Text  string
	Items []model.ContextItem
	Usage model.TokenUsage
}

type ITool interface {
	Name() string
	Schema() map[string]interface{}
	Execute(ctx context.Context, args json.RawMessage) (*Result, error)
}

type Registry struct {
	lock  sync.RWMutex
	tools map[string]ITool
}

func NewRegistry(ts ...ITool) *Registry {
	r := &Registry{tools: make(map[string]ITool, len(ts))}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t ITool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.tools[t.Name()] = t
}

// Schemas returns the declarations attached to the model call, ordered
// by name so the request body is stable across processes.
func (r *Registry) Schemas() []map[string]interface{} {
	r.lock.RLock()
	defer r.lock.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	schemas := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		schemas = append(schemas, r.tools[name].Schema())
	}
	return schemas
}

// Dispatch runs the named tool and never returns an error. An unknown
// name or a failing executor yields an error-string Result instead, so
// the conversation can continue and the model can explain the failure.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) *Result {
	r.lock.RLock()
	t, ok := r.tools[name]
	r.lock.RUnlock()
	if !ok {
		logutil.GetLogger(ctx).Error("unknown tool requested", zap.String("tool", name))
		return &Result{Text: fmt.Sprintf("Error: Unknown function '%s'", name)}
	}
	res, err := t.Execute(ctx, args)
	if err != nil {
		logutil.GetLogger(ctx).Error("tool execution failed", zap.String("tool", name), zap.Error(err))
		return &Result{Text: fmt.Sprintf("Error executing %s: %v", name, err)}
	}
	return res
}
