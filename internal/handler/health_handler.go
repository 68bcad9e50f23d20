package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docchat/internal/index"
	"github.com/xxxsen/docchat/internal/pkg/response"
)

type HealthHandler struct {
	store *index.Store
}

func NewHealthHandler(store *index.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health reports liveness plus whether the vector index is reachable.
// An unreachable index degrades the report, it does not fail the call.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	indexStatus := "ok"
	chunks := int64(0)
	if err := h.store.Ping(ctx); err != nil {
		indexStatus = "unavailable"
	} else if n, err := h.store.Count(ctx); err == nil {
		chunks = n
	}
	response.Success(c, gin.H{"status": "ok", "index": indexStatus, "chunks": chunks})
}
