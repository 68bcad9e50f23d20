package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/index"
)

// IndexHealthJob periodically verifies the vector index is reachable
// and logs the chunk count, so an unavailable index shows up in logs
// before users hit degraded retrieval.
type IndexHealthJob struct {
	store *index.Store
}

func NewIndexHealthJob(store *index.Store) *IndexHealthJob {
	return &IndexHealthJob{store: store}
}

func (j *IndexHealthJob) Name() string {
	return "index_health"
}

func (j *IndexHealthJob) Run(ctx context.Context) error {
	if err := j.store.Ping(ctx); err != nil {
		return err
	}
	count, err := j.store.Count(ctx)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("index healthy", zap.Int64("chunks", count))
	return nil
}
