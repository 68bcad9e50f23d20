// Package leader designates one process among peers sharing a host as
// primary via an advisory file lock. The primary performs one-time
// index warm-up; secondaries skip it and serve traffic immediately.
package leader

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Callbacks struct {
	OnPrimary   func(ctx context.Context) error
	OnSecondary func(ctx context.Context) error
}

type Elector struct {
	lock    *flock.Flock
	primary bool
}

func New(lockFile string) *Elector {
	return &Elector{lock: flock.New(lockFile)}
}

// Elect tries a non-blocking acquire of the lock file and invokes
// exactly one callback. Losing the acquire is not an error; the process
// simply proceeds as secondary.
func (e *Elector) Elect(ctx context.Context, cbs Callbacks) error {
	logger := logutil.GetLogger(ctx).With(zap.String("lock_file", e.lock.Path()))
	locked, err := e.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire leader lock: %w", err)
	}
	e.primary = locked
	if locked {
		logger.Info("elected primary worker")
		if cbs.OnPrimary != nil {
			return cbs.OnPrimary(ctx)
		}
		return nil
	}
	logger.Info("running as secondary worker")
	if cbs.OnSecondary != nil {
		return cbs.OnSecondary(ctx)
	}
	return nil
}

func (e *Elector) IsPrimary() bool {
	return e.primary
}

// Release drops the lock if held. Safe to call on secondaries.
func (e *Elector) Release() error {
	if !e.primary {
		return nil
	}
	e.primary = false
	return e.lock.Unlock()
}
