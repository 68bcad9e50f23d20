package leader

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestElectPrimaryThenSecondary(t *testing.T) {
	ctx := context.Background()
	lockPath := filepath.Join(t.TempDir(), "leader.lock")

	first := New(lockPath)
	primaryCalled := false
	require.NoError(t, first.Elect(ctx, Callbacks{
		OnPrimary: func(ctx context.Context) error {
			primaryCalled = true
			return nil
		},
	}))
	require.True(t, first.IsPrimary())
	require.True(t, primaryCalled)

	second := New(lockPath)
	secondaryCalled := false
	require.NoError(t, second.Elect(ctx, Callbacks{
		OnPrimary: func(ctx context.Context) error {
			t.Fatal("second elector must not become primary")
			return nil
		},
		OnSecondary: func(ctx context.Context) error {
			secondaryCalled = true
			return nil
		},
	}))
	require.False(t, second.IsPrimary())
	require.True(t, secondaryCalled)

	require.NoError(t, first.Release())
	require.False(t, first.IsPrimary())

	third := New(lockPath)
	require.NoError(t, third.Elect(ctx, Callbacks{}))
	require.True(t, third.IsPrimary())
	require.NoError(t, third.Release())
}

func TestElectPropagatesPrimaryCallbackError(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "leader.lock")
	e := New(lockPath)
	defer e.Release()

	wantErr := errors.New("warm-up failed")
	err := e.Elect(context.Background(), Callbacks{
		OnPrimary: func(ctx context.Context) error { return wantErr },
	})
	require.ErrorIs(t, err, wantErr)
	// The callback failing does not demote the process.
	require.True(t, e.IsPrimary())
}

func TestReleaseOnSecondaryIsNoop(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "leader.lock")
	holder := New(lockPath)
	require.NoError(t, holder.Elect(context.Background(), Callbacks{}))
	defer holder.Release()

	secondary := New(lockPath)
	require.NoError(t, secondary.Elect(context.Background(), Callbacks{}))
	require.NoError(t, secondary.Release())
	// Holder keeps the lock.
	require.True(t, holder.IsPrimary())
}
