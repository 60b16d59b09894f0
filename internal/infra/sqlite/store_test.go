package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/fintrack-go/internal/infra/resilience"
	"github.com/boddenberg/fintrack-go/internal/infra/sqlite"
	"github.com/boddenberg/fintrack-go/internal/infra/storetest"
	"github.com/boddenberg/fintrack-go/internal/port"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var retry = resilience.Config{MaxRetries: 2, InitialBackoff: 10 * time.Millisecond}

func open(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), path, retry, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.Store {
		s := open(t, filepath.Join(t.TempDir(), "fintrack.db"))
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fintrack.db")

	s := open(t, path)
	require.NoError(t, s.Close())

	// schema creation is idempotent
	s = open(t, path)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
}

func TestOpen_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "x.db"), retry, zap.NewNop())
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}
