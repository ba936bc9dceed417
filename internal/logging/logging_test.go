package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitializeToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, Initialize(Config{Level: "debug", Format: "json", Output: path}))
	t.Cleanup(func() { _ = Initialize(DefaultConfig()) })

	Info("solver started", zap.String("solver", "mom2d"))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"solver started"`)
	assert.Contains(t, string(data), `"solver":"mom2d"`)
}

func TestOrFallsBackToGlobal(t *testing.T) {
	assert.Same(t, Logger, Or(nil))
	l := zap.NewNop()
	assert.Same(t, l, Or(l))
}
