package observability

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/hpickle/internal/config"
)

func TestSetupLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hpickle.log")
	logger, err := SetupLogger(config.LogConfig{
		Level:   "debug",
		Format:  "json",
		Outputs: []string{path},
	})
	require.NoError(t, err)
	logger.Debug("hello")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}

func TestSetupLoggerLevel(t *testing.T) {
	logger, err := SetupLogger(config.LogConfig{Level: "error", Outputs: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
	assert.True(t, logger.Core().Enabled(2))
}

func TestCounters(t *testing.T) {
	before := Counter(`hpickle_dump_total{family="<mapping>"}`)
	CountDump("<mapping>")
	CountDump("<mapping>")
	assert.Equal(t, before+2, Counter(`hpickle_dump_total{family="<mapping>"}`))

	BlobBytes(PlacementDataset, 100)
	CountCommit("memory")

	var buf bytes.Buffer
	WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `hpickle_blob_bytes_total{placement="dataset"}`)
	assert.Contains(t, buf.String(), `hpickle_commit_total{backend="memory"}`)
}
