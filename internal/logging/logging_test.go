package logging_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/reqtsv/internal/logging"
)

func Test_New_Filters_Below_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger, closeFn := logging.New(logging.Options{Level: slog.LevelWarn, Stderr: &buf})
	defer func() { _ = closeFn() }()

	logger.Debug("hidden")
	logger.Warn("shown", "path", "component.tsv")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "path=component.tsv")
}

func Test_New_Writes_To_File_When_Configured(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer

	path := filepath.Join(t.TempDir(), "logs", "reqtsv.log")

	logger, closeFn := logging.New(logging.Options{Level: slog.LevelDebug, File: path, Stderr: &stderr})
	logger.Debug("table replaced", "path", "requirement.tsv")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "table replaced"), "log file: %s", data)
	assert.Empty(t, stderr.String())
}
