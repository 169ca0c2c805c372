package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New("warn", &buf)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "[WARN] warn 3")
	assert.Contains(t, out, "[ERROR] error 4")

	buf.Reset()
	l.SetLevel("DEBUG")
	l.Debugf("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestLoggerUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New("verbose", &buf)

	assert.Equal(t, logger.LevelInfo, l.Level())
	assert.Contains(t, buf.String(), "Unknown log level 'verbose'")
}

func TestParseLevel(t *testing.T) {
	lv, ok := logger.ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, logger.LevelWarn, lv)

	lv, ok = logger.ParseLevel("CRITICAL")
	assert.True(t, ok)
	assert.Equal(t, logger.LevelError, lv)

	_, ok = logger.ParseLevel("")
	assert.False(t, ok)
}

func TestFileManagerLogPath(t *testing.T) {
	m := logger.NewFileManager("db", "/var/log/dayche", "", "INFO", false)
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	path, runID := m.LogPath(ts)

	assert.Equal(t, "20240309_140507", runID)
	assert.Equal(t, "/var/log/dayche", filepath.Dir(path))
	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "db_20240309_140507_"), base)
	assert.True(t, strings.HasSuffix(base, ".log"), base)
}

func TestFileManagerSetup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	m := logger.NewFileManager("data", dir, "{prefix}-{run_id}.log", "DEBUG", false)

	l, path, runID, closer, err := m.Setup()
	require.NoError(t, err)
	defer closer.Close()

	assert.NotEmpty(t, runID)
	assert.Equal(t, filepath.Join(dir, "data-"+runID+".log"), path)

	l.Infof("hello from %s", "setup")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[INFO] hello from setup")
	assert.Contains(t, string(content), "Logger initialized")
}

func TestFileManagerCleanup(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-5 * 24 * time.Hour)

	write := func(name string, mtime time.Time) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(p, mtime, mtime))
		return p
	}
	oldLog := write("old.log", old)
	freshLog := write("fresh.log", time.Now())
	oldText := write("old.txt", old)
	nestedOld := write(filepath.Join("sub", "nested.log"), old)

	m := logger.NewFileManager("app", dir, "", "INFO", false)

	removed, err := m.Cleanup(2, false)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, oldLog)
	assert.FileExists(t, freshLog)
	assert.FileExists(t, oldText)
	assert.FileExists(t, nestedOld)

	removed, err = m.Cleanup(2, true)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, nestedOld)
}

func TestFileManagerCleanupMissingDir(t *testing.T) {
	m := logger.NewFileManager("app", filepath.Join(t.TempDir(), "absent"), "", "INFO", false)
	removed, err := m.Cleanup(1, false)
	assert.NoError(t, err)
	assert.Zero(t, removed)
}
