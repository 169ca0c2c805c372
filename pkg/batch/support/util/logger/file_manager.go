package logger

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultFilePattern is the log file name pattern used when none is configured.
	DefaultFilePattern = "{prefix}_{run_id}_{pid}.log"
	// DefaultBaseDir is the directory log files are written to when none is configured.
	DefaultBaseDir = "logs"
	runIDLayout    = "20060102_150405"
)

// FileManager creates timestamped log files and removes old ones.
type FileManager struct {
	Prefix      string
	BaseDir     string
	FilePattern string
	Level       string
	// Console also writes every message to Stderr.
	Console bool

	now func() time.Time
	pid int
}

// NewFileManager creates a FileManager. Empty arguments fall back to the defaults.
func NewFileManager(prefix, baseDir, filePattern, level string, console bool) *FileManager {
	if prefix == "" {
		prefix = "app"
	}
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if filePattern == "" {
		filePattern = DefaultFilePattern
	}
	return &FileManager{
		Prefix:      prefix,
		BaseDir:     baseDir,
		FilePattern: filePattern,
		Level:       level,
		Console:     console,
		now:         time.Now,
		pid:         os.Getpid(),
	}
}

// LogPath builds the log file path for a run started at t.
// It returns the path and the run id (UTC `YYYYMMDD_HHMMSS`).
func (m *FileManager) LogPath(t time.Time) (string, string) {
	runID := t.UTC().Format(runIDLayout)
	name := strings.NewReplacer(
		"{prefix}", m.Prefix,
		"{run_id}", runID,
		"{pid}", strconv.Itoa(m.pid),
	).Replace(m.FilePattern)
	return filepath.Join(m.BaseDir, name), runID
}

// Setup creates the base directory, opens a fresh log file and returns a Logger writing to it.
// The returned closer closes the file.
func (m *FileManager) Setup() (*Logger, string, string, io.Closer, error) {
	path, runID := m.LogPath(m.now())
	if err := os.MkdirAll(m.BaseDir, 0o755); err != nil {
		return nil, "", "", nil, fmt.Errorf("failed to create log directory '%s': %w", m.BaseDir, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", "", nil, fmt.Errorf("failed to open log file '%s': %w", path, err)
	}

	var w io.Writer = f
	if m.Console {
		w = io.MultiWriter(f, os.Stderr)
	}
	l := New(m.Level, w)
	l.Debugf("Logger initialized | path=%s | run_id=%s | prefix=%s | level=%s", path, runID, m.Prefix, l.Level())
	return l, path, runID, f, nil
}

// Cleanup removes `*.log` files under the base directory whose modification time is older than keepDays.
// Files that vanish or cannot be removed are skipped. It returns the number of files removed.
func (m *FileManager) Cleanup(keepDays int, recursive bool) (int, error) {
	info, err := os.Stat(m.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to stat log directory '%s': %w", m.BaseDir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("log directory '%s' is not a directory", m.BaseDir)
	}

	cutoff := m.now().Add(-time.Duration(keepDays) * 24 * time.Hour)
	removed := 0
	err = filepath.WalkDir(m.BaseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != m.BaseDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".log" {
			return nil
		}
		fi, err := d.Info()
		if err != nil || !fi.Mode().IsRegular() {
			return nil
		}
		if fi.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
