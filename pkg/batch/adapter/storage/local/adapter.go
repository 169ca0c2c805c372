// Package local stores exported objects in a directory tree on the local file system.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageAdapter "github.com/tigerroll/dayche/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/dayche/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// ProviderType is the storage type served by this package.
const ProviderType = "local"

// dirStore is a StorageConnection rooted at one directory. Buckets are its
// subdirectories and object names are slash-separated paths below them.
// All file access goes through an os.Root, so no object can leave the directory.
type dirStore struct {
	name          string
	baseDir       string
	defaultBucket string
	root          *os.Root
	log           *logger.Logger
}

var _ storageAdapter.StorageConnection = (*dirStore)(nil)

// NewLocalAdapter opens cfg.BaseDir, creating it when missing.
func NewLocalAdapter(cfg storageConfig.StorageConfig, name string, log *logger.Logger) (storageAdapter.StorageConnection, error) {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("local storage '%s': base_dir is not set", name)
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("local storage '%s': cannot create '%s': %w", name, cfg.BaseDir, err)
	}
	root, err := os.OpenRoot(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("local storage '%s': cannot open '%s': %w", name, cfg.BaseDir, err)
	}
	return &dirStore{
		name:          name,
		baseDir:       cfg.BaseDir,
		defaultBucket: cfg.BucketName,
		root:          root,
		log:           log,
	}, nil
}

func (s *dirStore) Close() error {
	return s.root.Close()
}

func (s *dirStore) Type() string { return ProviderType }

func (s *dirStore) Name() string { return s.name }

// Upload writes data to bucket/objectName. The content is written to a
// ".part" sibling first and renamed into place once complete.
func (s *dirStore) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	rel, err := s.objectPath(bucket, objectName)
	if err != nil {
		return err
	}
	if err := s.root.MkdirAll(path.Dir(rel), 0o755); err != nil {
		return fmt.Errorf("local storage '%s': cannot create directory for '%s': %w", s.name, rel, err)
	}

	part := rel + ".part"
	f, err := s.root.Create(part)
	if err != nil {
		return fmt.Errorf("local storage '%s': cannot create '%s': %w", s.name, rel, err)
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		_ = s.root.Remove(part)
		return fmt.Errorf("local storage '%s': cannot write '%s': %w", s.name, rel, err)
	}
	if err := f.Close(); err != nil {
		_ = s.root.Remove(part)
		return fmt.Errorf("local storage '%s': cannot write '%s': %w", s.name, rel, err)
	}
	if err := s.root.Rename(part, rel); err != nil {
		_ = s.root.Remove(part)
		return fmt.Errorf("local storage '%s': cannot move '%s' into place: %w", s.name, rel, err)
	}
	s.log.Debugf("Stored %s (%s) in %s.", rel, contentType, s.baseDir)
	return nil
}

// Download opens bucket/objectName. The caller closes the reader.
func (s *dirStore) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	rel, err := s.objectPath(bucket, objectName)
	if err != nil {
		return nil, err
	}
	f, err := s.root.Open(rel)
	if err != nil {
		return nil, fmt.Errorf("local storage '%s': cannot open '%s': %w", s.name, rel, err)
	}
	return f, nil
}

// ListObjects calls fn with every object of bucket whose name starts with prefix.
// In-flight ".part" files are not listed.
func (s *dirStore) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	dir, err := s.objectPath(bucket, "")
	if err != nil {
		return err
	}
	fsys := s.root.FS()
	if _, err := fs.Stat(fsys, dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".part") {
			return nil
		}
		name := p
		if dir != "." {
			name = strings.TrimPrefix(p, dir+"/")
		}
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		return fn(name)
	})
}

// DeleteObject removes bucket/objectName. Deleting a missing object succeeds.
func (s *dirStore) DeleteObject(ctx context.Context, bucket, objectName string) error {
	rel, err := s.objectPath(bucket, objectName)
	if err != nil {
		return err
	}
	if err := s.root.Remove(rel); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local storage '%s': cannot delete '%s': %w", s.name, rel, err)
	}
	return nil
}

// objectPath returns the slash-separated path of an object relative to the base directory.
func (s *dirStore) objectPath(bucket, objectName string) (string, error) {
	if bucket == "" {
		bucket = s.defaultBucket
	}
	rel := path.Join(bucket, objectName)
	if rel == "" {
		rel = "."
	}
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("local storage '%s': object '%s' is outside of BaseDir '%s'", s.name, path.Join(bucket, objectName), s.baseDir)
	}
	return rel, nil
}

// LocalProvider hands out dirStore connections by name and closes them together.
type LocalProvider struct {
	cfg         storageConfig.DatasourcesConfig
	log         *logger.Logger
	mu          sync.Mutex
	connections map[string]storageAdapter.StorageConnection
}

// NewLocalProvider creates a LocalProvider over the named storage configurations.
func NewLocalProvider(cfg storageConfig.DatasourcesConfig, log *logger.Logger) *LocalProvider {
	if log == nil {
		log = logger.Discard()
	}
	return &LocalProvider{
		cfg:         cfg,
		log:         log,
		connections: make(map[string]storageAdapter.StorageConnection),
	}
}

// GetConnection returns the connection called name, opening it on first use.
func (p *LocalProvider) GetConnection(name string) (storageAdapter.StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}
	sc, ok := p.cfg[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	if sc.Type != "" && sc.Type != ProviderType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, ProviderType, sc.Type)
	}
	conn, err := NewLocalAdapter(sc, name, p.log)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	return conn, nil
}

// CloseAll closes every opened connection.
func (p *LocalProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing local storage '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return errs.ErrorOrNil()
}

func (p *LocalProvider) Type() string { return ProviderType }

var _ storageAdapter.StorageProvider = (*LocalProvider)(nil)
