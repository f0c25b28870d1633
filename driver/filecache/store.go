// Package filecache provides a filesystem-backed cachecore.Store.
//
// Each entry is one file named after the SHA-256 of its key. A namespace maps
// to a subdirectory so that Flush only removes that namespace's entries.
package filecache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
)

const defaultTTL = 5 * time.Minute

var (
	createTempFile = os.CreateTemp
	renameFile     = os.Rename
)

var recordMagic = []byte("CFR1")

const headerSize = 12

// Config configures a filesystem store.
type Config struct {
	cachecore.BaseConfig

	// Directory is the root directory for cache files.
	Directory string
}

type store struct {
	root       string
	namespace  string
	defaultTTL time.Duration
}

// New builds a filesystem cachecore.Store rooted at cfg.Directory.
//
// Defaults:
// - Directory: os.TempDir()/cache-file when empty
// - DefaultTTL: 5*time.Minute when zero
func New(cfg Config) cachecore.Store {
	dir := cfg.Directory
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "cache-file")
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &store{
		root:       dir,
		namespace:  cfg.Prefix,
		defaultTTL: ttl,
	}
}

func (s *store) Driver() cachecore.Driver {
	return cachecore.DriverFile
}

func (s *store) SetNamespace(namespace string) { s.namespace = namespace }

func (s *store) Namespace() string { return s.namespace }

// Directory reports the directory entries are written to.
func (s *store) Directory() string {
	if s.namespace == "" {
		return s.root
	}
	name := strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(s.namespace)
	return filepath.Join(s.root, name)
}

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	expiresAt, value, err := decodeRecord(data)
	if err != nil {
		_ = os.Remove(path)
		return nil, false, err
	}
	if expiresAt > 0 && time.Now().UnixNano() > expiresAt {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	expiresAt := time.Now().Add(ttl).UnixNano()

	dir := s.Directory()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := createTempFile(dir, "cache-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	var header [headerSize]byte
	copy(header[:4], recordMagic)
	binary.BigEndian.PutUint64(header[4:], uint64(expiresAt))

	if _, err := tmp.Write(header[:]); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := renameFile(tmpPath, s.path(key)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *store) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Flush removes the cache files of this store's directory. Namespace
// subdirectories of other stores are left alone.
func (s *store) Flush(_ context.Context) error {
	dir := s.Directory()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cache") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *store) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.Directory(), hex.EncodeToString(sum[:])+".cache")
}

func decodeRecord(data []byte) (int64, []byte, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], recordMagic) {
		return 0, nil, errors.New("filecache: corrupt cache record")
	}
	expiresAt := int64(binary.BigEndian.Uint64(data[4:headerSize]))
	return expiresAt, data[headerSize:], nil
}
