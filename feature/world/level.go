package world

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// LevelFile is the name of the level metadata file.
const LevelFile = "level.yaml"

// Meta is the content of level.yaml.
type Meta struct {
	// Name is the display name of the world.
	Name string `yaml:"name"`

	// FormatVersion is the region format version. Zero disables region repair.
	FormatVersion int `yaml:"format_version"`

	// Compression is the codec used for chunks written by this tool.
	Compression string `yaml:"compression,omitempty"`

	// LastSaved is refreshed on every save.
	LastSaved time.Time `yaml:"last_saved,omitempty"`
}

// OpenOptions controls how a world is opened.
type OpenOptions struct {
	// SavesDir is searched for the world by name when the path does not exist.
	SavesDir string

	// ReadOnly rejects every mutation. Backups are opened read-only.
	ReadOnly bool
}

// Level is an opened world directory.
type Level struct {
	path     string
	name     string
	meta     Meta
	readOnly bool

	closeOnce sync.Once
	cleanup   func() error
}

// Open opens the world at path. A leading ~ is expanded. If path does not
// exist, the world is looked up by name in opts.SavesDir.
func Open(path string, opts OpenOptions) (*Level, error) {
	resolved, err := resolvePath(path, opts.SavesDir)
	if err != nil {
		return nil, err
	}

	meta, err := readMeta(resolved)
	if err != nil {
		return nil, err
	}

	return &Level{
		path:     resolved,
		name:     path,
		meta:     meta,
		readOnly: opts.ReadOnly,
	}, nil
}

// Create initializes an empty world at path.
func Create(path string, meta Meta) (*Level, error) {
	if meta.Compression == "" {
		meta.Compression = "zlib"
	}
	if err := os.MkdirAll(filepath.Join(path, Overworld.RegionDir()), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create world: %w", err)
	}
	l := &Level{path: path, name: path, meta: meta}
	if err := l.writeMeta(); err != nil {
		return nil, err
	}
	return l, nil
}

func resolvePath(path, savesDir string) (string, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(expanded); err == nil {
		return expanded, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to stat %s: %w", expanded, err)
	}

	if savesDir != "" {
		dir, err := expandHome(savesDir)
		if err != nil {
			return "", err
		}
		candidate := filepath.Join(dir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, path)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func readMeta(dir string) (Meta, error) {
	var meta Meta

	raw, err := os.ReadFile(filepath.Join(dir, LevelFile))
	if errors.Is(err, fs.ErrNotExist) {
		return meta, fmt.Errorf("%w: %s has no %s", ErrNotFound, dir, LevelFile)
	}
	if err != nil {
		return meta, fmt.Errorf("failed to read level metadata: %w", err)
	}

	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("%w: %s: %v", ErrFormat, LevelFile, err)
	}
	if meta.Compression == "" {
		meta.Compression = "zlib"
	}
	if _, ok := compressionByName[meta.Compression]; !ok {
		return meta, fmt.Errorf("%w: unknown compression %q", ErrFormat, meta.Compression)
	}
	return meta, nil
}

func (l *Level) writeMeta() error {
	raw, err := yaml.Marshal(&l.meta)
	if err != nil {
		return fmt.Errorf("failed to encode level metadata: %w", err)
	}
	return writeFileAtomic(filepath.Join(l.path, LevelFile), raw)
}

// Path returns the resolved world directory.
func (l *Level) Path() string {
	return l.path
}

// Meta returns the level metadata.
func (l *Level) Meta() Meta {
	return l.meta
}

// Dimension opens a dimension of the world. Closing the dimension closes the level.
func (l *Level) Dimension(sel Selector) (*Dimension, error) {
	regionDir := filepath.Join(l.path, sel.RegionDir())

	if sel != Overworld {
		info, err := os.Stat(filepath.Join(l.path, sel.Dir()))
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s in %s", ErrInvalidDimension, sel, l.name)
		}
	}

	return newDimension(l, sel, regionDir), nil
}

// Close releases resources held by the level, such as downloaded backups.
func (l *Level) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.cleanup != nil {
			err = l.cleanup()
		}
	})
	return err
}

// OpenDimension opens path and returns the selected dimension.
func OpenDimension(path string, sel Selector, opts OpenOptions) (*Dimension, error) {
	level, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	dim, err := level.Dimension(sel)
	if err != nil {
		_ = level.Close()
		return nil, err
	}
	return dim, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
