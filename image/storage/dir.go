package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/autowp/goimagestorage/config"
)

// Dir is a named storage root bound to a naming strategy.
type Dir struct {
	name           string
	path           string
	url            string
	namingStrategy NamingStrategy
}

func NewDir(name string, cfg config.ImageStorageDirConfig) (*Dir, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: dir name is empty", ErrValidation)
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: path of dir `%s` is empty", ErrValidation, name)
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: path of dir `%s`: %w", ErrValidation, name, err)
	}

	strategy, err := NewNamingStrategy(cfg.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("dir `%s`: %w", name, err)
	}

	return &Dir{
		name:           name,
		path:           path,
		url:            cfg.URL,
		namingStrategy: strategy,
	}, nil
}

func (d *Dir) Name() string {
	return d.name
}

// Path is absolute and cleaned, so it carries no trailing separator.
func (d *Dir) Path() string {
	return d.path
}

func (d *Dir) URL() string {
	return d.url
}

func (d *Dir) NamingStrategy() NamingStrategy {
	return d.namingStrategy
}

func (d *Dir) absolutePath(relativePath string) string {
	return filepath.Join(d.path, filepath.FromSlash(relativePath))
}
