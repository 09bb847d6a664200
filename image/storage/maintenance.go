package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/autowp/goimagestorage/schema"
	"github.com/sirupsen/logrus"
)

// ListBrokenFiles returns files found under the dir root that no image row refers to.
// Paths are relative to the root and use forward slashes.
func (s *Storage) ListBrokenFiles(ctx context.Context, dirName string) ([]string, error) {
	dir, err := s.Dir(dirName)
	if err != nil {
		return nil, err
	}

	known, err := s.store.ImageFilepaths(ctx, dirName)
	if err != nil {
		return nil, err
	}

	registered := make(map[string]struct{}, len(known))
	for _, filePath := range known {
		registered[filePath] = struct{}{}
	}

	result := make([]string, 0)

	err = walkFiles(dir.Path(), func(filePath string) {
		if _, ok := registered[filePath]; !ok {
			result = append(result, filePath)
		}
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(result)

	return result, nil
}

func walkFiles(root string, fn func(filePath string)) error {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	err := filepath.WalkDir(root, func(absolutePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		relativePath, err := filepath.Rel(root, absolutePath)
		if err != nil {
			return err
		}

		fn(filepath.ToSlash(relativePath))

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: walk `%s`: %w", ErrIO, root, err)
	}

	return nil
}

// FixBrokenFiles registers unreferenced files as images. Files of unknown type are left untouched.
func (s *Storage) FixBrokenFiles(ctx context.Context, dirName string) (int, error) {
	files, err := s.ListBrokenFiles(ctx, dirName)
	if err != nil {
		return 0, err
	}

	dir, err := s.Dir(dirName)
	if err != nil {
		return 0, err
	}

	fixed := 0

	for _, filePath := range files {
		blob, err := readFile(dir.absolutePath(filePath))
		if err != nil {
			return fixed, err
		}

		if len(blob) == 0 {
			logrus.Warnf("`%s` in `%s` is empty, skipped", filePath, dirName)

			continue
		}

		_, cfg, err := s.probe(blob)
		if err != nil {
			logrus.Warnf("`%s` in `%s` skipped: %s", filePath, dirName, err.Error())

			continue
		}

		id, err := s.store.InsertImage(ctx, schema.ImageRow{
			Width:    cfg.Width,
			Height:   cfg.Height,
			Filesize: int64(len(blob)),
			Filepath: filePath,
			Dir:      dirName,
		})
		if err != nil {
			if errors.Is(err, ErrStoreConflict) {
				continue
			}

			return fixed, err
		}

		logrus.Infof("`%s` in `%s` registered as image %d", filePath, dirName, id)

		fixed++
	}

	return fixed, nil
}

func (s *Storage) DeleteBrokenFiles(ctx context.Context, dirName string) (int, error) {
	files, err := s.ListBrokenFiles(ctx, dirName)
	if err != nil {
		return 0, err
	}

	dir, err := s.Dir(dirName)
	if err != nil {
		return 0, err
	}

	deleted := 0

	for _, filePath := range files {
		absolutePath := dir.absolutePath(filePath)

		if err = os.Remove(absolutePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return deleted, fmt.Errorf("%w: remove `%s`: %w", ErrIO, absolutePath, err)
		}

		logrus.Infof("`%s` removed from `%s`", filePath, dirName)

		deleted++
	}

	return deleted, nil
}

// ClearEmptyDirs removes empty subdirectories, deepest first. The dir root itself is kept.
func (s *Storage) ClearEmptyDirs(_ context.Context, dirName string) (int, error) {
	dir, err := s.Dir(dirName)
	if err != nil {
		return 0, err
	}

	root := dir.Path()

	if _, err = os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}

	dirs := make([]string, 0)

	err = filepath.WalkDir(root, func(absolutePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() && absolutePath != root {
			dirs = append(dirs, absolutePath)
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: walk `%s`: %w", ErrIO, root, err)
	}

	slices.SortFunc(dirs, func(a, b string) int {
		return cmp.Compare(strings.Count(b, string(filepath.Separator)), strings.Count(a, string(filepath.Separator)))
	})

	removed := 0

	for _, path := range dirs {
		entries, err := os.ReadDir(path)
		if err != nil {
			return removed, fmt.Errorf("%w: read `%s`: %w", ErrIO, path, err)
		}

		if len(entries) > 0 {
			continue
		}

		if err = os.Remove(path); err != nil {
			return removed, fmt.Errorf("%w: remove `%s`: %w", ErrIO, path, err)
		}

		logrus.Debugf("empty dir `%s` removed", path)

		removed++
	}

	return removed, nil
}
