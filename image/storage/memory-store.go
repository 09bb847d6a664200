package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/autowp/goimagestorage/schema"
)

type memoryImageKey struct {
	dir      string
	filepath string
}

type memoryFormattedKey struct {
	key    requestKey
	format string
}

// MemoryStore is a MetadataStore kept in process memory.
// It enforces the same unique keys as the SQL schema.
type MemoryStore struct {
	mutex           sync.Mutex
	lastID          int64
	images          map[int64]schema.ImageRow
	paths           map[memoryImageKey]int64
	formattedImages map[memoryFormattedKey]schema.FormattedImageRow
	counters        map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		images:          make(map[int64]schema.ImageRow),
		paths:           make(map[memoryImageKey]int64),
		formattedImages: make(map[memoryFormattedKey]schema.FormattedImageRow),
		counters:        make(map[string]int64),
	}
}

func (s *MemoryStore) Image(_ context.Context, id int64) (schema.ImageRow, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	row, ok := s.images[id]
	if !ok {
		return row, fmt.Errorf("%w: %d", ErrImageNotFound, id)
	}

	return row, nil
}

func (s *MemoryStore) Images(_ context.Context, ids []int64) ([]schema.ImageRow, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result := make([]schema.ImageRow, 0, len(ids))

	for _, id := range ids {
		if row, ok := s.images[id]; ok {
			result = append(result, row)
		}
	}

	return result, nil
}

func (s *MemoryStore) ImageFilepaths(_ context.Context, dir string) ([]string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result := make([]string, 0)

	for key := range s.paths {
		if key.dir == dir {
			result = append(result, key.filepath)
		}
	}

	slices.Sort(result)

	return result, nil
}

func (s *MemoryStore) InsertImage(_ context.Context, row schema.ImageRow) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := memoryImageKey{dir: row.Dir, filepath: row.Filepath}
	if _, ok := s.paths[key]; ok {
		return 0, fmt.Errorf("%w: `%s` in `%s`", ErrStoreConflict, row.Filepath, row.Dir)
	}

	s.lastID++
	row.ID = s.lastID

	if row.DateAdd.IsZero() {
		row.DateAdd = time.Now()
	}

	s.images[row.ID] = row
	s.paths[key] = row.ID

	return row.ID, nil
}

func (s *MemoryStore) UpdateImage(_ context.Context, row schema.ImageRow) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.images[row.ID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrImageNotFound, row.ID)
	}

	oldKey := memoryImageKey{dir: current.Dir, filepath: current.Filepath}
	newKey := memoryImageKey{dir: current.Dir, filepath: row.Filepath}

	if id, exists := s.paths[newKey]; exists && id != row.ID {
		return fmt.Errorf("%w: `%s` in `%s`", ErrStoreConflict, row.Filepath, current.Dir)
	}

	delete(s.paths, oldKey)
	s.paths[newKey] = row.ID

	current.Filepath = row.Filepath
	current.Filesize = row.Filesize
	current.Width = row.Width
	current.Height = row.Height
	s.images[row.ID] = current

	return nil
}

func (s *MemoryStore) DeleteImage(_ context.Context, id int64) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	row, ok := s.images[id]
	if !ok {
		return false, nil
	}

	delete(s.images, id)
	delete(s.paths, memoryImageKey{dir: row.Dir, filepath: row.Filepath})

	return true, nil
}

func matchFormattedImage(row schema.FormattedImageRow, filter FormattedImageFilter) bool {
	if len(filter.ImageIDs) > 0 && !slices.Contains(filter.ImageIDs, row.ImageID) {
		return false
	}

	if filter.Format != "" && row.Format != filter.Format {
		return false
	}

	if filter.FormattedImageID != 0 &&
		(!row.FormattedImageID.Valid || row.FormattedImageID.Int64 != filter.FormattedImageID) {
		return false
	}

	return true
}

func (s *MemoryStore) FormattedImages(
	_ context.Context, filter FormattedImageFilter,
) ([]schema.FormattedImageRow, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result := make([]schema.FormattedImageRow, 0)

	for _, row := range s.formattedImages {
		if matchFormattedImage(row, filter) {
			result = append(result, row)
		}
	}

	slices.SortFunc(result, func(a, b schema.FormattedImageRow) int {
		return cmp.Or(cmp.Compare(a.ImageID, b.ImageID), cmp.Compare(a.Format, b.Format))
	})

	return result, nil
}

func (s *MemoryStore) UpsertFormattedImage(_ context.Context, row schema.FormattedImageRow) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.formattedImages[memoryFormattedKey{key: formattedImageKey(row), format: row.Format}] = row

	return nil
}

func (s *MemoryStore) DeleteFormattedImages(_ context.Context, filter FormattedImageFilter) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var affected int64

	for key, row := range s.formattedImages {
		if matchFormattedImage(row, filter) {
			delete(s.formattedImages, key)
			affected++
		}
	}

	return affected, nil
}

func (s *MemoryStore) DirCounter(_ context.Context, dir string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.counters[dir], nil
}

func (s *MemoryStore) IncDirCounter(_ context.Context, dir string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.counters[dir]++

	return nil
}
