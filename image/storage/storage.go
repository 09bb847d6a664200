package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/autowp/goimagestorage/config"
	"github.com/autowp/goimagestorage/image/codec"
	"github.com/autowp/goimagestorage/image/sampler"
	"github.com/autowp/goimagestorage/schema"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

const (
	lockMaxAttempts   = 10
	insertMaxAttempts = 10
	maxIndexDigits    = 9
	defaultExtension  = "jpg"
)

var mimeCodecs = map[string]string{
	"image/jpeg": codec.JPEG,
	"image/png":  codec.PNG,
	"image/gif":  codec.GIF,
	"image/bmp":  codec.BMP,
}

type FlushOptions struct {
	Format  string
	ImageID int64
}

// Storage owns the registered dirs and formats. Both maps are read-only after construction.
type Storage struct {
	store                 MetadataStore
	codec                 codec.Codec
	sampler               *sampler.Sampler
	metrics               *Metrics
	dirs                  map[string]*Dir
	formats               map[string]*sampler.Format
	formattedImageDirName string
	fileMode              os.FileMode
	dirMode               os.FileMode
}

func NewStorage(
	store MetadataStore, imageCodec codec.Codec, cfg config.ImageStorageConfig, metrics *Metrics,
) (*Storage, error) {
	fileMode, err := config.ParseMode(cfg.FileMode, config.DefaultFileMode)
	if err != nil {
		return nil, err
	}

	dirMode, err := config.ParseMode(cfg.DirMode, config.DefaultDirMode)
	if err != nil {
		return nil, err
	}

	formattedImageDirName := cfg.FormattedImageDirName
	if formattedImageDirName == "" {
		formattedImageDirName = config.DefaultFormattedImageDirName
	}

	s := &Storage{
		store:                 store,
		codec:                 imageCodec,
		sampler:               sampler.NewSampler(),
		metrics:               metrics,
		dirs:                  make(map[string]*Dir, len(cfg.Dirs)),
		formats:               make(map[string]*sampler.Format, len(cfg.Formats)),
		formattedImageDirName: formattedImageDirName,
		fileMode:              os.FileMode(fileMode),
		dirMode:               os.FileMode(dirMode),
	}

	for name, dirConfig := range cfg.Dirs {
		dir, err := NewDir(name, dirConfig)
		if err != nil {
			return nil, err
		}

		if err = s.addDir(dir); err != nil {
			return nil, err
		}
	}

	for name, formatConfig := range cfg.Formats {
		format, err := sampler.NewFormat(formatConfig)
		if err != nil {
			return nil, fmt.Errorf("format `%s`: %w", name, err)
		}

		s.formats[name] = format
	}

	if len(s.formats) > 0 {
		if _, ok := s.dirs[formattedImageDirName]; !ok {
			return nil, fmt.Errorf("%w: formatted images %w: `%s`", ErrValidation, ErrDirNotFound, formattedImageDirName)
		}
	}

	return s, nil
}

func (s *Storage) addDir(dir *Dir) error {
	if _, ok := s.dirs[dir.Name()]; ok {
		return fmt.Errorf("%w: `%s`", ErrDirAlreadyRegistered, dir.Name())
	}

	s.dirs[dir.Name()] = dir

	return nil
}

// Dirs returns the registered dir names, sorted.
func (s *Storage) Dirs() []string {
	result := make([]string, 0, len(s.dirs))
	for name := range s.dirs {
		result = append(result, name)
	}

	slices.Sort(result)

	return result
}

func (s *Storage) Dir(name string) (*Dir, error) {
	dir, ok := s.dirs[name]
	if !ok {
		return nil, fmt.Errorf("%w: `%s`", ErrDirNotFound, name)
	}

	return dir, nil
}

func (s *Storage) format(name string) (*sampler.Format, error) {
	format, ok := s.formats[name]
	if !ok {
		return nil, fmt.Errorf("%w: `%s`", ErrFormatNotFound, name)
	}

	return format, nil
}

func (s *Storage) imageView(row schema.ImageRow) (*Image, error) {
	dir, err := s.Dir(row.Dir)
	if err != nil {
		return nil, err
	}

	return newImage(row, dir), nil
}

// Image returns ErrImageNotFound for an unknown id, so callers can tell a missing row from a nil view.
func (s *Storage) Image(ctx context.Context, id int64) (*Image, error) {
	row, err := s.store.Image(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.imageView(row)
}

// Images returns the found images by id. Unknown ids are skipped.
func (s *Storage) Images(ctx context.Context, ids []int64) (map[int64]*Image, error) {
	rows, err := s.store.Images(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make(map[int64]*Image, len(rows))

	for _, row := range rows {
		image, err := s.imageView(row)
		if err != nil {
			return nil, err
		}

		result[row.ID] = image
	}

	return result, nil
}

func readFile(filePath string) ([]byte, error) {
	blob, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: `%s`", ErrFileNotFound, filePath)
		}

		return nil, fmt.Errorf("%w: read `%s`: %w", ErrIO, filePath, err)
	}

	return blob, nil
}

func (s *Storage) imageFile(ctx context.Context, id int64) (schema.ImageRow, *Dir, error) {
	row, err := s.store.Image(ctx, id)
	if err != nil {
		return row, nil, err
	}

	dir, err := s.Dir(row.Dir)
	if err != nil {
		return row, nil, err
	}

	return row, dir, nil
}

func (s *Storage) ImageBlob(ctx context.Context, id int64) ([]byte, error) {
	row, dir, err := s.imageFile(ctx, id)
	if err != nil {
		return nil, err
	}

	return readFile(dir.absolutePath(row.Filepath))
}

// FormattedImage returns nil without error while the derivative is being generated elsewhere.
func (s *Storage) FormattedImage(ctx context.Context, request Request, formatName string) (*Image, error) {
	result, err := s.FormattedImages(ctx, []Request{request}, formatName)
	if err != nil {
		return nil, err
	}

	return result[0], nil
}

// FormattedImages resolves a batch in request order, generating missing derivatives synchronously.
func (s *Storage) FormattedImages(ctx context.Context, requests []Request, formatName string) ([]*Image, error) {
	format, err := s.format(formatName)
	if err != nil {
		return nil, err
	}

	result := make([]*Image, len(requests))

	if len(requests) == 0 {
		return result, nil
	}

	ids := make([]int64, 0, len(requests))
	for _, request := range requests {
		if !slices.Contains(ids, request.ImageID()) {
			ids = append(ids, request.ImageID())
		}
	}

	rows, err := s.store.FormattedImages(ctx, FormattedImageFilter{ImageIDs: ids, Format: formatName})
	if err != nil {
		return nil, err
	}

	associations := make(map[requestKey]schema.FormattedImageRow, len(rows))
	derivedIDs := make([]int64, 0, len(rows))

	for _, row := range rows {
		associations[formattedImageKey(row)] = row

		if row.Status == schema.FormattedImageStatusDefault && row.FormattedImageID.Valid {
			derivedIDs = append(derivedIDs, row.FormattedImageID.Int64)
		}
	}

	derivedRows, err := s.store.Images(ctx, derivedIDs)
	if err != nil {
		return nil, err
	}

	derived := make(map[int64]schema.ImageRow, len(derivedRows))
	for _, row := range derivedRows {
		derived[row.ID] = row
	}

	generated := make(map[requestKey]schema.ImageRow)

	for idx, request := range requests {
		key := request.key()

		association, found := associations[key]
		if found && association.Status == schema.FormattedImageStatusProcessing {
			logrus.Debugf("image %d is being formatted as `%s`", request.ImageID(), formatName)

			continue
		}

		row, hit := derivedRow(derived, association, found)

		if hit {
			logrus.Debugf("image %d formatted as `%s` found: %d", request.ImageID(), formatName, row.ID)
			s.metrics.cacheHit()
		} else if row, hit = generated[key]; !hit {
			s.metrics.cacheMiss()

			row, err = s.generateFormattedImage(ctx, request, formatName, format)
			if err != nil {
				return nil, err
			}

			generated[key] = row
		}

		result[idx], err = s.imageView(row)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func derivedRow(
	derived map[int64]schema.ImageRow, association schema.FormattedImageRow, found bool,
) (schema.ImageRow, bool) {
	if !found || association.Status != schema.FormattedImageStatusDefault || !association.FormattedImageID.Valid {
		return schema.ImageRow{}, false
	}

	row, ok := derived[association.FormattedImageID.Int64]
	if !ok {
		logrus.Warnf(
			"formatted image %d of image %d is missing, regenerating",
			association.FormattedImageID.Int64, association.ImageID,
		)
	}

	return row, ok
}

func (s *Storage) generateFormattedImage(
	ctx context.Context, request Request, formatName string, format *sampler.Format,
) (schema.ImageRow, error) {
	source, err := s.store.Image(ctx, request.ImageID())
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return source, fmt.Errorf("%w: %d", ErrSourceNotFound, request.ImageID())
		}

		return source, err
	}

	dir, err := s.Dir(source.Dir)
	if err != nil {
		return source, err
	}

	blob, err := readFile(dir.absolutePath(source.Filepath))
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return source, fmt.Errorf("%w: image %d: %w", ErrSourceNotFound, source.ID, err)
		}

		return source, err
	}

	association := formattedImageRow(request.key(), formatName)

	id, err := s.formatBlob(ctx, blob, source, request, formatName, format)
	if err != nil {
		association.Status = schema.FormattedImageStatusFailed

		if upsertErr := s.store.UpsertFormattedImage(ctx, association); upsertErr != nil {
			logrus.Errorf("mark image %d as failed for `%s`: %s", source.ID, formatName, upsertErr.Error())
		}

		return source, err
	}

	association.FormattedImageID.Int64 = id
	association.FormattedImageID.Valid = true
	association.Status = schema.FormattedImageStatusDefault

	if err = s.store.UpsertFormattedImage(ctx, association); err != nil {
		if removeErr := s.RemoveImage(ctx, id); removeErr != nil {
			logrus.Errorf("remove unreferenced formatted image %d: %s", id, removeErr.Error())
		}

		return source, err
	}

	s.metrics.derivativeGenerated()
	logrus.Infof("image %d formatted as `%s` into image %d", source.ID, formatName, id)

	return s.store.Image(ctx, id)
}

func (s *Storage) formatBlob(
	ctx context.Context, blob []byte, source schema.ImageRow, request Request, formatName string,
	format *sampler.Format,
) (int64, error) {
	img, err := s.codec.Decode(blob)
	if err != nil {
		return 0, fmt.Errorf("decode image %d: %w", source.ID, err)
	}
	defer img.Close()

	crop := request.Crop()

	if err = s.sampler.ConvertImage(img, format.WithCrop(crop)); err != nil {
		return 0, fmt.Errorf("format image %d as `%s`: %w", source.ID, formatName, err)
	}

	cropSuffix := ""
	if crop != nil {
		cropSuffix = crop.Suffix()
	}

	pattern := path.Join(
		source.Dir,
		formatName,
		strings.TrimSuffix(source.Filepath, path.Ext(source.Filepath)),
	) + cropSuffix

	return s.AddImageFromImage(ctx, img, s.formattedImageDirName, GenerateOptions{Pattern: pattern})
}

func (s *Storage) AddImageFromImage(
	ctx context.Context, img codec.Image, dirName string, options GenerateOptions,
) (int64, error) {
	width := img.Width()
	height := img.Height()

	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: image size %d x %d", ErrValidation, width, height)
	}

	extension, err := codec.FileExtension(img.Codec())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnsupportedImageType, err)
	}

	blob, err := img.Encode()
	if err != nil {
		return 0, fmt.Errorf("encode: %w", err)
	}

	options.Extension = extension

	return s.addImage(ctx, blob, dirName, width, height, options)
}

// probe sniffs the blob type and reads its dimensions without a full decode.
func (s *Storage) probe(blob []byte) (string, codec.Config, error) {
	mime := mimetype.Detect(blob)

	name, ok := mimeCodecs[mime.String()]
	if !ok {
		return "", codec.Config{}, fmt.Errorf("%w: `%s`", ErrUnsupportedImageType, mime.String())
	}

	cfg, err := s.codec.DecodeConfig(blob)
	if err != nil {
		return "", cfg, fmt.Errorf("%w: %w", ErrUnsupportedImageType, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", cfg, fmt.Errorf("%w: image size %d x %d", ErrValidation, cfg.Width, cfg.Height)
	}

	extension, err := codec.FileExtension(name)
	if err != nil {
		return "", cfg, fmt.Errorf("%w: %w", ErrUnsupportedImageType, err)
	}

	return extension, cfg, nil
}

func (s *Storage) AddImageFromBlob(
	ctx context.Context, blob []byte, dirName string, options GenerateOptions,
) (int64, error) {
	extension, cfg, err := s.probe(blob)
	if err != nil {
		return 0, err
	}

	options.Extension = extension

	return s.addImage(ctx, blob, dirName, cfg.Width, cfg.Height, options)
}

func (s *Storage) AddImageFromFile(
	ctx context.Context, filePath string, dirName string, options GenerateOptions,
) (int64, error) {
	blob, err := readFile(filePath)
	if err != nil {
		return 0, err
	}

	return s.AddImageFromBlob(ctx, blob, dirName, options)
}

func writeBlob(blob []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(blob)

		return err
	}
}

func (s *Storage) addImage(
	ctx context.Context, blob []byte, dirName string, width, height int, options GenerateOptions,
) (int64, error) {
	dir, err := s.Dir(dirName)
	if err != nil {
		return 0, err
	}

	var id int64

	_, err = s.generateLockWrite(ctx, dir, options, writeBlob(blob), func(ctx context.Context, filePath string) error {
		var err error

		id, err = s.store.InsertImage(ctx, schema.ImageRow{
			Width:    width,
			Height:   height,
			Filesize: int64(len(blob)),
			Filepath: filePath,
			Dir:      dirName,
		})

		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// generateLockWrite allocates a fresh file in dir, fills it with write and records it with commit.
// The file is complete before commit runs and the dir counter moves only after commit succeeds.
func (s *Storage) generateLockWrite(
	ctx context.Context, dir *Dir, options GenerateOptions, write func(io.Writer) error,
	commit func(ctx context.Context, filePath string) error,
) (string, error) {
	if len(options.Extension) == 0 {
		options.Extension = defaultExtension
	}

	var lastErr error

	for attempt := range insertMaxAttempts {
		filePath, err := s.lockWrite(ctx, dir, options, attempt, write)
		if err != nil {
			return "", err
		}

		err = commit(ctx, filePath)
		if err == nil {
			if err = s.store.IncDirCounter(ctx, dir.Name()); err != nil {
				return "", fmt.Errorf("increment counter of `%s`: %w", dir.Name(), err)
			}

			return filePath, nil
		}

		if removeErr := s.removeFile(dir, filePath); removeErr != nil {
			return "", errors.Join(err, removeErr)
		}

		if !errors.Is(err, ErrStoreConflict) {
			return "", err
		}

		lastErr = err

		s.metrics.allocationRetry(retryReasonConflict)
		logrus.Warnf("`%s` in `%s` is already registered, retrying", filePath, dir.Name())
	}

	return "", fmt.Errorf(
		"%w: commit to `%s` after %d attempts: %w", ErrAllocationExhausted, dir.Name(), insertMaxAttempts, lastErr,
	)
}

func (s *Storage) lockWrite(
	ctx context.Context, dir *Dir, options GenerateOptions, offset int, write func(io.Writer) error,
) (string, error) {
	count, err := s.store.DirCounter(ctx, dir.Name())
	if err != nil {
		return "", err
	}

	options.Count = count

	var lastErr error

	for attempt := range lockMaxAttempts {
		if err = ctx.Err(); err != nil {
			return "", err
		}

		options.Index = indexByAttempt(offset + attempt)
		filePath := dir.NamingStrategy().Generate(options)
		absolutePath := dir.absolutePath(filePath)

		if err = os.MkdirAll(filepath.Dir(absolutePath), s.dirMode); err != nil {
			return "", fmt.Errorf("%w: mkdir `%s`: %w", ErrIO, filepath.Dir(absolutePath), err)
		}

		err = s.writeLocked(absolutePath, write)

		switch {
		case errors.Is(err, errLocked):
			s.metrics.allocationRetry(retryReasonLocked)
			logrus.Warnf("`%s` is locked, trying next name", absolutePath)
		case errors.Is(err, errFileNotEmpty):
			s.metrics.allocationRetry(retryReasonNotEmpty)
			logrus.Debugf("`%s` already exists, trying next name", absolutePath)
		case err != nil:
			return "", err
		default:
			return filePath, nil
		}

		lastErr = fmt.Errorf("`%s`: %w", absolutePath, err)
	}

	return "", fmt.Errorf(
		"%w: lock in `%s` after %d attempts: %w", ErrAllocationExhausted, dir.Name(), lockMaxAttempts, lastErr,
	)
}

func (s *Storage) writeLocked(absolutePath string, write func(io.Writer) error) error {
	file, err := lockFile(absolutePath, s.fileMode)
	if err != nil {
		if errors.Is(err, errLocked) {
			return err
		}

		return fmt.Errorf("%w: open `%s`: %w", ErrIO, absolutePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = unlockFile(file)

		return fmt.Errorf("%w: stat `%s`: %w", ErrIO, absolutePath, err)
	}

	if stat.Size() > 0 {
		_ = unlockFile(file)

		return errFileNotEmpty
	}

	err = write(file)
	if err == nil {
		err = file.Chmod(s.fileMode)
	}

	if err != nil {
		_ = unlockFile(file)
		_ = os.Remove(absolutePath)

		return fmt.Errorf("%w: write `%s`: %w", ErrIO, absolutePath, err)
	}

	if err = unlockFile(file); err != nil {
		return fmt.Errorf("%w: close `%s`: %w", ErrIO, absolutePath, err)
	}

	return nil
}

func (s *Storage) removeFile(dir *Dir, filePath string) error {
	absolutePath := dir.absolutePath(filePath)

	if err := os.Remove(absolutePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove `%s`: %w", ErrIO, absolutePath, err)
	}

	return nil
}

// indexByAttempt returns 0 for the first attempt, then random numbers with one more digit per attempt.
func indexByAttempt(attempt int) int {
	if attempt <= 0 {
		return 0
	}

	digits := min(attempt, maxIndexDigits)
	low := 1

	for range digits - 1 {
		low *= 10
	}

	high := low*10 - 1

	return low + rand.IntN(high-low+1) //nolint: gosec
}

func (s *Storage) DirCounter(ctx context.Context, dirName string) (int64, error) {
	if _, err := s.Dir(dirName); err != nil {
		return 0, err
	}

	return s.store.DirCounter(ctx, dirName)
}

// RemoveImage drops derivatives first, then the row and finally the file.
func (s *Storage) RemoveImage(ctx context.Context, id int64) error {
	row, dir, err := s.imageFile(ctx, id)
	if err != nil {
		return err
	}

	if err = s.Flush(ctx, FlushOptions{ImageID: id}); err != nil {
		return err
	}

	if _, err = s.store.DeleteFormattedImages(ctx, FormattedImageFilter{FormattedImageID: id}); err != nil {
		return err
	}

	deleted, err := s.store.DeleteImage(ctx, id)
	if err != nil {
		return err
	}

	if !deleted {
		return fmt.Errorf("%w: %d", ErrImageNotFound, id)
	}

	absolutePath := dir.absolutePath(row.Filepath)

	if err = os.Remove(absolutePath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: remove `%s` of image %d: %w", ErrIO, absolutePath, id, err)
		}

		logrus.Warnf("file `%s` of image %d is already missing", absolutePath, id)
	}

	s.metrics.imageRemoved()
	logrus.Infof("image %d removed", id)

	return nil
}

// Flush removes matching derivatives. Empty options flush the whole cache.
func (s *Storage) Flush(ctx context.Context, options FlushOptions) error {
	filter := FormattedImageFilter{Format: options.Format}
	if options.ImageID != 0 {
		filter.ImageIDs = []int64{options.ImageID}
	}

	rows, err := s.store.FormattedImages(ctx, filter)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}

	if _, err = s.store.DeleteFormattedImages(ctx, filter); err != nil {
		return err
	}

	for _, row := range rows {
		if !row.FormattedImageID.Valid {
			continue
		}

		err = s.RemoveImage(ctx, row.FormattedImageID.Int64)
		if err != nil && !errors.Is(err, ErrImageNotFound) {
			return err
		}
	}

	return nil
}

func (s *Storage) ChangeImageName(ctx context.Context, id int64, options GenerateOptions) error {
	row, dir, err := s.imageFile(ctx, id)
	if err != nil {
		return err
	}

	oldPath := dir.absolutePath(row.Filepath)

	blob, err := readFile(oldPath)
	if err != nil {
		return err
	}

	if len(options.Extension) == 0 {
		options.Extension = strings.TrimPrefix(path.Ext(row.Filepath), ".")
	}

	filePath, err := s.generateLockWrite(
		ctx, dir, options, writeBlob(blob),
		func(ctx context.Context, filePath string) error {
			updated := row
			updated.Filepath = filePath

			return s.store.UpdateImage(ctx, updated)
		},
	)
	if err != nil {
		return err
	}

	if err = os.Remove(oldPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: remove `%s`: %w", ErrIO, oldPath, err)
		}

		logrus.Warnf("file `%s` of image %d is already missing", oldPath, id)
	}

	logrus.Infof("image %d renamed from `%s` to `%s`", id, row.Filepath, filePath)

	return nil
}

// Flop mirrors the image horizontally in place.
func (s *Storage) Flop(ctx context.Context, id int64) error {
	return s.transform(ctx, id, func(img codec.Image) error {
		return img.Flop()
	})
}

// Normalize stretches the image contrast in place.
func (s *Storage) Normalize(ctx context.Context, id int64) error {
	return s.transform(ctx, id, func(img codec.Image) error {
		return img.Normalize()
	})
}

func (s *Storage) transform(ctx context.Context, id int64, operation func(img codec.Image) error) error {
	row, dir, err := s.imageFile(ctx, id)
	if err != nil {
		return err
	}

	absolutePath := dir.absolutePath(row.Filepath)

	blob, err := readFile(absolutePath)
	if err != nil {
		return err
	}

	img, err := s.codec.Decode(blob)
	if err != nil {
		return fmt.Errorf("decode image %d: %w", id, err)
	}
	defer img.Close()

	if err = operation(img); err != nil {
		return err
	}

	out, err := img.Encode()
	if err != nil {
		return fmt.Errorf("encode image %d: %w", id, err)
	}

	if err = s.replaceFile(absolutePath, out); err != nil {
		return err
	}

	updated := row
	updated.Filesize = int64(len(out))
	updated.Width = img.Width()
	updated.Height = img.Height()

	if err = s.store.UpdateImage(ctx, updated); err != nil {
		if restoreErr := s.replaceFile(absolutePath, blob); restoreErr != nil {
			return errors.Join(err, restoreErr)
		}

		return err
	}

	return s.Flush(ctx, FlushOptions{ImageID: id})
}

// replaceFile swaps the file contents atomically so readers see either the old or the new blob.
func (s *Storage) replaceFile(absolutePath string, blob []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(absolutePath), "."+filepath.Base(absolutePath)+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp file for `%s`: %w", ErrIO, absolutePath, err)
	}

	tmpPath := tmp.Name()

	_, err = tmp.Write(blob)
	if err == nil {
		err = tmp.Chmod(s.fileMode)
	}

	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Rename(tmpPath, absolutePath)
	}

	if err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("%w: replace `%s`: %w", ErrIO, absolutePath, err)
	}

	return nil
}
