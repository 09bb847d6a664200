package storage

import (
	"context"

	"github.com/autowp/goimagestorage/image/sampler"
	"github.com/autowp/goimagestorage/schema"
)

// FormattedImageFilter selects associations. Zero fields match everything.
type FormattedImageFilter struct {
	ImageIDs         []int64
	Format           string
	FormattedImageID int64
}

// MetadataStore persists image rows, derivative associations and per-dir counters.
// Inserts and updates that violate a uniqueness constraint return ErrStoreConflict.
type MetadataStore interface {
	// Image returns ErrImageNotFound for an unknown id.
	Image(ctx context.Context, id int64) (schema.ImageRow, error)
	Images(ctx context.Context, ids []int64) ([]schema.ImageRow, error)
	ImageFilepaths(ctx context.Context, dir string) ([]string, error)
	InsertImage(ctx context.Context, row schema.ImageRow) (int64, error)
	// UpdateImage stores filepath, filesize, width and height of row.ID.
	UpdateImage(ctx context.Context, row schema.ImageRow) error
	DeleteImage(ctx context.Context, id int64) (bool, error)

	FormattedImages(ctx context.Context, filter FormattedImageFilter) ([]schema.FormattedImageRow, error)
	// UpsertFormattedImage replaces the association with the same key.
	UpsertFormattedImage(ctx context.Context, row schema.FormattedImageRow) error
	DeleteFormattedImages(ctx context.Context, filter FormattedImageFilter) (int64, error)

	DirCounter(ctx context.Context, dir string) (int64, error)
	// IncDirCounter increments atomically, creating the counter when absent.
	IncDirCounter(ctx context.Context, dir string) error
}

func formattedImageRow(key requestKey, format string) schema.FormattedImageRow {
	return schema.FormattedImageRow{
		ImageID:    key.imageID,
		Format:     format,
		CropLeft:   key.crop.Left,
		CropTop:    key.crop.Top,
		CropWidth:  key.crop.Width,
		CropHeight: key.crop.Height,
	}
}

func formattedImageKey(row schema.FormattedImageRow) requestKey {
	return requestKey{
		imageID: row.ImageID,
		crop: sampler.Crop{
			Left:   row.CropLeft,
			Top:    row.CropTop,
			Width:  row.CropWidth,
			Height: row.CropHeight,
		},
	}
}
