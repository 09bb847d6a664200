package storage

import (
	"errors"
	"fmt"

	"github.com/autowp/goimagestorage/image/sampler"
)

var (
	ErrValidation = sampler.ErrValidation

	ErrNotFound       = errors.New("not found")
	ErrImageNotFound  = fmt.Errorf("image %w", ErrNotFound)
	ErrFormatNotFound = fmt.Errorf("format %w", ErrNotFound)
	ErrDirNotFound    = fmt.Errorf("dir %w", ErrNotFound)
	ErrSourceNotFound = fmt.Errorf("source image %w", ErrNotFound)
	ErrFileNotFound   = fmt.Errorf("file %w", ErrNotFound)

	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrUnknownStrategy      = errors.New("unknown naming strategy")
	ErrAllocationExhausted  = errors.New("allocation attempts exhausted")
	ErrIO                   = errors.New("i/o error")
	ErrStoreConflict        = errors.New("store conflict")
	ErrDirAlreadyRegistered = errors.New("dir already registered")

	errFileNotEmpty = errors.New("file is not empty")
)
