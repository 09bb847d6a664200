package sampler

import (
	"errors"

	"github.com/autowp/goimagestorage/config"
)

var (
	ErrValidation         = config.ErrValidation
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrCropOutOfBounds    = errors.New("crop out of bounds")
	ErrUnknownFitType     = errors.New("unknown fit type")
	errMissingCropOptions = errors.New("crop parameters not properly set")
)
