package sampler

import (
	"fmt"

	"github.com/autowp/goimagestorage/config"
)

type Crop struct {
	Left   int
	Top    int
	Width  int
	Height int
}

func (c Crop) IsEmpty() bool {
	return c.Width <= 0 || c.Height <= 0
}

// Validate checks the rect on its own; bounds against an image are checked when the crop is applied.
func (c Crop) Validate() error {
	if c.Left < 0 || c.Top < 0 || c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf(
			"%w: crop %dx%d+%d+%d", ErrValidation, c.Width, c.Height, c.Left, c.Top,
		)
	}

	return nil
}

// Suffix is appended to derivative file names so every crop gets its own file.
func (c Crop) Suffix() string {
	if c.IsEmpty() {
		return ""
	}

	return fmt.Sprintf("_%04x%04x%04x%04x", c.Left, c.Top, c.Width, c.Height)
}

func (c Crop) inside(width, height int) error {
	switch {
	case c.Left < 0 || c.Left >= width:
		return fmt.Errorf("%w: left %d ~ '%d x %d'", ErrCropOutOfBounds, c.Left, width, height)
	case c.Top < 0 || c.Top >= height:
		return fmt.Errorf("%w: top %d ~ '%d x %d'", ErrCropOutOfBounds, c.Top, width, height)
	case c.Width <= 0 || c.Left+c.Width > width:
		return fmt.Errorf(
			"%w: width '%d + %d' ~ '%d x %d'", ErrCropOutOfBounds, c.Left, c.Width, width, height,
		)
	case c.Height <= 0 || c.Top+c.Height > height:
		return fmt.Errorf(
			"%w: height '%d + %d' ~ '%d x %d'", ErrCropOutOfBounds, c.Top, c.Height, width, height,
		)
	}

	return nil
}

func cropFromConfig(cfg *config.ImageStorageCropConfig) *Crop {
	if cfg == nil {
		return nil
	}

	return &Crop{
		Left:   cfg.Left,
		Top:    cfg.Top,
		Width:  cfg.Width,
		Height: cfg.Height,
	}
}
