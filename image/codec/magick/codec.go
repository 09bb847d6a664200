// Package magick implements codec.Codec with ImageMagick.
// imagick.Initialize must be called by the host process before decoding.
package magick

import (
	"errors"
	"fmt"
	"strings"

	"github.com/autowp/goimagestorage/image/codec"
	"gopkg.in/gographics/imagick.v3/imagick"
)

var (
	errInvalidColor    = errors.New("invalid color")
	errInvalidGeometry = errors.New("invalid geometry")
)

type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) DecodeConfig(blob []byte) (codec.Config, error) {
	mw := imagick.NewMagickWand()
	defer mw.Destroy()

	if err := mw.PingImageBlob(blob); err != nil {
		return codec.Config{}, fmt.Errorf("%w: %w", codec.ErrUnsupportedCodec, err)
	}

	name, err := codec.Canonical(mw.GetImageFormat())
	if err != nil {
		return codec.Config{}, err
	}

	return codec.Config{
		Width:  int(mw.GetImageWidth()),  //nolint: gosec
		Height: int(mw.GetImageHeight()), //nolint: gosec
		Codec:  name,
	}, nil
}

func (c *Codec) Decode(blob []byte) (codec.Image, error) {
	mw := imagick.NewMagickWand()

	if err := mw.ReadImageBlob(blob); err != nil {
		mw.Destroy()

		return nil, err
	}

	if strings.EqualFold(mw.GetImageFormat(), "GIF") {
		coalesced := mw.CoalesceImages()
		mw.Destroy()
		mw = coalesced
	}

	return &Image{mw: mw}, nil
}

// Image wraps a MagickWand; every operation is applied to all frames.
type Image struct {
	mw *imagick.MagickWand
}

func (i *Image) Width() int {
	return int(i.mw.GetImageWidth()) //nolint: gosec
}

func (i *Image) Height() int {
	return int(i.mw.GetImageHeight()) //nolint: gosec
}

func (i *Image) Codec() string {
	name, err := codec.Canonical(i.mw.GetImageFormat())
	if err != nil {
		return strings.ToLower(i.mw.GetImageFormat())
	}

	return name
}

func (i *Image) Frames() int {
	return int(i.mw.GetNumberImages()) //nolint: gosec
}

func (i *Image) each(fn func() error) error {
	i.mw.ResetIterator()

	for i.mw.NextImage() {
		if err := fn(); err != nil {
			return err
		}
	}

	i.mw.ResetIterator()

	return nil
}

func (i *Image) Scale(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: scale to %d x %d", errInvalidGeometry, width, height)
	}

	return i.each(func() error {
		return i.mw.ScaleImage(uint(width), uint(height)) //nolint:gosec
	})
}

func (i *Image) Crop(width, height, left, top int) error {
	if width <= 0 || height <= 0 || left < 0 || top < 0 {
		return fmt.Errorf("%w: crop %d x %d at %d,%d", errInvalidGeometry, width, height, left, top)
	}

	return i.each(func() error {
		if err := i.mw.SetImagePage(0, 0, 0, 0); err != nil {
			return err
		}

		return i.mw.CropImage(uint(width), uint(height), left, top) //nolint:gosec
	})
}

func (i *Image) ExtendCanvas(width, height, left, top int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: extend to %d x %d", errInvalidGeometry, width, height)
	}

	return i.each(func() error {
		return i.mw.ExtentImage(uint(width), uint(height), -left, -top) //nolint:gosec
	})
}

func (i *Image) SetBackground(color string) error {
	pw := imagick.NewPixelWand()
	defer pw.Destroy()

	if !pw.SetColor(color) {
		return fmt.Errorf("%w: `%s`", errInvalidColor, color)
	}

	if err := i.mw.SetBackgroundColor(pw); err != nil {
		return err
	}

	return i.each(func() error {
		return i.mw.SetImageBackgroundColor(pw)
	})
}

func (i *Image) DrawFilledRect(color codec.RGB, rect codec.Rect) error {
	pw := imagick.NewPixelWand()
	defer pw.Destroy()

	pw.SetRed(color.Red)
	pw.SetGreen(color.Green)
	pw.SetBlue(color.Blue)

	dw := imagick.NewDrawingWand()
	defer dw.Destroy()

	dw.SetFillColor(pw)
	dw.SetStrokeColor(pw)
	dw.Rectangle(
		float64(rect.Left),
		float64(rect.Top),
		float64(rect.Left+rect.Width-1),
		float64(rect.Top+rect.Height-1),
	)

	return i.each(func() error {
		return i.mw.DrawImage(dw)
	})
}

func (i *Image) SamplePixelRegion(rect codec.Rect) ([]codec.RGB, error) {
	iterator := i.mw.NewPixelRegionIterator(rect.Left, rect.Top, uint(rect.Width), uint(rect.Height)) //nolint:gosec
	defer iterator.Destroy()

	result := make([]codec.RGB, 0, rect.Width*rect.Height)

	for {
		row := iterator.GetNextIteratorRow()
		if row == nil {
			break
		}

		for _, pixel := range row {
			result = append(result, codec.RGB{
				Red:   pixel.GetRed(),
				Green: pixel.GetGreen(),
				Blue:  pixel.GetBlue(),
			})
		}
	}

	return result, nil
}

func (i *Image) SetQuality(quality int) error {
	return i.mw.SetImageCompressionQuality(uint(quality)) //nolint:gosec
}

func (i *Image) StripMetadata() error {
	return i.each(i.mw.StripImage)
}

func (i *Image) SetOutputCodec(name string) error {
	canonical, err := codec.Canonical(name)
	if err != nil {
		return err
	}

	return i.each(func() error {
		return i.mw.SetImageFormat(strings.ToUpper(canonical))
	})
}

func (i *Image) Flop() error {
	return i.each(i.mw.FlopImage)
}

func (i *Image) Normalize() error {
	return i.each(i.mw.NormalizeImage)
}

func (i *Image) Encode() ([]byte, error) {
	if i.Codec() == codec.GIF && i.Frames() > 1 {
		optimized := i.mw.OptimizeImageLayers()
		defer optimized.Destroy()

		return optimized.GetImagesBlob(), nil
	}

	return i.mw.GetImagesBlob(), nil
}

func (i *Image) Close() {
	if i.mw != nil {
		i.mw.Destroy()
		i.mw = nil
	}
}
