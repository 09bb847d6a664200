// Package codec declares the pixel-level collaborator used by the sampler and the storage.
// Implementations decide how pixels are stored; callers decide which operations run and with what geometry.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedCodec = errors.New("unsupported codec")

const (
	JPEG = "jpeg"
	PNG  = "png"
	GIF  = "gif"
	BMP  = "bmp"
)

// TransparentBackground is the background used when a format does not set one.
const TransparentBackground = "transparent"

var codecAliases = map[string]string{
	"jpg":  JPEG,
	"jpeg": JPEG,
	"png":  PNG,
	"gif":  GIF,
	"bmp":  BMP,
}

var codecExtensions = map[string]string{
	JPEG: "jpg",
	PNG:  "png",
	GIF:  "gif",
	BMP:  "bmp",
}

// Canonical maps a codec name or alias to its canonical name.
func Canonical(name string) (string, error) {
	value, ok := codecAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: `%s`", ErrUnsupportedCodec, name)
	}

	return value, nil
}

// FileExtension returns the file extension used for files of the given codec.
func FileExtension(name string) (string, error) {
	canonical, err := Canonical(name)
	if err != nil {
		return "", err
	}

	return codecExtensions[canonical], nil
}

// RGB is a color with channels in [0, 1].
type RGB struct {
	Red   float64
	Green float64
	Blue  float64
}

type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

type Config struct {
	Width  int
	Height int
	Codec  string
}

// Image is a decoded, mutable image. Multi-frame images apply every operation to all frames.
type Image interface {
	Width() int
	Height() int
	Codec() string
	Frames() int

	Scale(width, height int) error
	Crop(width, height, left, top int) error
	// ExtendCanvas grows the canvas to width x height, placing the current pixels at (left, top)
	// and filling the rest with the background color.
	ExtendCanvas(width, height, left, top int) error
	SetBackground(color string) error
	DrawFilledRect(color RGB, rect Rect) error
	SamplePixelRegion(rect Rect) ([]RGB, error)
	SetQuality(quality int) error
	StripMetadata() error
	SetOutputCodec(name string) error
	Flop() error
	Normalize() error

	Encode() ([]byte, error)
	Close()
}

type Codec interface {
	Decode(blob []byte) (Image, error)
	DecodeConfig(blob []byte) (Config, error)
}
