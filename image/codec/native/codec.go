// Package native implements codec.Codec on top of the standard image decoders and golang.org/x/image.
package native

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg" // register JPEG decoding.
	_ "image/png"  // register PNG decoding.

	"github.com/autowp/goimagestorage/image/codec"
	_ "golang.org/x/image/bmp" // register BMP decoding.
	"golang.org/x/image/draw"
)

var errEmptyAnimation = errors.New("gif has no frames")

type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) DecodeConfig(blob []byte) (codec.Config, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return codec.Config{}, fmt.Errorf("%w: %w", codec.ErrUnsupportedCodec, err)
		}

		return codec.Config{}, err
	}

	name, err := codec.Canonical(format)
	if err != nil {
		return codec.Config{}, err
	}

	return codec.Config{Width: cfg.Width, Height: cfg.Height, Codec: name}, nil
}

func (c *Codec) Decode(blob []byte) (codec.Image, error) {
	cfg, err := c.DecodeConfig(blob)
	if err != nil {
		return nil, err
	}

	if cfg.Codec == codec.GIF {
		return decodeGIF(blob)
	}

	src, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}

	return newImage([]*image.NRGBA{toNRGBA(src)}, cfg.Codec), nil
}

// decodeGIF coalesces every frame onto a full canvas so per-frame operations see complete pictures.
func decodeGIF(blob []byte) (*Image, error) {
	g, err := gif.DecodeAll(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}

	if len(g.Image) == 0 {
		return nil, errEmptyAnimation
	}

	width, height := g.Config.Width, g.Config.Height
	if width <= 0 || height <= 0 {
		bounds := g.Image[0].Bounds()
		width, height = bounds.Max.X, bounds.Max.Y
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	frames := make([]*image.NRGBA, 0, len(g.Image))

	for i, frame := range g.Image {
		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var previous *image.NRGBA
		if disposal == gif.DisposalPrevious {
			previous = cloneNRGBA(canvas)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		frames = append(frames, cloneNRGBA(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	img := newImage(frames, codec.GIF)
	img.delays = append([]int(nil), g.Delay...)
	img.loopCount = g.LoopCount

	return img, nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	return dst
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, src.Pix)

	return dst
}
