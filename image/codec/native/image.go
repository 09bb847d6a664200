package native

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/autowp/goimagestorage/image/codec"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const maxChannel = 0xff

var (
	errInvalidGeometry = errors.New("invalid geometry")
	errClosed          = errors.New("image is closed")
)

var gifPalette = append(color.Palette{color.Transparent}, palette.WebSafe...)

// Image keeps every frame as a full NRGBA canvas of the same size.
type Image struct {
	frames     []*image.NRGBA
	delays     []int
	loopCount  int
	codec      string
	quality    int
	background color.NRGBA
}

func newImage(frames []*image.NRGBA, name string) *Image {
	return &Image{
		frames: frames,
		codec:  name,
	}
}

// NewImage wraps an in-memory picture, mostly useful for tests and generated content.
func NewImage(src image.Image, name string) (*Image, error) {
	canonical, err := codec.Canonical(name)
	if err != nil {
		return nil, err
	}

	return newImage([]*image.NRGBA{toNRGBA(src)}, canonical), nil
}

func (i *Image) Width() int {
	if len(i.frames) == 0 {
		return 0
	}

	return i.frames[0].Rect.Dx()
}

func (i *Image) Height() int {
	if len(i.frames) == 0 {
		return 0
	}

	return i.frames[0].Rect.Dy()
}

func (i *Image) Codec() string {
	return i.codec
}

func (i *Image) Frames() int {
	return len(i.frames)
}

// Frame returns a frame for inspection.
func (i *Image) Frame(index int) *image.NRGBA {
	return i.frames[index]
}

func (i *Image) each(fn func(frame *image.NRGBA) (*image.NRGBA, error)) error {
	if len(i.frames) == 0 {
		return errClosed
	}

	for idx, frame := range i.frames {
		result, err := fn(frame)
		if err != nil {
			return err
		}

		i.frames[idx] = result
	}

	return nil
}

func (i *Image) Scale(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: scale to %d x %d", errInvalidGeometry, width, height)
	}

	if width == i.Width() && height == i.Height() {
		return nil
	}

	return i.each(func(frame *image.NRGBA) (*image.NRGBA, error) {
		dst := image.NewNRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Rect, frame, frame.Rect, draw.Src, nil)

		return dst, nil
	})
}

func (i *Image) Crop(width, height, left, top int) error {
	if width <= 0 || height <= 0 || left < 0 || top < 0 ||
		left+width > i.Width() || top+height > i.Height() {
		return fmt.Errorf(
			"%w: crop %d x %d at %d,%d from %d x %d",
			errInvalidGeometry, width, height, left, top, i.Width(), i.Height(),
		)
	}

	return i.each(func(frame *image.NRGBA) (*image.NRGBA, error) {
		dst := image.NewNRGBA(image.Rect(0, 0, width, height))
		draw.Draw(dst, dst.Rect, frame, image.Pt(left, top), draw.Src)

		return dst, nil
	})
}

func (i *Image) ExtendCanvas(width, height, left, top int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: extend to %d x %d", errInvalidGeometry, width, height)
	}

	background := image.NewUniform(i.background)

	return i.each(func(frame *image.NRGBA) (*image.NRGBA, error) {
		dst := image.NewNRGBA(image.Rect(0, 0, width, height))
		draw.Draw(dst, dst.Rect, background, image.Point{}, draw.Src)

		target := image.Rect(left, top, left+frame.Rect.Dx(), top+frame.Rect.Dy())
		draw.Draw(dst, target, frame, frame.Rect.Min, draw.Src)

		return dst, nil
	})
}

func (i *Image) SetBackground(value string) error {
	c, err := codec.ParseColor(value)
	if err != nil {
		return err
	}

	i.background = c

	return nil
}

func (i *Image) DrawFilledRect(c codec.RGB, rect codec.Rect) error {
	fill := image.NewUniform(color.NRGBA{
		R: channel(c.Red),
		G: channel(c.Green),
		B: channel(c.Blue),
		A: maxChannel,
	})
	area := image.Rect(rect.Left, rect.Top, rect.Left+rect.Width, rect.Top+rect.Height)

	return i.each(func(frame *image.NRGBA) (*image.NRGBA, error) {
		draw.Draw(frame, area.Intersect(frame.Rect), fill, image.Point{}, draw.Src)

		return frame, nil
	})
}

func (i *Image) SamplePixelRegion(rect codec.Rect) ([]codec.RGB, error) {
	if len(i.frames) == 0 {
		return nil, errClosed
	}

	frame := i.frames[0]
	area := image.Rect(rect.Left, rect.Top, rect.Left+rect.Width, rect.Top+rect.Height).Intersect(frame.Rect)
	result := make([]codec.RGB, 0, area.Dx()*area.Dy())

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			pixel := frame.NRGBAAt(x, y)
			result = append(result, codec.RGB{
				Red:   float64(pixel.R) / maxChannel,
				Green: float64(pixel.G) / maxChannel,
				Blue:  float64(pixel.B) / maxChannel,
			})
		}
	}

	return result, nil
}

func (i *Image) SetQuality(quality int) error {
	if quality < 0 || quality > 100 {
		return fmt.Errorf("%w: quality %d", errInvalidGeometry, quality)
	}

	i.quality = quality

	return nil
}

// StripMetadata is a no-op: the encoders used here never emit metadata chunks.
func (i *Image) StripMetadata() error {
	return nil
}

func (i *Image) SetOutputCodec(name string) error {
	canonical, err := codec.Canonical(name)
	if err != nil {
		return err
	}

	i.codec = canonical

	return nil
}

func (i *Image) Flop() error {
	return i.each(func(frame *image.NRGBA) (*image.NRGBA, error) {
		width := frame.Rect.Dx()

		for y := range frame.Rect.Dy() {
			row := frame.Pix[y*frame.Stride : y*frame.Stride+width*4]
			for left, right := 0, width-1; left < right; left, right = left+1, right-1 {
				for c := range 4 {
					row[left*4+c], row[right*4+c] = row[right*4+c], row[left*4+c]
				}
			}
		}

		return frame, nil
	})
}

// Normalize stretches each color channel linearly to the full range.
func (i *Image) Normalize() error {
	return i.each(func(frame *image.NRGBA) (*image.NRGBA, error) {
		var low, high [3]uint8

		for c := range 3 {
			low[c] = maxChannel
		}

		for p := 0; p < len(frame.Pix); p += 4 {
			for c := range 3 {
				low[c] = min(low[c], frame.Pix[p+c])
				high[c] = max(high[c], frame.Pix[p+c])
			}
		}

		for p := 0; p < len(frame.Pix); p += 4 {
			for c := range 3 {
				if high[c] <= low[c] {
					continue
				}

				value := float64(frame.Pix[p+c]-low[c]) * maxChannel / float64(high[c]-low[c])
				frame.Pix[p+c] = uint8(value + 0.5)
			}
		}

		return frame, nil
	})
}

func (i *Image) Encode() ([]byte, error) {
	if len(i.frames) == 0 {
		return nil, errClosed
	}

	var (
		buf bytes.Buffer
		err error
	)

	switch i.codec {
	case codec.JPEG:
		quality := i.quality
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}

		err = jpeg.Encode(&buf, i.frames[0], &jpeg.Options{Quality: quality})
	case codec.PNG:
		err = png.Encode(&buf, i.frames[0])
	case codec.BMP:
		err = bmp.Encode(&buf, i.frames[0])
	case codec.GIF:
		err = gif.EncodeAll(&buf, i.gif())
	default:
		err = fmt.Errorf("%w: `%s`", codec.ErrUnsupportedCodec, i.codec)
	}

	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (i *Image) gif() *gif.GIF {
	result := &gif.GIF{
		Image:     make([]*image.Paletted, 0, len(i.frames)),
		Delay:     make([]int, 0, len(i.frames)),
		LoopCount: i.loopCount,
	}

	for idx, frame := range i.frames {
		paletted := image.NewPaletted(frame.Rect, gifPalette)
		draw.FloydSteinberg.Draw(paletted, frame.Rect, frame, image.Point{})
		result.Image = append(result.Image, paletted)

		delay := 0
		if idx < len(i.delays) {
			delay = i.delays[idx]
		}

		result.Delay = append(result.Delay, delay)
	}

	return result
}

func (i *Image) Close() {
	i.frames = nil
}

func channel(value float64) uint8 {
	return uint8(min(max(value, 0), 1)*maxChannel + 0.5)
}
