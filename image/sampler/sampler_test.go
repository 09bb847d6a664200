package sampler

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"github.com/autowp/goimagestorage/config"
	"github.com/autowp/goimagestorage/image/codec"
	"github.com/autowp/goimagestorage/image/codec/native"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.NRGBA{R: 0xff, A: 0xff}
	blue = color.NRGBA{B: 0xff, A: 0xff}
)

func fill(img *image.NRGBA, rect image.Rectangle, c color.Color) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// picture creates a width x height image with a gradient, so no edge is flat.
func picture(t *testing.T, width, height int) *native.Image {
	t.Helper()

	src := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := range height {
		for x := range width {
			src.Set(x, y, color.NRGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: 0x80, A: 0xff})
		}
	}

	img, err := native.NewImage(src, codec.JPEG)
	require.NoError(t, err)

	return img
}

// towers mimics the dimensions of the reference photo used across these tests.
func towers(t *testing.T) *native.Image {
	t.Helper()

	return picture(t, 101, 149)
}

func mustFormat(t *testing.T, cfg config.ImageStorageSamplerFormatConfig) *Format {
	t.Helper()

	format, err := NewFormat(cfg)
	require.NoError(t, err)

	return format
}

func TestShouldResizeOddWidthPictureStrictlyToTargetWidthByOuterFitType(t *testing.T) {
	t.Parallel()

	img := towers(t)

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		FitType:    config.FitTypeOuter,
		Width:      102,
		Height:     149,
		Background: "red",
	})
	err := NewSampler().ConvertImage(img, format)
	require.NoError(t, err)
	require.Equal(t, 102, img.Width())
	require.Equal(t, 149, img.Height())
}

func TestShouldResizeOddHeightPictureStrictlyToTargetHeightByOuterFitType(t *testing.T) {
	t.Parallel()

	img := towers(t)

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		FitType:    config.FitTypeOuter,
		Width:      101,
		Height:     150,
		Background: "red",
	})
	err := NewSampler().ConvertImage(img, format)
	require.NoError(t, err)
	require.Equal(t, 101, img.Width())
	require.Equal(t, 150, img.Height())
}

func TestReduceOnlyWorks(t *testing.T) { //nolint:maintidx
	t.Parallel()

	sampler := NewSampler()

	tests := []struct {
		formatConfig config.ImageStorageSamplerFormatConfig
		width        int
		height       int
	}{
		// both size less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeInner, Width: 150, Height: 200, ReduceOnly: true}, 101, 149},
		// height less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeInner, Width: 50, Height: 200, ReduceOnly: true}, 50, 74},
		// not less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeInner, Width: 50, Height: 100, ReduceOnly: true}, 50, 100},
		// both size less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeInner, Width: 150, Height: 200}, 150, 200},
		// width less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeInner, Width: 150, Height: 100}, 150, 100},
		// height less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeInner, Width: 50, Height: 200}, 50, 200},
		// not less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeInner, Width: 50, Height: 100}, 50, 100},
		// FitTypeOuter
		// both size less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeOuter, Width: 150, Height: 200, ReduceOnly: true}, 150, 200},
		// width less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeOuter, Width: 150, Height: 100, ReduceOnly: true}, 150, 100},
		// height less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeOuter, Width: 50, Height: 200, ReduceOnly: true}, 50, 200},
		// not less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeOuter, Width: 50, Height: 100, ReduceOnly: true}, 50, 100},
		// both size less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeOuter, Width: 150, Height: 200}, 150, 200},
		// width less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeOuter, Width: 150, Height: 100}, 150, 100},
		// height less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeOuter, Width: 50, Height: 200}, 50, 200},
		// not less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeOuter, Width: 50, Height: 100}, 50, 100},
		// FitTypeMaximum
		// both size less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeMaximum, Width: 150, Height: 200, ReduceOnly: true}, 101, 149},
		// width less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeMaximum, Width: 150, Height: 100, ReduceOnly: true}, 68, 100},
		// height less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeMaximum, Width: 50, Height: 200, ReduceOnly: true}, 50, 74},
		// not less
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeMaximum, Width: 50, Height: 100, ReduceOnly: true}, 50, 74},
		// both size less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeMaximum, Width: 150, Height: 200}, 136, 200},
		// width less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeMaximum, Width: 150, Height: 100}, 68, 100},
		// height less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeMaximum, Width: 50, Height: 200}, 50, 74},
		// not less, reduceOnly off
		{config.ImageStorageSamplerFormatConfig{FitType: config.FitTypeMaximum, Width: 50, Height: 100}, 50, 74},
		// by width
		{config.ImageStorageSamplerFormatConfig{Width: 150, ReduceOnly: true}, 101, 149},
		{config.ImageStorageSamplerFormatConfig{Width: 50, ReduceOnly: true}, 50, 74},
		{config.ImageStorageSamplerFormatConfig{Width: 150}, 150, 221},
		{config.ImageStorageSamplerFormatConfig{Width: 50}, 50, 74},
		// by height
		{config.ImageStorageSamplerFormatConfig{Height: 200, ReduceOnly: true}, 101, 149},
		{config.ImageStorageSamplerFormatConfig{Height: 100, ReduceOnly: true}, 68, 100},
		{config.ImageStorageSamplerFormatConfig{Height: 200}, 136, 200},
		{config.ImageStorageSamplerFormatConfig{Height: 100}, 68, 100},
	}

	for _, tt := range tests {
		img := towers(t)

		format := mustFormat(t, tt.formatConfig)
		err := sampler.ConvertImage(img, format)
		require.NoError(t, err)
		require.Equal(t, tt.width, img.Width(), "%+v", tt.formatConfig)
		require.Equal(t, tt.height, img.Height(), "%+v", tt.formatConfig)
		img.Close()
	}
}

func TestInnerAndOuterFitProduceExactTargetSize(t *testing.T) {
	t.Parallel()

	sampler := NewSampler()
	sizes := [][2]int{{1, 1}, {17, 300}, {300, 17}, {100, 100}, {640, 480}, {99, 150}}

	for _, fitType := range []config.FitType{config.FitTypeInner, config.FitTypeOuter} {
		for _, size := range sizes {
			img := towers(t)

			format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
				FitType: fitType,
				Width:   size[0],
				Height:  size[1],
			})
			require.NoError(t, sampler.ConvertImage(img, format))
			require.Equal(t, size[0], img.Width())
			require.Equal(t, size[1], img.Height())
			img.Close()
		}
	}
}

func TestMaximumFitStaysInsideBox(t *testing.T) {
	t.Parallel()

	sampler := NewSampler()
	sizes := [][2]int{{17, 300}, {300, 17}, {100, 100}, {640, 480}, {99, 150}, {50, 50}}

	for _, size := range sizes {
		img := towers(t)

		format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
			FitType: config.FitTypeMaximum,
			Width:   size[0],
			Height:  size[1],
		})
		require.NoError(t, sampler.ConvertImage(img, format))
		require.LessOrEqual(t, img.Width(), size[0])
		require.LessOrEqual(t, img.Height(), size[1])
		require.True(t, img.Width() == size[0] || img.Height() == size[1], "%v -> %dx%d", size, img.Width(), img.Height())
		img.Close()
	}
}

func TestAnimationPreservedDueResample(t *testing.T) {
	t.Parallel()

	pal := color.Palette{color.Black, color.White}
	frames := make([]*image.Paletted, 0, 3)

	for i := range 3 {
		frame := image.NewPaletted(image.Rect(0, 0, 40, 20), pal)
		frame.SetColorIndex(i, i, 1)
		frames = append(frames, frame)
	}

	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, &gif.GIF{Image: frames, Delay: []int{5, 5, 5}}))

	img, err := native.NewCodec().Decode(buf.Bytes())
	require.NoError(t, err)

	defer img.Close()

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		FitType:    config.FitTypeInner,
		Width:      80,
		Height:     80,
		Background: "transparent",
	})
	require.NoError(t, NewSampler().ConvertImage(img, format))

	require.Equal(t, 3, img.Frames())
	require.Equal(t, 80, img.Width())
	require.Equal(t, 80, img.Height())

	blob, err := img.Encode()
	require.NoError(t, err)

	decoded, err := gif.DecodeAll(bytes.NewReader(blob))
	require.NoError(t, err)
	require.Len(t, decoded.Image, 3)
}

func TestWidest(t *testing.T) {
	t.Parallel()

	img := picture(t, 1000, 229)

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		Widest: 4.0 / 3.0,
	})
	require.NoError(t, NewSampler().ConvertImage(img, format))
	require.Equal(t, 305, img.Width())
	require.Equal(t, 229, img.Height())
}

func TestHighest(t *testing.T) {
	t.Parallel()

	img := towers(t)

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		Highest: 1.0,
	})
	require.NoError(t, NewSampler().ConvertImage(img, format))
	require.Equal(t, 101, img.Width())
	require.Equal(t, 101, img.Height())
}

func TestCropIsApplied(t *testing.T) {
	t.Parallel()

	img := towers(t)

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		Crop: &config.ImageStorageCropConfig{Left: 10, Top: 20, Width: 50, Height: 60},
	})
	require.NoError(t, NewSampler().ConvertImage(img, format))
	require.Equal(t, 50, img.Width())
	require.Equal(t, 60, img.Height())
}

func TestIgnoreCrop(t *testing.T) {
	t.Parallel()

	img := towers(t)

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		Crop:       &config.ImageStorageCropConfig{Left: 10, Top: 20, Width: 50, Height: 60},
		IgnoreCrop: true,
	})
	require.NoError(t, NewSampler().ConvertImage(img, format))
	require.Equal(t, 101, img.Width())
	require.Equal(t, 149, img.Height())
}

func TestCropOutOfBoundsDoesNotMutate(t *testing.T) {
	t.Parallel()

	tests := []Crop{
		{Left: 60, Top: 0, Width: 42, Height: 10},
		{Left: 0, Top: 100, Width: 10, Height: 50},
		{Left: 101, Top: 0, Width: 1, Height: 1},
	}

	base := mustFormat(t, config.ImageStorageSamplerFormatConfig{Width: 50, Quality: 80})

	for _, crop := range tests {
		img := towers(t)

		err := NewSampler().ConvertImage(img, base.WithCrop(&crop))
		require.ErrorIs(t, err, ErrCropOutOfBounds)
		require.Equal(t, 101, img.Width())
		require.Equal(t, 149, img.Height())
	}
}

func TestProportionalCropGrowsCentered(t *testing.T) {
	t.Parallel()

	require.Equal(t, 30, centerGrow(50, 40, 80, 200))
	require.Equal(t, 120, centerGrow(180, 40, 80, 200))
	require.Equal(t, 0, centerGrow(5, 40, 80, 200))

	img := picture(t, 200, 100)

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		FitType:          config.FitTypeInner,
		Width:            80,
		Height:           40,
		ProportionalCrop: true,
		Crop:             &config.ImageStorageCropConfig{Left: 50, Top: 25, Width: 40, Height: 40},
	})
	require.NoError(t, NewSampler().ConvertImage(img, format))
	require.Equal(t, 80, img.Width())
	require.Equal(t, 40, img.Height())

	// the grown crop starts at x=30: the red gradient of the first column proves it
	first := img.Frame(0).NRGBAAt(0, 20)
	require.InDelta(t, 30*255/200, int(first.R), 2)
}

func TestVerticalProportional(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	fill(src, image.Rect(0, 0, 100, 25), red)
	fill(src, image.Rect(0, 25, 100, 50), blue)

	img, err := native.NewImage(src, codec.PNG)
	require.NoError(t, err)

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		FitType:          config.FitTypeInner,
		Width:            100,
		Height:           100,
		ProportionalCrop: true,
	})
	require.NoError(t, NewSampler().ConvertImage(img, format))

	require.Equal(t, 100, img.Width())
	require.Equal(t, 100, img.Height())

	frame := img.Frame(0)
	require.Equal(t, red, frame.NRGBAAt(50, 5))
	require.Equal(t, blue, frame.NRGBAAt(50, 95))
}

func TestHorizontalProportional(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 50, 100))
	fill(src, src.Rect, red)

	// striped right edge is not flat
	for y := range 100 {
		if y%2 == 0 {
			src.Set(49, y, color.White)
		} else {
			src.Set(49, y, color.Black)
		}
	}

	img, err := native.NewImage(src, codec.PNG)
	require.NoError(t, err)

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		FitType:          config.FitTypeInner,
		Width:            100,
		Height:           100,
		ProportionalCrop: true,
	})
	require.NoError(t, NewSampler().ConvertImage(img, format))

	require.Equal(t, 100, img.Width())
	require.Equal(t, 100, img.Height())

	// all padding went to the left
	frame := img.Frame(0)
	require.Equal(t, red, frame.NRGBAAt(10, 50))
	require.Equal(t, red, frame.NRGBAAt(60, 50))
}

func TestEdgeColorRejectsNonUniformEdges(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	fill(src, src.Rect, blue)
	src.Set(0, 0, color.White)

	img, err := native.NewImage(src, codec.PNG)
	require.NoError(t, err)

	s := NewSampler()

	top, err := s.edgeColor(img, codec.Rect{Width: 4, Height: 1})
	require.NoError(t, err)
	require.Nil(t, top)

	bottom, err := s.edgeColor(img, codec.Rect{Top: 1, Width: 4, Height: 1})
	require.NoError(t, err)
	require.NotNil(t, bottom)
	require.Equal(t, codec.RGB{Blue: 1}, *bottom)
}

func TestOutputCodecAndStrip(t *testing.T) {
	t.Parallel()

	img := towers(t)

	format := mustFormat(t, config.ImageStorageSamplerFormatConfig{
		Width:   70,
		Height:  70,
		Format:  "png",
		Strip:   true,
		Quality: 90,
	})
	require.NoError(t, NewSampler().ConvertImage(img, format))
	require.Equal(t, codec.PNG, img.Codec())
	require.Equal(t, 70, img.Width())
	require.Equal(t, 70, img.Height())
}

func TestUnknownFitTypeIsRejected(t *testing.T) {
	t.Parallel()

	img := towers(t)

	err := NewSampler().ConvertImage(img, &Format{fitType: 7, width: 10, height: 10})
	require.ErrorIs(t, err, ErrUnknownFitType)
}
