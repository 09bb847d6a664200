package sampler

import (
	"fmt"
	"math"

	"github.com/autowp/goimagestorage/config"
	"github.com/autowp/goimagestorage/image/codec"
)

const (
	rationComparePrecision = 0.001
	edgeDeviationLimit     = 0.01
)

type Sampler struct{}

func NewSampler() *Sampler {
	return &Sampler{}
}

// ConvertImage transforms img in place according to format.
func (s Sampler) ConvertImage(img codec.Image, format *Format) error {
	var crop *Crop
	if !format.IsIgnoreCrop() {
		crop = format.Crop()
	}

	if crop != nil {
		if crop.IsEmpty() {
			return errMissingCropOptions
		}

		if err := crop.inside(img.Width(), img.Height()); err != nil {
			return err
		}
	}

	if quality := format.Quality(); quality > 0 {
		if err := img.SetQuality(quality); err != nil {
			return err
		}
	}

	if crop != nil {
		if err := s.cropImage(img, *crop, format); err != nil {
			return err
		}
	}

	// fit by widest
	if widest := format.Widest(); widest > 0 {
		if err := s.cropToWidest(img, widest); err != nil {
			return err
		}
	}

	// fit by highest
	if highest := format.Highest(); highest > 0 {
		if err := s.cropToHighest(img, highest); err != nil {
			return err
		}
	}

	// check for monotone background extend possibility
	fWidth := format.Width()
	fHeight := format.Height()

	if format.IsProportionalCrop() && fWidth > 0 && fHeight > 0 {
		fRatio := float64(fWidth) / float64(fHeight)
		cRatio := float64(img.Width()) / float64(img.Height())

		if math.Abs(fRatio-cRatio) > rationComparePrecision {
			var err error
			if cRatio > fRatio {
				err = s.extendVertical(img, fRatio)
			} else {
				err = s.extendHorizontal(img, fRatio)
			}

			if err != nil {
				return err
			}
		}
	}

	if err := img.SetBackground(format.Background()); err != nil {
		return err
	}

	if err := s.fit(img, format); err != nil {
		return err
	}

	if format.IsStrip() {
		if err := img.StripMetadata(); err != nil {
			return err
		}
	}

	imageFormat, err := format.FormatExtension()
	if err != nil {
		return err
	}

	if imageFormat != "" {
		return img.SetOutputCodec(imageFormat)
	}

	return nil
}

func (s Sampler) fit(img codec.Image, format *Format) error {
	fWidth := format.Width()
	fHeight := format.Height()

	switch {
	case fWidth > 0 && fHeight > 0:
		switch format.FitType() {
		case config.FitTypeInner:
			return s.convertByInnerFit(img, format)
		case config.FitTypeOuter:
			return s.convertByOuterFit(img, format)
		case config.FitTypeMaximum:
			return s.convertByMaximumFit(img, format)
		default:
			return fmt.Errorf("%w: `%v`", ErrUnknownFitType, format.FitType())
		}
	case fWidth > 0:
		return s.convertByWidth(img, format)
	case fHeight > 0:
		return s.convertByHeight(img, format)
	}

	return nil
}

func (s Sampler) cropImage(img codec.Image, crop Crop, format *Format) error {
	width := img.Width()
	height := img.Height()

	cropWidth := crop.Width
	cropHeight := crop.Height
	cropLeft := crop.Left
	cropTop := crop.Top

	fWidth := format.Width()
	fHeight := format.Height()

	if format.IsProportionalCrop() && fWidth > 0 && fHeight > 0 {
		// extend crop to format proportions
		fRatio := float64(fWidth) / float64(fHeight)
		cRatio := float64(cropWidth) / float64(cropHeight)

		if cRatio > fRatio {
			// crop wider than format, need more height
			targetHeight := min(round(float64(cropWidth)/fRatio), height)
			cropTop = centerGrow(cropTop, targetHeight-cropHeight, targetHeight, height)
			cropHeight = targetHeight
		} else {
			// crop higher than format, need more width
			targetWidth := min(round(float64(cropHeight)*fRatio), width)
			cropLeft = centerGrow(cropLeft, targetWidth-cropWidth, targetWidth, width)
			cropWidth = targetWidth
		}
	}

	return img.Crop(cropWidth, cropHeight, cropLeft, cropTop)
}

// centerGrow moves offset so that an extent grown by added stays centered and inside limit.
func centerGrow(offset, added, extent, limit int) int {
	offset -= added / 2

	if offset+extent > limit {
		offset = limit - extent
	}

	return max(offset, 0)
}

func (s Sampler) cropToWidest(img codec.Image, widestRatio float64) error {
	srcWidth := img.Width()
	srcHeight := img.Height()

	srcRatio := float64(srcWidth) / float64(srcHeight)

	if srcRatio-widestRatio > 0 {
		dstWidth := round(widestRatio * float64(srcHeight))

		return img.Crop(dstWidth, srcHeight, (srcWidth-dstWidth)/2, 0)
	}

	return nil
}

func (s Sampler) cropToHighest(img codec.Image, highestRatio float64) error {
	srcWidth := img.Width()
	srcHeight := img.Height()

	srcRatio := float64(srcWidth) / float64(srcHeight)

	if srcRatio-highestRatio < 0 {
		dstHeight := round(float64(srcWidth) / highestRatio)

		return img.Crop(srcWidth, dstHeight, 0, (srcHeight-dstHeight)/2)
	}

	return nil
}

// extendVertical pads top and bottom with their own flat color, when they have one.
func (s Sampler) extendVertical(img codec.Image, fRatio float64) error {
	srcWidth := img.Width()
	srcHeight := img.Height()

	topColor, err := s.edgeColor(img, codec.Rect{Left: 0, Top: 0, Width: srcWidth, Height: 1})
	if err != nil {
		return err
	}

	bottomColor, err := s.edgeColor(img, codec.Rect{Left: 0, Top: srcHeight - 1, Width: srcWidth, Height: 1})
	if err != nil {
		return err
	}

	if topColor == nil && bottomColor == nil {
		return nil
	}

	targetHeight := round(float64(srcWidth) / fRatio)

	needHeight := targetHeight - srcHeight
	if needHeight <= 0 {
		return nil
	}

	topHeight, bottomHeight := split(needHeight, topColor != nil, bottomColor != nil)

	if err = img.ExtendCanvas(srcWidth, targetHeight, 0, topHeight); err != nil {
		return err
	}

	if topColor != nil && topHeight > 0 {
		err = img.DrawFilledRect(*topColor, codec.Rect{Left: 0, Top: 0, Width: srcWidth, Height: topHeight})
		if err != nil {
			return err
		}
	}

	if bottomColor != nil && bottomHeight > 0 {
		return img.DrawFilledRect(*bottomColor, codec.Rect{
			Left:   0,
			Top:    targetHeight - bottomHeight,
			Width:  srcWidth,
			Height: bottomHeight,
		})
	}

	return nil
}

// extendHorizontal pads left and right with their own flat color, when they have one.
func (s Sampler) extendHorizontal(img codec.Image, fRatio float64) error {
	srcWidth := img.Width()
	srcHeight := img.Height()

	leftColor, err := s.edgeColor(img, codec.Rect{Left: 0, Top: 0, Width: 1, Height: srcHeight})
	if err != nil {
		return err
	}

	rightColor, err := s.edgeColor(img, codec.Rect{Left: srcWidth - 1, Top: 0, Width: 1, Height: srcHeight})
	if err != nil {
		return err
	}

	if leftColor == nil && rightColor == nil {
		return nil
	}

	targetWidth := round(float64(srcHeight) * fRatio)

	needWidth := targetWidth - srcWidth
	if needWidth <= 0 {
		return nil
	}

	leftWidth, rightWidth := split(needWidth, leftColor != nil, rightColor != nil)

	if err = img.ExtendCanvas(targetWidth, srcHeight, leftWidth, 0); err != nil {
		return err
	}

	if leftColor != nil && leftWidth > 0 {
		err = img.DrawFilledRect(*leftColor, codec.Rect{Left: 0, Top: 0, Width: leftWidth, Height: srcHeight})
		if err != nil {
			return err
		}
	}

	if rightColor != nil && rightWidth > 0 {
		return img.DrawFilledRect(*rightColor, codec.Rect{
			Left:   targetWidth - rightWidth,
			Top:    0,
			Width:  rightWidth,
			Height: srcHeight,
		})
	}

	return nil
}

func split(need int, first, second bool) (int, int) {
	switch {
	case first && second:
		half := need / 2

		return half, need - half
	case first:
		return need, 0
	case second:
		return 0, need
	}

	return 0, 0
}

// edgeColor returns the mean color of the region, or nil when the region is not visually uniform.
func (s Sampler) edgeColor(img codec.Image, rect codec.Rect) (*codec.RGB, error) {
	pixels, err := img.SamplePixelRegion(rect)
	if err != nil {
		return nil, err
	}

	if len(pixels) == 0 {
		return nil, nil
	}

	reds := make([]float64, 0, len(pixels))
	greens := make([]float64, 0, len(pixels))
	blues := make([]float64, 0, len(pixels))

	for _, pixel := range pixels {
		reds = append(reds, pixel.Red)
		greens = append(greens, pixel.Green)
		blues = append(blues, pixel.Blue)
	}

	if standardDeviation(reds) > edgeDeviationLimit ||
		standardDeviation(greens) > edgeDeviationLimit ||
		standardDeviation(blues) > edgeDeviationLimit {
		return nil, nil
	}

	return &codec.RGB{
		Red:   mean(reds),
		Green: mean(greens),
		Blue:  mean(blues),
	}, nil
}

func standardDeviation(values []float64) float64 {
	count := len(values)
	if count == 0 {
		return 0.0
	}

	avg := mean(values)
	carry := 0.0

	for _, val := range values {
		diff := val - avg
		carry += diff * diff
	}

	return math.Sqrt(carry / float64(count))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func (s Sampler) convertByInnerFit(img codec.Image, format *Format) error {
	srcWidth := img.Width()
	srcHeight := img.Height()
	srcRatio := float64(srcWidth) / float64(srcHeight)

	formatWidth := format.Width()
	formatHeight := format.Height()

	widthLess := srcWidth < formatWidth
	heightLess := srcHeight < formatHeight

	if format.IsReduceOnly() && (widthLess || heightLess) {
		// dont crop
		return s.scaleByOther(img, format, srcRatio, widthLess, heightLess)
	}

	ratio := float64(formatWidth) / float64(formatHeight)

	var cropWidth, cropHeight, cropLeft, cropTop int

	if ratio < srcRatio {
		// wide picture
		cropWidth = round(float64(srcHeight) * ratio)
		cropHeight = srcHeight
		cropLeft = (srcWidth - cropWidth) / 2
	} else {
		// tall picture
		cropWidth = srcWidth
		cropHeight = round(float64(srcWidth) / ratio)
		cropTop = (srcHeight - cropHeight) / 2
	}

	if err := img.Crop(cropWidth, cropHeight, cropLeft, cropTop); err != nil {
		return err
	}

	return img.Scale(formatWidth, formatHeight)
}

func (s Sampler) convertByOuterFit(img codec.Image, format *Format) error {
	srcWidth := img.Width()
	srcHeight := img.Height()
	srcRatio := float64(srcWidth) / float64(srcHeight)

	formatWidth := format.Width()
	formatHeight := format.Height()

	widthLess := srcWidth < formatWidth
	heightLess := srcHeight < formatHeight

	if format.IsReduceOnly() && (widthLess || heightLess) {
		if err := s.scaleByOther(img, format, srcRatio, widthLess, heightLess); err != nil {
			return err
		}
	} else {
		ratio := float64(formatWidth) / float64(formatHeight)

		var scaleWidth, scaleHeight int

		if ratio < srcRatio {
			// add top and bottom margins
			scaleWidth = formatWidth
			scaleHeight = round(float64(formatWidth) / srcRatio)
		} else {
			// add left and right margins
			scaleWidth = round(float64(formatHeight) * srcRatio)
			scaleHeight = formatHeight
		}

		if err := img.Scale(scaleWidth, scaleHeight); err != nil {
			return err
		}
	}

	// extend by bg-space
	borderLeft := (formatWidth - img.Width()) / 2
	borderTop := (formatHeight - img.Height()) / 2

	return img.ExtendCanvas(formatWidth, formatHeight, borderLeft, borderTop)
}

func (s Sampler) convertByMaximumFit(img codec.Image, format *Format) error {
	srcWidth := img.Width()
	srcHeight := img.Height()
	srcRatio := float64(srcWidth) / float64(srcHeight)

	formatWidth := format.Width()
	formatHeight := format.Height()

	widthLess := srcWidth < formatWidth
	heightLess := srcHeight < formatHeight

	if format.IsReduceOnly() && (widthLess || heightLess) {
		return s.scaleByOther(img, format, srcRatio, widthLess, heightLess)
	}

	ratio := float64(formatWidth) / float64(formatHeight)

	if ratio < srcRatio {
		return img.Scale(formatWidth, round(float64(formatWidth)/srcRatio))
	}

	return img.Scale(round(float64(formatHeight)*srcRatio), formatHeight)
}

// scaleByOther scales by the dimension the source is not smaller than; a source smaller in both stays as is.
func (s Sampler) scaleByOther(
	img codec.Image, format *Format, srcRatio float64, widthLess, heightLess bool,
) error {
	switch {
	case !heightLess:
		// resize by height
		scaleHeight := format.Height()

		return img.Scale(round(float64(scaleHeight)*srcRatio), scaleHeight)
	case !widthLess:
		// resize by width
		scaleWidth := format.Width()

		return img.Scale(scaleWidth, round(float64(scaleWidth)/srcRatio))
	}

	return nil
}

func (s Sampler) convertByWidth(img codec.Image, format *Format) error {
	srcWidth := img.Width()
	srcRatio := float64(srcWidth) / float64(img.Height())

	scaleWidth := format.Width()
	if format.IsReduceOnly() && srcWidth < scaleWidth {
		scaleWidth = srcWidth
	}

	return img.Scale(scaleWidth, round(float64(scaleWidth)/srcRatio))
}

func (s Sampler) convertByHeight(img codec.Image, format *Format) error {
	srcHeight := img.Height()
	srcRatio := float64(img.Width()) / float64(srcHeight)

	scaleHeight := format.Height()
	if format.IsReduceOnly() && srcHeight < scaleHeight {
		scaleHeight = srcHeight
	}

	return img.Scale(round(float64(scaleHeight)*srcRatio), scaleHeight)
}

// round rounds half away from zero and never returns less than one pixel.
func round(value float64) int {
	return max(int(math.Round(value)), 1)
}
