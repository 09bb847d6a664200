package sampler

import (
	"fmt"

	"github.com/autowp/goimagestorage/config"
	"github.com/autowp/goimagestorage/image/codec"
)

const maxQuality = 100

var formatExt = map[string]string{
	"jpg":  "jpeg",
	"jpeg": "jpeg",
	"png":  "png",
	"gif":  "gif",
	"bmp":  "bmp",
}

// Format describes a derivative. It is immutable: use WithCrop to derive a variant.
type Format struct {
	format             string
	crop               *Crop
	isIgnoreCrop       bool
	width              int
	height             int
	widest             float64
	highest            float64
	isProportionalCrop bool
	background         string
	fitType            config.FitType
	isStrip            bool
	isReduceOnly       bool
	quality            int
}

func NewFormat(cfg config.ImageStorageSamplerFormatConfig) (*Format, error) {
	switch cfg.FitType {
	case config.FitTypeInner, config.FitTypeOuter, config.FitTypeMaximum:
	default:
		return nil, fmt.Errorf("%w: %w: `%v`", ErrValidation, ErrUnknownFitType, cfg.FitType)
	}

	if cfg.Width < 0 {
		return nil, fmt.Errorf("%w: width %d", ErrValidation, cfg.Width)
	}

	if cfg.Height < 0 {
		return nil, fmt.Errorf("%w: height %d", ErrValidation, cfg.Height)
	}

	if cfg.Quality < 0 || cfg.Quality > maxQuality {
		return nil, fmt.Errorf("%w: quality %d", ErrValidation, cfg.Quality)
	}

	if cfg.Widest < 0 {
		return nil, fmt.Errorf("%w: widest %v", ErrValidation, cfg.Widest)
	}

	if cfg.Highest < 0 {
		return nil, fmt.Errorf("%w: highest %v", ErrValidation, cfg.Highest)
	}

	if cfg.Background != "" {
		if err := codec.ValidateColor(cfg.Background); err != nil {
			return nil, fmt.Errorf("%w: background: %w", ErrValidation, err)
		}
	}

	crop := cropFromConfig(cfg.Crop)
	if crop != nil {
		if err := crop.Validate(); err != nil {
			return nil, err
		}
	}

	f := &Format{
		format:             cfg.Format,
		crop:               crop,
		isIgnoreCrop:       cfg.IgnoreCrop,
		width:              cfg.Width,
		height:             cfg.Height,
		isProportionalCrop: cfg.ProportionalCrop,
		background:         cfg.Background,
		fitType:            cfg.FitType,
		isStrip:            cfg.Strip,
		isReduceOnly:       cfg.ReduceOnly,
		widest:             cfg.Widest,
		highest:            cfg.Highest,
		quality:            cfg.Quality,
	}

	if _, err := f.FormatExtension(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return f, nil
}

// NewFormatFromMap builds a format from loosely typed options, as found in config files.
func NewFormatFromMap(options map[string]any) (*Format, error) {
	cfg, err := config.DecodeFormatConfig(options)
	if err != nil {
		return nil, err
	}

	return NewFormat(cfg)
}

// WithCrop returns a copy of the format with the crop replaced. A nil crop keeps the current one.
func (f *Format) WithCrop(crop *Crop) *Format {
	clone := *f

	if crop != nil {
		c := *crop
		clone.crop = &c
	}

	return &clone
}

func (f *Format) Format() string {
	return f.format
}

func (f *Format) Crop() *Crop {
	if f.crop == nil {
		return nil
	}

	c := *f.crop

	return &c
}

func (f *Format) IsStrip() bool {
	return f.isStrip
}

func (f *Format) Height() int {
	return f.height
}

func (f *Format) Width() int {
	return f.width
}

func (f *Format) Quality() int {
	return f.quality
}

// FormatExtension returns the canonical output codec name, or "" when the source codec is kept.
func (f *Format) FormatExtension() (string, error) {
	if len(f.format) == 0 {
		return "", nil
	}

	value, ok := formatExt[f.format]
	if !ok {
		return "", fmt.Errorf("%w: `%s`", ErrUnsupportedFormat, f.format)
	}

	return value, nil
}

func (f *Format) IsIgnoreCrop() bool {
	return f.isIgnoreCrop
}

func (f *Format) Widest() float64 {
	return f.widest
}

func (f *Format) Highest() float64 {
	return f.highest
}

func (f *Format) IsProportionalCrop() bool {
	return f.isProportionalCrop
}

// Background returns the configured background or transparent.
func (f *Format) Background() string {
	if f.background == "" {
		return codec.TransparentBackground
	}

	return f.background
}

func (f *Format) FitType() config.FitType {
	return f.fitType
}

func (f *Format) IsReduceOnly() bool {
	return f.isReduceOnly
}
