package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ErrValidation marks configuration or option values rejected at construction time.
var ErrValidation = errors.New("validation error")

type FitType int

const (
	FitTypeInner   FitType = 0
	FitTypeOuter   FitType = 1
	FitTypeMaximum FitType = 2
)

var fitTypeNames = map[string]FitType{
	"inner":   FitTypeInner,
	"outer":   FitTypeOuter,
	"maximum": FitTypeMaximum,
}

func (f FitType) String() string {
	for name, value := range fitTypeNames {
		if value == f {
			return name
		}
	}

	return strconv.Itoa(int(f))
}

func (f *FitType) UnmarshalText(text []byte) error {
	value, ok := fitTypeNames[strings.ToLower(strings.TrimSpace(string(text)))]
	if !ok {
		number, err := strconv.Atoi(string(text))
		if err != nil {
			return fmt.Errorf("%w: unknown fit type `%s`", ErrValidation, text)
		}

		value = FitType(number)
	}

	*f = value

	return nil
}

const (
	NamingStrategyTypeSerial  = "serial"
	NamingStrategyTypePattern = "pattern"
)

const (
	CodecImagick = "imagick"
	CodecNative  = "native"
)

const (
	DefaultImageTableName          = "image"
	DefaultDirTableName            = "image_dir"
	DefaultFormattedImageTableName = "formated_image"
	DefaultFormattedImageDirName   = "format"
	DefaultFileMode                = "0644"
	DefaultDirMode                 = "0755"
)

type ImageStorageNamingStrategyOptionsConfig struct {
	Deep int `yaml:"deep" mapstructure:"deep"`
}

type ImageStorageNamingStrategyConfig struct {
	Strategy string                                  `yaml:"strategy" mapstructure:"strategy"`
	Options  ImageStorageNamingStrategyOptionsConfig `yaml:"options"  mapstructure:"options"`
}

type ImageStorageDirConfig struct {
	Path           string                           `yaml:"path"            mapstructure:"path"`
	URL            string                           `yaml:"url"             mapstructure:"url"`
	NamingStrategy ImageStorageNamingStrategyConfig `yaml:"naming-strategy" mapstructure:"naming-strategy"`
}

type ImageStorageCropConfig struct {
	Left   int `yaml:"left"   mapstructure:"left"`
	Top    int `yaml:"top"    mapstructure:"top"`
	Width  int `yaml:"width"  mapstructure:"width"`
	Height int `yaml:"height" mapstructure:"height"`
}

type ImageStorageSamplerFormatConfig struct {
	FitType          FitType                 `yaml:"fit-type"          mapstructure:"fit-type"`
	Width            int                     `yaml:"width"             mapstructure:"width"`
	Height           int                     `yaml:"height"            mapstructure:"height"`
	Background       string                  `yaml:"background"        mapstructure:"background"`
	Crop             *ImageStorageCropConfig `yaml:"crop"              mapstructure:"crop"`
	Strip            bool                    `yaml:"strip"             mapstructure:"strip"`
	ReduceOnly       bool                    `yaml:"reduce-only"       mapstructure:"reduce-only"`
	ProportionalCrop bool                    `yaml:"proportional-crop" mapstructure:"proportional-crop"`
	Format           string                  `yaml:"format"            mapstructure:"format"`
	IgnoreCrop       bool                    `yaml:"ignore-crop"       mapstructure:"ignore-crop"`
	Widest           float64                 `yaml:"widest"            mapstructure:"widest"`
	Highest          float64                 `yaml:"highest"           mapstructure:"highest"`
	Quality          int                     `yaml:"quality"           mapstructure:"quality"`
}

type ImageStorageConfig struct {
	ImageTableName          string                                     `yaml:"image-table-name"          mapstructure:"image-table-name"`
	DirTableName            string                                     `yaml:"dir-table-name"            mapstructure:"dir-table-name"`
	FormattedImageTableName string                                     `yaml:"formated-image-table-name" mapstructure:"formated-image-table-name"`
	FileMode                string                                     `yaml:"file-mode"                 mapstructure:"file-mode"`
	DirMode                 string                                     `yaml:"dir-mode"                  mapstructure:"dir-mode"`
	Codec                   string                                     `yaml:"codec"                     mapstructure:"codec"`
	FormattedImageDirName   string                                     `yaml:"formated-image-dir-name"   mapstructure:"formated-image-dir-name"`
	Dirs                    map[string]ImageStorageDirConfig           `yaml:"dirs"                      mapstructure:"dirs"`
	Formats                 map[string]ImageStorageSamplerFormatConfig `yaml:"formats"                   mapstructure:"formats"`
}

// TableNames returns the configured table names with defaults applied.
func (c ImageStorageConfig) TableNames() (string, string, string) {
	image := c.ImageTableName
	if image == "" {
		image = DefaultImageTableName
	}

	dir := c.DirTableName
	if dir == "" {
		dir = DefaultDirTableName
	}

	formatted := c.FormattedImageTableName
	if formatted == "" {
		formatted = DefaultFormattedImageTableName
	}

	return image, dir, formatted
}

var cropKeys = []string{"left", "top", "width", "height"}

func cropHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(ImageStorageCropConfig{}) {
		return data, nil
	}

	value := reflect.ValueOf(data)
	if value.Kind() != reflect.Map {
		return data, nil
	}

	present := make(map[string]bool, value.Len())

	for _, key := range value.MapKeys() {
		present[strings.ToLower(fmt.Sprint(key.Interface()))] = true
	}

	for _, key := range cropKeys {
		if !present[key] {
			return nil, fmt.Errorf("%w: crop option `%s` is missing", ErrValidation, key)
		}
	}

	return data, nil
}

// DecodeHook returns the hooks used to decode image storage options from untyped maps.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		cropHook,
	)
}

// DecodeFormatConfig decodes a free-form option map, rejecting unknown options.
func DecodeFormatConfig(options map[string]any) (ImageStorageSamplerFormatConfig, error) {
	var result ImageStorageSamplerFormatConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       DecodeHook(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &result,
	})
	if err != nil {
		return result, err
	}

	if err = decoder.Decode(options); err != nil {
		if errors.Is(err, ErrValidation) {
			return result, err
		}

		return result, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return result, nil
}

// ParseMode parses an octal permission string such as "0644".
func ParseMode(value string, fallback string) (uint32, error) {
	if value == "" {
		value = fallback
	}

	mode, err := strconv.ParseUint(value, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid mode `%s`", ErrValidation, value)
	}

	return uint32(mode), nil
}
