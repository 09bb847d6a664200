package codec

import (
	"errors"
	"fmt"
	"image/color"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidColor = errors.New("invalid color")

var (
	colorName     = regexp.MustCompile(`^[a-z]+[0-9]*$`)
	colorFunction = regexp.MustCompile(`^(rgb|rgba|hsl|hsla|cmyk|cmyka|gray|graya)\([0-9.,%\s]+\)$`)
)

var namedColors = map[string]color.NRGBA{
	"transparent": {},
	"none":        {},
	"black":       {0, 0, 0, 0xff},
	"white":       {0xff, 0xff, 0xff, 0xff},
	"red":         {0xff, 0, 0, 0xff},
	"green":       {0, 0x80, 0, 0xff},
	"lime":        {0, 0xff, 0, 0xff},
	"blue":        {0, 0, 0xff, 0xff},
	"yellow":      {0xff, 0xff, 0, 0xff},
	"cyan":        {0, 0xff, 0xff, 0xff},
	"aqua":        {0, 0xff, 0xff, 0xff},
	"magenta":     {0xff, 0, 0xff, 0xff},
	"fuchsia":     {0xff, 0, 0xff, 0xff},
	"gray":        {0x80, 0x80, 0x80, 0xff},
	"grey":        {0x80, 0x80, 0x80, 0xff},
	"silver":      {0xc0, 0xc0, 0xc0, 0xff},
	"maroon":      {0x80, 0, 0, 0xff},
	"navy":        {0, 0, 0x80, 0xff},
	"purple":      {0x80, 0, 0x80, 0xff},
	"teal":        {0, 0x80, 0x80, 0xff},
	"olive":       {0x80, 0x80, 0, 0xff},
	"orange":      {0xff, 0xa5, 0, 0xff},
}

// ParseColor understands named colors and #rgb, #rgba, #rrggbb, #rrggbbaa notations.
func ParseColor(value string) (color.NRGBA, error) {
	value = strings.ToLower(strings.TrimSpace(value))

	if c, ok := namedColors[value]; ok {
		return c, nil
	}

	hex, ok := strings.CutPrefix(value, "#")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("%w: `%s`", ErrInvalidColor, value)
	}

	if len(hex) == 3 || len(hex) == 4 {
		var sb strings.Builder
		for _, c := range hex {
			sb.WriteRune(c)
			sb.WriteRune(c)
		}

		hex = sb.String()
	}

	if len(hex) == 6 {
		hex += "ff"
	}

	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: `%s`", ErrInvalidColor, value)
	}

	number, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: `%s`", ErrInvalidColor, value)
	}

	return color.NRGBA{
		R: uint8(number >> 24),
		G: uint8(number >> 16),
		B: uint8(number >> 8),
		A: uint8(number),
	}, nil
}

// ValidateColor accepts every hex notation and the names and functional notations a codec may know.
// Codecs still reject names they do not support when the color is applied.
func ValidateColor(value string) error {
	value = strings.ToLower(strings.TrimSpace(value))

	if strings.HasPrefix(value, "#") {
		_, err := ParseColor(value)

		return err
	}

	if colorName.MatchString(value) || colorFunction.MatchString(value) {
		return nil
	}

	return fmt.Errorf("%w: `%s`", ErrInvalidColor, value)
}
