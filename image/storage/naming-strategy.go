package storage

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/autowp/goimagestorage/config"
	"github.com/autowp/goimagestorage/filter"
)

type GenerateOptions struct {
	Pattern       string
	Extension     string
	Index         int
	Count         int64
	PreferredName string
}

// NamingStrategy maps a placement request to a path relative to the dir root.
// Implementations are pure and never produce "." or ".." segments.
type NamingStrategy interface {
	Generate(options GenerateOptions) string
}

const ItemPerDir = 1000

var patternSeparator = regexp.MustCompile(`[/\\]+`)

// NewNamingStrategy resolves a strategy by its discriminator.
func NewNamingStrategy(cfg config.ImageStorageNamingStrategyConfig) (NamingStrategy, error) {
	switch cfg.Strategy {
	case config.NamingStrategyTypeSerial:
		if cfg.Options.Deep < 0 {
			return nil, fmt.Errorf("%w: deep %d", ErrValidation, cfg.Options.Deep)
		}

		return NamingStrategySerial{deep: cfg.Options.Deep}, nil
	case config.NamingStrategyTypePattern:
		return NamingStrategyPattern{}, nil
	}

	return nil, fmt.Errorf("%w: `%s`", ErrUnknownStrategy, cfg.Strategy)
}

type NamingStrategyPattern struct{}

func normalizePattern(pattern string) []string {
	result := make([]string, 0)

	for _, component := range patternSeparator.Split(pattern, -1) {
		switch component {
		case "", ".", "..":
		default:
			result = append(result, filter.SanitizeFilename(component))
		}
	}

	return result
}

func (s NamingStrategyPattern) Generate(options GenerateOptions) string {
	components := normalizePattern(options.Pattern)

	if options.Index > 0 || len(components) == 0 {
		components = append(components, strconv.Itoa(options.Index))
	}

	result := strings.Join(components, "/")

	if len(options.Extension) > 0 {
		result = result + "." + options.Extension
	}

	return result
}

type NamingStrategySerial struct {
	deep int
}

func NewNamingStrategySerial(deep int) NamingStrategySerial {
	return NamingStrategySerial{deep: max(deep, 0)}
}

func (s NamingStrategySerial) Deep() int {
	return s.deep
}

func (s NamingStrategySerial) Generate(options GenerateOptions) string {
	fileIndex := options.Count + 1

	fileBasename := strconv.FormatInt(fileIndex, 10)
	if len(options.PreferredName) > 0 {
		fileBasename = filter.SanitizeFilename(options.PreferredName)
	}

	suffix := ""
	if options.Index > 0 {
		suffix = "_" + strconv.Itoa(options.Index)
	}

	result := fileBasename + suffix
	if len(options.Extension) > 0 {
		result = result + "." + options.Extension
	}

	return shardPath(fileIndex, s.deep) + result
}

var shardWidth = int(math.Ceil(math.Log10(ItemPerDir - 1)))

// shardPath returns `deep` zero padded levels, the innermost one changes every ItemPerDir files.
func shardPath(index int64, deep int) string {
	if deep <= 0 {
		return ""
	}

	levels := make([]string, deep)
	cur := index / ItemPerDir

	for i := deep - 1; i >= 0; i-- {
		levels[i] = fmt.Sprintf("%0*d", shardWidth, cur%ItemPerDir)
		cur /= ItemPerDir
	}

	return strings.Join(levels, "/") + "/"
}
