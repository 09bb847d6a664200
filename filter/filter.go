package filter

import (
	"regexp"
	"strings"

	"github.com/fiam/gounidecode/unidecode"
)

var (
	unsafeCharacters = regexp.MustCompile(`[^A-Za-z0-9.(){}_-]`)
	repeatedSpacers  = regexp.MustCompile(`_{2,}`)
)

var specialCharacters = map[rune]string{
	'№':  "N",
	' ':  "_",
	'"':  "_",
	'/':  "_",
	'\\': "_",
	'*':  "_",
	'`':  "_",
	'#':  "_",
	'&':  "_",
	'\'': "_",
	'!':  "_",
	'@':  "_",
	'$':  "s",
	'%':  "_",
	'^':  "_",
	'=':  "-",
	'|':  "_",
	'?':  "_",
	'„':  ",",
	'“':  "_",
	'”':  "_",
	'{':  "(",
	'}':  ")",
	':':  "-",
	';':  "_",
}

func replaceSpecialCharacters(s string) string {
	var sb strings.Builder

	sb.Grow(len(s))

	for _, c := range s {
		if d, ok := specialCharacters[c]; ok {
			sb.WriteString(d)
		} else {
			sb.WriteRune(c)
		}
	}

	return sb.String()
}

// SanitizeFilename turns an arbitrary string into a single safe path component.
// The result never contains separators and is never "", "." or "..".
func SanitizeFilename(filename string) string {
	filename = unidecode.Unidecode(filename)
	filename = strings.ToLower(filename)
	filename = replaceSpecialCharacters(filename)
	filename = unsafeCharacters.ReplaceAllString(filename, "_")
	filename = strings.Trim(filename, "_-")
	filename = repeatedSpacers.ReplaceAllString(filename, "_")

	switch filename {
	case ".", "..", "":
		filename = "_"
	}

	return filename
}
