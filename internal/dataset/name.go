package dataset

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayName derives a human-readable dataset name from an upload file name.
// Used when the client does not supply one explicitly.
func DisplayName(fileName string) string {
	if fileName == "" {
		return "Untitled Dataset"
	}
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	name := strings.TrimSpace(cleaned.String())
	if name == "" {
		return "Untitled Dataset"
	}
	return cases.Title(language.Und).String(name)
}
