package storage

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"docsign/internal/model"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename neutralizes a client-supplied name into a safe base name:
// accents are folded to ASCII, path separators become word breaks, whitespace runs become
// "_", anything outside [A-Za-z0-9_.-] is dropped and leading/trailing dots and
// underscores are trimmed. "../../etc/passwd" becomes "etc_passwd".
func SanitizeFilename(name string) (string, error) {
	ascii, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool { return r >= utf8.RuneSelf }))),
		name,
	)
	if err != nil {
		return "", model.ErrUnsafeFilename
	}

	s := strings.NewReplacer("/", " ", `\`, " ").Replace(ascii)
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")
	if s == "" {
		return "", model.ErrUnsafeFilename
	}
	return s, nil
}

// ValidateFilename accepts only names that SanitizeFilename would leave unchanged.
// Lookups reject instead of neutralizing so a crafted path can never alias another file.
func ValidateFilename(name string) error {
	clean, err := SanitizeFilename(name)
	if err != nil || clean != name || filepath.Base(name) != name {
		return model.ErrUnsafeFilename
	}
	return nil
}
