// Package naming maps upstream titles to filesystem-safe, collision-free
// local filenames.
package naming

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Filesystem-hostile characters are swapped for visually similar full-width
// forms so the title stays readable instead of losing information.
var replacements = map[rune]rune{
	'/':  '⧸',
	'\\': '⧹',
	'|':  '｜',
	'?':  '？',
	'*':  '＊',
	':':  '：',
	'"':  '＂',
	'<':  '＜',
	'>':  '＞',
}

// Sanitize returns a filesystem-safe version of an upstream title.
// Control bytes are stripped, illegal characters substituted.
func Sanitize(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	for _, r := range title {
		if r < 0x20 || r == 0x7f {
			continue
		}
		if sub, ok := replacements[r]; ok {
			b.WriteRune(sub)
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		out = "untitled"
	}
	return out
}

// Resolve reserves a final path for base.ext inside dir, appending a "(n)"
// disambiguator until a free name is claimed. The name is claimed by
// creating the file exclusively, so concurrent calls with the same title
// always receive distinct paths. Callers rename their payload over the
// reserved file, and own its removal on failure.
func Resolve(dir, base, ext string) (string, error) {
	name := base
	for n := 1; ; n++ {
		path := filepath.Join(dir, name+"."+ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			f.Close()
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("reserve name: %w", err)
		}
		name = fmt.Sprintf("%s(%d)", base, n)
	}
}

// TempName returns a request-scoped intermediate filename. The random suffix
// keeps concurrent requests for identically titled media from colliding
// before Resolve assigns the delivered name.
func TempName(base, ext string) string {
	return fmt.Sprintf("%s.%s.part.%s", base, uuid.New().String()[:8], ext)
}
