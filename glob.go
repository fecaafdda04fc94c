package steamfilter

import (
	"strings"

	"github.com/gobwas/glob"
)

// compileHostGlob compiles a shell-style hostname pattern: '?' matches
// exactly one character, '*' matches a possibly-empty run, and ordinary
// characters match themselves case-insensitively. The pattern is compiled
// with gobwas/glob syntax, so '[', ']', '{', '}' and '\' are also special
// there (character classes, alternatives, escapes), and an unterminated
// '[' is a compile error. gobwas/glob itself is
// case-sensitive, so both the pattern and the subject are lower-cased
// before ever touching the compiled matcher (see hostGlob.match below).
func compileHostGlob(pattern string) (glob.Glob, error) {
	return glob.Compile(strings.ToLower(pattern))
}

// hostGlob pairs a compiled pattern with the original text, for diagnostics.
type hostGlob struct {
	pattern string
	g       glob.Glob
}

func newHostGlob(pattern string) (*hostGlob, error) {
	g, err := compileHostGlob(pattern)
	if err != nil {
		return nil, err
	}
	return &hostGlob{pattern: pattern, g: g}, nil
}

func (h *hostGlob) match(name string) bool {
	return h.g.Match(strings.ToLower(name))
}
