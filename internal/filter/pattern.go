package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// glob is an rsync-style pattern matched against slash-separated paths
// relative to a scan root.
type glob struct {
	re      *regexp.Regexp
	source  string
	dirOnly bool
}

func compileGlob(pattern string) (*glob, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("empty filter pattern")
	}
	g := &glob{source: pattern}

	body := pattern
	if strings.HasSuffix(body, "/") {
		g.dirOnly = true
		body = strings.TrimRight(body, "/")
	}

	// A leading or embedded slash anchors the pattern to the root.
	anchored := strings.Contains(body, "/")
	body = strings.TrimPrefix(body, "/")

	var expr strings.Builder
	if anchored {
		expr.WriteString("^")
	} else {
		expr.WriteString("(?:^|/)")
	}
	translateGlob(&expr, body)
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	g.re = re
	return g, nil
}

func (g *glob) matches(rel string, isDir bool) bool {
	if g.dirOnly && !isDir {
		return false
	}
	return g.re.MatchString(rel)
}

func (g *glob) String() string { return g.source }

// translateGlob writes the regexp equivalent of a glob body.
func translateGlob(b *strings.Builder, body string) {
	for i := 0; i < len(body); i++ {
		switch c := body[i]; c {
		case '*':
			if !strings.HasPrefix(body[i:], "**") {
				b.WriteString("[^/]*")
				continue
			}
			if strings.HasPrefix(body[i:], "**/") {
				b.WriteString("(?:.*/)?")
				i += 2
			} else {
				b.WriteString(".*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := classEnd(body, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := body[i+1 : end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
}

// classEnd returns the index of the ']' closing the class opened at start,
// or -1. A ']' right after '[' or '[!' is a literal member.
func classEnd(body string, start int) int {
	j := start + 1
	if j < len(body) && body[j] == '!' {
		j++
	}
	if j < len(body) && body[j] == ']' {
		j++
	}
	for ; j < len(body); j++ {
		if body[j] == ']' {
			return j
		}
	}
	return -1
}
