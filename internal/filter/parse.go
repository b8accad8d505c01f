package filter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadFile appends the rules in path to the set, one per line. A line
// starting with "+ " is an include rule, "- " or a bare pattern an exclude
// rule. Blank lines and lines starting with "#" are ignored.
func (s *Set) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open filter file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		add := s.Exclude
		switch {
		case strings.HasPrefix(line, "+ "):
			add, line = s.Include, strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "- "):
			line = strings.TrimSpace(line[2:])
		}
		if err := add(line); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read filter file: %w", err)
	}
	return nil
}
