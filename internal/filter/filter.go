// Package filter decides which discovered files take part in deduplication.
package filter

type rule struct {
	glob    *glob
	include bool
}

// Set is an ordered list of include/exclude rules plus optional size bounds.
// The zero value keeps everything.
type Set struct {
	rules   []rule
	minSize int64
	maxSize int64
}

// New returns an empty Set.
func New() *Set {
	return &Set{}
}

// Exclude appends an exclude rule.
func (s *Set) Exclude(pattern string) error {
	return s.add(pattern, false)
}

// Include appends an include rule.
func (s *Set) Include(pattern string) error {
	return s.add(pattern, true)
}

func (s *Set) add(pattern string, include bool) error {
	g, err := compileGlob(pattern)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, rule{glob: g, include: include})
	return nil
}

// SetBounds limits regular files to [minSize, maxSize]. Zero disables a bound.
func (s *Set) SetBounds(minSize, maxSize int64) {
	s.minSize = minSize
	s.maxSize = maxSize
}

// IsZero reports whether the set has neither rules nor bounds.
func (s *Set) IsZero() bool {
	return s == nil || (len(s.rules) == 0 && s.minSize == 0 && s.maxSize == 0)
}

// KeepDir reports whether the walker should descend into rel.
func (s *Set) KeepDir(rel string) bool {
	if s.IsZero() {
		return true
	}
	return s.verdict(rel, true)
}

// KeepFile reports whether the regular file rel of the given size is kept.
func (s *Set) KeepFile(rel string, size int64) bool {
	if s.IsZero() {
		return true
	}
	if s.minSize > 0 && size < s.minSize {
		return false
	}
	if s.maxSize > 0 && size > s.maxSize {
		return false
	}
	return s.verdict(rel, false)
}

// verdict applies the first matching rule. Unmatched paths are kept.
func (s *Set) verdict(rel string, isDir bool) bool {
	for _, r := range s.rules {
		if r.glob.matches(rel, isDir) {
			return r.include
		}
	}
	return true
}
