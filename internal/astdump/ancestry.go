package astdump

// Entry is one open level of the ancestry path.
type Entry struct {
	Depth int
	Text  string
	Kind  Kind
}

// Path is the chain of open ancestor lines from the dump root to the line
// being processed. Index i holds the entry at depth i+1.
type Path struct {
	entries []Entry
}

// Update re-synchronises the path with a line at depth.
//
// A line at the current length replaces the deepest entry. Any other depth
// truncates the path to depth-1 entries. The new line is then appended. Depth
// only ever grows one level at a time in clang's printer but can drop any
// number of levels, which this rule relies on.
func (p *Path) Update(depth int, text string, kind Kind) {
	if n := len(p.entries); n > 0 && depth == n {
		p.entries = p.entries[:n-1]
	} else if keep := depth - 1; keep >= 0 && keep < len(p.entries) {
		p.entries = p.entries[:keep]
	}
	p.entries = append(p.entries, Entry{Depth: depth, Text: text, Kind: kind})
}

// HasAncestor scans the path from the parent of the current line back to the
// root and reports whether any entry satisfies match. The deepest entry is the
// line being processed and is never its own ancestor.
func (p *Path) HasAncestor(match func(Entry) bool) bool {
	for i := len(p.entries) - 2; i >= 0; i-- {
		if match(p.entries[i]) {
			return true
		}
	}
	return false
}
