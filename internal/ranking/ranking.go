// Package ranking trims a catalog to the records a reader asked for.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/phobologic/astmap/internal/graph"
	"github.com/phobologic/astmap/internal/model"
)

// SelectClasses returns a new catalog with only the maxClasses highest-ranked
// classes, kept in their original order. Structs pass through unchanged.
// If maxClasses is <= 0 or >= the number of classes, cat is returned as is.
func SelectClasses(cat *model.Catalog, maxClasses int) *model.Catalog {
	if maxClasses <= 0 || maxClasses >= len(cat.Classes) {
		return cat
	}

	idx := make([]int, len(cat.Classes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return cat.Classes[idx[a]].Rank > cat.Classes[idx[b]].Rank
	})
	keep := idx[:maxClasses]
	sort.Ints(keep)

	classes := make([]model.Class, 0, maxClasses)
	for _, i := range keep {
		classes = append(classes, cat.Classes[i])
	}

	return &model.Catalog{
		Source:  cat.Source,
		Classes: classes,
		Structs: cat.Structs,
	}
}

// FilterRecords returns a new catalog with the classes and structs whose name
// matches pattern, a case-insensitive glob ("*Widget", "ns::?ase"). With
// withBases, every class defined in the catalog that a matched class derives
// from, directly or not, is kept as well.
func FilterRecords(cat *model.Catalog, h *graph.Hierarchy, pattern string, withBases bool) (*model.Catalog, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("class pattern %q: %w", pattern, err)
	}
	match := func(name string) bool {
		return g.Match(strings.ToLower(name))
	}

	keepClass := make(map[string]struct{})
	for i := range cat.Classes {
		name := cat.Classes[i].Name
		if !match(name) {
			continue
		}
		keepClass[name] = struct{}{}
		if !withBases || h == nil {
			continue
		}
		bases, err := h.Ancestors(name)
		if err != nil {
			return nil, err
		}
		for _, b := range bases {
			keepClass[b] = struct{}{}
		}
	}

	out := model.NewCatalog(cat.Source)
	for i := range cat.Classes {
		if _, ok := keepClass[cat.Classes[i].Name]; ok {
			out.Classes = append(out.Classes, cat.Classes[i])
		}
	}
	for i := range cat.Structs {
		if match(cat.Structs[i].Name) {
			out.Structs = append(out.Structs, cat.Structs[i])
		}
	}
	return out, nil
}
