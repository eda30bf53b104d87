// Package graph builds the class inheritance hierarchy and computes PageRank
// over it.
package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/phobologic/astmap/internal/model"
)

const accessAttr = "access"

// Hierarchy is a directed graph with an edge from each derived class to each
// of its bases. Bases that are not defined in the catalog (library types) are
// still vertices.
type Hierarchy struct {
	g       graph.Graph[string, string]
	defined map[string]struct{}
	edges   []model.Derivation
	skipped []model.Derivation
}

// Build creates the hierarchy for a catalog. Classes sharing a name collapse
// into one vertex. An edge that would close a cycle is dropped and reported by
// Skipped.
func Build(cat *model.Catalog) (*Hierarchy, error) {
	h := &Hierarchy{
		g:       graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
		defined: make(map[string]struct{}),
	}

	for i := range cat.Classes {
		name := cat.Classes[i].Name
		h.defined[name] = struct{}{}
		if err := h.addVertex(name); err != nil {
			return nil, err
		}
	}

	for _, d := range cat.Derivations() {
		if err := h.addVertex(d.Base); err != nil {
			return nil, err
		}
		err := h.g.AddEdge(d.Derived, d.Base, graph.EdgeAttribute(accessAttr, string(d.Access)))
		switch {
		case err == nil:
			h.edges = append(h.edges, d)
		case errors.Is(err, graph.ErrEdgeAlreadyExists), errors.Is(err, graph.ErrEdgeCreatesCycle):
			h.skipped = append(h.skipped, d)
		default:
			return nil, fmt.Errorf("adding edge %s -> %s: %w", d.Derived, d.Base, err)
		}
	}

	sort.SliceStable(h.edges, func(i, j int) bool {
		if h.edges[i].Derived != h.edges[j].Derived {
			return h.edges[i].Derived < h.edges[j].Derived
		}
		return h.edges[i].Base < h.edges[j].Base
	})

	return h, nil
}

func (h *Hierarchy) addVertex(name string) error {
	err := h.g.AddVertex(name)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return fmt.Errorf("adding class %s: %w", name, err)
	}
	return nil
}

// Edges returns the accepted inheritance edges sorted by derived then base.
func (h *Hierarchy) Edges() []model.Derivation {
	return h.edges
}

// Skipped returns edges rejected as duplicates or cycles, in catalog order.
func (h *Hierarchy) Skipped() []model.Derivation {
	return h.skipped
}

// Defined reports whether name is a class defined in the catalog.
func (h *Hierarchy) Defined(name string) bool {
	_, ok := h.defined[name]
	return ok
}

// Ancestors returns every direct and indirect base of name, sorted.
func (h *Hierarchy) Ancestors(name string) ([]string, error) {
	if _, err := h.g.Vertex(name); err != nil {
		if errors.Is(err, graph.ErrVertexNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var out []string
	err := graph.DFS(h.g, name, func(v string) bool {
		if v != name {
			out = append(out, v)
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("walking bases of %s: %w", name, err)
	}
	sort.Strings(out)
	return out, nil
}

// Rank applies PageRank over the hierarchy and stores each class's score in
// Class.Rank. Heavily derived-from bases score highest. The catalog order is
// not changed.
func Rank(cat *model.Catalog, h *Hierarchy) {
	if len(cat.Classes) == 0 {
		return
	}

	nodes := make(map[string]struct{})
	for i := range cat.Classes {
		nodes[cat.Classes[i].Name] = struct{}{}
	}

	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, d := range h.Edges() {
		// Only bases defined in the catalog take part.
		if !h.Defined(d.Base) {
			continue
		}
		outEdges[d.Derived] = append(outEdges[d.Derived], d.Base)
		outDegree[d.Derived]++
	}

	var ranks map[string]float64
	if len(outEdges) == 0 {
		ranks = make(map[string]float64, len(nodes))
		uniform := 1.0 / float64(len(nodes))
		for n := range nodes {
			ranks[n] = uniform
		}
	} else {
		ranks = pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
	}

	for i := range cat.Classes {
		cat.Classes[i].Rank = ranks[cat.Classes[i].Name]
	}
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	// Iterate nodes in sorted order so float sums are reproducible.
	keys := sortedKeys(nodes)

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for _, node := range keys {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for _, node := range keys {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for _, node := range keys {
			newRank[node] = teleport + danglingContrib
		}

		for _, src := range keys {
			targets := outEdges[src]
			if len(targets) == 0 {
				continue
			}
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for _, node := range keys {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
