package layers

import (
	"sort"
	"strings"

	"github.com/skypro1111/audio-cnn-visualizer/internal/tensor"
)

// Separator splits a parent layer name from its sub-operation
const Separator = "."

// Entry is one named tensor placed in the hierarchy
type Entry struct {
	Name   string
	Parent string // empty for main entries
	Tensor tensor.Tensor
}

// IsInternal reports whether the entry belongs to a parent's bucket
func (e Entry) IsInternal() bool {
	return e.Parent != ""
}

// ShortName returns the name with the parent prefix removed, e.g. "bn" for "conv1.bn"
func (e Entry) ShortName() string {
	if !e.IsInternal() {
		return e.Name
	}
	return strings.TrimPrefix(e.Name, e.Parent+Separator)
}

// Group is the resolved hierarchy of one response. It is built once by
// Resolve and not modified afterwards.
type Group struct {
	// Main holds un-dotted entries in encounter order
	Main []Entry

	// Internals holds dotted entries keyed by the segment before the first dot,
	// each bucket in encounter order
	Internals map[string][]Entry

	// Dropped lists names whose parent segment was empty
	Dropped []string

	parents []string
}

// Resolve splits a bundle into main and internal entries. Only the first dot
// is significant: "a.b.c" lands in bucket "a". Names starting with a dot
// cannot be placed and are recorded in Dropped.
func Resolve(b *tensor.Bundle) *Group {
	g := &Group{
		Main:      make([]Entry, 0, b.Len()),
		Internals: make(map[string][]Entry),
	}

	b.Each(func(name string, t tensor.Tensor) {
		parent, _, dotted := strings.Cut(name, Separator)
		if !dotted {
			g.Main = append(g.Main, Entry{Name: name, Tensor: t})
			return
		}

		if parent == "" {
			g.Dropped = append(g.Dropped, name)
			return
		}

		if _, seen := g.Internals[parent]; !seen {
			g.parents = append(g.parents, parent)
		}
		g.Internals[parent] = append(g.Internals[parent], Entry{Name: name, Parent: parent, Tensor: t})
	})

	return g
}

// Len returns the number of placed entries
func (g *Group) Len() int {
	n := len(g.Main)
	for _, bucket := range g.Internals {
		n += len(bucket)
	}
	return n
}

// Parents returns internal bucket keys in the order they were first seen
func (g *Group) Parents() []string {
	return append([]string(nil), g.parents...)
}

// SortedInternals returns a copy of a parent's bucket ordered by full name,
// ignoring case. Names equal except for case put lower case first.
func (g *Group) SortedInternals(parent string) []Entry {
	bucket := g.Internals[parent]
	if len(bucket) == 0 {
		return nil
	}

	sorted := append([]Entry(nil), bucket...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := strings.ToLower(sorted[i].Name), strings.ToLower(sorted[j].Name)
		if a != b {
			return a < b
		}
		return sorted[i].Name > sorted[j].Name
	})
	return sorted
}

// Orphans returns bucket keys that have no matching main entry
func (g *Group) Orphans() []string {
	main := make(map[string]struct{}, len(g.Main))
	for _, e := range g.Main {
		main[e.Name] = struct{}{}
	}

	var orphans []string
	for _, parent := range g.parents {
		if _, ok := main[parent]; !ok {
			orphans = append(orphans, parent)
		}
	}
	return orphans
}
