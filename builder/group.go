package builder

import (
	"iter"
	"slices"
)

// Factory creates the builder for a (z-index, kind) pair on first use.
type Factory func(zIndex int, kind Kind) Builder

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithFactory replaces the Recorder factory.
func WithFactory(f Factory) GroupOption {
	return func(g *Group) {
		if f != nil {
			g.factory = f
		}
	}
}

// Group owns the builders of one render batch, keyed by z-index and kind.
// Builders are created on demand and never removed; a new batch starts
// with a new Group.
type Group struct {
	factory Factory
	zs      []int // ascending
	layers  map[int]*[numKinds]Builder
}

// NewGroup creates an empty group.
func NewGroup(opts ...GroupOption) *Group {
	g := &Group{
		factory: func(_ int, kind Kind) Builder { return NewRecorder(kind) },
		layers:  make(map[int]*[numKinds]Builder),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Builder returns the builder for zIndex and kind, creating and
// registering it on first use. Equal arguments always yield the same
// builder.
func (g *Group) Builder(zIndex int, kind Kind) Builder {
	if kind >= numKinds {
		panic("builder: invalid kind " + kind.String())
	}
	layer, ok := g.layers[zIndex]
	if !ok {
		layer = new([numKinds]Builder)
		g.layers[zIndex] = layer
		i, _ := slices.BinarySearch(g.zs, zIndex)
		g.zs = slices.Insert(g.zs, i, zIndex)
	}
	if layer[kind] == nil {
		layer[kind] = g.factory(zIndex, kind)
	}
	return layer[kind]
}

// Lookup returns the builder for zIndex and kind without creating it.
func (g *Group) Lookup(zIndex int, kind Kind) (Builder, bool) {
	layer, ok := g.layers[zIndex]
	if !ok || kind >= numKinds || layer[kind] == nil {
		return nil, false
	}
	return layer[kind], true
}

// ZIndices returns the z-indices in use, ascending.
func (g *Group) ZIndices() []int {
	return slices.Clone(g.zs)
}

// All iterates the builders in replay order: ascending z-index, then the
// given kind order, or DefaultOrder when none is given. Kinds missing from
// order are skipped.
func (g *Group) All(order ...Kind) iter.Seq2[int, Builder] {
	if len(order) == 0 {
		order = DefaultOrder
	}
	return func(yield func(int, Builder) bool) {
		for _, z := range g.zs {
			layer := g.layers[z]
			for _, k := range order {
				if k >= numKinds || layer[k] == nil {
					continue
				}
				if !yield(z, layer[k]) {
					return
				}
			}
		}
	}
}

// Len returns the number of builders.
func (g *Group) Len() int {
	n := 0
	for _, layer := range g.layers {
		for _, b := range layer {
			if b != nil {
				n++
			}
		}
	}
	return n
}

// IsEmpty reports whether no builder holds an instruction.
func (g *Group) IsEmpty() bool {
	for _, layer := range g.layers {
		for _, b := range layer {
			if b != nil && b.Len() > 0 {
				return false
			}
		}
	}
	return true
}
