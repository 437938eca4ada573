package ggmap

import (
	"maps"

	"github.com/gogpu/ggmap/geom"
	"github.com/gogpu/ggmap/style"
)

// Feature is a geometry with an identity and free-form properties.
// Rendering reads features and never modifies them.
type Feature struct {
	id    any
	geom  geom.Geometry
	props map[string]any
}

var _ style.FeatureLike = (*Feature)(nil)

// NewFeature returns a feature with the given geometry.
func NewFeature(g geom.Geometry) *Feature {
	return &Feature{geom: g}
}

// ID returns the identifier, or nil if none was set.
func (f *Feature) ID() any { return f.id }

// SetID sets the identifier.
func (f *Feature) SetID(id any) { f.id = id }

// Geometry returns the feature's geometry. It may be nil.
func (f *Feature) Geometry() geom.Geometry { return f.geom }

// SetGeometry replaces the geometry. A source holding the feature must be
// told with source.Vector.UpdateFeature.
func (f *Feature) SetGeometry(g geom.Geometry) { f.geom = g }

// Get returns the property stored under key.
func (f *Feature) Get(key string) any { return f.props[key] }

// Set stores a property.
func (f *Feature) Set(key string, value any) {
	if f.props == nil {
		f.props = make(map[string]any)
	}
	f.props[key] = value
}

// Properties returns a copy of all properties.
func (f *Feature) Properties() map[string]any {
	return maps.Clone(f.props)
}

// SetProperties replaces all properties with a copy of props.
func (f *Feature) SetProperties(props map[string]any) {
	f.props = maps.Clone(props)
}
