// Package ggmap renders vector map features with gg.
//
// # Overview
//
// ggmap turns (feature, style) pairs into buffered drawing instructions
// and replays them onto a gg.Context. It is organized in two steps:
//
//   - Render: RenderFeature dispatches a feature's geometry to the builders
//     of a builder.Group, keyed by the style's z-index and the primitive kind.
//   - Replay: replay.Replayer executes a group on a gg.Context in z-index
//     and kind order.
//
// Icon styles load their images asynchronously through an imagecache.Cache.
// A point whose icon is not loaded yet is left out of the current batch;
// the listener passed to RenderFeature fires once the load completes so
// the caller can render again.
//
// # Quick Start
//
//	cache := imagecache.New(imagecache.FileLoader{})
//	defer cache.Close()
//
//	src := source.New()
//	_ = src.AddFeature(ggmap.NewFeature(geom.LineString{{0, 0}, {100, 100}}))
//
//	surf := surface.New(256, 256)
//	lyr := layer.New(src, layer.WithStyle(&style.Style{
//	    Stroke: style.NewStroke(gg.Black, 2),
//	}))
//
//	_ = lyr.RenderSync(ctx, surf, cache)
//	_ = surf.SavePNG("out.png")
//
// # Architecture
//
//   - geom: the closed geometry model, validation and simplification
//   - style: fill, stroke, text and image styles
//   - imagecache: shared image resources with single in-flight loads
//   - builder: instruction buffers and the z-index/kind group
//   - replay: executes a group on a gg.Context
//   - surface: a raster target with post-render hooks and compositing
//   - source, layer: feature storage and the per-frame render batch
//
// # Coordinate System
//
// Geometries are in map units. The replay transform maps them to pixels;
// surface.Surface derives it from a view extent with Y pointing up.
package ggmap
