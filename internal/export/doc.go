// Package export turns a project's canvases into shareable files.
//
// A Pipeline renders every canvas to a raster image and then, depending on
// the request type, uploads the slides individually, encodes them into one
// timed animation, or composites them into a single grid image. Progress is
// reported on a channel in phases (preparing, rendering, combining,
// finalizing) so callers can persist snapshots without the pipeline knowing
// where they go.
//
// Service runs pipelines in the background and keeps the latest snapshot of
// each export in a ProgressStore for polling.
package export
