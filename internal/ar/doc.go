// Package ar holds the vocabulary shared by the AR layer: the status and
// plane-type codes reported to sketches, and the index error returned by
// every index-based query.
//
// The layer itself is split by responsibility:
//
//	pose        tracking-service poses <-> column-major 4x4 matrices
//	session     the external tracking service contract (black box)
//	trackables  registry of detected planes, stably indexed per frame
//	selection   tap queue and hit-test resolver
//	anchors     append-only anchor list and the selection anchor slot
//	frame       per-frame driver composing a renderer with the above
//
// Dependency rule: nothing under internal/ar imports a renderer
// implementation; renderers are reached only through frame.Renderer.
package ar
