// Package frame drives one AR render cycle and is the surface sketches
// and the windowing layer talk to.
//
// A cycle is strictly ordered and never re-entered:
//
//	Advance     session.Update -> camera matrices -> registry -> tap resolve
//	BeginFrame  identity -> projection -> view -> clear -> camera background
//	(draw)      sketch draw calls, optionally Anchor(id)
//	EndFrame    clear per-frame created/updated status
//
// The camera is owned by the tracking session: Camera and Perspective
// are rejected with a warning.
package frame
