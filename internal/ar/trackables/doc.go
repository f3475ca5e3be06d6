// Package trackables owns the registry of detected planes.
//
// Responsibilities: per-frame creation, refresh and eviction of planes
// reported by the tracking session, stable dense indexing for sketch
// queries, per-frame created/updated status, and the selected plane.
// Key types: Registry, Observer.
//
// Dependency rule: trackables may depend on ar, ar/pose and ar/session,
// but never on selection, anchors or frame.
package trackables
