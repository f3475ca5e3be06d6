// Package selection turns screen taps into a selected plane.
//
// TapQueue is the only structure in the AR layer shared between
// goroutines: input delivery offers taps from its own goroutine and the
// render loop polls at most one per frame. Resolver runs on the render
// goroutine and resolves that tap against the frame's hit test.
package selection
