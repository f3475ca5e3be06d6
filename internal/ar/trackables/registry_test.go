package trackables

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/arlayer/internal/ar"
	"github.com/banshee-data/arlayer/internal/ar/pose"
	"github.com/banshee-data/arlayer/internal/ar/session"
)

func status(t *testing.T, r *Registry, i int) ar.Status {
	t.Helper()
	s, err := r.Status(i)
	require.NoError(t, err)
	return s
}

// assertConsistent checks that the ordered slice and the handle map agree.
func assertConsistent(t *testing.T, r *Registry) {
	t.Helper()
	require.Len(t, r.byHandle, len(r.entries))
	seen := make(map[session.Handle]bool)
	for i, e := range r.entries {
		require.False(t, seen[e.handle], "duplicate handle %s", e.handle)
		seen[e.handle] = true
		require.Same(t, e, r.byHandle[e.handle])
		require.Equal(t, i, r.IndexOf(e.handle))
	}
}

func TestRegistry_EndToEndLifecycle(t *testing.T) {
	r := NewRegistry()
	p1 := newPlane("p1")

	// Frame 1: new plane.
	r.Update(frameOf(p1))
	require.Equal(t, 1, r.Count())
	assert.Equal(t, ar.StatusCreated, status(t, r, 0))
	r.EndFrame()

	// Frame 2: reported again.
	r.Update(frameOf(p1))
	require.Equal(t, 1, r.Count())
	assert.Equal(t, ar.StatusUpdated, status(t, r, 0))
	r.EndFrame()

	// Frame 3: stopped.
	p1.state = session.Stopped
	r.Update(frameOf(p1))
	assert.Equal(t, 0, r.Count())
	assertConsistent(t, r)
}

func TestRegistry_StatusFallsBackToTrackingState(t *testing.T) {
	r := NewRegistry()
	p := newPlane("p")
	r.Update(frameOf(p))
	r.EndFrame()

	// Not reported this frame.
	r.Update(frameOf())
	assert.Equal(t, ar.StatusTracking, status(t, r, 0))

	p.state = session.Paused
	assert.Equal(t, ar.StatusPaused, status(t, r, 0))

	p.state = session.TrackingState(42)
	assert.Equal(t, ar.StatusNone, status(t, r, 0))
}

func TestRegistry_CreatedOnlyInFirstFrame(t *testing.T) {
	r := NewRegistry()
	p := newPlane("p")
	for frame := 0; frame < 5; frame++ {
		r.Update(frameOf(p))
		want := ar.StatusUpdated
		if frame == 0 {
			want = ar.StatusCreated
		}
		assert.Equal(t, want, status(t, r, 0), "frame %d", frame)
		r.EndFrame()
	}
}

func TestRegistry_SubsumedPlanes(t *testing.T) {
	t.Run("never added", func(t *testing.T) {
		r := NewRegistry()
		big := newPlane("big")
		small := newPlane("small")
		small.subsumed = big

		r.Update(frameOf(small, big))
		require.Equal(t, 1, r.Count())
		h, err := r.Handle(0)
		require.NoError(t, err)
		assert.Equal(t, session.Handle("big"), h)
	})

	t.Run("purged once subsumed", func(t *testing.T) {
		r := NewRegistry()
		a, b, c := newPlane("a"), newPlane("b"), newPlane("c")
		r.Update(frameOf(a, b, c))
		r.EndFrame()
		require.Equal(t, 3, r.Count())

		// b is merged into a; the session only reports a this frame.
		b.subsumed = a
		r.Update(frameOf(a))
		require.Equal(t, 2, r.Count())
		assert.False(t, r.Contains("b"))
		assert.Equal(t, 0, r.IndexOf("a"))
		assert.Equal(t, 1, r.IndexOf("c"))
		assertConsistent(t, r)
	})
}

func TestRegistry_ReverseEvictionRemovesAdjacentEntries(t *testing.T) {
	r := NewRegistry()
	planes := []*fakePlane{newPlane("a"), newPlane("b"), newPlane("c"), newPlane("d")}
	r.Update(frameOf(planes...))
	r.EndFrame()

	planes[1].state = session.Stopped
	planes[2].state = session.Stopped
	r.Update(frameOf())

	require.Equal(t, 2, r.Count())
	h0, _ := r.Handle(0)
	h1, _ := r.Handle(1)
	assert.Equal(t, []session.Handle{"a", "d"}, []session.Handle{h0, h1})
	assertConsistent(t, r)
}

func TestRegistry_TransformRefreshedFromCenterPose(t *testing.T) {
	r := NewRegistry()
	p := newPlane("p")
	p.center = pose.MakeTranslation(1, 0, 2)
	r.Update(frameOf(p))

	m, err := r.Matrix(0, nil)
	require.NoError(t, err)
	assert.Equal(t, pose.MakeTranslation(1, 0, 2).Matrix(), *m)

	r.EndFrame()
	p.center = pose.MakeTranslation(3, 0, 4)
	r.Update(frameOf(p))

	var dst mgl32.Mat4
	got, err := r.Matrix(0, &dst)
	require.NoError(t, err)
	assert.Same(t, &dst, got)
	assert.Equal(t, pose.MakeTranslation(3, 0, 4).Matrix(), dst)
}

func TestRegistry_MatrixCopyOutRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.Update(frameOf(newPlane("p")))

	// Distinct value in every cell so a transposition would show.
	var known mgl32.Mat4
	for i := range known {
		known[i] = float32(i)*1.25 + 0.5
	}
	r.entries[0].transform = known

	got, err := r.Matrix(0, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(known, *got); diff != "" {
		t.Errorf("Matrix() mismatch (-want +got):\n%s", diff)
	}
	// The copy is independent of the registry.
	got[0] = 99
	again, _ := r.Matrix(0, nil)
	assert.Equal(t, known, *again)
}

func TestRegistry_Polygon(t *testing.T) {
	r := NewRegistry()
	p := newPlane("p")
	r.Update(frameOf(p))

	t.Run("nil buffer allocates", func(t *testing.T) {
		got, err := r.Polygon(0, nil)
		require.NoError(t, err)
		assert.Equal(t, p.polygon, got)
	})

	t.Run("large buffer reused", func(t *testing.T) {
		buf := make([]float32, 32)
		got, err := r.Polygon(0, buf)
		require.NoError(t, err)
		assert.Equal(t, p.polygon, got)
		assert.Same(t, &buf[0], &got[0])
	})

	t.Run("small buffer reallocated", func(t *testing.T) {
		buf := make([]float32, 2)
		got, err := r.Polygon(0, buf)
		require.NoError(t, err)
		assert.Equal(t, p.polygon, got)
		assert.NotSame(t, &buf[0], &got[0])
	})
}

func TestRegistry_TypeAndExtents(t *testing.T) {
	r := NewRegistry()
	floor, wall := newPlane("floor"), newPlane("wall")
	wall.typ = session.Vertical
	wall.extentX, wall.extentZ = 3, 0.5
	r.Update(frameOf(floor, wall))

	typ, err := r.Type(0)
	require.NoError(t, err)
	assert.Equal(t, ar.PlaneFloor, typ)
	typ, err = r.Type(1)
	require.NoError(t, err)
	assert.Equal(t, ar.PlaneWall, typ)

	x, err := r.ExtentX(1)
	require.NoError(t, err)
	z, err := r.ExtentZ(1)
	require.NoError(t, err)
	assert.Equal(t, float32(3), x)
	assert.Equal(t, float32(0.5), z)
}

func TestRegistry_Selection(t *testing.T) {
	r := NewRegistry()
	obs := &recordingObserver{}
	r.Observer = obs
	a, b := newPlane("a"), newPlane("b")
	r.Update(frameOf(a, b))

	assert.Equal(t, -1, r.SelectedIndex())
	assert.False(t, r.Select("missing"))
	require.True(t, r.Select("b"))
	assert.Equal(t, 1, r.SelectedIndex())

	sel, err := r.Selected(1)
	require.NoError(t, err)
	assert.True(t, sel)
	sel, err = r.Selected(0)
	require.NoError(t, err)
	assert.False(t, sel)

	// Removing a shifts b down; the selection follows the entry.
	r.EndFrame()
	a.state = session.Stopped
	r.Update(frameOf())
	assert.Equal(t, 0, r.SelectedIndex())

	// Removing the selected plane clears the selection.
	r.EndFrame()
	b.state = session.Stopped
	r.Update(frameOf())
	assert.Equal(t, -1, r.SelectedIndex())

	assert.Equal(t, []string{"added:a", "added:b", "selected:b", "removed:a", "removed:b"}, obs.events)
}

func TestRegistry_InvalidIndex(t *testing.T) {
	r := NewRegistry()
	r.Update(frameOf(newPlane("p")))

	checks := map[string]func(int) error{
		"Handle":   func(i int) error { _, err := r.Handle(i); return err },
		"Plane":    func(i int) error { _, err := r.Plane(i); return err },
		"Type":     func(i int) error { _, err := r.Type(i); return err },
		"Status":   func(i int) error { _, err := r.Status(i); return err },
		"Selected": func(i int) error { _, err := r.Selected(i); return err },
		"ExtentX":  func(i int) error { _, err := r.ExtentX(i); return err },
		"ExtentZ":  func(i int) error { _, err := r.ExtentZ(i); return err },
		"Polygon":  func(i int) error { _, err := r.Polygon(i, nil); return err },
		"Matrix":   func(i int) error { _, err := r.Matrix(i, nil); return err },
	}
	for name, fn := range checks {
		t.Run(name, func(t *testing.T) {
			for _, i := range []int{-1, 1, 10} {
				err := fn(i)
				require.Error(t, err)
				assert.True(t, errors.Is(err, ar.ErrIndexOutOfRange))
			}
			assert.NoError(t, fn(0))
		})
	}
}

// TestRegistry_RandomSequences drives the registry with random per-frame
// updates and checks uniqueness, density and atomic eviction.
func TestRegistry_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		r := NewRegistry()
		pool := make([]*fakePlane, 12)
		for i := range pool {
			pool[i] = newPlane(fmt.Sprintf("p%d", i))
		}

		for frame := 0; frame < 40; frame++ {
			var reported []*fakePlane
			for _, p := range pool {
				switch rng.Intn(10) {
				case 0:
					p.state = session.Stopped
				case 1:
					p.subsumed = pool[rng.Intn(len(pool))]
					if p.subsumed == session.Plane(p) {
						p.subsumed = nil
					}
				case 2:
					// Revive: the service re-detects a surface.
					p.state, p.subsumed = session.Tracking, nil
				}
				if rng.Intn(2) == 0 {
					reported = append(reported, p)
				}
			}
			r.Update(frameOf(reported...))
			assertConsistent(t, r)

			for i, e := range r.entries {
				assert.NotEqual(t, session.Stopped, e.plane.TrackingState())
				assert.Nil(t, e.plane.SubsumedBy())
				if e.created == r.gen {
					assert.Equal(t, ar.StatusCreated, status(t, r, i))
				}
			}
			r.EndFrame()
		}
	}
}
