package lightcam

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
)

// Positioner is any scene object that can report its world position.
type Positioner interface {
	WorldPosition() r3.Vec
}

// LightSource describes where caustic light comes from: either a fixed
// direction toward the light, or a moving object sampled once per update.
type LightSource struct {
	Direction r3.Vec
	Object    Positioner
}

// StaticLight returns a light source shining from direction dir (toward the light).
func StaticLight(dir r3.Vec) LightSource {
	return LightSource{Direction: dir}
}

// TrackedLight returns a light source that follows obj.
func TrackedLight(obj Positioner) LightSource {
	return LightSource{Object: obj}
}

// IsTracked reports whether the light follows an object.
func (l LightSource) IsTracked() bool {
	return l.Object != nil
}

// ToLight returns the unit direction toward the light, relative to origin for
// tracked lights. ok is false if the direction has no length.
func (l LightSource) ToLight(origin r3.Vec) (dir r3.Vec, ok bool) {
	if l.Object != nil {
		dir = r3.Sub(l.Object.WorldPosition(), origin)
	} else {
		dir = l.Direction
	}
	dir = geom.Normalize(dir)
	return dir, dir != (r3.Vec{})
}

// FixedPosition is a Positioner pinned at a point. Useful for tests and configs
// that place a light object without a scene node.
type FixedPosition r3.Vec

// WorldPosition implements Positioner.
func (p FixedPosition) WorldPosition() r3.Vec {
	return r3.Vec(p)
}
