package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min, Max r3.Vec
}

// EmptyAABB returns a box that contains nothing; expanding it by a point yields that point.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// Expand returns the box grown to include p.
func (b AABB) Expand(p r3.Vec) AABB {
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	return b.Expand(o.Min).Expand(o.Max)
}

// Center returns the box centroid. Empty boxes report the origin.
func (b AABB) Center() r3.Vec {
	if b.IsEmpty() {
		return r3.Vec{}
	}
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Size returns the box extents. Empty boxes report zero size.
func (b AABB) Size() r3.Vec {
	if b.IsEmpty() {
		return r3.Vec{}
	}
	return r3.Sub(b.Max, b.Min)
}

// Volume returns the box volume.
func (b AABB) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// Corners returns the 8 corner vertices. Bit 0 of the index selects max X,
// bit 1 max Y and bit 2 max Z. Empty boxes collapse to the origin.
func (b AABB) Corners() [8]r3.Vec {
	lo, hi := b.Min, b.Max
	if b.IsEmpty() {
		lo, hi = r3.Vec{}, r3.Vec{}
	}
	var out [8]r3.Vec
	for i := range out {
		p := lo
		if i&1 != 0 {
			p.X = hi.X
		}
		if i&2 != 0 {
			p.Y = hi.Y
		}
		if i&4 != 0 {
			p.Z = hi.Z
		}
		out[i] = p
	}
	return out
}

// Contains reports whether p lies inside the box (inclusive, with tolerance eps).
func (b AABB) Contains(p r3.Vec, eps float64) bool {
	return p.X >= b.Min.X-eps && p.X <= b.Max.X+eps &&
		p.Y >= b.Min.Y-eps && p.Y <= b.Max.Y+eps &&
		p.Z >= b.Min.Z-eps && p.Z <= b.Max.Z+eps
}
