package lightcam

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
)

// Defaults for Fit.
const (
	DefaultNearPlane = 0.1  // fixed near-plane epsilon of the light camera
	MinRadius        = 1e-3 // smallest orthographic half extent
	MinDepth         = 1e-3 // smallest far-near span
	MinFootprint     = 1e-2 // smallest receiver plane size
	minLightY        = 1e-3 // below this the light is treated as horizontal
)

// Options tunes Fit. The zero value uses the defaults.
type Options struct {
	NearPlane    float64 // near plane distance (DefaultNearPlane when <= 0)
	GroundHeight float64 // world Y of the receiver ground
}

func (o Options) near() float64 {
	if o.NearPlane <= 0 {
		return DefaultNearPlane
	}
	return o.NearPlane
}

// Fit returns the tightest square orthographic camera that looks along the
// light toward the centre of bounds and contains every corner of bounds.
// toLight points from the scene toward the light.
//
// The camera stands back from the box centre by the largest extent of the box
// along the light plus the near distance, so the nearest corner lies on the
// near plane. The far plane reaches the ground below the top edge of the
// frustum, and never stops short of the farthest corner.
func Fit(bounds geom.AABB, toLight r3.Vec, opts Options) Camera {
	d := geom.Normalize(toLight)
	if d == (r3.Vec{}) {
		d = worldUp
	}
	near := opts.near()

	focus := bounds.Center()
	plane := geom.Plane{Normal: d}

	var projected [8]r3.Vec
	var centroid r3.Vec
	dirLength, minAlong := math.Inf(-1), math.Inf(1)
	for i, corner := range bounds.Corners() {
		centered := r3.Sub(corner, focus)
		projected[i] = plane.ProjectPoint(centered)
		centroid = r3.Add(centroid, projected[i])

		along := r3.Dot(centered, d)
		dirLength = math.Max(dirLength, along)
		minAlong = math.Min(minAlong, along)
	}
	centroid = r3.Scale(1.0/8, centroid)

	radius := 0.0
	for _, p := range projected {
		radius = math.Max(radius, r3.Norm(r3.Sub(p, centroid)))
	}
	if radius < MinRadius {
		radius = MinRadius
	}

	position := r3.Add(focus, r3.Scale(dirLength+near, d))
	up := chooseUp(r3.Scale(-1, d), worldUp)

	// The farthest corner keeps a near-sized margin from the far plane so it
	// never lands on the cleared depth value. Far must also reach the ground
	// seen from the top edge of the frustum.
	far := (dirLength - minAlong) + 2*near
	if d.Y > minLightY {
		rot := geom.LookAt(position, focus, up)
		yOffset := rot.TransformDirection(r3.Vec{Y: radius})
		groundFar := (position.Y + yOffset.Y - opts.GroundHeight) / d.Y
		far = math.Max(far, groundFar)
	}
	if far < near+MinDepth {
		far = near + MinDepth
	}

	return NewOrtho(position, focus, up, radius, near, far)
}

// Footprint is the placement of the receiver plane: a square of side Size
// centred at Center on the ground.
type Footprint struct {
	Center r3.Vec
	Size   float64
}

// GroundFootprint projects the corners of bounds along the light onto the
// ground plane y = groundHeight and returns the square covering them around
// their centroid. Near-horizontal light falls back to the box's own
// horizontal extent.
func GroundFootprint(bounds geom.AABB, toLight r3.Vec, groundHeight float64) Footprint {
	d := geom.Normalize(toLight)
	corners := bounds.Corners()

	var ground [8]r3.Vec
	var center r3.Vec
	for i, c := range corners {
		if d.Y > minLightY {
			c = r3.Add(c, r3.Scale(-(c.Y-groundHeight)/d.Y, d))
		}
		c.Y = groundHeight
		ground[i] = c
		center = r3.Add(center, c)
	}
	center = r3.Scale(1.0/8, center)

	maxDist := 0.0
	for _, g := range ground {
		maxDist = math.Max(maxDist, math.Hypot(g.X-center.X, g.Z-center.Z))
	}

	size := 2 * maxDist
	if size < MinFootprint {
		size = MinFootprint
	}
	return Footprint{Center: center, Size: size}
}
