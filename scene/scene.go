// Package scene holds the refractive set and receiver surfaces in an ECS
// world, and the scoped override-material state used by capture passes.
package scene

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
	"github.com/pthm-cable/caustics/lightcam"
)

// Side selects which triangle faces a material draws.
type Side uint8

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

func (s Side) String() string {
	switch s {
	case FrontSide:
		return "front"
	case BackSide:
		return "back"
	default:
		return "double"
	}
}

// Material is anything a host can draw an object with.
type Material interface {
	FaceSide() Side
}

// Object is a view of one entity handed to iteration callbacks. The pointers
// alias ECS storage and are only valid inside the callback.
type Object struct {
	Entity    ecs.Entity
	Transform *Transform
	Mesh      *Mesh
}

// Scene is the set of drawable entities.
type Scene struct {
	// Origin is the reference point for tracked light directions.
	Origin r3.Vec

	world *ecs.World

	refractiveMapper *ecs.Map3[Transform, Geometry, Refractive]
	surfaceMapper    *ecs.Map3[Transform, Geometry, Surface]
	refractiveFilter *ecs.Filter3[Transform, Geometry, Refractive]
	surfaceFilter    *ecs.Filter3[Transform, Geometry, Surface]
	transformMap     *ecs.Map1[Transform]

	names    map[string]ecs.Entity
	override Material
}

// New creates an empty scene.
func New() *Scene {
	world := ecs.NewWorld()
	return &Scene{
		world:            world,
		refractiveMapper: ecs.NewMap3[Transform, Geometry, Refractive](world),
		surfaceMapper:    ecs.NewMap3[Transform, Geometry, Surface](world),
		refractiveFilter: ecs.NewFilter3[Transform, Geometry, Refractive](world),
		surfaceFilter:    ecs.NewFilter3[Transform, Geometry, Surface](world),
		transformMap:     ecs.NewMap1[Transform](world),
		names:            make(map[string]ecs.Entity),
	}
}

// AddRefractive adds an object to the refractive set.
func (s *Scene) AddRefractive(t Transform, mesh *Mesh, r Refractive) ecs.Entity {
	g := Geometry{Mesh: mesh}
	return s.refractiveMapper.NewEntity(&t, &g, &r)
}

// AddSurface adds an opaque receiver surface.
func (s *Scene) AddSurface(t Transform, mesh *Mesh, surf Surface) ecs.Entity {
	g := Geometry{Mesh: mesh}
	return s.surfaceMapper.NewEntity(&t, &g, &surf)
}

// AddMarker adds a transform-only entity, such as a light a caustics pass
// can track.
func (s *Scene) AddMarker(t Transform) ecs.Entity {
	return s.transformMap.NewEntity(&t)
}

// Remove deletes an entity and any name bound to it.
func (s *Scene) Remove(e ecs.Entity) {
	for name, named := range s.names {
		if named == e {
			delete(s.names, name)
		}
	}
	s.world.RemoveEntity(e)
}

// SetName binds name to e, replacing any earlier binding of name.
func (s *Scene) SetName(e ecs.Entity, name string) {
	s.names[name] = e
}

// Lookup returns the entity bound to name.
func (s *Scene) Lookup(name string) (ecs.Entity, bool) {
	e, ok := s.names[name]
	return e, ok
}

// Positioner returns a live view of the world position of e, for tracked lights.
func (s *Scene) Positioner(e ecs.Entity) lightcam.Positioner {
	return entityPosition{scene: s, entity: e}
}

type entityPosition struct {
	scene  *Scene
	entity ecs.Entity
}

func (p entityPosition) WorldPosition() r3.Vec {
	if !p.scene.world.Alive(p.entity) {
		return r3.Vec{}
	}
	return p.scene.transformMap.Get(p.entity).Position
}

// Transform returns the transform of e, for animation. Nil if e has none.
func (s *Scene) Transform(e ecs.Entity) *Transform {
	return s.transformMap.Get(e)
}

// EachRefractive calls fn for every refractive object. fn must not add or
// remove entities.
func (s *Scene) EachRefractive(fn func(Object, *Refractive)) {
	query := s.refractiveFilter.Query()
	for query.Next() {
		t, g, r := query.Get()
		fn(Object{Entity: query.Entity(), Transform: t, Mesh: g.Mesh}, r)
	}
}

// EachSurface calls fn for every receiver surface. fn must not add or remove
// entities.
func (s *Scene) EachSurface(fn func(Object, *Surface)) {
	query := s.surfaceFilter.Query()
	for query.Next() {
		t, g, surf := query.Get()
		fn(Object{Entity: query.Entity(), Transform: t, Mesh: g.Mesh}, surf)
	}
}

// RefractiveCount returns the size of the refractive set.
func (s *Scene) RefractiveCount() int {
	n := 0
	s.EachRefractive(func(Object, *Refractive) { n++ })
	return n
}

// Bounds returns the tight world box of every refractive vertex. The box is
// empty when the set is empty.
func (s *Scene) Bounds() geom.AABB {
	b := geom.EmptyAABB()
	s.EachRefractive(func(o Object, _ *Refractive) {
		if o.Mesh == nil {
			return
		}
		b = b.Union(o.Mesh.Bounds(o.Transform.Matrix()))
	})
	return b
}

// Override returns the material currently replacing every object's own
// material, or nil.
func (s *Scene) Override() Material {
	return s.override
}

// WithOverride runs fn with m installed as the override material and
// restores the previous override afterwards, also when fn fails or panics.
func (s *Scene) WithOverride(m Material, fn func() error) error {
	prev := s.override
	s.override = m
	defer func() { s.override = prev }()
	return fn()
}
