package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/caustics/scene"
)

// meshCache uploads one GPU mesh per generator shape.
type meshCache struct {
	meshes map[scene.Shape]rl.Mesh
	warned map[*scene.Mesh]bool
}

func newMeshCache() *meshCache {
	return &meshCache{
		meshes: make(map[scene.Shape]rl.Mesh),
		warned: make(map[*scene.Mesh]bool),
	}
}

// get returns the GPU mesh for m. ok is false for custom meshes, which have
// no raylib generator.
func (c *meshCache) get(m *scene.Mesh) (mesh rl.Mesh, ok bool) {
	if mesh, ok := c.meshes[m.Shape]; ok {
		return mesh, true
	}
	s := m.Shape
	switch s.Kind {
	case scene.ShapeSphere:
		mesh = rl.GenMeshSphere(float32(s.Radius), s.Rings, s.Segments)
	case scene.ShapeBox:
		mesh = rl.GenMeshCube(float32(s.Size.X), float32(s.Size.Y), float32(s.Size.Z))
	case scene.ShapePlane:
		mesh = rl.GenMeshPlane(float32(s.Size.X), float32(s.Size.Z), 1, 1)
	default:
		return rl.Mesh{}, false
	}
	c.meshes[s] = mesh
	return mesh, true
}

// warnOnce reports true the first time it sees m.
func (c *meshCache) warnOnce(m *scene.Mesh) bool {
	if c.warned[m] {
		return false
	}
	c.warned[m] = true
	return true
}

func (c *meshCache) unload() {
	for s, mesh := range c.meshes {
		rl.UnloadMesh(&mesh)
		delete(c.meshes, s)
	}
}
