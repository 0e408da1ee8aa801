package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/geom"
	"github.com/pthm-cable/caustics/scene"
)

// toMatrix converts a column-major geom matrix. raylib stores matrices
// column-major too, so element i maps to field Mi.
func toMatrix(m geom.Mat4) rl.Matrix {
	return rl.Matrix{
		M0: float32(m[0]), M1: float32(m[1]), M2: float32(m[2]), M3: float32(m[3]),
		M4: float32(m[4]), M5: float32(m[5]), M6: float32(m[6]), M7: float32(m[7]),
		M8: float32(m[8]), M9: float32(m[9]), M10: float32(m[10]), M11: float32(m[11]),
		M12: float32(m[12]), M13: float32(m[13]), M14: float32(m[14]), M15: float32(m[15]),
	}
}

func toColor(c scene.Color, alpha float64) rl.Color {
	return rl.NewColor(to8(c.R), to8(c.G), to8(c.B), to8(alpha))
}

func to8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

func vec3(c scene.Color) []float32 {
	return []float32{float32(c.R), float32(c.G), float32(c.B)}
}

func toVector3(v r3.Vec) rl.Vector3 {
	return rl.NewVector3(float32(v.X), float32(v.Y), float32(v.Z))
}
