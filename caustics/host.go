package caustics

import (
	"github.com/pthm-cable/caustics/estimator"
	"github.com/pthm-cable/caustics/geom"
	"github.com/pthm-cable/caustics/lightcam"
	"github.com/pthm-cable/caustics/scene"
)

// Filter selects texture minification and magnification.
type Filter uint8

const (
	FilterNearest Filter = iota
	FilterLinear
)

// Format selects the colour storage of a target.
type Format uint8

const (
	FormatRGBA8 Format = iota
	FormatFloat
)

// TargetOptions describes an off-screen render target.
type TargetOptions struct {
	Width, Height int
	Depth         bool // attach a sampleable depth texture
	Filter        Filter
	Format        Format
	Mipmaps       bool
}

// Target is an opaque render target handle owned by a Host.
type Target interface {
	Size() (width, height int)
}

// Host is the renderer the pipeline drives. Draw calls render into the
// currently bound target; a nil target is the host's default framebuffer.
type Host interface {
	CreateTarget(opts TargetOptions) (Target, error)
	ReleaseTarget(t Target)

	RenderTarget() Target
	SetRenderTarget(t Target) error

	// Clear resets colour to zero and depth to the far value.
	Clear() error
	// RenderScene draws the refractive set of scn from cam with scn.Override().
	RenderScene(scn *scene.Scene, cam lightcam.Camera) error
	// DrawFullScreen runs the caustic estimator over every texel.
	DrawFullScreen(pass EstimatorPass) error
	// DrawReceiver draws the receiver plane with the caustics projector.
	DrawReceiver(fp lightcam.Footprint, u ProjectorUniforms) error
	GenerateMipmaps(t Target) error
}

// CaptureMaterial is the override material of a capture pass. It writes
// world-space unit normals encoded to [0,1] of the faces on Side.
type CaptureMaterial struct {
	Side scene.Side
}

// FaceSide implements scene.Material.
func (m CaptureMaterial) FaceSide() scene.Side {
	return m.Side
}

var (
	FrontNormals = CaptureMaterial{Side: scene.FrontSide}
	BackNormals  = CaptureMaterial{Side: scene.BackSide}
)

// EstimatorPass is one full-screen estimator invocation over a capture.
type EstimatorPass struct {
	Capture  Target
	Uniforms estimator.Uniforms
}

// BlendFactor is a fixed-function blend factor.
type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
)

// ProjectorUniforms drive the receiver material. Fragments are projected by
// LightViewProjection into the caustics textures, the two samples summed and
// tinted by Color, and blended as Src*SrcFactor + Dst*DstFactor.
type ProjectorUniforms struct {
	LightViewProjection geom.Mat4
	Front, Back         Target
	Color               scene.Color
	SrcFactor           BlendFactor
	DstFactor           BlendFactor
	DepthWrite          bool
}

func newProjectorUniforms(cam lightcam.Camera, front, back Target, color scene.Color) ProjectorUniforms {
	return ProjectorUniforms{
		LightViewProjection: cam.ViewProjection,
		Front:               front,
		Back:                back,
		Color:               color,
		SrcFactor:           BlendOne,
		DstFactor:           BlendSrcAlpha,
	}
}
