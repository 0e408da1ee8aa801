// Package renderer implements caustics.Host on raylib render textures and
// GLSL 330 shaders, and draws the viewer's scene.
package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/caustics/caustics"
	"github.com/pthm-cable/caustics/geom"
	"github.com/pthm-cable/caustics/lightcam"
	"github.com/pthm-cable/caustics/scene"
)

// GL blend constants for rl.SetBlendFactors.
const (
	glZero             = 0
	glOne              = 1
	glSrcAlpha         = 0x0302
	glOneMinusSrcAlpha = 0x0303
	glFuncAdd          = 0x8006
)

// rlgl values for float colour attachments.
const (
	pixelFormatRGBA32F      = 10 // rl.UncompressedR32g32b32a32
	attachmentColorChannel0 = 0
	attachmentTexture2D     = 100
)

// ErrForeignTarget is returned for targets this host did not create or already released.
var ErrForeignTarget = errors.New("renderer: unknown target")

// Target is a GPU render target. Targets with depth carry a second colour
// texture holding packed window depth, since raylib depth attachments are
// not sampleable.
type Target struct {
	opts  caustics.TargetOptions
	color rl.RenderTexture2D
	depth rl.RenderTexture2D
}

// Size implements caustics.Target.
func (t *Target) Size() (width, height int) {
	return t.opts.Width, t.opts.Height
}

// Texture returns the colour texture, e.g. to preview a caustics buffer.
func (t *Target) Texture() rl.Texture2D {
	return t.color.Texture
}

type captureShader struct {
	shader  rl.Shader
	sideLoc int32
}

type estimatorShader struct {
	shader                                            rl.Shader
	depthLoc, cameraWorldLoc, projInvLoc, lightDirLoc int32
	receiverLoc, resolutionLoc, frustumLoc, radiusLoc int32
	intensityLoc, iorLoc, rayOffsetLoc, tapsLoc       int32
}

type projectorShader struct {
	shader           rl.Shader
	lightViewProjLoc int32
	colorLoc         int32
}

type litShader struct {
	shader     rl.Shader
	tintLoc    int32
	toLightLoc int32
}

// Host renders with raylib. It must be created after the window.
type Host struct {
	bound *Target
	live  map[*Target]bool

	normals   captureShader
	depth     captureShader
	estimator estimatorShader
	projector projectorShader
	lit       litShader
	material  rl.Material

	meshes   *meshCache
	receiver rl.Mesh

	viewProj geom.Mat4 // camera of the default framebuffer
	toLight  r3.Vec

	logger *slog.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// New compiles the shaders. Call it after rl.InitWindow.
func New(opts ...Option) (*Host, error) {
	h := &Host{
		live:     make(map[*Target]bool),
		meshes:   newMeshCache(),
		viewProj: geom.Identity(),
		toLight:  r3.Vec{Y: 1},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.loadShaders(); err != nil {
		h.Unload()
		return nil, err
	}
	h.material = rl.LoadMaterialDefault()
	h.receiver = rl.GenMeshPlane(1, 1, 1, 1)
	return h, nil
}

func (h *Host) loadShaders() error {
	var err error
	if h.normals.shader, err = loadShader("capture.vs", "capture_normal.fs"); err != nil {
		return err
	}
	h.normals.sideLoc = rl.GetShaderLocation(h.normals.shader, "side")

	if h.depth.shader, err = loadShader("capture.vs", "capture_depth.fs"); err != nil {
		return err
	}
	h.depth.sideLoc = rl.GetShaderLocation(h.depth.shader, "side")

	if h.estimator.shader, err = loadShader("", "estimator.fs"); err != nil {
		return err
	}
	e := &h.estimator
	e.depthLoc = rl.GetShaderLocation(e.shader, "depthTex")
	e.cameraWorldLoc = rl.GetShaderLocation(e.shader, "cameraWorld")
	e.projInvLoc = rl.GetShaderLocation(e.shader, "projectionInverse")
	e.lightDirLoc = rl.GetShaderLocation(e.shader, "lightDir")
	e.receiverLoc = rl.GetShaderLocation(e.shader, "receiver")
	e.resolutionLoc = rl.GetShaderLocation(e.shader, "resolution")
	e.frustumLoc = rl.GetShaderLocation(e.shader, "frustumSize")
	e.radiusLoc = rl.GetShaderLocation(e.shader, "worldRadius")
	e.intensityLoc = rl.GetShaderLocation(e.shader, "intensity")
	e.iorLoc = rl.GetShaderLocation(e.shader, "ior")
	e.rayOffsetLoc = rl.GetShaderLocation(e.shader, "rayOffset")
	e.tapsLoc = rl.GetShaderLocation(e.shader, "taps")

	if h.projector.shader, err = loadShader("projector.vs", "projector.fs"); err != nil {
		return err
	}
	h.projector.lightViewProjLoc = rl.GetShaderLocation(h.projector.shader, "lightViewProjection")
	h.projector.colorLoc = rl.GetShaderLocation(h.projector.shader, "causticsColor")

	if h.lit.shader, err = loadShader("lit.vs", "lit.fs"); err != nil {
		return err
	}
	h.lit.tintLoc = rl.GetShaderLocation(h.lit.shader, "tint")
	h.lit.toLightLoc = rl.GetShaderLocation(h.lit.shader, "toLight")
	return nil
}

// Unload frees every GPU resource, including live targets.
func (h *Host) Unload() {
	for t := range h.live {
		h.ReleaseTarget(t)
	}
	for _, s := range []rl.Shader{h.normals.shader, h.depth.shader, h.estimator.shader, h.projector.shader, h.lit.shader} {
		if s.ID != 0 {
			rl.UnloadShader(s)
		}
	}
	h.meshes.unload()
	if h.receiver.VertexCount > 0 {
		rl.UnloadMesh(&h.receiver)
	}
}

// SetView sets the camera used when drawing into the default framebuffer.
// The whole transform goes into the rlgl projection matrix.
func (h *Host) SetView(viewProjection geom.Mat4) {
	h.viewProj = viewProjection
}

// SetLight sets the direction toward the light used to shade view renders.
func (h *Host) SetLight(toLight r3.Vec) {
	if d := geom.Normalize(toLight); d != (r3.Vec{}) {
		h.toLight = d
	}
}

// CreateTarget implements caustics.Host. FormatFloat targets get a 32-bit
// float colour attachment, so caustic intensities are not clamped.
func (h *Host) CreateTarget(opts caustics.TargetOptions) (caustics.Target, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("renderer: invalid target size %dx%d", opts.Width, opts.Height)
	}
	t := &Target{opts: opts}
	t.color = rl.LoadRenderTexture(int32(opts.Width), int32(opts.Height))
	if opts.Format == caustics.FormatFloat {
		if err := attachFloatColor(&t.color); err != nil {
			rl.UnloadRenderTexture(t.color)
			return nil, err
		}
	}
	if opts.Depth {
		t.depth = rl.LoadRenderTexture(int32(opts.Width), int32(opts.Height))
		rl.SetTextureFilter(t.depth.Texture, rl.FilterPoint)
	}
	switch {
	case opts.Filter == caustics.FilterNearest:
		rl.SetTextureFilter(t.color.Texture, rl.FilterPoint)
	case opts.Mipmaps:
		rl.GenTextureMipmaps(&t.color.Texture)
		rl.SetTextureFilter(t.color.Texture, rl.FilterTrilinear)
	default:
		rl.SetTextureFilter(t.color.Texture, rl.FilterBilinear)
	}
	h.live[t] = true
	return t, nil
}

// attachFloatColor swaps the RGBA8 colour attachment of rt for an RGBA32F
// texture of the same size.
func attachFloatColor(rt *rl.RenderTexture2D) error {
	w, h := rt.Texture.Width, rt.Texture.Height
	id := rl.LoadTexture(nil, w, h, pixelFormatRGBA32F, 1)
	if id == 0 {
		return fmt.Errorf("renderer: loading %dx%d float texture failed", w, h)
	}
	rl.FramebufferAttach(rt.ID, id, attachmentColorChannel0, attachmentTexture2D, 0)
	if !rl.FramebufferComplete(rt.ID) {
		rl.UnloadTexture(rl.Texture2D{ID: id})
		return fmt.Errorf("renderer: float framebuffer %dx%d incomplete", w, h)
	}
	rl.UnloadTexture(rt.Texture)
	rt.Texture = rl.Texture2D{ID: id, Width: w, Height: h, Mipmaps: 1, Format: pixelFormatRGBA32F}
	return nil
}

// ReleaseTarget implements caustics.Host.
func (h *Host) ReleaseTarget(ct caustics.Target) {
	t, ok := ct.(*Target)
	if !ok || !h.live[t] {
		return
	}
	rl.UnloadRenderTexture(t.color)
	if t.opts.Depth {
		rl.UnloadRenderTexture(t.depth)
	}
	delete(h.live, t)
	if h.bound == t {
		h.bound = nil
	}
}

// RenderTarget implements caustics.Host.
func (h *Host) RenderTarget() caustics.Target {
	if h.bound == nil {
		return nil
	}
	return h.bound
}

// SetRenderTarget implements caustics.Host.
func (h *Host) SetRenderTarget(ct caustics.Target) error {
	if ct == nil {
		h.bound = nil
		return nil
	}
	t, err := h.lookup(ct)
	if err != nil {
		return err
	}
	h.bound = t
	return nil
}

func (h *Host) lookup(ct caustics.Target) (*Target, error) {
	t, ok := ct.(*Target)
	if !ok || !h.live[t] {
		return nil, ErrForeignTarget
	}
	return t, nil
}

// into runs fn with the colour texture of t bound, or the default
// framebuffer for nil.
func into(t *Target, fn func()) {
	if t == nil {
		fn()
		return
	}
	rl.BeginTextureMode(t.color)
	fn()
	rl.EndTextureMode()
}

// withMatrices runs fn with the rlgl matrices replaced.
func withMatrices(view, projection geom.Mat4, fn func()) {
	rl.DrawRenderBatchActive()
	prevProj, prevView := rl.GetMatrixProjection(), rl.GetMatrixModelview()
	rl.SetMatrixProjection(toMatrix(projection))
	rl.SetMatrixModelview(toMatrix(view))
	fn()
	rl.DrawRenderBatchActive()
	rl.SetMatrixProjection(prevProj)
	rl.SetMatrixModelview(prevView)
}

// Clear implements caustics.Host. Packed depth clears to white, which
// unpacks to the far value.
func (h *Host) Clear() error {
	t := h.bound
	into(t, func() { rl.ClearBackground(rl.Blank) })
	if t != nil && t.opts.Depth {
		rl.BeginTextureMode(t.depth)
		rl.ClearBackground(rl.White)
		rl.EndTextureMode()
	}
	return nil
}

// RenderScene implements caustics.Host. With an override material it runs
// the normal capture into the colour texture and the depth capture into the
// packed depth texture.
func (h *Host) RenderScene(scn *scene.Scene, cam lightcam.Camera) error {
	t := h.bound
	m := scn.Override()
	if m == nil {
		into(t, func() {
			withMatrices(cam.View, cam.Projection, func() { h.drawRefractive(scn) })
		})
		return nil
	}

	side := []float32{float32(m.FaceSide())}
	rl.SetShaderValue(h.normals.shader, h.normals.sideLoc, side, rl.ShaderUniformFloat)
	rl.SetShaderValue(h.depth.shader, h.depth.sideLoc, side, rl.ShaderUniformFloat)

	capture := func(shader rl.Shader) {
		rl.EnableDepthTest()
		rl.DisableBackfaceCulling()
		withMatrices(cam.View, cam.Projection, func() { h.drawMeshes(scn, shader) })
		rl.EnableBackfaceCulling()
		rl.DisableDepthTest()
	}
	into(t, func() { capture(h.normals.shader) })
	if t != nil && t.opts.Depth {
		rl.BeginTextureMode(t.depth)
		capture(h.depth.shader)
		rl.EndTextureMode()
	}
	return nil
}

// drawMeshes draws every refractive mesh with shader.
func (h *Host) drawMeshes(scn *scene.Scene, shader rl.Shader) {
	mat := h.material
	mat.Shader = shader
	scn.EachRefractive(func(o scene.Object, _ *scene.Refractive) {
		if o.Mesh == nil {
			return
		}
		mesh, ok := h.meshes.get(o.Mesh)
		if !ok {
			if h.meshes.warnOnce(o.Mesh) {
				h.logger.Warn("custom mesh has no GPU generator, skipped", "entity", o.Entity)
			}
			return
		}
		rl.DrawMesh(mesh, mat, toMatrix(o.Transform.Matrix()))
	})
}

// DrawFullScreen implements caustics.Host.
func (h *Host) DrawFullScreen(pass caustics.EstimatorPass) error {
	capture, err := h.lookup(pass.Capture)
	if err != nil {
		return fmt.Errorf("estimator capture: %w", err)
	}
	if !capture.opts.Depth {
		return fmt.Errorf("estimator capture has no depth")
	}
	out := h.bound
	if out == nil {
		return fmt.Errorf("estimator needs an off-screen target")
	}
	u := pass.Uniforms
	e := h.estimator
	w, ht := out.Size()

	rl.SetShaderValueTexture(e.shader, e.depthLoc, capture.depth.Texture)
	rl.SetShaderValueMatrix(e.shader, e.cameraWorldLoc, toMatrix(u.CameraWorld))
	rl.SetShaderValueMatrix(e.shader, e.projInvLoc, toMatrix(u.ProjectionInverse))
	rl.SetShaderValue(e.shader, e.lightDirLoc, []float32{float32(u.LightDir.X), float32(u.LightDir.Y), float32(u.LightDir.Z)}, rl.ShaderUniformVec3)
	n := u.Receiver.Normal
	rl.SetShaderValue(e.shader, e.receiverLoc, []float32{float32(n.X), float32(n.Y), float32(n.Z), float32(u.Receiver.Constant)}, rl.ShaderUniformVec4)
	rl.SetShaderValue(e.shader, e.resolutionLoc, []float32{float32(u.Resolution)}, rl.ShaderUniformFloat)
	rl.SetShaderValue(e.shader, e.frustumLoc, []float32{float32(u.FrustumSize)}, rl.ShaderUniformFloat)
	rl.SetShaderValue(e.shader, e.radiusLoc, []float32{float32(u.WorldRadius)}, rl.ShaderUniformFloat)
	rl.SetShaderValue(e.shader, e.intensityLoc, []float32{float32(u.Intensity)}, rl.ShaderUniformFloat)
	rl.SetShaderValue(e.shader, e.iorLoc, []float32{float32(u.IOR)}, rl.ShaderUniformFloat)
	rl.SetShaderValue(e.shader, e.rayOffsetLoc, []float32{float32(u.RayOffset)}, rl.ShaderUniformFloat)
	taps := make([]float32, 0, 2*len(u.Taps))
	for _, tap := range u.Taps {
		taps = append(taps, float32(tap.X), float32(tap.Y))
	}
	rl.SetShaderValueV(e.shader, e.tapsLoc, taps, rl.ShaderUniformVec2, int32(len(u.Taps)))

	rl.BeginTextureMode(out.color)
	rl.BeginBlendMode(rl.BlendCustom)
	rl.SetBlendFactors(glOne, glZero, glFuncAdd)
	rl.BeginShaderMode(e.shader)
	src := rl.Rectangle{Width: float32(w), Height: float32(ht)}
	rl.DrawTextureRec(capture.color.Texture, src, rl.Vector2{}, rl.White)
	rl.EndShaderMode()
	rl.EndBlendMode()
	rl.EndTextureMode()
	return nil
}

// GenerateMipmaps implements caustics.Host.
func (h *Host) GenerateMipmaps(ct caustics.Target) error {
	t, err := h.lookup(ct)
	if err != nil {
		return err
	}
	if t.opts.Mipmaps {
		rl.GenTextureMipmaps(&t.color.Texture)
	}
	return nil
}

// DrawReceiver implements caustics.Host.
func (h *Host) DrawReceiver(fp lightcam.Footprint, u caustics.ProjectorUniforms) error {
	front, err := h.lookup(u.Front)
	if err != nil {
		return fmt.Errorf("front caustics: %w", err)
	}
	back, err := h.lookup(u.Back)
	if err != nil {
		return fmt.Errorf("back caustics: %w", err)
	}

	p := h.projector
	rl.SetShaderValueMatrix(p.shader, p.lightViewProjLoc, toMatrix(u.LightViewProjection))
	rl.SetShaderValue(p.shader, p.colorLoc, vec3(u.Color), rl.ShaderUniformVec3)

	mat := h.material
	mat.Shader = p.shader
	frontMap := mat.GetMap(rl.MapAlbedo)
	prevFront := frontMap.Texture
	frontMap.Texture = front.color.Texture
	backMap := mat.GetMap(rl.MapMetalness)
	prevBack := backMap.Texture
	backMap.Texture = back.color.Texture
	defer func() {
		frontMap.Texture = prevFront
		backMap.Texture = prevBack
	}()

	model := toMatrix(caustics.ReceiverTransform(fp).Matrix())
	into(h.bound, func() {
		withMatrices(geom.Identity(), h.viewProj, func() {
			rl.EnableDepthTest()
			if !u.DepthWrite {
				rl.DisableDepthMask()
			}
			rl.DisableBackfaceCulling()
			rl.BeginBlendMode(rl.BlendCustom)
			rl.SetBlendFactors(blendFactor(u.SrcFactor), blendFactor(u.DstFactor), glFuncAdd)
			rl.DrawMesh(h.receiver, mat, model)
			rl.EndBlendMode()
			rl.EnableBackfaceCulling()
			rl.EnableDepthMask()
			rl.DisableDepthTest()
		})
	})
	return nil
}

func blendFactor(f caustics.BlendFactor) int32 {
	switch f {
	case caustics.BlendOne:
		return glOne
	case caustics.BlendSrcAlpha:
		return glSrcAlpha
	case caustics.BlendOneMinusSrcAlpha:
		return glOneMinusSrcAlpha
	default:
		return glZero
	}
}

// RenderSurfaces draws the receiver surfaces from the view camera into the
// bound target, with depth.
func (h *Host) RenderSurfaces(scn *scene.Scene) {
	into(h.bound, func() {
		withMatrices(geom.Identity(), h.viewProj, func() {
			rl.EnableDepthTest()
			rl.DisableBackfaceCulling()
			scn.EachSurface(func(o scene.Object, s *scene.Surface) {
				h.drawLit(o, s.Albedo, 1)
			})
			rl.EnableBackfaceCulling()
			rl.DisableDepthTest()
		})
	})
}

// RenderRefractive draws the refractive objects from the view camera with
// their tint and opacity, alpha blended over the bound target.
func (h *Host) RenderRefractive(scn *scene.Scene) {
	into(h.bound, func() {
		withMatrices(geom.Identity(), h.viewProj, func() { h.drawRefractive(scn) })
	})
}

func (h *Host) drawRefractive(scn *scene.Scene) {
	rl.EnableDepthTest()
	rl.DisableDepthMask()
	rl.BeginBlendMode(rl.BlendCustom)
	rl.SetBlendFactors(glSrcAlpha, glOneMinusSrcAlpha, glFuncAdd)
	scn.EachRefractive(func(o scene.Object, r *scene.Refractive) {
		h.drawLit(o, r.Tint, r.Opacity)
	})
	rl.EndBlendMode()
	rl.EnableDepthMask()
	rl.DisableDepthTest()
}

// drawLit draws one object with the Lambert shader.
func (h *Host) drawLit(o scene.Object, c scene.Color, alpha float64) {
	if o.Mesh == nil {
		return
	}
	mesh, ok := h.meshes.get(o.Mesh)
	if !ok {
		if h.meshes.warnOnce(o.Mesh) {
			h.logger.Warn("custom mesh has no GPU generator, skipped", "entity", o.Entity)
		}
		return
	}
	rl.SetShaderValue(h.lit.shader, h.lit.toLightLoc, []float32{float32(h.toLight.X), float32(h.toLight.Y), float32(h.toLight.Z)}, rl.ShaderUniformVec3)
	rl.SetShaderValue(h.lit.shader, h.lit.tintLoc, append(vec3(c), float32(alpha)), rl.ShaderUniformVec4)
	mat := h.material
	mat.Shader = h.lit.shader
	rl.DrawMesh(mesh, mat, toMatrix(o.Transform.Matrix()))
}

// ExportTexture writes the colour texture of t to a PNG file.
func (h *Host) ExportTexture(ct caustics.Target, path string) error {
	t, err := h.lookup(ct)
	if err != nil {
		return err
	}
	img := rl.LoadImageFromTexture(t.color.Texture)
	defer rl.UnloadImage(img)
	rl.ImageFlipVertical(img)
	if !rl.ExportImage(*img, path) {
		return fmt.Errorf("renderer: exporting %s failed", path)
	}
	return nil
}

// Channel reads back one colour channel of t. Float targets return raw
// values, RGBA8 targets values in [0,1].
func (h *Host) Channel(ct caustics.Target, c int) ([]float64, error) {
	t, err := h.lookup(ct)
	if err != nil {
		return nil, err
	}
	img := rl.LoadImageFromTexture(t.color.Texture)
	defer rl.UnloadImage(img)

	if img.Format == pixelFormatRGBA32F {
		n := int(img.Width) * int(img.Height)
		return floatChannel(unsafe.Slice((*float32)(img.Data), 4*n), c), nil
	}
	colors := rl.LoadImageColors(img)
	defer rl.UnloadImageColors(colors)
	return byteChannel(colors, c), nil
}

// channelIndex maps c onto RGBA; anything outside 0..2 reads alpha.
func channelIndex(c int) int {
	if c < 0 || c > 2 {
		return 3
	}
	return c
}

func floatChannel(texels []float32, c int) []float64 {
	i := channelIndex(c)
	out := make([]float64, len(texels)/4)
	for j := range out {
		out[j] = float64(texels[4*j+i])
	}
	return out
}

func byteChannel(colors []rl.Color, c int) []float64 {
	i := channelIndex(c)
	out := make([]float64, len(colors))
	for j, col := range colors {
		v := [4]uint8{col.R, col.G, col.B, col.A}[i]
		out[j] = float64(v) / 255
	}
	return out
}

// DrawLines draws world-space segments over the bound target with the view
// camera, e.g. the light frustum.
func (h *Host) DrawLines(lines [][2]r3.Vec, c scene.Color) {
	col := toColor(c, 1)
	into(h.bound, func() {
		withMatrices(geom.Identity(), h.viewProj, func() {
			for _, l := range lines {
				rl.DrawLine3D(toVector3(l[0]), toVector3(l[1]), col)
			}
		})
	})
}
