package pipeline

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Resource is a GPU object owned by a pipeline and released with it.
type Resource interface {
	Release()
}

// pipeline is the implementation of the Pipeline interface.
// It holds the reflected stages of one compiled material, the render state derived from its
// capabilities and, when instantiated on a device, the GPU objects created for it.
type pipeline struct {
	mu sync.Mutex

	// pipelineKey is the unique identifier for this pipeline, used as the GPU object label
	pipelineKey string

	vertexShader, skinnedShader, fragmentShader shader.Shader

	// renderPipeline is nil for pipelines built without a device
	renderPipeline        *wgpu.RenderPipeline
	skinnedRenderPipeline *wgpu.RenderPipeline
	resources             []Resource
	released              bool

	depthTestEnabled  bool
	depthWriteEnabled bool
	blendEnabled      bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
}

// Pipeline is the render state of a compiled material: its vertex and fragment stages, depth,
// blend and cull configuration, and the GPU pipeline objects created from them.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the stage of the specified type, nil if not set.
	//
	// Parameters:
	//   - shaderType: the stage to retrieve
	//
	// Returns:
	//   - shader.Shader: the stage, or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// SkinnedShader retrieves the skinned vertex stage, nil when the material was compiled
	// without skinning support.
	//
	// Returns:
	//   - shader.Shader: the skinned vertex stage, or nil
	SkinnedShader() shader.Shader

	// BindGroupLayoutDescriptors returns the bind group layouts of all stages merged by group.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled
	DepthWriteEnabled() bool

	// BlendEnabled returns whether blending is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if blending is enabled
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: wgpu.CullModeNone for double sided materials, wgpu.CullModeBack otherwise
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state, only meaningful when BlendEnabled is true
	BlendState() *wgpu.BlendState

	// RenderPipeline returns the GPU pipeline for static or skinned geometry.
	//
	// Parameters:
	//   - skinned: true to select the skinned variant
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU pipeline, nil if none was created
	RenderPipeline(skinned bool) *wgpu.RenderPipeline

	// SetRenderPipelines sets the GPU pipelines created for this pipeline's stages.
	//
	// Parameters:
	//   - static: the pipeline for static geometry
	//   - skinned: the pipeline for skinned geometry, may be nil
	SetRenderPipelines(static, skinned *wgpu.RenderPipeline)

	// Own hands GPU objects to the pipeline so they are released with it.
	//
	// Parameters:
	//   - resources: the objects to release on Release
	Own(resources ...Resource)

	// Release frees every owned GPU object in reverse order of ownership. Releasing twice is a no-op.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once released
	Released() bool
}

var _ Pipeline = &pipeline{}

// NewPipeline creates the render state of a material. Vertex and fragment stages are required
// before the pipeline can be instantiated on a device.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          wgpu.CullModeBack,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState:        premultipliedBlend(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// premultipliedBlend is the blend state for fragments whose color is premultiplied by alpha.
func premultipliedBlend() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) SkinnedShader() shader.Shader {
	return p.skinnedShader
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	merged := map[int]wgpu.BindGroupLayoutDescriptor{}
	for _, s := range []shader.Shader{p.vertexShader, p.skinnedShader, p.fragmentShader} {
		if s != nil {
			merged = shader.MergeBindGroupLayouts(merged, s.BindGroupLayoutDescriptors())
		}
	}
	return merged
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) RenderPipeline(skinned bool) *wgpu.RenderPipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	if skinned {
		return p.skinnedRenderPipeline
	}
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipelines(static, skinned *wgpu.RenderPipeline) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renderPipeline = static
	p.skinnedRenderPipeline = skinned
}

func (p *pipeline) Own(resources ...Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resources = append(p.resources, resources...)
}

func (p *pipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return
	}
	for i := len(p.resources) - 1; i >= 0; i-- {
		p.resources[i].Release()
	}
	p.resources = nil
	p.renderPipeline = nil
	p.skinnedRenderPipeline = nil
	p.released = true
}

func (p *pipeline) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}
