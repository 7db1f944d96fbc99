package pipeline

import (
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage for static geometry.
//
// Parameters:
//   - s: the vertex shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithSkinnedShader sets the vertex stage for skinned geometry.
//
// Parameters:
//   - s: the skinned vertex shader, may be nil
//
// Returns:
//   - PipelineBuilderOption: a function that sets the skinned vertex shader for this pipeline
func WithSkinnedShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.skinnedShader = s
	}
}

// WithFragmentShader sets the fragment stage.
//
// Parameters:
//   - s: the fragment shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithRenderState derives blend, depth and cull state from a material's capabilities. Fade
// materials blend premultiplied color and do not write depth; opaque and masked materials write
// depth without blending. Double sided materials disable face culling.
//
// Parameters:
//   - caps: the material capabilities
//   - doubleSided: whether back faces are rendered
//
// Returns:
//   - PipelineBuilderOption: a function that applies the derived render state
func WithRenderState(caps shader.Capabilities, doubleSided bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = caps.Blending == shader.BlendingFade
		p.depthWriteEnabled = !p.blendEnabled
		p.cullMode = wgpu.CullModeBack
		if doubleSided {
			p.cullMode = wgpu.CullModeNone
		}
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face to use for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithBlendState replaces the premultiplied-alpha blend state used by fade materials.
//
// Parameters:
//   - blendState: the blend state to use when blending is enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}
