package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-jit/common"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/compiler"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent.
	MSAA16x MSAASampleCount = 16
)

// wgpuObjectFactory instantiates materials on a WebGPU device. Every GPU object it creates for a
// material is owned by the material's pipeline and released with it.
type wgpuObjectFactory struct {
	device      *wgpu.Device
	colorFormat wgpu.TextureFormat
	depthFormat wgpu.TextureFormat
	sampleCount MSAASampleCount
	frontFace   wgpu.FrontFace
}

var _ ObjectFactory = &wgpuObjectFactory{}

// NewWGPUObjectFactory creates an ObjectFactory that builds render pipelines on a device.
//
// Parameters:
//   - device: the device GPU objects are created on
//   - opts: a variadic list of WGPUObjectFactoryBuilderOption functions to configure the factory
//
// Returns:
//   - ObjectFactory: the factory
func NewWGPUObjectFactory(device *wgpu.Device, opts ...WGPUObjectFactoryBuilderOption) ObjectFactory {
	f := &wgpuObjectFactory{
		device:      device,
		colorFormat: wgpu.TextureFormatBGRA8UnormSrgb,
		depthFormat: wgpu.TextureFormatDepth24Plus,
		sampleCount: MSAA4x,
		frontFace:   wgpu.FrontFaceCCW,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *wgpuObjectFactory) Instantiate(pkg compiler.Package) (material.Material, error) {
	d, err := decodePackage(pkg)
	if err != nil {
		return nil, err
	}
	p := d.newPipeline(f.frontFace)
	if err := f.createRenderPipelines(p); err != nil {
		p.Release()
		return nil, fmt.Errorf("%w: %s: %w", ErrInstantiate, d.manifest.Name, err)
	}
	common.Logger().Debug("material instantiated", "material", d.manifest.Name, "skinned", d.skinned != nil)
	return d.newMaterial(p), nil
}

// createRenderPipelines creates the shader modules, layouts and render pipelines of p. Objects are
// handed to p as soon as they exist so a failure part way releases them with p.
func (f *wgpuObjectFactory) createRenderPipelines(p pipeline.Pipeline) error {
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	fs, err := f.createShaderModule(fragmentShader)
	if err != nil {
		return err
	}
	p.Own(fs)

	merged := p.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range merged {
		if g > maxGroup {
			maxGroup = g
		}
	}
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g, desc := range merged {
		layout, layoutErr := f.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		p.Own(layout)
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := f.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return err
	}
	p.Own(pipelineLayout)

	static, err := f.createRenderPipeline(p, pipelineLayout, p.Shader(shader.ShaderTypeVertex), fs, fragmentShader)
	if err != nil {
		return err
	}
	p.Own(static)

	var skinned *wgpu.RenderPipeline
	if s := p.SkinnedShader(); s != nil {
		skinned, err = f.createRenderPipeline(p, pipelineLayout, s, fs, fragmentShader)
		if err != nil {
			return err
		}
		p.Own(skinned)
	}

	p.SetRenderPipelines(static, skinned)
	return nil
}

func (f *wgpuObjectFactory) createShaderModule(s shader.Shader) (*wgpu.ShaderModule, error) {
	return f.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
}

// createRenderPipeline creates one render pipeline for a vertex stage of p. The vertex module is
// owned by p once created.
func (f *wgpuObjectFactory) createRenderPipeline(
	p pipeline.Pipeline,
	layout *wgpu.PipelineLayout,
	vertexShader shader.Shader,
	fs *wgpu.ShaderModule,
	fragmentShader shader.Shader,
) (*wgpu.RenderPipeline, error) {
	vs, err := f.createShaderModule(vertexShader)
	if err != nil {
		return nil, err
	}
	p.Own(vs)

	target := wgpu.ColorTargetState{
		Format:    f.colorFormat,
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		target.Blend = p.BlendState()
	}

	depthCompare := wgpu.CompareFunctionLess
	if !p.DepthTestEnabled() {
		depthCompare = wgpu.CompareFunctionAlways
	}

	return f.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  vertexShader.Key() + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(f.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            f.depthFormat,
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
}

func (f *wgpuObjectFactory) Destroy(m material.Material) {
	m.Release()
}

func (f *wgpuObjectFactory) TargetAPI() compiler.TargetAPI {
	return compiler.TargetAPIWebGPU
}
