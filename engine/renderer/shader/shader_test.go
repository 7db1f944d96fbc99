package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVertexSource = `
// frame data
struct FrameUniforms {
    viewProjection: mat4x4<f32>,
    eye: vec4<f32>,
}
@group(0) @binding(0) var<uniform> frame: FrameUniforms;

struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(2) color: vec4<f32>,
    @location(3) uv0: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) color: vec4<f32>,
}

/* entry /* nested */ point */
@vertex
fn vs_main(input: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = frame.viewProjection * vec4<f32>(input.position, 1.0);
    out.color = input.color;
    return out;
}
`

const testFragmentSource = `
struct MaterialParams {
    baseColorFactor: vec4<f32>,
    roughnessFactor: f32,
    emissiveFactor: vec3<f32>,
    baseColorUvMatrix: mat3x3<f32>,
    enableDiagnostics: u32,
}
@group(1) @binding(0) var<uniform> materialParams: MaterialParams;
@group(1) @binding(1) var materialParams_baseColorMap: texture_2d<f32>;
@group(1) @binding(2) var materialParams_baseColorMap_sampler: sampler;
@group(0) @binding(0) var<uniform> frame: FrameUniforms;

struct FrameUniforms {
    viewProjection: mat4x4<f32>,
    eye: vec4<f32>,
}

@fragment
fn fs_main(@location(0) color: vec4<f32>) -> @location(0) vec4<f32> {
    return materialParams.baseColorFactor * color;
}
`

func TestNewShaderVertexReflection(t *testing.T) {
	s, err := NewShader("test_vs", ShaderTypeVertex, testVertexSource)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", s.EntryPoint())
	assert.Equal(t, "test_vs", s.Module().Label)
	assert.Equal(t, testVertexSource, s.Module().WGSLDescriptor.Code)

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(36), layouts[0].ArrayStride)
	require.Len(t, layouts[0].Attributes, 3)
	assert.Equal(t, wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0}, layouts[0].Attributes[0])
	assert.Equal(t, wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 2}, layouts[0].Attributes[1])
	assert.Equal(t, wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x2, Offset: 28, ShaderLocation: 3}, layouts[0].Attributes[2])

	desc := s.BindGroupLayoutDescriptors()[0]
	require.Len(t, desc.Entries, 1)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(80), desc.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageVertex, desc.Entries[0].Visibility)
	assert.Equal(t, "frame", s.BindGroupVarName(0, 0))
}

func TestNewShaderFragmentReflection(t *testing.T) {
	s, err := NewShader("test_fs", ShaderTypeFragment, testFragmentSource)
	require.NoError(t, err)
	assert.Equal(t, "fs_main", s.EntryPoint())
	assert.Nil(t, s.VertexLayouts())

	group := s.BindGroupLayoutDescriptors()[1]
	require.Len(t, group.Entries, 3)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, group.Entries[0].Buffer.Type)
	assert.Equal(t, wgpu.TextureViewDimension2D, group.Entries[1].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, group.Entries[1].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, group.Entries[2].Sampler.Type)

	binding, ok := s.BindGroupFromVarName(1, "materialParams_baseColorMap_sampler")
	require.True(t, ok)
	assert.Equal(t, 2, binding)
	_, ok = s.BindGroupFromVarName(3, "missing")
	assert.False(t, ok)

	// FrameUniforms is declared after its use; its size must still resolve.
	assert.Equal(t, uint64(80), s.BindGroupLayoutDescriptors()[0].Entries[0].Buffer.MinBindingSize)
}

func TestStructLayoutOffsets(t *testing.T) {
	s, err := NewShader("test_fs", ShaderTypeFragment, testFragmentSource)
	require.NoError(t, err)

	l, ok := s.StructLayout("MaterialParams")
	require.True(t, ok)
	want := []StructField{
		{Name: "baseColorFactor", Type: "vec4<f32>", Offset: 0, Size: 16},
		{Name: "roughnessFactor", Type: "f32", Offset: 16, Size: 4},
		{Name: "emissiveFactor", Type: "vec3<f32>", Offset: 32, Size: 12},
		{Name: "baseColorUvMatrix", Type: "mat3x3<f32>", Offset: 48, Size: 48},
		{Name: "enableDiagnostics", Type: "u32", Offset: 96, Size: 4},
	}
	assert.Equal(t, want, l.Fields)
	assert.Equal(t, uint64(112), l.Size)
	assert.Equal(t, uint64(16), l.Align)

	f, ok := l.Field("emissiveFactor")
	require.True(t, ok)
	assert.Equal(t, uint64(32), f.Offset)

	_, ok = s.StructLayout("Nope")
	assert.False(t, ok)
}

func TestNewShaderWithoutEntryPoint(t *testing.T) {
	_, err := NewShader("broken", ShaderTypeFragment, testVertexSource)
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vs, err := NewShader("vs", ShaderTypeVertex, testVertexSource)
	require.NoError(t, err)
	fs, err := NewShader("fs", ShaderTypeFragment, testFragmentSource)
	require.NoError(t, err)

	merged := MergeBindGroupLayouts(vs.BindGroupLayoutDescriptors(), fs.BindGroupLayoutDescriptors())
	require.Len(t, merged, 2)
	require.Len(t, merged[0].Entries, 1)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, merged[0].Entries[0].Visibility)
	assert.Len(t, merged[1].Entries, 3)
}

func TestStripComments(t *testing.T) {
	src := "a // one\n/* two /* three */ still */b\n"
	assert.Equal(t, "a \nb\n", StripComments(src))
}
