package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-jit/common"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaterial(raw variant.Key) Material {
	k, uv := variant.Constrain(raw)
	return NewMaterial(
		WithName("test"),
		WithKey(k, uv),
		WithDeclarations(shader.DeclareParameters(k, uv)),
	)
}

func floatAt(b []byte, offset uint64) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}

func TestMaterialExposesDeclarations(t *testing.T) {
	m := newTestMaterial(variant.Key{HasBaseColorTexture: true, DoubleSided: true, AlphaMode: variant.AlphaModeBlend})
	assert.Equal(t, "test", m.Name())
	assert.True(t, m.Key().DoubleSided)
	assert.Equal(t, variant.UvSet0, m.UvMap()[0])
	assert.True(t, m.Attributes().Has(shader.AttributeUV0))
	assert.Equal(t, shader.BlendingFade, m.Capabilities().Blending)

	p, ok := m.Parameter("baseColorMap")
	require.True(t, ok)
	assert.Equal(t, shader.ParameterTypeSampler2D, p.Type)

	assert.True(t, m.Pipeline().BlendEnabled())
	assert.Equal(t, wgpu.CullModeNone, m.Pipeline().CullMode())
}

func TestPackedLayoutFollowsUniformRules(t *testing.T) {
	l := packedLayout([]shader.ParameterDecl{
		{Name: "a", Type: shader.ParameterTypeFloat},
		{Name: "b", Type: shader.ParameterTypeFloat3},
		{Name: "map", Type: shader.ParameterTypeSampler2D},
		{Name: "c", Type: shader.ParameterTypeFloat},
		{Name: "m", Type: shader.ParameterTypeMat3},
	})
	offsets := map[string]uint64{}
	for _, f := range l.Fields {
		offsets[f.Name] = f.Offset
	}
	assert.Equal(t, map[string]uint64{"a": 0, "b": 16, "c": 28, "m": 32}, offsets)
	assert.Equal(t, uint64(80), l.Size)
}

func TestInstanceSetters(t *testing.T) {
	m := newTestMaterial(variant.Key{HasBaseColorTexture: true, HasTextureTransforms: true, EnableDiagnostics: true})
	inst, err := m.CreateInstance("label", `{"tag":1}`)
	require.NoError(t, err)
	assert.Equal(t, "label", inst.Label())
	assert.Equal(t, `{"tag":1}`, inst.Extras())
	assert.Same(t, m, inst.Material())
	assert.Equal(t, 1, m.Instances())

	require.NoError(t, inst.SetFloat4("baseColorFactor", [4]float32{0.1, 0.2, 0.3, 0.4}))
	require.NoError(t, inst.SetFloat("roughnessFactor", 0.75))
	require.NoError(t, inst.SetBool("enableDiagnostics", true))
	require.NoError(t, inst.SetFloat3("emissiveFactor", [3]float32{1, 2, 3}))

	layout := m.UniformLayout()
	data, err := inst.UniformData()
	require.NoError(t, err)
	require.Len(t, data, int(layout.Size))

	f, _ := layout.Field("baseColorFactor")
	assert.Equal(t, float32(0.3), floatAt(data, f.Offset+8))
	f, _ = layout.Field("roughnessFactor")
	assert.Equal(t, float32(0.75), floatAt(data, f.Offset))
	f, _ = layout.Field("enableDiagnostics")
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[f.Offset:]))
	f, _ = layout.Field("emissiveFactor")
	assert.Equal(t, float32(3), floatAt(data, f.Offset+8))

	f, ok := layout.Field("baseColorUvMatrix")
	require.True(t, ok)
	assert.Equal(t, float32(1), floatAt(data, f.Offset), "uv matrices start as identity")
	assert.Equal(t, float32(1), floatAt(data, f.Offset+20))
	assert.Equal(t, float32(1), floatAt(data, f.Offset+40))

	uv := common.UvTransform(&common.TextureTransform{Offset: [2]float32{0.5, 0.25}})
	require.NoError(t, inst.SetMat3("baseColorUvMatrix", uv))
	data, _ = inst.UniformData()
	assert.Equal(t, float32(0.5), floatAt(data, f.Offset+8))
	assert.Equal(t, float32(0.25), floatAt(data, f.Offset+16+8))

	tex := &common.ImportedTexture{Name: "albedo"}
	require.NoError(t, inst.SetTexture("baseColorMap", tex, nil))
	b, ok := inst.Texture("baseColorMap")
	require.True(t, ok)
	assert.Same(t, tex, b.Texture)
	assert.Len(t, inst.Textures(), 1)
}

func TestInstanceRejectsUnknownAndMistyped(t *testing.T) {
	m := newTestMaterial(variant.Key{HasBaseColorTexture: true})
	inst, err := m.CreateInstance("", "")
	require.NoError(t, err)

	assert.ErrorIs(t, inst.SetFloat("clearCoatFactor", 1), ErrUnknownParameter)
	assert.ErrorIs(t, inst.SetFloat("baseColorFactor", 1), ErrParameterType)
	assert.ErrorIs(t, inst.SetTexture("baseColorFactor", nil, nil), ErrParameterType)
	assert.ErrorIs(t, inst.SetTexture("normalMap", nil, nil), ErrUnknownParameter)
	assert.ErrorIs(t, inst.SetMaskThreshold(0.3), ErrUnknownParameter)
}

func TestReleasedMaterialInvalidatesInstances(t *testing.T) {
	m := newTestMaterial(variant.Key{})
	inst, err := m.CreateInstance("a", "")
	require.NoError(t, err)

	m.Release()
	m.Release()
	assert.True(t, m.Released())
	assert.True(t, m.Pipeline().Released())

	_, err = m.CreateInstance("b", "")
	assert.ErrorIs(t, err, ErrMaterialReleased)
	assert.ErrorIs(t, inst.SetFloat4("baseColorFactor", [4]float32{}), ErrMaterialReleased)
	_, err = inst.UniformData()
	assert.ErrorIs(t, err, ErrMaterialReleased)
	assert.Equal(t, 1, m.Instances())
}

func TestMaskThresholdFromReflectedLayout(t *testing.T) {
	k, uv := variant.Constrain(variant.Key{AlphaMode: variant.AlphaModeMask})
	layout := shader.StructLayout{
		Name:  "MaterialParams",
		Size:  32,
		Align: 16,
		Fields: []shader.StructField{
			{Name: "baseColorFactor", Type: "vec4<f32>", Offset: 0, Size: 16},
			{Name: MaskThresholdField, Type: "f32", Offset: 16, Size: 4},
		},
	}
	m := NewMaterial(WithKey(k, uv), WithDeclarations(shader.DeclareParameters(k, uv)), WithUniformLayout(layout))
	inst, err := m.CreateInstance("", "")
	require.NoError(t, err)

	data, _ := inst.UniformData()
	assert.Equal(t, DefaultMaskThreshold, floatAt(data, 16))
	require.NoError(t, inst.SetMaskThreshold(0.25))
	data, _ = inst.UniformData()
	assert.Equal(t, float32(0.25), floatAt(data, 16))
}
