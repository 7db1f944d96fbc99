package compiler

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const materialHeader = "void material(inout MaterialInputs material) {\n"

func TestTranslateRewritesMaterialVocabulary(t *testing.T) {
	_, opts := optionsFor(variant.Key{EnableDiagnostics: true, HasNormalTexture: true})
	src := materialHeader +
		"    highp float2 normalUV = getUV0();\n" +
		"    material.normal = texture(materialParams_normalMap, normalUV).xyz * 2.0 - 1.0;\n" +
		"    material.normal.xy *= materialParams.normalScale;\n" +
		"    if (materialParams.enableDiagnostics) {\n" +
		"        material.normal = vec3(0.0, 0.0, 1.0);\n" +
		"    }\n" +
		"    prepareMaterial(material);\n" +
		"    float scale = getObjectUserData();\n" +
		"}\n"

	out, err := newMaterialTranslator(opts).translate(src)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"    var normalUV: vec2<f32> = input.uv0;\n"+
		"    material.normal = textureSample(materialParams_normalMap, materialParams_normalMap_sampler, normalUV).xyz * 2.0 - 1.0;\n"+
		"    let swizzle0 = material.normal.xy * (materialParams.normalScale);\n"+
		"    material.normal = vec3<f32>(swizzle0.x, swizzle0.y, material.normal.z);\n"+
		"    if ((materialParams.enableDiagnostics != 0u)) {\n"+
		"        material.normal = vec3<f32>(0.0, 0.0, 1.0);\n"+
		"    }\n"+
		"    material = prepareMaterial(material);\n"+
		"    var scale: f32 = input.userData;\n",
		out)
}

func TestTranslateSwizzleStores(t *testing.T) {
	_, opts := optionsFor(variant.Key{})
	src := materialHeader +
		"    material.baseColor.rgb *= material.baseColor.a;\n" +
		"    material.emissive.rgb = vec3(1.0, 0.5, 0.0);\n" +
		"}\n"

	out, err := newMaterialTranslator(opts).translate(src)
	require.NoError(t, err)
	assert.Contains(t, out, "let swizzle0 = material.baseColor.rgb * (material.baseColor.a);\n")
	assert.Contains(t, out, "material.baseColor = vec4<f32>(swizzle0.x, swizzle0.y, swizzle0.z, material.baseColor.w);\n")
	assert.Contains(t, out, "let swizzle1 = (vec3<f32>(1.0, 0.5, 0.0));\n")
	assert.Contains(t, out, "material.emissive = vec4<f32>(swizzle1.x, swizzle1.y, swizzle1.z, material.emissive.w);\n")
}

func TestTranslateConditionals(t *testing.T) {
	src := materialHeader +
		"#if defined(HAS_ATTRIBUTE_TANGENTS)\n" +
		"    material.baseColor.rgb = vertex_worldNormal * 0.5 + 0.5;\n" +
		"#else\n" +
		"    material.roughness = 0.5;\n" +
		"#endif\n" +
		"}\n"

	_, opts := optionsFor(variant.Key{})
	out, err := newMaterialTranslator(opts).translate(src)
	require.NoError(t, err)
	assert.NotContains(t, out, "input.worldNormal")
	assert.Contains(t, out, "material.roughness = 0.5;")

	opts.RequiredAttributes = opts.RequiredAttributes.With(shader.AttributeTangents)
	out, err = newMaterialTranslator(opts).translate(src)
	require.NoError(t, err)
	assert.Contains(t, out, "(normalize(input.worldNormal) * 0.5 + 0.5)")
	assert.NotContains(t, out, "material.roughness")
}

func TestTranslateRejectsMalformedStructure(t *testing.T) {
	_, opts := optionsFor(variant.Key{})
	cases := map[string]string{
		"no signature": "this is { not a shader at all ]]] materialParams.undeclaredThing",
		"no close":     materialHeader + "    material.roughness = 0.5;\n",
		"open if":      materialHeader + "#if defined(HAS_ATTRIBUTE_COLOR)\n}\n",
		"stray endif":  materialHeader + "#endif\n}\n",
		"directive":    materialHeader + "#pragma unroll\n}\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newMaterialTranslator(opts).translate(src)
			assert.Error(t, err)
		})
	}
}

func TestBuildRejectsMalformedMaterial(t *testing.T) {
	c := NewNagaCompiler()
	defer c.Shutdown()

	_, opts := optionsFor(variant.Key{HasBaseColorTexture: true})
	cases := map[string]string{
		"not a function":      "this is { not a shader at all ]]] materialParams.undeclaredThing",
		"syntax error":        materialHeader + "    material.baseColor *= ]]] {;\n}\n",
		"undeclared param":    materialHeader + "    material.roughness = materialParams.undeclaredThing;\n}\n",
		"unknown output":      materialHeader + "    material.velvet = 1.0;\n}\n",
		"unknown function":    materialHeader + "    material.roughness = velvet(0.5);\n}\n",
		"unterminated branch": materialHeader + "#ifdef HAS_ATTRIBUTE_UV0\n}\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Build(src, opts)
			assert.ErrorIs(t, err, ErrCompile)
		})
	}
}

func TestFragmentCompilesEveryFeature(t *testing.T) {
	base := variant.Key{HasNormalTexture: true, HasClearCoat: true, HasClearCoatNormal: true}
	src, opts := optionsFor(base)
	plain, err := newStageGenerator(src, opts).fragment()
	require.NoError(t, err)
	assert.Contains(t, plain, "textureSample(materialParams_normalMap, materialParams_normalMap_sampler, normalUV)")
	assert.Contains(t, plain, "textureSample(materialParams_clearCoatNormalMap, materialParams_clearCoatNormalMap_sampler, clearCoatNormalUV)")
	assert.Contains(t, plain, "material.clearCoat = materialParams.clearCoatFactor;")

	sheen := base
	sheen.HasSheen = true
	src, opts = optionsFor(sheen)
	withSheen, err := newStageGenerator(src, opts).fragment()
	require.NoError(t, err)
	assert.NotEqual(t, plain, withSheen)
	assert.Contains(t, withSheen, "material.sheenColor = materialParams.sheenColorFactor;")
}

func TestBuildCompilesFullFeatureSet(t *testing.T) {
	c := NewNagaCompiler()
	defer c.Shutdown()

	keys := map[string]variant.Key{
		"metallic roughness": {
			DoubleSided:            true,
			HasVertexColors:        true,
			AlphaMode:              variant.AlphaModeBlend,
			EnableDiagnostics:      true,
			HasTextureTransforms:   true,
			HasBaseColorTexture:    true,
			HasMetallicRoughness:   true,
			HasNormalTexture:       true,
			HasOcclusionTexture:    true,
			HasEmissiveTexture:     true,
			EmissiveUV:             1,
			HasClearCoat:           true,
			HasClearCoatTexture:    true,
			HasClearCoatRoughness:  true,
			HasClearCoatNormal:     true,
			HasTransmission:        true,
			HasTransmissionTexture: true,
			HasSheen:               true,
			HasSheenColorTexture:   true,
			HasSheenRoughness:      true,
			HasVolume:              true,
			HasVolumeThickness:     true,
			HasIOR:                 true,
			HasSpecular:            true,
			HasSpecularTexture:     true,
			HasSpecularColor:       true,
		},
		"specular glossiness": {
			AlphaMode:             variant.AlphaModeMask,
			UseSpecularGlossiness: true,
			HasBaseColorTexture:   true,
			HasMetallicRoughness:  true,
			HasOcclusionTexture:   true,
		},
		"unlit": {
			Unlit:               true,
			HasVertexColors:     true,
			HasBaseColorTexture: true,
			HasNormalTexture:    true,
		},
	}
	for name, k := range keys {
		t.Run(name, func(t *testing.T) {
			src, opts := optionsFor(k)
			opts.TargetAPI = TargetAPIVulkan
			_, err := c.Build(src, opts)
			require.NoError(t, err)
		})
	}
}
