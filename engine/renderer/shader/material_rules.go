// material_rules.go holds the ordered feature rule table behind material source assembly and
// parameter declaration. Each rule owns both the shader text it emits and the parameters that
// text references, so the two can never drift apart.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
)

// featureRule is one independent step of material generation. Rules are applied in table order;
// a rule whose applies returns false contributes nothing.
type featureRule struct {
	name       string
	applies    func(k variant.Key) bool
	source     func(k variant.Key) string
	params     func(k variant.Key) []ParameterDecl
	attributes AttributeSet
	configure  func(k variant.Key, c *Capabilities)
}

// textureRule describes a sampled texture: the parameter prefix (baseColor -> baseColorMap,
// baseColorUvMatrix, baseColorUV), the template channel its UV comes from, and the statements
// folding the sample into the material outputs. %s in fold is replaced by the sample expression.
type textureRule struct {
	param   string
	channel string
	fold    string
}

// uvPrelude emits the UV variable declaration and, when transforms are enabled, its transform.
func (t textureRule) uvPrelude(k variant.Key) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "    highp float2 %sUV = ${%s};\n", t.param, t.channel)
	if k.HasTextureTransforms {
		fmt.Fprintf(&sb, "    %sUV = (vec3(%sUV, 1.0) * materialParams.%sUvMatrix).xy;\n", t.param, t.param, t.param)
	}
	return sb.String()
}

func (t textureRule) source(k variant.Key) string {
	sample := fmt.Sprintf("texture(materialParams_%sMap, %sUV)", t.param, t.param)
	return t.uvPrelude(k) + strings.ReplaceAll(t.fold, "%s", sample)
}

func (t textureRule) params(k variant.Key) []ParameterDecl {
	decls := []ParameterDecl{{Name: t.param + "Map", Type: ParameterTypeSampler2D}}
	if k.HasTextureTransforms {
		decls = append(decls, ParameterDecl{Name: t.param + "UvMatrix", Type: ParameterTypeMat3, Precision: PrecisionHigh})
	}
	return decls
}

// texture builds a featureRule for a sampled texture, adding extra parameters ahead of the sampler.
func texture(name string, applies func(k variant.Key) bool, t textureRule, extra ...ParameterDecl) featureRule {
	return featureRule{
		name:    name,
		applies: applies,
		source:  t.source,
		params: func(k variant.Key) []ParameterDecl {
			return append(append([]ParameterDecl(nil), extra...), t.params(k)...)
		},
	}
}

// text returns a source func emitting fixed statements.
func text(lines ...string) func(variant.Key) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString("    ")
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	s := sb.String()
	return func(variant.Key) string { return s }
}

// declare returns a params func yielding fixed declarations.
func declare(decls ...ParameterDecl) func(variant.Key) []ParameterDecl {
	return func(variant.Key) []ParameterDecl { return decls }
}

func float(name string) ParameterDecl  { return ParameterDecl{Name: name, Type: ParameterTypeFloat} }
func float3(name string) ParameterDecl { return ParameterDecl{Name: name, Type: ParameterTypeFloat3} }
func float4(name string) ParameterDecl { return ParameterDecl{Name: name, Type: ParameterTypeFloat4} }
func boolean(name string) ParameterDecl {
	return ParameterDecl{Name: name, Type: ParameterTypeBool}
}

func lit(k variant.Key) bool { return !k.Unlit }

// materialRules is the fixed emission order of the material body.
var materialRules = []featureRule{
	{
		name:    "surface",
		applies: func(variant.Key) bool { return true },
		configure: func(k variant.Key, c *Capabilities) {
			switch k.AlphaMode {
			case variant.AlphaModeMask:
				c.Blending = BlendingMasked
			case variant.AlphaModeBlend:
				c.Blending = BlendingFade
			default:
				c.Blending = BlendingOpaque
			}
			switch {
			case k.Unlit:
				c.Shading = ShadingUnlit
			case k.UseSpecularGlossiness:
				c.Shading = ShadingSpecularGlossiness
			default:
				c.Shading = ShadingLit
			}
		},
	},
	texture("normal",
		func(k variant.Key) bool { return k.HasNormalTexture && lit(k) },
		textureRule{param: "normal", channel: "normal", fold: "" +
			"    material.normal = %s.xyz * 2.0 - 1.0;\n" +
			"    material.normal.xy *= materialParams.normalScale;\n"},
		float("normalScale")),
	texture("clearCoatNormal",
		func(k variant.Key) bool { return k.HasClearCoat && k.HasClearCoatNormal && lit(k) },
		textureRule{param: "clearCoatNormal", channel: "clearCoatNormal", fold: "" +
			"    material.clearCoatNormal = %s.xyz * 2.0 - 1.0;\n" +
			"    material.clearCoatNormal.xy *= materialParams.clearCoatNormalScale;\n"},
		float("clearCoatNormalScale")),
	{
		name:    "normalDiagnostics",
		applies: func(k variant.Key) bool { return k.EnableDiagnostics && lit(k) },
		source: text(
			"if (materialParams.enableDiagnostics) {",
			"    material.normal = vec3(0.0, 0.0, 1.0);",
			"}",
		),
		params: declare(boolean("enableDiagnostics")),
	},
	{
		name:    "baseColor",
		applies: func(variant.Key) bool { return true },
		source: text(
			"prepareMaterial(material);",
			"material.baseColor = materialParams.baseColorFactor;",
		),
		params: declare(float4("baseColorFactor")),
	},
	texture("baseColorTexture",
		func(k variant.Key) bool { return k.HasBaseColorTexture },
		textureRule{param: "baseColor", channel: "color", fold: "    material.baseColor *= %s;\n"}),
	{
		name:    "colorDiagnostics",
		applies: func(k variant.Key) bool { return k.EnableDiagnostics },
		source: text(
			"#if defined(HAS_ATTRIBUTE_TANGENTS)",
			"if (materialParams.enableDiagnostics) {",
			"    material.baseColor.rgb = vertex_worldNormal * 0.5 + 0.5;",
			"}",
			"#endif",
		),
		params: declare(boolean("enableDiagnostics")),
	},
	{
		name:    "premultiply",
		applies: func(k variant.Key) bool { return k.AlphaMode == variant.AlphaModeBlend },
		source:  text("material.baseColor.rgb *= material.baseColor.a;"),
	},
	{
		name:       "vertexColor",
		applies:    func(k variant.Key) bool { return k.HasVertexColors },
		source:     text("material.baseColor *= getColor();"),
		attributes: AttributeSet(0).With(AttributeColor),
	},
	{
		name:    "lit",
		applies: lit,
		source: func(k variant.Key) string {
			if k.UseSpecularGlossiness {
				return text(
					"material.glossiness = materialParams.glossinessFactor;",
					"material.specularColor = materialParams.specularFactor;",
					"material.emissive = vec4(materialParams.emissiveStrength * materialParams.emissiveFactor.rgb, 0.0);",
				)(k)
			}
			return text(
				"material.roughness = materialParams.roughnessFactor;",
				"material.metallic = materialParams.metallicFactor;",
				"material.emissive = vec4(materialParams.emissiveStrength * materialParams.emissiveFactor.rgb, 0.0);",
			)(k)
		},
		params: func(k variant.Key) []ParameterDecl {
			if k.UseSpecularGlossiness {
				return []ParameterDecl{float("glossinessFactor"), float3("specularFactor"), float3("emissiveFactor"), float("emissiveStrength")}
			}
			return []ParameterDecl{float("roughnessFactor"), float("metallicFactor"), float3("emissiveFactor"), float("emissiveStrength")}
		},
	},
	{
		name:    "metallicRoughnessTexture",
		applies: func(k variant.Key) bool { return k.HasMetallicRoughness && lit(k) },
		source: func(k variant.Key) string {
			t := textureRule{param: "metallicRoughness", channel: "metallic", fold: "" +
				"    vec4 mr = %s;\n" +
				"    material.roughness *= mr.g;\n" +
				"    material.metallic *= mr.b;\n"}
			if k.UseSpecularGlossiness {
				t.fold = "" +
					"    vec4 sg = %s;\n" +
					"    material.specularColor *= sg.rgb;\n" +
					"    material.glossiness *= sg.a;\n"
			}
			return t.source(k)
		},
		params: textureRule{param: "metallicRoughness"}.params,
	},
	texture("occlusionTexture",
		func(k variant.Key) bool { return k.HasOcclusionTexture && lit(k) },
		textureRule{param: "occlusion", channel: "ao", fold: "" +
			"    float occlusion = %s.r;\n" +
			"    material.ambientOcclusion = 1.0 + materialParams.aoStrength * (occlusion - 1.0);\n"},
		float("aoStrength")),
	texture("emissiveTexture",
		func(k variant.Key) bool { return k.HasEmissiveTexture && lit(k) },
		textureRule{param: "emissive", channel: "emissive", fold: "    material.emissive.rgb *= %s.rgb;\n"}),
	{
		name:    "transmission",
		applies: func(k variant.Key) bool { return k.HasTransmission && lit(k) },
		source:  text("material.transmission = materialParams.transmissionFactor;"),
		params:  declare(float("transmissionFactor")),
		configure: func(_ variant.Key, c *Capabilities) {
			c.RefractionMode = RefractionScreenSpace
			c.RefractionType = RefractionThin
		},
	},
	texture("transmissionTexture",
		func(k variant.Key) bool { return k.HasTransmission && k.HasTransmissionTexture && lit(k) },
		textureRule{param: "transmission", channel: "transmission", fold: "    material.transmission *= %s.r;\n"}),
	{
		name:    "clearCoat",
		applies: func(k variant.Key) bool { return k.HasClearCoat && lit(k) },
		source: text(
			"material.clearCoat = materialParams.clearCoatFactor;",
			"material.clearCoatRoughness = materialParams.clearCoatRoughnessFactor;",
		),
		params: declare(float("clearCoatFactor"), float("clearCoatRoughnessFactor")),
	},
	texture("clearCoatTexture",
		func(k variant.Key) bool { return k.HasClearCoat && k.HasClearCoatTexture && lit(k) },
		textureRule{param: "clearCoat", channel: "clearCoat", fold: "    material.clearCoat *= %s.r;\n"}),
	texture("clearCoatRoughnessTexture",
		func(k variant.Key) bool { return k.HasClearCoat && k.HasClearCoatRoughness && lit(k) },
		textureRule{param: "clearCoatRoughness", channel: "clearCoatRoughness", fold: "    material.clearCoatRoughness *= %s.g;\n"}),
	{
		name:    "sheen",
		applies: func(k variant.Key) bool { return k.HasSheen && lit(k) },
		source: text(
			"material.sheenColor = materialParams.sheenColorFactor;",
			"material.sheenRoughness = materialParams.sheenRoughnessFactor;",
		),
		params: declare(float3("sheenColorFactor"), float("sheenRoughnessFactor")),
	},
	texture("sheenColorTexture",
		func(k variant.Key) bool { return k.HasSheen && k.HasSheenColorTexture && lit(k) },
		textureRule{param: "sheenColor", channel: "sheenColor", fold: "    material.sheenColor *= %s.rgb;\n"}),
	texture("sheenRoughnessTexture",
		func(k variant.Key) bool { return k.HasSheen && k.HasSheenRoughness && lit(k) },
		textureRule{param: "sheenRoughness", channel: "sheenRoughness", fold: "    material.sheenRoughness *= %s.a;\n"}),
	{
		name:    "volume",
		applies: func(k variant.Key) bool { return k.HasVolume && lit(k) },
		source: text(
			"material.absorption = materialParams.volumeAbsorption;",
			"float scale = getObjectUserData();",
			"material.thickness = materialParams.volumeThicknessFactor * scale;",
		),
		params: declare(float3("volumeAbsorption"), float("volumeThicknessFactor")),
		configure: func(_ variant.Key, c *Capabilities) {
			c.RefractionMode = RefractionScreenSpace
			c.RefractionType = RefractionSolid
		},
	},
	texture("volumeThicknessTexture",
		func(k variant.Key) bool { return k.HasVolume && k.HasVolumeThickness && lit(k) },
		textureRule{param: "volumeThickness", channel: "volumeThickness", fold: "    material.thickness *= %s.g;\n"}),
	{
		name:    "ior",
		applies: func(k variant.Key) bool { return k.HasIOR && lit(k) },
		source:  text("material.ior = materialParams.ior;"),
		params:  declare(float("ior")),
	},
	{
		name:    "specular",
		applies: func(k variant.Key) bool { return k.HasSpecular && lit(k) },
		source: text(
			"material.specularFactor = materialParams.specularStrength;",
			"material.specularColorFactor = materialParams.specularColorFactor;",
		),
		params: declare(float("specularStrength"), float3("specularColorFactor")),
	},
	texture("specularTexture",
		func(k variant.Key) bool { return k.HasSpecular && k.HasSpecularTexture && lit(k) },
		textureRule{param: "specular", channel: "specular", fold: "    material.specularFactor *= %s.a;\n"}),
	texture("specularColorTexture",
		func(k variant.Key) bool { return k.HasSpecular && k.HasSpecularColor && lit(k) },
		textureRule{param: "specularColor", channel: "specularColor", fold: "    material.specularColorFactor *= %s.rgb;\n"}),
}
