package compiler

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
)

const (
	vertexEntryPoint        = "vs_main"
	skinnedVertexEntryPoint = "vs_skinned"
	fragmentEntryPoint      = "fs_main"

	// MaterialParamsStruct is the uniform struct holding every non-sampler parameter.
	MaterialParamsStruct = "MaterialParams"

	// MaskThresholdField is the uniform member masked materials compare alpha against.
	MaskThresholdField = "maskThreshold"

	// MaterialGroup is the bind group holding the parameter block and the material textures.
	MaterialGroup = 1
)

// wgslParamTypes maps parameter types to their uniform member type. Booleans are stored as u32.
var wgslParamTypes = map[shader.ParameterType]string{
	shader.ParameterTypeBool:   "u32",
	shader.ParameterTypeFloat:  "f32",
	shader.ParameterTypeFloat3: "vec3<f32>",
	shader.ParameterTypeFloat4: "vec4<f32>",
	shader.ParameterTypeMat3:   "mat3x3<f32>",
}

// TextureVar returns the WGSL texture variable bound for a sampler parameter.
func TextureVar(param string) string {
	return "materialParams_" + param
}

// SamplerVar returns the WGSL sampler variable bound for a sampler parameter.
func SamplerVar(param string) string {
	return "materialParams_" + param + "_sampler"
}

// stageGenerator writes the WGSL programs of one material.
type stageGenerator struct {
	opts   Options
	source string
}

func newStageGenerator(source string, opts Options) *stageGenerator {
	return &stageGenerator{opts: opts, source: source}
}

func (g *stageGenerator) has(attr shader.VertexAttribute) bool {
	return g.opts.RequiredAttributes.Has(attr)
}

func (g *stageGenerator) lit() bool {
	return g.opts.Capabilities.Shading != shader.ShadingUnlit
}

// frameBindings declares the per-frame and per-object uniforms shared by every vertex stage.
func (g *stageGenerator) frameBindings(sb *strings.Builder) {
	eyes := g.opts.eyeCount()
	sb.WriteString("struct FrameUniforms {\n")
	if eyes > 1 {
		fmt.Fprintf(sb, "    viewProjection: array<mat4x4<f32>, %d>,\n", eyes)
	} else {
		sb.WriteString("    viewProjection: mat4x4<f32>,\n")
	}
	sb.WriteString("    cameraPosition: vec4<f32>,\n};\n\n")
	sb.WriteString("struct ObjectUniforms {\n    model: mat4x4<f32>,\n    userData: vec4<f32>,\n};\n\n")
	sb.WriteString("@group(0) @binding(0) var<uniform> frame: FrameUniforms;\n")
	sb.WriteString("@group(0) @binding(1) var<uniform> renderable: ObjectUniforms;\n")
}

// varyings declares the interpolated outputs. Every stage writes the same struct so the fragment
// stage links against both vertex stages.
func varyings(sb *strings.Builder, name string, clip bool) {
	fmt.Fprintf(sb, "struct %s {\n", name)
	if clip {
		sb.WriteString("    @builtin(position) clipPosition: vec4<f32>,\n")
	}
	sb.WriteString("    @location(0) color: vec4<f32>,\n")
	sb.WriteString("    @location(1) uv0: vec2<f32>,\n")
	sb.WriteString("    @location(2) uv1: vec2<f32>,\n")
	sb.WriteString("    @location(3) worldNormal: vec3<f32>,\n")
	sb.WriteString("    @location(4) userData: f32,\n")
	sb.WriteString("};\n\n")
}

// vertex generates the static or skinned vertex program.
func (g *stageGenerator) vertex(skinned bool) string {
	var sb strings.Builder
	g.frameBindings(&sb)
	if skinned {
		sb.WriteString("@group(0) @binding(2) var<storage, read> bones: array<mat4x4<f32>>;\n")
	}
	sb.WriteString("\nstruct VertexInput {\n")
	sb.WriteString("    @location(0) position: vec3<f32>,\n")
	if g.has(shader.AttributeTangents) {
		sb.WriteString("    @location(1) tangents: vec4<f32>,\n")
	}
	if g.has(shader.AttributeColor) {
		sb.WriteString("    @location(2) color: vec4<f32>,\n")
	}
	if g.has(shader.AttributeUV0) {
		sb.WriteString("    @location(3) uv0: vec2<f32>,\n")
	}
	if g.has(shader.AttributeUV1) {
		sb.WriteString("    @location(4) uv1: vec2<f32>,\n")
	}
	if skinned {
		sb.WriteString("    @location(5) boneIndices: vec4<u32>,\n")
		sb.WriteString("    @location(6) boneWeights: vec4<f32>,\n")
	}
	sb.WriteString("};\n\n")
	varyings(&sb, "VertexOutput", true)

	entry := vertexEntryPoint
	if skinned {
		entry = skinnedVertexEntryPoint
	}
	fmt.Fprintf(&sb, "@vertex\nfn %s(input: VertexInput, @builtin(instance_index) instanceIndex: u32) -> VertexOutput {\n", entry)
	sb.WriteString("    var out: VertexOutput;\n")
	sb.WriteString("    var objectPosition = vec4<f32>(input.position, 1.0);\n")
	sb.WriteString("    var objectNormal = vec3<f32>(0.0, 0.0, 1.0);\n")
	if g.has(shader.AttributeTangents) {
		sb.WriteString("    let q = input.tangents;\n")
		sb.WriteString("    objectNormal = objectNormal + 2.0 * cross(q.xyz, cross(q.xyz, objectNormal) + q.w * objectNormal);\n")
	}
	if skinned {
		sb.WriteString("    let skinMatrix = bones[input.boneIndices.x] * input.boneWeights.x\n")
		sb.WriteString("        + bones[input.boneIndices.y] * input.boneWeights.y\n")
		sb.WriteString("        + bones[input.boneIndices.z] * input.boneWeights.z\n")
		sb.WriteString("        + bones[input.boneIndices.w] * input.boneWeights.w;\n")
		sb.WriteString("    objectPosition = skinMatrix * objectPosition;\n")
		sb.WriteString("    objectNormal = (skinMatrix * vec4<f32>(objectNormal, 0.0)).xyz;\n")
	}
	sb.WriteString("    let worldPosition = renderable.model * objectPosition;\n")
	sb.WriteString("    out.worldNormal = (renderable.model * vec4<f32>(objectNormal, 0.0)).xyz;\n")
	sb.WriteString("    out.userData = renderable.userData.x;\n")
	if eyes := g.opts.eyeCount(); eyes > 1 {
		fmt.Fprintf(&sb, "    let eye = instanceIndex %% %du;\n", eyes)
		sb.WriteString("    out.clipPosition = frame.viewProjection[eye] * worldPosition;\n")
	} else {
		sb.WriteString("    out.clipPosition = frame.viewProjection * worldPosition;\n")
	}

	if g.has(shader.AttributeColor) {
		sb.WriteString("    out.color = input.color;\n")
	} else {
		sb.WriteString("    out.color = vec4<f32>(1.0, 1.0, 1.0, 1.0);\n")
	}
	for _, uv := range []struct {
		attr shader.VertexAttribute
		name string
	}{{shader.AttributeUV0, "uv0"}, {shader.AttributeUV1, "uv1"}} {
		switch {
		case !g.has(uv.attr):
			fmt.Fprintf(&sb, "    out.%s = vec2<f32>(0.0, 0.0);\n", uv.name)
		case g.opts.FlipUV:
			fmt.Fprintf(&sb, "    out.%s = vec2<f32>(input.%s.x, 1.0 - input.%s.y);\n", uv.name, uv.name, uv.name)
		default:
			fmt.Fprintf(&sb, "    out.%s = input.%s;\n", uv.name, uv.name)
		}
	}
	sb.WriteString("    return out;\n}\n")
	return sb.String()
}

// fragmentBindings declares the parameter block and a texture/sampler pair per sampler parameter,
// in declaration order starting after the uniform.
func (g *stageGenerator) fragmentBindings(sb *strings.Builder) {
	fmt.Fprintf(sb, "struct %s {\n", MaterialParamsStruct)
	for _, p := range g.opts.Parameters {
		if p.Type.IsSampler() {
			continue
		}
		fmt.Fprintf(sb, "    %s: %s,\n", p.Name, wgslParamTypes[p.Type])
	}
	if g.opts.Capabilities.Blending == shader.BlendingMasked {
		fmt.Fprintf(sb, "    %s: f32,\n", MaskThresholdField)
	}
	sb.WriteString("};\n\n")
	fmt.Fprintf(sb, "@group(%d) @binding(0) var<uniform> materialParams: %s;\n", MaterialGroup, MaterialParamsStruct)

	binding := 1
	for _, p := range g.opts.Parameters {
		if !p.Type.IsSampler() {
			continue
		}
		fmt.Fprintf(sb, "@group(%d) @binding(%d) var %s: texture_2d<f32>;\n", MaterialGroup, binding, TextureVar(p.Name))
		fmt.Fprintf(sb, "@group(%d) @binding(%d) var %s: sampler;\n", MaterialGroup, binding+1, SamplerVar(p.Name))
		binding += 2
	}
	sb.WriteString("\n")
}

// shading declares shadeMaterial, which turns the material outputs into a color lit by a single
// key light in tangent space.
func (g *stageGenerator) shading(sb *strings.Builder) {
	sb.WriteString("fn shadeMaterial(m: MaterialInputs) -> vec3<f32> {\n")
	if !g.lit() {
		sb.WriteString("    return m.baseColor.rgb + m.emissive.rgb;\n}\n\n")
		return
	}
	sb.WriteString("    let n = normalize(m.normal);\n")
	sb.WriteString("    let l = normalize(vec3<f32>(0.3, 0.5, 0.8));\n")
	sb.WriteString("    let v = vec3<f32>(0.0, 0.0, 1.0);\n")
	sb.WriteString("    let h = normalize(l + v);\n")
	sb.WriteString("    let nDotL = max(dot(n, l), 0.0);\n")
	sb.WriteString("    let nDotH = max(dot(n, h), 0.0);\n")
	sb.WriteString("    let schlick = pow(1.0 - max(dot(v, h), 0.0), 5.0);\n")
	if g.opts.Capabilities.Shading == shader.ShadingSpecularGlossiness {
		sb.WriteString("    let roughness = clamp(1.0 - m.glossiness, 0.045, 1.0);\n")
		sb.WriteString("    let f0 = m.specularColor;\n")
		sb.WriteString("    var diffuseColor = m.baseColor.rgb * (1.0 - max(max(f0.r, f0.g), f0.b));\n")
	} else {
		sb.WriteString("    let roughness = clamp(m.roughness, 0.045, 1.0);\n")
		sb.WriteString("    let r = (m.ior - 1.0) / (m.ior + 1.0);\n")
		sb.WriteString("    let dielectric = min(vec3<f32>(r * r) * m.specularColorFactor, vec3<f32>(1.0)) * m.specularFactor;\n")
		sb.WriteString("    let f0 = mix(dielectric, m.baseColor.rgb, vec3<f32>(m.metallic));\n")
		sb.WriteString("    var diffuseColor = m.baseColor.rgb * (1.0 - m.metallic);\n")
	}
	sb.WriteString("    let a2 = roughness * roughness * roughness * roughness;\n")
	sb.WriteString("    let d = nDotH * nDotH * (a2 - 1.0) + 1.0;\n")
	sb.WriteString("    let distribution = a2 / (3.14159265 * d * d);\n")
	sb.WriteString("    let fresnel = f0 + (vec3<f32>(1.0) - f0) * schlick;\n")
	sb.WriteString("    let transmitted = diffuseColor * m.transmission * exp(-m.absorption * m.thickness);\n")
	sb.WriteString("    diffuseColor = diffuseColor * (1.0 - m.transmission);\n")
	sb.WriteString("    var color = (diffuseColor / 3.14159265 + fresnel * distribution * 0.25) * nDotL + transmitted;\n")
	sb.WriteString("    color = color + m.sheenColor * (1.0 - m.sheenRoughness) * schlick * nDotL;\n")
	sb.WriteString("    let coat = (0.04 + 0.96 * schlick) * m.clearCoat;\n")
	sb.WriteString("    let coatNDotL = max(dot(normalize(m.clearCoatNormal), l), 0.0);\n")
	sb.WriteString("    color = color * (1.0 - coat) + vec3<f32>(coat * (1.0 - m.clearCoatRoughness) * coatNDotL);\n")
	sb.WriteString("    color = color + diffuseColor * 0.03 * m.ambientOcclusion;\n")
	sb.WriteString("    return color + m.emissive.rgb;\n}\n\n")
}

// fragment generates the fragment program. The material body runs on a local MaterialInputs,
// then masking, shading and blending finish the color.
func (g *stageGenerator) fragment() (string, error) {
	body, err := newMaterialTranslator(g.opts).translate(g.source)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	g.fragmentBindings(&sb)
	varyings(&sb, "FragmentInput", false)
	writeMaterialInputs(&sb)
	g.shading(&sb)

	fmt.Fprintf(&sb, "@fragment\nfn %s(input: FragmentInput) -> @location(0) vec4<f32> {\n", fragmentEntryPoint)
	sb.WriteString("    var material = defaultMaterialInputs();\n")
	sb.WriteString("    // material body\n")
	sb.WriteString(body)
	if g.opts.Capabilities.Blending == shader.BlendingMasked {
		fmt.Fprintf(&sb, "    if (material.baseColor.a < materialParams.%s) {\n        discard;\n    }\n", MaskThresholdField)
	}
	sb.WriteString("    let color = shadeMaterial(material);\n")
	if g.opts.Capabilities.Blending == shader.BlendingFade {
		sb.WriteString("    return vec4<f32>(color, material.baseColor.a);\n}\n")
	} else {
		sb.WriteString("    return vec4<f32>(color, 1.0);\n}\n")
	}
	return sb.String(), nil
}

// stages lists the programs to build. The skinned vertex program is filtered out by FilterSkinning.
func (g *stageGenerator) stages() ([]Stage, error) {
	fs, err := g.fragment()
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", StageFragment, err)
	}
	out := []Stage{{Type: StageVertex, EntryPoint: vertexEntryPoint, Source: g.vertex(false)}}
	if !g.opts.VariantFilter.Has(FilterSkinning) {
		out = append(out, Stage{Type: StageVertexSkinned, EntryPoint: skinnedVertexEntryPoint, Source: g.vertex(true)})
	}
	return append(out, Stage{Type: StageFragment, EntryPoint: fragmentEntryPoint, Source: fs}), nil
}
