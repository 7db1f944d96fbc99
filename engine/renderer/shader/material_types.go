package shader

import "slices"

// ParameterType is the type of a material parameter as seen by the generated shader.
type ParameterType uint8

const (
	ParameterTypeBool ParameterType = iota
	ParameterTypeFloat
	ParameterTypeFloat3
	ParameterTypeFloat4
	ParameterTypeMat3
	ParameterTypeSampler2D
)

// String returns the conventional upper-case spelling of the parameter type.
func (t ParameterType) String() string {
	switch t {
	case ParameterTypeBool:
		return "BOOL"
	case ParameterTypeFloat:
		return "FLOAT"
	case ParameterTypeFloat3:
		return "FLOAT3"
	case ParameterTypeFloat4:
		return "FLOAT4"
	case ParameterTypeMat3:
		return "MAT3"
	case ParameterTypeSampler2D:
		return "SAMPLER_2D"
	default:
		return "UNKNOWN"
	}
}

// IsSampler reports whether the parameter is bound as a texture/sampler pair rather than a uniform.
func (t ParameterType) IsSampler() bool {
	return t == ParameterTypeSampler2D
}

// Precision is the numeric precision requested for a parameter.
type Precision uint8

const (
	PrecisionDefault Precision = iota
	PrecisionHigh
)

// ParameterDecl declares one material parameter.
type ParameterDecl struct {
	Name      string
	Type      ParameterType
	Precision Precision
}

// VertexAttribute identifies a per-vertex input a material may require.
type VertexAttribute uint8

const (
	AttributePosition VertexAttribute = iota
	AttributeTangents
	AttributeColor
	AttributeUV0
	AttributeUV1
	AttributeBoneIndices
	AttributeBoneWeights
)

// String returns the attribute's name.
func (a VertexAttribute) String() string {
	switch a {
	case AttributePosition:
		return "POSITION"
	case AttributeTangents:
		return "TANGENTS"
	case AttributeColor:
		return "COLOR"
	case AttributeUV0:
		return "UV0"
	case AttributeUV1:
		return "UV1"
	case AttributeBoneIndices:
		return "BONE_INDICES"
	case AttributeBoneWeights:
		return "BONE_WEIGHTS"
	default:
		return "UNKNOWN"
	}
}

// AttributeSet is a bit set of vertex attributes.
type AttributeSet uint32

// With returns the set with attr added.
func (s AttributeSet) With(attr VertexAttribute) AttributeSet {
	return s | 1<<attr
}

// Has reports whether attr is in the set.
func (s AttributeSet) Has(attr VertexAttribute) bool {
	return s&(1<<attr) != 0
}

// List returns the attributes in the set in ascending order.
func (s AttributeSet) List() []VertexAttribute {
	var out []VertexAttribute
	for a := AttributePosition; a <= AttributeBoneWeights; a++ {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// BlendingMode selects how the material's output is combined with the framebuffer.
type BlendingMode uint8

const (
	BlendingOpaque BlendingMode = iota
	BlendingMasked
	BlendingFade
)

// ShadingModel selects the lighting model of the material.
type ShadingModel uint8

const (
	ShadingLit ShadingModel = iota
	ShadingSpecularGlossiness
	ShadingUnlit
)

// RefractionMode selects where refracted light is gathered from.
type RefractionMode uint8

const (
	RefractionNone RefractionMode = iota
	RefractionScreenSpace
)

// RefractionType selects the refraction geometry model.
type RefractionType uint8

const (
	RefractionSolid RefractionType = iota
	RefractionThin
)

// Capabilities are the material-wide modes derived from a variant key.
type Capabilities struct {
	Blending       BlendingMode
	Shading        ShadingModel
	RefractionMode RefractionMode
	RefractionType RefractionType
}

// Declarations is everything the compiler needs to know about a material besides its source.
type Declarations struct {
	Parameters   []ParameterDecl
	Attributes   AttributeSet
	Capabilities Capabilities
}

// Parameter looks up a declared parameter by name.
//
// Parameters:
//   - name: the parameter name
//
// Returns:
//   - ParameterDecl: the declaration, zero if absent
//   - bool: true if the parameter is declared
func (d *Declarations) Parameter(name string) (ParameterDecl, bool) {
	i := slices.IndexFunc(d.Parameters, func(p ParameterDecl) bool { return p.Name == name })
	if i < 0 {
		return ParameterDecl{}, false
	}
	return d.Parameters[i], true
}
