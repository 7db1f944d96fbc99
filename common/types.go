// package common contains plain data types and helpers shared across the engine packages.
// They are not interface-wrapped, just structs that carry imported asset data around.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode outside the [0, 1] range.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp clamp the sampled level of detail.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// ImportedTexture represents texture data extracted from a model file.
// For embedded textures (GLB, data URIs) Data holds the encoded image bytes.
// For external textures Path holds the resolved file path.
type ImportedTexture struct {
	// Name is an identifier for this texture.
	Name string

	// Path is the file path for external textures (empty for embedded).
	Path string

	// Data contains raw encoded image bytes (PNG/JPEG).
	Data []byte

	// MimeType indicates the image format (e.g. "image/png").
	MimeType string

	// SamplerData holds sampler parameters extracted from the model file, nil for defaults.
	SamplerData *SamplerStagingData
}

// ImportedTextureRef is a material's reference to a texture: which texture, which
// glTF texcoord set it samples with, and an optional UV transform.
type ImportedTextureRef struct {
	Texture   *ImportedTexture
	TexCoord  uint8
	Transform *TextureTransform
}

// ImportedMaterial represents the material properties read from a model file, covering the
// core metallic-roughness model and the KHR_materials_* extensions the provider understands.
type ImportedMaterial struct {
	// Name is the material identifier.
	Name string

	// AlphaMode is "OPAQUE", "MASK" or "BLEND".
	AlphaMode string

	// AlphaCutoff is the mask threshold for the MASK alpha mode.
	AlphaCutoff float32

	// DoubleSided disables back-face culling.
	DoubleSided bool

	// Unlit is set by KHR_materials_unlit.
	Unlit bool

	// Extras is the raw JSON of the material's extras property, empty when absent.
	Extras string

	BaseColorFactor   [4]float32
	MetallicFactor    float32
	RoughnessFactor   float32
	EmissiveFactor    [3]float32
	EmissiveStrength  float32
	NormalScale       float32
	OcclusionStrength float32

	BaseColorTexture         *ImportedTextureRef
	MetallicRoughnessTexture *ImportedTextureRef
	NormalTexture            *ImportedTextureRef
	OcclusionTexture         *ImportedTextureRef
	EmissiveTexture          *ImportedTextureRef

	// SpecularGlossiness is set by KHR_materials_pbrSpecularGlossiness; the diffuse values
	// are folded into the base color fields above.
	SpecularGlossiness        bool
	GlossinessFactor          float32
	SpecularGlossinessFactor  [3]float32
	SpecularGlossinessTexture *ImportedTextureRef

	ClearCoat                 bool
	ClearCoatFactor           float32
	ClearCoatRoughness        float32
	ClearCoatNormalScale      float32
	ClearCoatTexture          *ImportedTextureRef
	ClearCoatRoughnessTexture *ImportedTextureRef
	ClearCoatNormalTexture    *ImportedTextureRef

	Transmission        bool
	TransmissionFactor  float32
	TransmissionTexture *ImportedTextureRef

	Sheen                 bool
	SheenColorFactor      [3]float32
	SheenRoughness        float32
	SheenColorTexture     *ImportedTextureRef
	SheenRoughnessTexture *ImportedTextureRef

	Volume                 bool
	VolumeThicknessFactor  float32
	VolumeAbsorption       [3]float32
	VolumeThicknessTexture *ImportedTextureRef

	HasIOR bool
	IOR    float32

	Specular             bool
	SpecularFactor       float32
	SpecularColorFactor  [3]float32
	SpecularTexture      *ImportedTextureRef
	SpecularColorTexture *ImportedTextureRef
}

// ImportedAsset is the material-relevant content of an imported model file.
type ImportedAsset struct {
	// Name is the scene name, or the file path when the scene is unnamed.
	Name string

	// Materials holds the document's materials in document order.
	Materials []ImportedMaterial

	// Primitives holds every mesh primitive in document order.
	Primitives []ImportedPrimitive
}

// ImportedPrimitive describes one drawable primitive of an imported mesh as far as material
// selection is concerned.
type ImportedPrimitive struct {
	// Mesh is the name of the owning mesh.
	Mesh string

	// MeshIndex and Index locate the primitive in the source document.
	MeshIndex, Index int

	// MaterialIndex indexes the imported materials, -1 for the default material.
	MaterialIndex int

	// HasVertexColors is set when the primitive carries a COLOR_0 attribute.
	HasVertexColors bool

	// Skinned is set when the primitive has joint attributes and its mesh is bound to a skin.
	Skinned bool
}

// Textures returns every non-nil texture reference of the material.
//
// Returns:
//   - []*ImportedTextureRef: the referenced textures in declaration order
func (m *ImportedMaterial) Textures() []*ImportedTextureRef {
	all := []*ImportedTextureRef{
		m.BaseColorTexture, m.MetallicRoughnessTexture, m.NormalTexture, m.OcclusionTexture,
		m.EmissiveTexture, m.SpecularGlossinessTexture, m.ClearCoatTexture, m.ClearCoatRoughnessTexture,
		m.ClearCoatNormalTexture, m.TransmissionTexture, m.SheenColorTexture, m.SheenRoughnessTexture,
		m.VolumeThicknessTexture, m.SpecularTexture, m.SpecularColorTexture,
	}
	out := make([]*ImportedTextureRef, 0, len(all))
	for _, t := range all {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
