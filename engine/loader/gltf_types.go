package loader

import "encoding/json"

// gltfDocument is the subset of a glTF 2.0 document that decides material variants: the
// materials with their textures, and the mesh primitives and skinned nodes that reference them.
// Geometry accessors, animations and cameras are never decoded.
type gltfDocument struct {
	Asset struct {
		Version string `json:"version"`
	} `json:"asset"`
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`

	// Scene picks the entry of Scenes whose name names the model.
	Scene  *int `json:"scene,omitempty"`
	Scenes []struct {
		Name string `json:"name,omitempty"`
	} `json:"scenes,omitempty"`

	Nodes  []gltfNode `json:"nodes,omitempty"`
	Meshes []gltfMesh `json:"meshes,omitempty"`

	Materials []gltfMaterial `json:"materials,omitempty"`
	Textures  []gltfTexture  `json:"textures,omitempty"`
	Images    []gltfImage    `json:"images,omitempty"`
	Samplers  []gltfSampler  `json:"samplers,omitempty"`

	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`
}

// gltfNode is only read to learn which meshes are drawn with a skin.
type gltfNode struct {
	Mesh *int `json:"mesh,omitempty"`
	Skin *int `json:"skin,omitempty"`
}

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

// gltfPrimitive keeps attribute names only; the accessor indices are never followed.
type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Material   *int           `json:"material,omitempty"`
}

// Primitive attributes that change the material variant.
const (
	gltfAttributeColor0  = "COLOR_0"
	gltfAttributeJoints0 = "JOINTS_0"
)

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
}

// gltfBuffer is a binary blob. Data is filled in after decoding, from the URI or the GLB BIN
// chunk.
type gltfBuffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
	Data       []byte `json:"-"`
}

// gltfMaterial is a core glTF material. Factors left nil take the glTF defaults during
// extraction.
type gltfMaterial struct {
	Name                 string                    `json:"name,omitempty"`
	PbrMetallicRoughness *gltfPbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *gltfNormalTextureInfo    `json:"normalTexture,omitempty"`
	OcclusionTexture     *gltfOcclusionTextureInfo `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *gltfTextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32               `json:"emissiveFactor,omitempty"`
	AlphaMode            string                    `json:"alphaMode,omitempty"`
	AlphaCutoff          *float32                  `json:"alphaCutoff,omitempty"`
	DoubleSided          bool                      `json:"doubleSided,omitempty"`
	Extensions           gltfMaterialExtensions    `json:"extensions,omitempty"`
	Extras               json.RawMessage           `json:"extras,omitempty"`
}

type gltfPbrMetallicRoughness struct {
	BaseColorFactor          *[4]float32      `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *gltfTextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32         `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32         `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *gltfTextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// gltfTextureInfo points at a texture, a UV set and an optional KHR_texture_transform.
type gltfTextureInfo struct {
	Index      int `json:"index"`
	TexCoord   int `json:"texCoord,omitempty"`
	Extensions struct {
		TextureTransform *gltfTextureTransform `json:"KHR_texture_transform,omitempty"`
	} `json:"extensions,omitempty"`
}

// gltfTextureTransform may move a reference to another UV set through TexCoord.
type gltfTextureTransform struct {
	Offset   *[2]float32 `json:"offset,omitempty"`
	Rotation float32     `json:"rotation,omitempty"`
	Scale    *[2]float32 `json:"scale,omitempty"`
	TexCoord *int        `json:"texCoord,omitempty"`
}

type gltfNormalTextureInfo struct {
	gltfTextureInfo
	Scale *float32 `json:"scale,omitempty"`
}

type gltfOcclusionTextureInfo struct {
	gltfTextureInfo
	Strength *float32 `json:"strength,omitempty"`
}

// gltfMaterialExtensions holds the KHR_materials_* extensions that shape the generated shader.
type gltfMaterialExtensions struct {
	Unlit              *struct{}               `json:"KHR_materials_unlit,omitempty"`
	SpecularGlossiness *gltfSpecularGlossiness `json:"KHR_materials_pbrSpecularGlossiness,omitempty"`
	ClearCoat          *gltfClearCoat          `json:"KHR_materials_clearcoat,omitempty"`
	Transmission       *gltfTransmission       `json:"KHR_materials_transmission,omitempty"`
	Sheen              *gltfSheen              `json:"KHR_materials_sheen,omitempty"`
	Volume             *gltfVolume             `json:"KHR_materials_volume,omitempty"`
	IOR                *gltfIOR                `json:"KHR_materials_ior,omitempty"`
	Specular           *gltfSpecular           `json:"KHR_materials_specular,omitempty"`
	EmissiveStrength   *gltfEmissiveStrength   `json:"KHR_materials_emissive_strength,omitempty"`
}

type gltfSpecularGlossiness struct {
	DiffuseFactor             *[4]float32      `json:"diffuseFactor,omitempty"`
	DiffuseTexture            *gltfTextureInfo `json:"diffuseTexture,omitempty"`
	SpecularFactor            *[3]float32      `json:"specularFactor,omitempty"`
	GlossinessFactor          *float32         `json:"glossinessFactor,omitempty"`
	SpecularGlossinessTexture *gltfTextureInfo `json:"specularGlossinessTexture,omitempty"`
}

type gltfClearCoat struct {
	ClearCoatFactor           float32                `json:"clearcoatFactor,omitempty"`
	ClearCoatTexture          *gltfTextureInfo       `json:"clearcoatTexture,omitempty"`
	ClearCoatRoughnessFactor  float32                `json:"clearcoatRoughnessFactor,omitempty"`
	ClearCoatRoughnessTexture *gltfTextureInfo       `json:"clearcoatRoughnessTexture,omitempty"`
	ClearCoatNormalTexture    *gltfNormalTextureInfo `json:"clearcoatNormalTexture,omitempty"`
}

type gltfTransmission struct {
	TransmissionFactor  float32          `json:"transmissionFactor,omitempty"`
	TransmissionTexture *gltfTextureInfo `json:"transmissionTexture,omitempty"`
}

type gltfSheen struct {
	SheenColorFactor      [3]float32       `json:"sheenColorFactor,omitempty"`
	SheenColorTexture     *gltfTextureInfo `json:"sheenColorTexture,omitempty"`
	SheenRoughnessFactor  float32          `json:"sheenRoughnessFactor,omitempty"`
	SheenRoughnessTexture *gltfTextureInfo `json:"sheenRoughnessTexture,omitempty"`
}

type gltfVolume struct {
	ThicknessFactor     float32          `json:"thicknessFactor,omitempty"`
	ThicknessTexture    *gltfTextureInfo `json:"thicknessTexture,omitempty"`
	AttenuationDistance *float32         `json:"attenuationDistance,omitempty"`
	AttenuationColor    *[3]float32      `json:"attenuationColor,omitempty"`
}

type gltfIOR struct {
	IOR *float32 `json:"ior,omitempty"`
}

type gltfSpecular struct {
	SpecularFactor       *float32         `json:"specularFactor,omitempty"`
	SpecularTexture      *gltfTextureInfo `json:"specularTexture,omitempty"`
	SpecularColorFactor  *[3]float32      `json:"specularColorFactor,omitempty"`
	SpecularColorTexture *gltfTextureInfo `json:"specularColorTexture,omitempty"`
}

type gltfEmissiveStrength struct {
	EmissiveStrength *float32 `json:"emissiveStrength,omitempty"`
}

type gltfTexture struct {
	Name    string `json:"name,omitempty"`
	Sampler *int   `json:"sampler,omitempty"`
	Source  *int   `json:"source,omitempty"`
}

// gltfImage is stored in a buffer view, a data URI or a file next to the document.
type gltfImage struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

// gltfSampler holds GL enums; unset fields mean linear filtering and repeat wrapping.
type gltfSampler struct {
	MagFilter *int `json:"magFilter,omitempty"`
	MinFilter *int `json:"minFilter,omitempty"`
	WrapS     *int `json:"wrapS,omitempty"`
	WrapT     *int `json:"wrapT,omitempty"`
}

const (
	gltfFilterNearest              = 9728
	gltfFilterLinear               = 9729
	gltfFilterNearestMipmapNearest = 9984
	gltfFilterLinearMipmapNearest  = 9985
	gltfFilterNearestMipmapLinear  = 9986
	gltfFilterLinearMipmapLinear   = 9987

	gltfWrapClampToEdge    = 33071
	gltfWrapMirroredRepeat = 33648
	gltfWrapRepeat         = 10497
)

// GLB container constants, as little-endian words.
const (
	gltfGLBMagic     = 0x46546C67 // "glTF"
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON"
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0"
)
