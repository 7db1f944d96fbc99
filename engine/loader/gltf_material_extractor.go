package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-jit/common"

	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	file     *gltfFile
	textures map[int]*common.ImportedTexture
}

// gltfMaterialExtractor turns the materials of a decoded document into engine-ready
// ImportedMaterial values, loading the texture data they reference.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index, including loading any referenced texture data.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - *common.ImportedMaterial: the extracted material with any embedded texture data loaded
	//   - error: error if extraction fails
	ExtractMaterial(materialIndex int) (*common.ImportedMaterial, error)

	// ExtractAllMaterials extracts all materials in document order. Textures shared between
	// materials are loaded once.
	//
	// Returns:
	//   - []common.ImportedMaterial: all extracted materials, nil for a document without any
	//   - error: error if extraction fails
	ExtractAllMaterials() ([]common.ImportedMaterial, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

func newGLTFMaterialExtractor(f *gltfFile) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{
		file:     f,
		textures: make(map[int]*common.ImportedTexture),
	}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (*common.ImportedMaterial, error) {
	doc := e.file.doc
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", materialIndex)
	}

	mat := &doc.Materials[materialIndex]

	result := &common.ImportedMaterial{
		Name:              mat.Name,
		AlphaMode:         common.Coalesce(mat.AlphaMode, "OPAQUE"),
		AlphaCutoff:       0.5,
		DoubleSided:       mat.DoubleSided,
		Unlit:             mat.Extensions.Unlit != nil,
		BaseColorFactor:   [4]float32{1, 1, 1, 1},
		MetallicFactor:    1.0,
		RoughnessFactor:   1.0,
		EmissiveStrength:  1.0,
		NormalScale:       1.0,
		OcclusionStrength: 1.0,
	}
	if mat.AlphaCutoff != nil {
		result.AlphaCutoff = *mat.AlphaCutoff
	}
	if len(mat.Extras) > 0 && string(mat.Extras) != "null" {
		result.Extras = string(mat.Extras)
	}

	// ref wraps texture loading so each slot reports which slot failed.
	var err error
	ref := func(slot string, info *gltfTextureInfo) *common.ImportedTextureRef {
		if err != nil || info == nil {
			return nil
		}
		var r *common.ImportedTextureRef
		r, err = e.textureRef(info)
		if err != nil {
			err = fmt.Errorf("material %q: %s texture: %w", mat.Name, slot, err)
		}
		return r
	}

	if pbr := mat.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			result.BaseColorFactor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			result.MetallicFactor = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			result.RoughnessFactor = *pbr.RoughnessFactor
		}
		result.BaseColorTexture = ref("base color", pbr.BaseColorTexture)
		result.MetallicRoughnessTexture = ref("metallic-roughness", pbr.MetallicRoughnessTexture)
	}

	if mat.NormalTexture != nil {
		result.NormalTexture = ref("normal", &mat.NormalTexture.gltfTextureInfo)
		if mat.NormalTexture.Scale != nil {
			result.NormalScale = *mat.NormalTexture.Scale
		}
	}
	if mat.OcclusionTexture != nil {
		result.OcclusionTexture = ref("occlusion", &mat.OcclusionTexture.gltfTextureInfo)
		if mat.OcclusionTexture.Strength != nil {
			result.OcclusionStrength = *mat.OcclusionTexture.Strength
		}
	}
	result.EmissiveTexture = ref("emissive", mat.EmissiveTexture)
	if mat.EmissiveFactor != nil {
		result.EmissiveFactor = *mat.EmissiveFactor
	}

	ext := &mat.Extensions
	if es := ext.EmissiveStrength; es != nil && es.EmissiveStrength != nil {
		result.EmissiveStrength = *es.EmissiveStrength
	}

	if sg := ext.SpecularGlossiness; sg != nil {
		result.SpecularGlossiness = true
		result.BaseColorFactor = [4]float32{1, 1, 1, 1}
		result.SpecularGlossinessFactor = [3]float32{1, 1, 1}
		result.GlossinessFactor = 1.0
		if sg.DiffuseFactor != nil {
			result.BaseColorFactor = *sg.DiffuseFactor
		}
		if sg.SpecularFactor != nil {
			result.SpecularGlossinessFactor = *sg.SpecularFactor
		}
		if sg.GlossinessFactor != nil {
			result.GlossinessFactor = *sg.GlossinessFactor
		}
		if sg.DiffuseTexture != nil {
			result.BaseColorTexture = ref("diffuse", sg.DiffuseTexture)
		}
		result.SpecularGlossinessTexture = ref("specular-glossiness", sg.SpecularGlossinessTexture)
	}

	if cc := ext.ClearCoat; cc != nil {
		result.ClearCoat = true
		result.ClearCoatFactor = cc.ClearCoatFactor
		result.ClearCoatRoughness = cc.ClearCoatRoughnessFactor
		result.ClearCoatNormalScale = 1.0
		result.ClearCoatTexture = ref("clearcoat", cc.ClearCoatTexture)
		result.ClearCoatRoughnessTexture = ref("clearcoat roughness", cc.ClearCoatRoughnessTexture)
		if cc.ClearCoatNormalTexture != nil {
			result.ClearCoatNormalTexture = ref("clearcoat normal", &cc.ClearCoatNormalTexture.gltfTextureInfo)
			if cc.ClearCoatNormalTexture.Scale != nil {
				result.ClearCoatNormalScale = *cc.ClearCoatNormalTexture.Scale
			}
		}
	}

	if tr := ext.Transmission; tr != nil {
		result.Transmission = true
		result.TransmissionFactor = tr.TransmissionFactor
		result.TransmissionTexture = ref("transmission", tr.TransmissionTexture)
	}

	if sh := ext.Sheen; sh != nil {
		result.Sheen = true
		result.SheenColorFactor = sh.SheenColorFactor
		result.SheenRoughness = sh.SheenRoughnessFactor
		result.SheenColorTexture = ref("sheen color", sh.SheenColorTexture)
		result.SheenRoughnessTexture = ref("sheen roughness", sh.SheenRoughnessTexture)
	}

	if vol := ext.Volume; vol != nil {
		result.Volume = true
		result.VolumeThicknessFactor = vol.ThicknessFactor
		result.VolumeThicknessTexture = ref("thickness", vol.ThicknessTexture)
		result.VolumeAbsorption = gltfVolumeAbsorption(vol)
	}

	if ior := ext.IOR; ior != nil {
		result.HasIOR = true
		result.IOR = 1.5
		if ior.IOR != nil {
			result.IOR = *ior.IOR
		}
	}

	if sp := ext.Specular; sp != nil {
		result.Specular = true
		result.SpecularFactor = 1.0
		result.SpecularColorFactor = [3]float32{1, 1, 1}
		if sp.SpecularFactor != nil {
			result.SpecularFactor = *sp.SpecularFactor
		}
		if sp.SpecularColorFactor != nil {
			result.SpecularColorFactor = *sp.SpecularColorFactor
		}
		result.SpecularTexture = ref("specular", sp.SpecularTexture)
		result.SpecularColorTexture = ref("specular color", sp.SpecularColorTexture)
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]common.ImportedMaterial, error) {
	var materials []common.ImportedMaterial
	for i := range e.file.doc.Materials {
		mat, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		materials = append(materials, *mat)
	}
	return materials, nil
}

// gltfVolumeAbsorption converts the attenuation color and distance of KHR_materials_volume into
// an absorption coefficient. A missing distance means no absorption.
func gltfVolumeAbsorption(vol *gltfVolume) [3]float32 {
	var absorption [3]float32
	if vol.AttenuationDistance == nil || *vol.AttenuationDistance <= 0 {
		return absorption
	}
	color := [3]float32{1, 1, 1}
	if vol.AttenuationColor != nil {
		color = *vol.AttenuationColor
	}
	for i, c := range color {
		absorption[i] = -math32.Log(math32.Max(c, 1e-6)) / *vol.AttenuationDistance
	}
	return absorption
}

// textureRef resolves a texture reference with its texcoord set and KHR_texture_transform.
// Textures shared by several references are loaded once. A texture without an image source
// yields a nil reference.
func (e *gltfMaterialExtractorImpl) textureRef(info *gltfTextureInfo) (*common.ImportedTextureRef, error) {
	tex, ok := e.textures[info.Index]
	if !ok {
		var err error
		tex, err = e.loadTexture(info.Index)
		if err != nil {
			return nil, err
		}
		e.textures[info.Index] = tex
	}
	if tex == nil {
		return nil, nil
	}

	r := &common.ImportedTextureRef{Texture: tex, TexCoord: uint8(info.TexCoord)}
	if tt := info.Extensions.TextureTransform; tt != nil {
		t := &common.TextureTransform{Scale: [2]float32{1, 1}, Rotation: tt.Rotation}
		if tt.Offset != nil {
			t.Offset = *tt.Offset
		}
		if tt.Scale != nil {
			t.Scale = *tt.Scale
		}
		if tt.TexCoord != nil {
			r.TexCoord = uint8(*tt.TexCoord)
		}
		r.Transform = t
	}
	return r, nil
}

// loadTexture resolves a glTF texture index into an ImportedTexture with loaded image data.
// For embedded images (buffer view or data URI), the raw bytes are loaded into the texture.
// For external file references, the path is resolved relative to the glTF base directory.
func (e *gltfMaterialExtractorImpl) loadTexture(textureIndex int) (*common.ImportedTexture, error) {
	doc := e.file.doc
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", textureIndex)
	}

	tex := &doc.Textures[textureIndex]
	if tex.Source == nil {
		return nil, nil
	}

	// Resolve glTF sampler parameters if this texture references one.
	var samplerData *common.SamplerStagingData
	if tex.Sampler != nil {
		samplerIdx := *tex.Sampler
		if samplerIdx >= 0 && samplerIdx < len(doc.Samplers) {
			samplerData = gltfSamplerToStagingData(&doc.Samplers[samplerIdx])
		}
	}

	imageIndex := *tex.Source
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imageIndex)
	}

	img := &doc.Images[imageIndex]

	result := &common.ImportedTexture{
		Name:        common.Coalesce(img.Name, tex.Name),
		MimeType:    img.MimeType,
		SamplerData: samplerData,
	}

	switch {
	case img.BufferView != nil:
		data, err := e.file.bufferView(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("failed to read image buffer view: %w", err)
		}
		result.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, mimeType, err := e.file.readURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data URI: %w", err)
		}
		result.Data = data
		result.MimeType = common.Coalesce(result.MimeType, mimeType)
	case img.URI != "":
		result.Path = e.file.path(img.URI)
		// Missing image files leave Data empty; the path is still usable.
		if data, err := os.ReadFile(result.Path); err == nil {
			result.Data = data
		}
	default:
		return nil, nil
	}
	return result, nil
}

// gltfSamplerToStagingData converts a glTF sampler definition into engine-ready SamplerStagingData.
// Any unset fields in the glTF sampler fall back to the glTF defaults (linear filtering, repeat wrapping).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
//
// Parameters:
//   - s: the glTF sampler to convert
//
// Returns:
//   - *common.SamplerStagingData: the converted sampler staging data
func gltfSamplerToStagingData(s *gltfSampler) *common.SamplerStagingData {
	result := &common.SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}

	if s.MagFilter != nil {
		switch *s.MagFilter {
		case gltfFilterNearest:
			result.MagFilter = wgpu.FilterModeNearest
		case gltfFilterLinear:
			result.MagFilter = wgpu.FilterModeLinear
		}
	}

	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest, gltfFilterNearestMipmapNearest, gltfFilterNearestMipmapLinear:
			result.MinFilter = wgpu.FilterModeNearest
		case gltfFilterLinear, gltfFilterLinearMipmapNearest, gltfFilterLinearMipmapLinear:
			result.MinFilter = wgpu.FilterModeLinear
		}
		// Also set the mipmap filter based on the minification filter variant
		switch *s.MinFilter {
		case gltfFilterNearestMipmapNearest, gltfFilterLinearMipmapNearest:
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
		case gltfFilterNearestMipmapLinear, gltfFilterLinearMipmapLinear:
			result.MipmapFilter = wgpu.MipmapFilterModeLinear
		case gltfFilterNearest, gltfFilterLinear:
			// Non-mipmapped filters: set mipmap to nearest as a conservative default
			result.MipmapFilter = wgpu.MipmapFilterModeNearest
		}
	}

	if s.WrapS != nil {
		result.AddressModeU = gltfWrapToAddressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		result.AddressModeV = gltfWrapToAddressMode(*s.WrapT)
	}

	return result
}

// gltfWrapToAddressMode converts a glTF wrap mode constant to a wgpu AddressMode.
//
// Parameters:
//   - wrap: the glTF wrap mode constant
//
// Returns:
//   - wgpu.AddressMode: the corresponding wgpu address mode
func gltfWrapToAddressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	case gltfWrapRepeat:
		return wgpu.AddressModeRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
