package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-jit/common"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
)

// ErrApplyMaterial is returned when imported material values cannot be written to an instance.
var ErrApplyMaterial = errors.New("failed to apply material values")

// MaterialKey derives the raw variant key of an imported material drawn by a primitive. The key
// is not normalized; providers do that on lookup.
//
// Parameters:
//   - m: the imported material
//   - hasVertexColors: true if the primitive carries vertex colors
//
// Returns:
//   - variant.Key: the raw key
func MaterialKey(m *common.ImportedMaterial, hasVertexColors bool) variant.Key {
	k := variant.Key{
		DoubleSided:           m.DoubleSided,
		Unlit:                 m.Unlit,
		HasVertexColors:       hasVertexColors,
		AlphaMode:             variant.ParseAlphaMode(m.AlphaMode),
		UseSpecularGlossiness: m.SpecularGlossiness,
		HasClearCoat:          m.ClearCoat,
		HasTransmission:       m.Transmission,
		HasSheen:              m.Sheen,
		HasVolume:             m.Volume,
		HasIOR:                m.HasIOR,
		HasSpecular:           m.Specular,
	}

	tex := func(ref *common.ImportedTextureRef, has *bool, uv *uint8) {
		if ref == nil {
			return
		}
		*has = true
		*uv = ref.TexCoord
		if ref.Transform != nil {
			k.HasTextureTransforms = true
		}
	}
	tex(m.BaseColorTexture, &k.HasBaseColorTexture, &k.BaseColorUV)
	tex(metallicRoughnessRef(m), &k.HasMetallicRoughness, &k.MetallicRoughnessUV)
	tex(m.NormalTexture, &k.HasNormalTexture, &k.NormalUV)
	tex(m.OcclusionTexture, &k.HasOcclusionTexture, &k.AoUV)
	tex(m.EmissiveTexture, &k.HasEmissiveTexture, &k.EmissiveUV)
	tex(m.ClearCoatTexture, &k.HasClearCoatTexture, &k.ClearCoatUV)
	tex(m.ClearCoatRoughnessTexture, &k.HasClearCoatRoughness, &k.ClearCoatRoughnessUV)
	tex(m.ClearCoatNormalTexture, &k.HasClearCoatNormal, &k.ClearCoatNormalUV)
	tex(m.TransmissionTexture, &k.HasTransmissionTexture, &k.TransmissionUV)
	tex(m.SheenColorTexture, &k.HasSheenColorTexture, &k.SheenColorUV)
	tex(m.SheenRoughnessTexture, &k.HasSheenRoughness, &k.SheenRoughnessUV)
	tex(m.VolumeThicknessTexture, &k.HasVolumeThickness, &k.VolumeThicknessUV)
	tex(m.SpecularTexture, &k.HasSpecularTexture, &k.SpecularUV)
	tex(m.SpecularColorTexture, &k.HasSpecularColor, &k.SpecularColorUV)
	return k
}

// metallicRoughnessRef returns the texture occupying the metallic-roughness slot. In
// specular-glossiness mode that slot holds the specular-glossiness texture.
func metallicRoughnessRef(m *common.ImportedMaterial) *common.ImportedTextureRef {
	if m.SpecularGlossiness {
		return m.SpecularGlossinessTexture
	}
	return m.MetallicRoughnessTexture
}

// ApplyMaterial writes the factors, textures and UV transforms of an imported material into an
// instance. Values the instance's material does not declare are skipped, so one imported
// material can be applied to any variant built for it.
//
// Parameters:
//   - inst: the instance to write
//   - m: the imported material
//
// Returns:
//   - error: ErrApplyMaterial wrapping every failed write
func ApplyMaterial(inst material.Instance, m *common.ImportedMaterial) error {
	mat := inst.Material()
	declared := func(name string) bool {
		_, ok := mat.Parameter(name)
		return ok
	}

	var errs []error
	check := func(name string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	setFloat := func(name string, v float32) {
		if declared(name) {
			check(name, inst.SetFloat(name, v))
		}
	}
	setFloat3 := func(name string, v [3]float32) {
		if declared(name) {
			check(name, inst.SetFloat3(name, v))
		}
	}

	if declared("baseColorFactor") {
		check("baseColorFactor", inst.SetFloat4("baseColorFactor", m.BaseColorFactor))
	}
	setFloat("roughnessFactor", m.RoughnessFactor)
	setFloat("metallicFactor", m.MetallicFactor)
	setFloat("glossinessFactor", m.GlossinessFactor)
	setFloat3("specularFactor", m.SpecularGlossinessFactor)
	setFloat3("emissiveFactor", m.EmissiveFactor)
	setFloat("emissiveStrength", m.EmissiveStrength)
	setFloat("normalScale", m.NormalScale)
	setFloat("aoStrength", m.OcclusionStrength)
	setFloat("transmissionFactor", m.TransmissionFactor)
	setFloat("clearCoatFactor", m.ClearCoatFactor)
	setFloat("clearCoatRoughnessFactor", m.ClearCoatRoughness)
	setFloat("clearCoatNormalScale", m.ClearCoatNormalScale)
	setFloat3("sheenColorFactor", m.SheenColorFactor)
	setFloat("sheenRoughnessFactor", m.SheenRoughness)
	setFloat3("volumeAbsorption", m.VolumeAbsorption)
	setFloat("volumeThicknessFactor", m.VolumeThicknessFactor)
	setFloat("ior", m.IOR)
	setFloat("specularStrength", m.SpecularFactor)
	setFloat3("specularColorFactor", m.SpecularColorFactor)

	textures := []struct {
		param string
		ref   *common.ImportedTextureRef
	}{
		{"baseColor", m.BaseColorTexture},
		{"metallicRoughness", metallicRoughnessRef(m)},
		{"normal", m.NormalTexture},
		{"occlusion", m.OcclusionTexture},
		{"emissive", m.EmissiveTexture},
		{"transmission", m.TransmissionTexture},
		{"clearCoat", m.ClearCoatTexture},
		{"clearCoatRoughness", m.ClearCoatRoughnessTexture},
		{"clearCoatNormal", m.ClearCoatNormalTexture},
		{"sheenColor", m.SheenColorTexture},
		{"sheenRoughness", m.SheenRoughnessTexture},
		{"volumeThickness", m.VolumeThicknessTexture},
		{"specular", m.SpecularTexture},
		{"specularColor", m.SpecularColorTexture},
	}
	for _, t := range textures {
		if t.ref == nil || t.ref.Texture == nil {
			continue
		}
		if name := t.param + "Map"; declared(name) {
			check(name, inst.SetTexture(name, t.ref.Texture, t.ref.Texture.SamplerData))
		}
		if name := t.param + "UvMatrix"; t.ref.Transform != nil && declared(name) {
			check(name, inst.SetMat3(name, common.UvTransform(t.ref.Transform)))
		}
	}

	if _, ok := mat.UniformLayout().Field(material.MaskThresholdField); ok {
		check(material.MaskThresholdField, inst.SetMaskThreshold(m.AlphaCutoff))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrApplyMaterial, errors.Join(errs...))
	}
	return nil
}
