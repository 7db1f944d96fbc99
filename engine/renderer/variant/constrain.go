package variant

// textureSlot binds a texture's enable flag to its texcoord field. The order of textureSlots is
// the priority order for UV set allocation.
type textureSlot struct {
	name    string
	enabled func(k *Key) *bool
	uv      func(k *Key) *uint8
}

var textureSlots = []textureSlot{
	{"baseColor", func(k *Key) *bool { return &k.HasBaseColorTexture }, func(k *Key) *uint8 { return &k.BaseColorUV }},
	{"metallicRoughness", func(k *Key) *bool { return &k.HasMetallicRoughness }, func(k *Key) *uint8 { return &k.MetallicRoughnessUV }},
	{"emissive", func(k *Key) *bool { return &k.HasEmissiveTexture }, func(k *Key) *uint8 { return &k.EmissiveUV }},
	{"ao", func(k *Key) *bool { return &k.HasOcclusionTexture }, func(k *Key) *uint8 { return &k.AoUV }},
	{"normal", func(k *Key) *bool { return &k.HasNormalTexture }, func(k *Key) *uint8 { return &k.NormalUV }},
	{"transmission", func(k *Key) *bool { return &k.HasTransmissionTexture }, func(k *Key) *uint8 { return &k.TransmissionUV }},
	{"clearCoat", func(k *Key) *bool { return &k.HasClearCoatTexture }, func(k *Key) *uint8 { return &k.ClearCoatUV }},
	{"clearCoatRoughness", func(k *Key) *bool { return &k.HasClearCoatRoughness }, func(k *Key) *uint8 { return &k.ClearCoatRoughnessUV }},
	{"clearCoatNormal", func(k *Key) *bool { return &k.HasClearCoatNormal }, func(k *Key) *uint8 { return &k.ClearCoatNormalUV }},
	{"sheenColor", func(k *Key) *bool { return &k.HasSheenColorTexture }, func(k *Key) *uint8 { return &k.SheenColorUV }},
	{"sheenRoughness", func(k *Key) *bool { return &k.HasSheenRoughness }, func(k *Key) *uint8 { return &k.SheenRoughnessUV }},
	{"volumeThickness", func(k *Key) *bool { return &k.HasVolumeThickness }, func(k *Key) *uint8 { return &k.VolumeThicknessUV }},
	{"specular", func(k *Key) *bool { return &k.HasSpecularTexture }, func(k *Key) *uint8 { return &k.SpecularUV }},
	{"specularColor", func(k *Key) *bool { return &k.HasSpecularColor }, func(k *Key) *uint8 { return &k.SpecularColorUV }},
}

// TexCoord returns the texcoord index of a named texture channel. Channel names are the ones
// used by the shader templates ("color", "metallic", "ao", ...); unknown names report false.
//
// Parameters:
//   - channel: the template channel name
//
// Returns:
//   - uint8: the texcoord index stored in the key
//   - bool: true if the channel is known
func (k Key) TexCoord(channel string) (uint8, bool) {
	name, ok := channelSlots[channel]
	if !ok {
		return 0, false
	}
	for _, slot := range textureSlots {
		if slot.name == name {
			return *slot.uv(&k), true
		}
	}
	return 0, false
}

// channelSlots maps shader template channel names onto texture slot names.
var channelSlots = map[string]string{
	"color":              "baseColor",
	"metallic":           "metallicRoughness",
	"emissive":           "emissive",
	"ao":                 "ao",
	"normal":             "normal",
	"transmission":       "transmission",
	"clearCoat":          "clearCoat",
	"clearCoatRoughness": "clearCoatRoughness",
	"clearCoatNormal":    "clearCoatNormal",
	"sheenColor":         "sheenColor",
	"sheenRoughness":     "sheenRoughness",
	"volumeThickness":    "volumeThickness",
	"specular":           "specular",
	"specularColor":      "specularColor",
}

// Constrain normalizes a raw key into its canonical form and derives the UV map for it.
// Lighting-only features are cleared on unlit keys, sub-features whose parent feature is off
// are cleared, and textures are assigned UV sets in priority order; a texture that would need a
// third distinct UV set is disabled. Constrain is pure and idempotent:
// Constrain(Constrain(k)) yields the same key and map as Constrain(k).
//
// Parameters:
//   - k: the raw key
//
// Returns:
//   - Key: the canonical key
//   - UvMap: the texcoord to UV set mapping for the canonical key
func Constrain(k Key) (Key, UvMap) {
	if k.Unlit {
		k.HasNormalTexture = false
		k.HasOcclusionTexture = false
		k.HasEmissiveTexture = false
		k.HasMetallicRoughness = false
		k.UseSpecularGlossiness = false
		k.HasClearCoat = false
		k.HasTransmission = false
		k.HasSheen = false
		k.HasVolume = false
		k.HasIOR = false
		k.HasSpecular = false
	}
	if !k.HasClearCoat {
		k.HasClearCoatTexture = false
		k.HasClearCoatRoughness = false
		k.HasClearCoatNormal = false
	}
	if !k.HasTransmission {
		k.HasTransmissionTexture = false
	}
	if !k.HasSheen {
		k.HasSheenColorTexture = false
		k.HasSheenRoughness = false
	}
	if !k.HasVolume {
		k.HasVolumeThickness = false
	}
	if !k.HasSpecular {
		k.HasSpecularTexture = false
		k.HasSpecularColor = false
	}
	if k.AlphaMode > AlphaModeBlend {
		k.AlphaMode = AlphaModeOpaque
	}

	var uvmap UvMap
	next := UvSet0
	anyTexture := false
	for _, slot := range textureSlots {
		enabled, uv := slot.enabled(&k), slot.uv(&k)
		if !*enabled {
			*uv = 0
			continue
		}
		if int(*uv) >= MaxTexCoords {
			*uv = 0
		}
		if uvmap[*uv] == UvUnused {
			if next > UvSet1 {
				*enabled = false
				*uv = 0
				continue
			}
			uvmap[*uv] = next
			next++
		}
		anyTexture = true
	}
	if !anyTexture {
		k.HasTextureTransforms = false
	}
	return k, uvmap
}
