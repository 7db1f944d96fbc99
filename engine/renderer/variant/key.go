// Package variant holds the material variant key: the flat set of feature flags that fully
// determines which shader program a material needs, together with the UV set mapping and the
// normalization step that turns any raw key into its canonical form.
package variant

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
)

// EncodedKeySize is the length of a key encoding: four flag bytes, the alpha mode and one
// texcoord byte per texture.
const EncodedKeySize = 5 + 14

// ErrKeyEncoding is returned when a key encoding cannot be decoded.
var ErrKeyEncoding = errors.New("invalid variant key encoding")

// AlphaMode selects how a material's alpha channel is interpreted.
type AlphaMode uint8

const (
	// AlphaModeOpaque ignores alpha entirely.
	AlphaModeOpaque AlphaMode = iota

	// AlphaModeMask discards fragments below the alpha cutoff.
	AlphaModeMask

	// AlphaModeBlend blends the fragment with the framebuffer using premultiplied alpha.
	AlphaModeBlend
)

// String returns the glTF spelling of the alpha mode.
func (a AlphaMode) String() string {
	switch a {
	case AlphaModeOpaque:
		return "OPAQUE"
	case AlphaModeMask:
		return "MASK"
	case AlphaModeBlend:
		return "BLEND"
	default:
		return "UNKNOWN"
	}
}

// ParseAlphaMode converts a glTF alpha mode string; unknown or empty values yield AlphaModeOpaque.
//
// Parameters:
//   - s: the glTF alphaMode string
//
// Returns:
//   - AlphaMode: the parsed alpha mode
func ParseAlphaMode(s string) AlphaMode {
	switch strings.ToUpper(s) {
	case "MASK":
		return AlphaModeMask
	case "BLEND":
		return AlphaModeBlend
	default:
		return AlphaModeOpaque
	}
}

// Key is the variant key of a material. Two keys that compare equal with == describe the same
// shader program, so Key is used directly as a map key. The *UV fields hold the glTF texcoord
// index each texture samples with; they are only meaningful while the matching Has* flag is set.
type Key struct {
	DoubleSided            bool
	Unlit                  bool
	HasVertexColors        bool
	HasBaseColorTexture    bool
	HasNormalTexture       bool
	HasOcclusionTexture    bool
	HasEmissiveTexture     bool
	UseSpecularGlossiness  bool
	AlphaMode              AlphaMode
	EnableDiagnostics      bool
	HasMetallicRoughness   bool
	HasTextureTransforms   bool
	HasClearCoat           bool
	HasClearCoatTexture    bool
	HasClearCoatRoughness  bool
	HasClearCoatNormal     bool
	HasTransmission        bool
	HasTransmissionTexture bool
	HasSheen               bool
	HasSheenColorTexture   bool
	HasSheenRoughness      bool
	HasVolume              bool
	HasVolumeThickness     bool
	HasIOR                 bool
	HasSpecular            bool
	HasSpecularTexture     bool
	HasSpecularColor       bool

	BaseColorUV          uint8
	MetallicRoughnessUV  uint8
	EmissiveUV           uint8
	AoUV                 uint8
	NormalUV             uint8
	TransmissionUV       uint8
	ClearCoatUV          uint8
	ClearCoatRoughnessUV uint8
	ClearCoatNormalUV    uint8
	SheenColorUV         uint8
	SheenRoughnessUV     uint8
	VolumeThicknessUV    uint8
	SpecularUV           uint8
	SpecularColorUV      uint8
}

// flags returns pointers to the boolean fields in encoding order.
func (k *Key) flags() []*bool {
	return []*bool{
		&k.DoubleSided, &k.Unlit, &k.HasVertexColors, &k.HasBaseColorTexture, &k.HasNormalTexture,
		&k.HasOcclusionTexture, &k.HasEmissiveTexture, &k.UseSpecularGlossiness, &k.EnableDiagnostics,
		&k.HasMetallicRoughness, &k.HasTextureTransforms, &k.HasClearCoat, &k.HasClearCoatTexture,
		&k.HasClearCoatRoughness, &k.HasClearCoatNormal, &k.HasTransmission, &k.HasTransmissionTexture,
		&k.HasSheen, &k.HasSheenColorTexture, &k.HasSheenRoughness, &k.HasVolume, &k.HasVolumeThickness,
		&k.HasIOR, &k.HasSpecular, &k.HasSpecularTexture, &k.HasSpecularColor,
	}
}

// AppendEncoding appends an explicit field-wise encoding of the key to b. Padding never
// participates, so equal keys always produce equal encodings.
//
// Parameters:
//   - b: the buffer to append to
//
// Returns:
//   - []byte: the extended buffer
func (k Key) AppendEncoding(b []byte) []byte {
	var bits uint32
	for i, f := range k.flags() {
		if *f {
			bits |= 1 << i
		}
	}
	b = append(b, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24), byte(k.AlphaMode))
	for _, tex := range textureSlots {
		b = append(b, *tex.uv(&k))
	}
	return b
}

// DecodeKey reverses AppendEncoding.
//
// Parameters:
//   - b: an encoding produced by AppendEncoding
//
// Returns:
//   - Key: the decoded key
//   - error: ErrKeyEncoding if b has the wrong length or sets unknown flag bits
func DecodeKey(b []byte) (Key, error) {
	var k Key
	if len(b) != EncodedKeySize {
		return k, fmt.Errorf("%w: %d bytes, want %d", ErrKeyEncoding, len(b), EncodedKeySize)
	}
	bits := binary.LittleEndian.Uint32(b)
	flags := k.flags()
	if bits>>len(flags) != 0 {
		return k, fmt.Errorf("%w: unknown flag bits %#x", ErrKeyEncoding, bits)
	}
	for i, f := range flags {
		*f = bits&(1<<i) != 0
	}
	k.AlphaMode = AlphaMode(b[4])
	for i, tex := range textureSlots {
		*tex.uv(&k) = b[5+i]
	}
	return k, nil
}

// ID returns the exact encoding of the key as a string, suitable for keyed deduplication.
func (k Key) ID() string {
	return string(k.AppendEncoding(nil))
}

// Hash returns a 64-bit FNV-1a hash of the key's encoding.
func (k Key) Hash() uint64 {
	h := fnv.New64a()
	h.Write(k.AppendEncoding(nil))
	return h.Sum64()
}

// String returns a short, stable hexadecimal label for the key.
func (k Key) String() string {
	return hex.EncodeToString(k.AppendEncoding(nil))
}
