package compiler

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleManifest() *Manifest {
	k, uv := variant.Constrain(variant.Key{
		HasBaseColorTexture:  true,
		HasEmissiveTexture:   true,
		EmissiveUV:           1,
		HasTextureTransforms: true,
		AlphaMode:            variant.AlphaModeMask,
	})
	decls := shader.DeclareParameters(k, uv)
	m := newManifest(NewOptions("sample", k, uv, decls))
	m.TargetAPI = TargetAPIWebGPU | TargetAPIVulkan
	m.VariantFilter = FilterFog | FilterSkinning
	m.Stages = []Stage{
		{Type: StageVertex, EntryPoint: vertexEntryPoint, Source: "vertex source"},
		{Type: StageFragment, EntryPoint: fragmentEntryPoint, Source: "fragment source", Code: map[TargetAPI][]byte{
			TargetAPIVulkan: {0x03, 0x02, 0x23, 0x07},
			TargetAPIMetal:  []byte("metal"),
		}},
	}
	m.MaterialSource = shader.Assemble(k, uv)
	return m
}

func TestPackageRoundTrip(t *testing.T) {
	m := sampleManifest()
	got, err := DecodePackage(EncodePackage(m))
	require.NoError(t, err)
	assert.Equal(t, m, got)

	s, ok := got.Stage(StageFragment)
	require.True(t, ok)
	assert.Equal(t, fragmentEntryPoint, s.EntryPoint)
	_, ok = got.Stage(StageVertexSkinned)
	assert.False(t, ok)
}

func TestPackageEncodingIsDeterministic(t *testing.T) {
	assert.Equal(t, EncodePackage(sampleManifest()), EncodePackage(sampleManifest()))
}

func TestDecodePackageRejectsMalformed(t *testing.T) {
	pkg := EncodePackage(sampleManifest())

	for n := 0; n < len(pkg); n++ {
		_, err := DecodePackage(pkg[:n])
		require.ErrorIs(t, err, ErrMalformedPackage, "prefix of %d bytes", n)
	}

	_, err := DecodePackage(append(append(Package(nil), pkg...), 0))
	assert.ErrorIs(t, err, ErrMalformedPackage)

	bad := append(Package(nil), pkg...)
	bad[0] = 'X'
	_, err = DecodePackage(bad)
	assert.ErrorIs(t, err, ErrMalformedPackage)

	bad = append(Package(nil), pkg...)
	bad[len(packageMagic)] = packageVersion + 1
	_, err = DecodePackage(bad)
	assert.ErrorIs(t, err, ErrMalformedPackage)
}
