package variant

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomKey builds a pseudo-random raw key, texcoords included, from r.
func randomKey(r *rand.Rand) Key {
	var k Key
	for _, f := range k.flags() {
		*f = r.Intn(2) == 1
	}
	k.AlphaMode = AlphaMode(r.Intn(3))
	for _, slot := range textureSlots {
		*slot.uv(&k) = uint8(r.Intn(10))
	}
	return k
}

func TestConstrainIsIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		raw := randomKey(r)
		once, uvOnce := Constrain(raw)
		twice, uvTwice := Constrain(once)
		require.Equal(t, once, twice, "raw key %s", raw)
		require.Equal(t, uvOnce, uvTwice, "raw key %s", raw)
	}
}

func TestConstrainNeverExceedsTwoUvSets(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 2000; i++ {
		k, uvmap := Constrain(randomKey(r))
		assert.LessOrEqual(t, uvmap.Count(), MaxUvSets)
		for _, slot := range textureSlots {
			if *slot.enabled(&k) {
				assert.NotEqual(t, UvUnused, uvmap.Set(*slot.uv(&k)), "texture %s has no UV set", slot.name)
			} else {
				assert.Zero(t, *slot.uv(&k), "disabled texture %s keeps a texcoord", slot.name)
			}
		}
	}
}

func TestConstrainUnlitClearsLightingFeatures(t *testing.T) {
	k, _ := Constrain(Key{
		Unlit:               true,
		HasBaseColorTexture: true,
		HasNormalTexture:    true,
		HasClearCoat:        true,
		HasClearCoatTexture: true,
		HasSheen:            true,
		HasVolume:           true,
		HasIOR:              true,
		HasSpecular:         true,
		EnableDiagnostics:   true,
	})

	assert.True(t, k.Unlit)
	assert.True(t, k.HasBaseColorTexture)
	assert.True(t, k.EnableDiagnostics)
	assert.False(t, k.HasNormalTexture)
	assert.False(t, k.HasClearCoat)
	assert.False(t, k.HasClearCoatTexture)
	assert.False(t, k.HasSheen)
	assert.False(t, k.HasVolume)
	assert.False(t, k.HasIOR)
	assert.False(t, k.HasSpecular)
}

func TestConstrainClearsOrphanedSubFeatures(t *testing.T) {
	k, _ := Constrain(Key{
		HasClearCoatTexture:    true,
		HasClearCoatNormal:     true,
		HasTransmissionTexture: true,
		HasSheenColorTexture:   true,
		HasVolumeThickness:     true,
		HasSpecularColor:       true,
	})
	assert.Equal(t, Key{}, k)
}

func TestConstrainAllocatesUvSetsInPriorityOrder(t *testing.T) {
	k, uvmap := Constrain(Key{
		HasBaseColorTexture:  true,
		BaseColorUV:          3,
		HasEmissiveTexture:   true,
		EmissiveUV:           1,
		HasNormalTexture:     true,
		NormalUV:             3,
		HasOcclusionTexture:  true,
		AoUV:                 5,
		HasTextureTransforms: true,
	})

	assert.Equal(t, UvSet0, uvmap[3])
	assert.Equal(t, UvSet1, uvmap[1])
	assert.Equal(t, UvUnused, uvmap[5])
	assert.Equal(t, 2, uvmap.Count())

	assert.True(t, k.HasBaseColorTexture)
	assert.True(t, k.HasEmissiveTexture)
	assert.True(t, k.HasNormalTexture)
	assert.False(t, k.HasOcclusionTexture, "third UV set must disable the texture")
	assert.Zero(t, k.AoUV)
	assert.True(t, k.HasTextureTransforms)
}

func TestConstrainWithoutTexturesDropsTransforms(t *testing.T) {
	k, uvmap := Constrain(Key{HasTextureTransforms: true, BaseColorUV: 4})
	assert.False(t, k.HasTextureTransforms)
	assert.Zero(t, k.BaseColorUV)
	assert.Zero(t, uvmap.Count())
}

func TestConstrainClampsOutOfRangeTexCoords(t *testing.T) {
	k, uvmap := Constrain(Key{HasBaseColorTexture: true, BaseColorUV: 200})
	assert.Zero(t, k.BaseColorUV)
	assert.Equal(t, UvSet0, uvmap[0])
}

func TestConstrainKeepsDoubleSidedIdentity(t *testing.T) {
	a, _ := Constrain(Key{HasBaseColorTexture: true})
	b, _ := Constrain(Key{HasBaseColorTexture: true, DoubleSided: true})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a.ID(), b.ID())
}
