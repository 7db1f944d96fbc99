package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-jit/engine/profiler"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider mints materials straight from the declarations of the normalized key.
type fakeProvider struct {
	mu     sync.Mutex
	keys   []variant.Key
	labels []string
	extras []string
	fail   error
}

func (p *fakeProvider) CreateMaterialInstance(k variant.Key, label, extras string) (material.Instance, error) {
	m, err := p.GetMaterial(k, label)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.labels = append(p.labels, label)
	p.extras = append(p.extras, extras)
	p.mu.Unlock()
	return m.CreateInstance(label, extras)
}

func (p *fakeProvider) GetMaterial(raw variant.Key, label string) (material.Material, error) {
	if p.fail != nil {
		return nil, p.fail
	}
	p.mu.Lock()
	p.keys = append(p.keys, raw)
	p.mu.Unlock()
	k, uv := variant.Constrain(raw)
	return material.NewMaterial(
		material.WithName(label),
		material.WithKey(k, uv),
		material.WithDeclarations(shader.DeclareParameters(k, uv)),
	), nil
}

func (p *fakeProvider) MaterialsCount() int                        { return 0 }
func (p *fakeProvider) Materials() []material.Material             { return nil }
func (p *fakeProvider) DestroyMaterials()                          {}
func (p *fakeProvider) NeedsDummyData(shader.VertexAttribute) bool { return false }
func (p *fakeProvider) Stats() profiler.Stats                      { return profiler.Stats{} }
func (p *fakeProvider) Close()                                     {}

const pngStub = "data:image/png;base64,iVBORw0KGgo="

const carGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"name": "Car", "nodes": [0, 1]}],
  "nodes": [{"mesh": 0}, {"mesh": 1, "skin": 0}],
  "meshes": [
    {"name": "body", "primitives": [
      {"attributes": {"POSITION": 0}, "material": 0},
      {"attributes": {"POSITION": 0, "COLOR_0": 1}, "material": 0},
      {"attributes": {"POSITION": 0}, "material": 0},
      {"attributes": {"POSITION": 0}}
    ]},
    {"name": "driver", "primitives": [
      {"attributes": {"POSITION": 0, "JOINTS_0": 2}, "material": 1}
    ]}
  ],
  "materials": [
    {
      "name": "paint",
      "alphaMode": "MASK",
      "alphaCutoff": 0.3,
      "doubleSided": true,
      "pbrMetallicRoughness": {
        "baseColorFactor": [1, 0, 0, 1],
        "metallicFactor": 0.2,
        "baseColorTexture": {"index": 0, "texCoord": 1,
          "extensions": {"KHR_texture_transform": {"offset": [0.5, 0], "scale": [2, 2]}}}
      },
      "normalTexture": {"index": 0, "scale": 0.5},
      "extensions": {
        "KHR_materials_clearcoat": {"clearcoatFactor": 0.8, "clearcoatRoughnessFactor": 0.1},
        "KHR_materials_volume": {"thicknessFactor": 0.5, "attenuationDistance": 2, "attenuationColor": [1, 0.5, 0.25]},
        "KHR_materials_ior": {}
      },
      "extras": {"tag": "car"}
    },
    {
      "name": "skin",
      "occlusionTexture": {"index": 0},
      "extensions": {"KHR_materials_unlit": {}}
    }
  ],
  "textures": [{"source": 0, "sampler": 0}],
  "images": [{"uri": "` + pngStub + `"}],
  "samplers": [{"magFilter": 9728, "wrapS": 33071}]
}`

func writeGLTF(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func uniformFloat(t *testing.T, inst material.Instance, name string) float32 {
	t.Helper()
	f, ok := inst.Material().UniformLayout().Field(name)
	require.True(t, ok, name)
	data, err := inst.UniformData()
	require.NoError(t, err)
	return math.Float32frombits(binary.LittleEndian.Uint32(data[f.Offset:]))
}

func TestLoadBindsInstancesPerMaterialAndLayout(t *testing.T) {
	p := &fakeProvider{}
	l := NewLoader(BackendTypeGLTF, p)
	path := writeGLTF(t, "car.gltf", carGLTF)

	m, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Car", m.Name)
	require.Len(t, m.Primitives, 5)
	require.Len(t, m.Materials, 2)

	prims := m.Primitives
	assert.Same(t, prims[0].Instance, prims[2].Instance)
	assert.NotSame(t, prims[0].Instance, prims[1].Instance)
	assert.True(t, prims[1].HasVertexColors)
	assert.Equal(t, -1, prims[3].MaterialIndex)
	assert.Equal(t, "body", prims[3].Mesh)
	assert.True(t, prims[4].Skinned)
	assert.False(t, prims[0].Skinned)

	require.Len(t, p.keys, 4)
	assert.Equal(t, []string{"paint", "paint", "default", "skin"}, p.labels)
	assert.Equal(t, `{"tag": "car"}`, p.extras[0])
	assert.Empty(t, p.extras[2])

	again, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Len(t, p.keys, 4)
	assert.Same(t, m, l.Get(path))
	assert.Len(t, l.Models(), 1)
}

func TestLoadDerivesRawKeys(t *testing.T) {
	p := &fakeProvider{}
	_, err := NewLoader(BackendTypeGLTF, p, WithDiagnostics(true)).Load(writeGLTF(t, "car.gltf", carGLTF))
	require.NoError(t, err)

	assert.Equal(t, variant.Key{
		DoubleSided:          true,
		AlphaMode:            variant.AlphaModeMask,
		EnableDiagnostics:    true,
		HasBaseColorTexture:  true,
		BaseColorUV:          1,
		HasTextureTransforms: true,
		HasNormalTexture:     true,
		HasClearCoat:         true,
		HasVolume:            true,
		HasIOR:               true,
	}, p.keys[0])
	assert.True(t, p.keys[1].HasVertexColors)
	assert.Equal(t, variant.Key{EnableDiagnostics: true}, p.keys[2])
	assert.Equal(t, variant.Key{Unlit: true, HasOcclusionTexture: true, EnableDiagnostics: true}, p.keys[3])
}

func TestLoadAppliesImportedValues(t *testing.T) {
	m, err := NewLoader(BackendTypeGLTF, &fakeProvider{}).Load(writeGLTF(t, "car.gltf", carGLTF))
	require.NoError(t, err)

	paint := m.Primitives[0].Instance
	assert.InDelta(t, 0.2, uniformFloat(t, paint, "metallicFactor"), 1e-6)
	assert.InDelta(t, 0.5, uniformFloat(t, paint, "normalScale"), 1e-6)
	assert.InDelta(t, 0.8, uniformFloat(t, paint, "clearCoatFactor"), 1e-6)
	assert.InDelta(t, 1.5, uniformFloat(t, paint, "ior"), 1e-6)

	b, ok := paint.Texture("baseColorMap")
	require.True(t, ok)
	assert.Equal(t, "image/png", b.Texture.MimeType)
	assert.NotEmpty(t, b.Texture.Data)
	require.NotNil(t, b.Sampler)
	assert.Equal(t, wgpu.FilterModeNearest, b.Sampler.MagFilter)
	assert.Equal(t, wgpu.AddressModeClampToEdge, b.Sampler.AddressModeU)
	assert.Equal(t, wgpu.AddressModeRepeat, b.Sampler.AddressModeV)

	vol := m.Materials[0].VolumeAbsorption
	assert.InDelta(t, 0, vol[0], 1e-6)
	assert.InDelta(t, math.Ln2/2, vol[1], 1e-5)
	assert.InDelta(t, math.Ln2, vol[2], 1e-5)

	ref := m.Materials[0].BaseColorTexture
	require.NotNil(t, ref.Transform)
	assert.Equal(t, [2]float32{0.5, 0}, ref.Transform.Offset)
	assert.Equal(t, [2]float32{2, 2}, ref.Transform.Scale)
	assert.Same(t, ref.Texture, m.Materials[0].NormalTexture.Texture)

	_, ok = m.Primitives[4].Instance.Texture("occlusionMap")
	assert.False(t, ok)
}

func TestLoadRejectsUnsupportedInput(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, &fakeProvider{})

	_, err := l.Load(writeGLTF(t, "mesh.obj", "o cube"))
	assert.Error(t, err)

	_, err = l.Load(writeGLTF(t, "draco.gltf", `{
	  "asset": {"version": "2.0"},
	  "extensionsRequired": ["KHR_draco_mesh_compression"]
	}`))
	assert.ErrorIs(t, err, errUnsupportedExtension)

	_, err = l.Load(writeGLTF(t, "old.gltf", `{"asset": {"version": "1.0"}}`))
	assert.ErrorIs(t, err, errInvalidGLTFVersion)
	assert.Empty(t, l.Models())
}

func TestLoadSurfacesProviderFailure(t *testing.T) {
	boom := errors.New("boom")
	l := NewLoader(BackendTypeGLTF, &fakeProvider{fail: boom})
	path := writeGLTF(t, "car.gltf", carGLTF)

	_, err := l.Load(path)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, l.Get(path))
}

// buildGLB assembles a GLB container around a JSON document and a binary chunk.
func buildGLB(t *testing.T, doc any, bin []byte) []byte {
	t.Helper()
	js, err := json.Marshal(doc)
	require.NoError(t, err)
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	le := binary.LittleEndian
	out := le.AppendUint32(nil, gltfGLBMagic)
	out = le.AppendUint32(out, gltfGLBVersion)
	out = le.AppendUint32(out, uint32(12+8+len(js)+8+len(bin)))
	out = le.AppendUint32(out, uint32(len(js)))
	out = le.AppendUint32(out, gltfGLBChunkJSON)
	out = append(out, js...)
	out = le.AppendUint32(out, uint32(len(bin)))
	out = le.AppendUint32(out, gltfGLBChunkBIN)
	return append(out, bin...)
}

func TestLoadReaderGLBEmbeddedImage(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G', 1, 2, 3, 4}
	glb := buildGLB(t, map[string]any{
		"asset":       map[string]any{"version": "2.0"},
		"buffers":     []any{map[string]any{"byteLength": len(image)}},
		"bufferViews": []any{map[string]any{"buffer": 0, "byteLength": len(image)}},
		"images":      []any{map[string]any{"bufferView": 0, "mimeType": "image/png"}},
		"textures":    []any{map[string]any{"source": 0}},
		"materials": []any{map[string]any{
			"name": "glass",
			"extensions": map[string]any{
				"KHR_materials_transmission": map[string]any{"transmissionFactor": 1, "transmissionTexture": map[string]any{"index": 0}},
			},
		}},
		"meshes": []any{map[string]any{"primitives": []any{
			map[string]any{"attributes": map[string]any{"POSITION": 0}, "material": 0},
		}}},
	}, image)

	p := &fakeProvider{}
	l := NewLoader(BackendTypeGLTF, p)
	m, err := l.LoadReader("glass", bytes.NewReader(glb), true)
	require.NoError(t, err)
	assert.Equal(t, "glass", m.Name)
	require.Len(t, m.Primitives, 1)
	assert.Equal(t, "mesh_0", m.Primitives[0].Mesh)

	require.Len(t, p.keys, 1)
	assert.True(t, p.keys[0].HasTransmission)
	assert.True(t, p.keys[0].HasTransmissionTexture)

	b, ok := m.Primitives[0].Instance.Texture("transmissionMap")
	require.True(t, ok)
	assert.Equal(t, image, b.Texture.Data)
	assert.Nil(t, b.Sampler)
	assert.InDelta(t, 1, uniformFloat(t, m.Primitives[0].Instance, "transmissionFactor"), 1e-6)
}

func TestLoadReaderRejectsMalformedGLB(t *testing.T) {
	doc := map[string]any{"asset": map[string]any{"version": "2.0"}}
	glb := buildGLB(t, doc, []byte{1, 2, 3, 4})
	l := NewLoader(BackendTypeGLTF, &fakeProvider{})

	cases := map[string]struct {
		data []byte
		err  error
	}{
		"short":         {glb[:8], errInvalidGLB},
		"bad magic":     {append([]byte("gltf"), glb[4:]...), errInvalidGLB},
		"chunk overrun": {glb[:len(glb)-2], errInvalidGLB},
		"no json":       {glb[:12], errMissingJSONChunk},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := l.LoadReader(name, bytes.NewReader(tc.data), true)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestLoadReaderDataURIBuffers(t *testing.T) {
	l := NewLoader(BackendTypeGLTF, &fakeProvider{})

	_, err := l.LoadReader("plain", bytes.NewReader([]byte(`{
	  "asset": {"version": "2.0"},
	  "buffers": [{"uri": "data:application/octet-stream,AAAA", "byteLength": 3}]
	}`)), false)
	assert.ErrorIs(t, err, errInvalidDataURI)

	_, err = l.LoadReader("short", bytes.NewReader([]byte(`{
	  "asset": {"version": "2.0"},
	  "buffers": [{"uri": "data:application/octet-stream;base64,AAAA", "byteLength": 8}]
	}`)), false)
	assert.ErrorIs(t, err, errBufferSizeMismatch)

	m, err := l.LoadReader("ok", bytes.NewReader([]byte(`{
	  "asset": {"version": "2.0"},
	  "scene": 0,
	  "scenes": [{"name": "crate"}],
	  "buffers": [{"uri": "data:application/octet-stream;base64,AAAA", "byteLength": 3}]
	}`)), false)
	require.NoError(t, err)
	assert.Equal(t, "crate", m.Name)
	assert.Empty(t, m.Materials)
}
