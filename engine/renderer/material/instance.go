package material

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-jit/common"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
)

// TextureBinding is the texture and sampler configuration bound to a sampler parameter.
type TextureBinding struct {
	Texture *common.ImportedTexture
	Sampler *common.SamplerStagingData
}

// instance is the implementation of the Instance interface.
type instance struct {
	mu       sync.Mutex
	label    string
	extras   string
	material *material
	uniforms []byte
	textures map[string]TextureBinding
}

// Instance is a per-draw view over a Material carrying its own parameter values. Values are
// packed into a uniform block laid out exactly like the material's parameter struct.
type Instance interface {
	// Label retrieves the label given at creation.
	//
	// Returns:
	//   - string: the instance label
	Label() string

	// Extras retrieves the application data given at creation.
	//
	// Returns:
	//   - string: the extras
	Extras() string

	// Material retrieves the material the instance was minted from.
	//
	// Returns:
	//   - Material: the material
	Material() Material

	// SetFloat sets a FLOAT parameter.
	SetFloat(name string, v float32) error

	// SetFloat3 sets a FLOAT3 parameter.
	SetFloat3(name string, v [3]float32) error

	// SetFloat4 sets a FLOAT4 parameter.
	SetFloat4(name string, v [4]float32) error

	// SetMat3 sets a MAT3 parameter from a column-major matrix.
	SetMat3(name string, v common.Mat3) error

	// SetBool sets a BOOL parameter.
	SetBool(name string, v bool) error

	// SetTexture binds a texture and sampler to a SAMPLER_2D parameter.
	//
	// Parameters:
	//   - name: the sampler parameter name
	//   - tex: the texture
	//   - sampler: the sampler configuration, nil for defaults
	//
	// Returns:
	//   - error: ErrUnknownParameter, ErrParameterType or ErrMaterialReleased
	SetTexture(name string, tex *common.ImportedTexture, sampler *common.SamplerStagingData) error

	// SetMaskThreshold sets the alpha cutoff of a masked material.
	//
	// Parameters:
	//   - v: the cutoff
	//
	// Returns:
	//   - error: ErrUnknownParameter if the material is not masked, or ErrMaterialReleased
	SetMaskThreshold(v float32) error

	// Texture retrieves the binding of a sampler parameter.
	//
	// Parameters:
	//   - name: the sampler parameter name
	//
	// Returns:
	//   - TextureBinding: the binding
	//   - bool: true if a texture was set
	Texture(name string) (TextureBinding, bool)

	// Textures retrieves every bound texture keyed by parameter name.
	//
	// Returns:
	//   - map[string]TextureBinding: a copy of the bindings
	Textures() map[string]TextureBinding

	// UniformData retrieves a copy of the packed uniform block.
	//
	// Returns:
	//   - []byte: the uniform block
	//   - error: ErrMaterialReleased if the material was released
	UniformData() ([]byte, error)
}

var _ Instance = &instance{}

// newInstance creates an instance with zeroed values, identity UV matrices and the default alpha
// cutoff.
func newInstance(m *material, label, extras string) *instance {
	inst := &instance{
		label:    label,
		extras:   extras,
		material: m,
		uniforms: make([]byte, m.uniforms.Size),
		textures: make(map[string]TextureBinding),
	}
	for _, p := range m.decls.Parameters {
		if p.Type == shader.ParameterTypeMat3 {
			if f, ok := m.uniforms.Field(p.Name); ok {
				inst.putMat3(f.Offset, common.Mat3Identity())
			}
		}
	}
	if f, ok := m.uniforms.Field(MaskThresholdField); ok {
		inst.putFloats(f.Offset, DefaultMaskThreshold)
	}
	return inst
}

func (i *instance) Label() string {
	return i.label
}

func (i *instance) Extras() string {
	return i.extras
}

func (i *instance) Material() Material {
	return i.material
}

// field resolves a declared parameter of the wanted type to its uniform member.
func (i *instance) field(name string, want shader.ParameterType) (shader.StructField, error) {
	if i.material.Released() {
		return shader.StructField{}, ErrMaterialReleased
	}
	decl, ok := i.material.decls.Parameter(name)
	if !ok {
		return shader.StructField{}, fmt.Errorf("%w: %q in %s", ErrUnknownParameter, name, i.material.name)
	}
	if decl.Type != want {
		return shader.StructField{}, fmt.Errorf("%w: %q is %s, not %s", ErrParameterType, name, decl.Type, want)
	}
	f, ok := i.material.uniforms.Field(name)
	if !ok {
		return shader.StructField{}, fmt.Errorf("%w: %q has no uniform member", ErrUnknownParameter, name)
	}
	return f, nil
}

func (i *instance) putFloats(offset uint64, vs ...float32) {
	for n, v := range vs {
		binary.LittleEndian.PutUint32(i.uniforms[offset+uint64(4*n):], math.Float32bits(v))
	}
}

// putMat3 writes three columns, each padded to 16 bytes.
func (i *instance) putMat3(offset uint64, m common.Mat3) {
	for col := range 3 {
		i.putFloats(offset+uint64(16*col), m[3*col], m[3*col+1], m[3*col+2])
	}
}

func (i *instance) setFloats(name string, t shader.ParameterType, vs ...float32) error {
	f, err := i.field(name, t)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.putFloats(f.Offset, vs...)
	return nil
}

func (i *instance) SetFloat(name string, v float32) error {
	return i.setFloats(name, shader.ParameterTypeFloat, v)
}

func (i *instance) SetFloat3(name string, v [3]float32) error {
	return i.setFloats(name, shader.ParameterTypeFloat3, v[:]...)
}

func (i *instance) SetFloat4(name string, v [4]float32) error {
	return i.setFloats(name, shader.ParameterTypeFloat4, v[:]...)
}

func (i *instance) SetMat3(name string, v common.Mat3) error {
	f, err := i.field(name, shader.ParameterTypeMat3)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.putMat3(f.Offset, v)
	return nil
}

func (i *instance) SetBool(name string, v bool) error {
	f, err := i.field(name, shader.ParameterTypeBool)
	if err != nil {
		return err
	}
	var u uint32
	if v {
		u = 1
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	binary.LittleEndian.PutUint32(i.uniforms[f.Offset:], u)
	return nil
}

func (i *instance) SetTexture(name string, tex *common.ImportedTexture, sampler *common.SamplerStagingData) error {
	if i.material.Released() {
		return ErrMaterialReleased
	}
	decl, ok := i.material.decls.Parameter(name)
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrUnknownParameter, name, i.material.name)
	}
	if !decl.Type.IsSampler() {
		return fmt.Errorf("%w: %q is %s, not %s", ErrParameterType, name, decl.Type, shader.ParameterTypeSampler2D)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.textures[name] = TextureBinding{Texture: tex, Sampler: sampler}
	return nil
}

func (i *instance) SetMaskThreshold(v float32) error {
	if i.material.Released() {
		return ErrMaterialReleased
	}
	f, ok := i.material.uniforms.Field(MaskThresholdField)
	if !ok {
		return fmt.Errorf("%w: %s is not masked", ErrUnknownParameter, i.material.name)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.putFloats(f.Offset, v)
	return nil
}

func (i *instance) Texture(name string) (TextureBinding, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	b, ok := i.textures[name]
	return b, ok
}

func (i *instance) Textures() map[string]TextureBinding {
	i.mu.Lock()
	defer i.mu.Unlock()
	return maps.Clone(i.textures)
}

func (i *instance) UniformData() ([]byte, error) {
	if i.material.Released() {
		return nil, ErrMaterialReleased
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]byte, len(i.uniforms))
	copy(out, i.uniforms)
	return out, nil
}
