package material

import (
	"errors"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
)

var (
	// ErrUnknownParameter is returned when setting a parameter the material does not declare.
	ErrUnknownParameter = errors.New("unknown material parameter")

	// ErrParameterType is returned when a setter does not match the declared parameter type.
	ErrParameterType = errors.New("material parameter type mismatch")

	// ErrMaterialReleased is returned by operations on a released material or its instances.
	ErrMaterialReleased = errors.New("material has been released")
)

const (
	// MaskThresholdField is the uniform member holding the alpha cutoff of masked materials.
	MaskThresholdField = "maskThreshold"

	// DefaultMaskThreshold is the alpha cutoff new instances of masked materials start with.
	DefaultMaskThreshold float32 = 0.5
)

// material is the implementation of the Material interface.
type material struct {
	mu        sync.RWMutex
	name      string
	key       variant.Key
	uvmap     variant.UvMap
	decls     shader.Declarations
	pipeline  pipeline.Pipeline
	uniforms  shader.StructLayout
	instances int
	released  bool
}

// Material is a compiled material: one generated shader program with its render state, shared by
// every instance minted from it. A Material is owned by whoever instantiated it; instances are
// lightweight views that only carry parameter values.
type Material interface {
	// Name retrieves the material label given at build time.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Key retrieves the canonical variant key the material was built for.
	//
	// Returns:
	//   - variant.Key: the canonical key
	Key() variant.Key

	// UvMap retrieves the texcoord to UV set mapping the material samples with.
	//
	// Returns:
	//   - variant.UvMap: the UV map
	UvMap() variant.UvMap

	// Parameters retrieves the declared parameters in declaration order.
	//
	// Returns:
	//   - []shader.ParameterDecl: the parameters
	Parameters() []shader.ParameterDecl

	// Parameter looks up one declared parameter.
	//
	// Parameters:
	//   - name: the parameter name
	//
	// Returns:
	//   - shader.ParameterDecl: the declaration
	//   - bool: true if the parameter is declared
	Parameter(name string) (shader.ParameterDecl, bool)

	// Attributes retrieves the vertex attributes the material reads.
	//
	// Returns:
	//   - shader.AttributeSet: the required attributes
	Attributes() shader.AttributeSet

	// Capabilities retrieves the blending, shading and refraction modes.
	//
	// Returns:
	//   - shader.Capabilities: the capabilities
	Capabilities() shader.Capabilities

	// Pipeline retrieves the shaders, render state and GPU objects of the material.
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline
	Pipeline() pipeline.Pipeline

	// UniformLayout retrieves the layout of the parameter uniform block.
	//
	// Returns:
	//   - shader.StructLayout: the uniform block layout
	UniformLayout() shader.StructLayout

	// CreateInstance mints a new instance with default parameter values.
	//
	// Parameters:
	//   - label: a label for the instance, typically the imported material name
	//   - extras: application data carried alongside the instance
	//
	// Returns:
	//   - Instance: the new instance
	//   - error: ErrMaterialReleased if the material was released
	CreateInstance(label, extras string) (Instance, error)

	// Instances retrieves the number of instances minted so far.
	//
	// Returns:
	//   - int: the instance count
	Instances() int

	// Release releases the pipeline and invalidates every instance. Calling Release twice is a no-op.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true if released
	Released() bool
}

var _ Material = &material{}

// NewMaterial creates a new Material configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{}
	for _, opt := range options {
		opt(m)
	}
	if m.pipeline == nil {
		m.pipeline = pipeline.NewPipeline(m.name, pipeline.WithRenderState(m.decls.Capabilities, m.key.DoubleSided))
	}
	if m.uniforms.Name == "" {
		m.uniforms = packedLayout(m.decls.Parameters)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Key() variant.Key {
	return m.key
}

func (m *material) UvMap() variant.UvMap {
	return m.uvmap
}

func (m *material) Parameters() []shader.ParameterDecl {
	return slices.Clone(m.decls.Parameters)
}

func (m *material) Parameter(name string) (shader.ParameterDecl, bool) {
	return m.decls.Parameter(name)
}

func (m *material) Attributes() shader.AttributeSet {
	return m.decls.Attributes
}

func (m *material) Capabilities() shader.Capabilities {
	return m.decls.Capabilities
}

func (m *material) Pipeline() pipeline.Pipeline {
	return m.pipeline
}

func (m *material) UniformLayout() shader.StructLayout {
	return m.uniforms
}

func (m *material) CreateInstance(label, extras string) (Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return nil, ErrMaterialReleased
	}
	m.instances++
	return newInstance(m, label, extras), nil
}

func (m *material) Instances() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances
}

func (m *material) Release() {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}
	m.released = true
	m.mu.Unlock()

	m.pipeline.Release()
}

func (m *material) Released() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.released
}

// packedLayout lays out the non-sampler parameters with WGSL uniform rules, used when no
// reflected layout is available.
func packedLayout(params []shader.ParameterDecl) shader.StructLayout {
	l := shader.StructLayout{Name: "MaterialParams", Align: 16}
	var offset uint64
	for _, p := range params {
		size, align, ok := uniformSize(p.Type)
		if !ok {
			continue
		}
		offset = (offset + align - 1) &^ (align - 1)
		l.Fields = append(l.Fields, shader.StructField{Name: p.Name, Type: p.Type.String(), Offset: offset, Size: size})
		offset += size
	}
	l.Size = (offset + 15) &^ 15
	return l
}

// uniformSize returns the WGSL size and alignment of a parameter stored in a uniform block.
func uniformSize(t shader.ParameterType) (size, align uint64, ok bool) {
	switch t {
	case shader.ParameterTypeBool, shader.ParameterTypeFloat:
		return 4, 4, true
	case shader.ParameterTypeFloat3:
		return 12, 16, true
	case shader.ParameterTypeFloat4:
		return 16, 16, true
	case shader.ParameterTypeMat3:
		return 48, 16, true
	default:
		return 0, 0, false
	}
}
