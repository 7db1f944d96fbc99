package shader

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoEntryPoint is returned when a stage's source has no entry point of the stage's type.
var ErrNoEntryPoint = errors.New("shader has no entry point")

// ShaderType identifies the pipeline stage a shader runs in.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex stage of a render pipeline.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment stage, paired with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// shader is the implementation of the Shader interface.
// It holds everything reflected from one compiled WGSL stage.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              []wgpu.VertexBufferLayout
	structLayouts              map[string]StructLayout
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader is a reflected WGSL stage. It exposes what pipeline creation and parameter binding
// need: entry point, bind group layout descriptors, vertex buffer layouts and the byte layout of
// every buffer struct.
type Shader interface {
	// Key retrieves the unique identifier of this stage, used as the GPU object label.
	//
	// Returns:
	//   - string: the shader's key
	Key() string

	// Source retrieves the WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// ShaderType returns the stage this shader runs in.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// EntryPoint returns the entry point function name.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Module returns the descriptor to create a wgpu shader module from this stage.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor carrying the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// BindGroupLayoutDescriptors retrieves the layout descriptors of every bind group the stage
	// declares, keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name bound at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or "" if nothing is bound there
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index of a variable within a group.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// VertexLayouts retrieves the vertex buffer layouts of a vertex stage, one per input struct.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layouts, nil for fragment stages
	VertexLayouts() []wgpu.VertexBufferLayout

	// StructLayout retrieves the buffer layout of a struct declared by the stage.
	//
	// Parameters:
	//   - name: the WGSL struct name
	//
	// Returns:
	//   - StructLayout: member offsets, sizes and the padded struct size
	//   - bool: true if the struct exists and all of its members resolve
	StructLayout(name string) (StructLayout, bool)
}

var _ Shader = &shader{}

// NewShader reflects a WGSL stage.
//
// Parameters:
//   - key: a unique identifier for the shader, used as a label
//   - shaderType: the stage the source is compiled for
//   - source: the WGSL source text
//
// Returns:
//   - Shader: the reflected stage
//   - error: ErrNoEntryPoint if the source has no entry point for the stage
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	s := &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
		entryPoint: parseEntryPoint(source, shaderType),
	}
	if s.entryPoint == "" {
		return nil, fmt.Errorf("%s (%s): %w", key, shaderType, ErrNoEntryPoint)
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label:          key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	}

	visibility := wgpu.ShaderStageFragment
	if shaderType == ShaderTypeVertex {
		visibility = wgpu.ShaderStageVertex
		s.vertexLayouts = parseVertexLayouts(source)
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(source, visibility)
	s.structLayouts = parseStructLayouts(source)
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) StructLayout(name string) (StructLayout, bool) {
	l, ok := s.structLayouts[name]
	return l, ok
}
