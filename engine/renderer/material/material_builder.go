package material

import (
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
)

// MaterialBuilderOption is a function that configures a material during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithKey is an option builder that sets the canonical key and UV map the material was built for.
//
// Parameters:
//   - k: the canonical variant key
//   - uvmap: the UV map derived alongside the key
//
// Returns:
//   - MaterialBuilderOption: a function that applies the key option to a material
func WithKey(k variant.Key, uvmap variant.UvMap) MaterialBuilderOption {
	return func(m *material) {
		m.key = k
		m.uvmap = uvmap
	}
}

// WithDeclarations is an option builder that sets the parameters, attributes and capabilities.
//
// Parameters:
//   - decls: the declarations of the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the declarations to a material
func WithDeclarations(decls shader.Declarations) MaterialBuilderOption {
	return func(m *material) {
		m.decls = decls
	}
}

// WithPipeline is an option builder that sets the pipeline holding the material's shaders and
// GPU objects. Without it the material gets a pipeline with render state only.
//
// Parameters:
//   - p: the pipeline, owned by the material from now on
//
// Returns:
//   - MaterialBuilderOption: a function that applies the pipeline to a material
func WithPipeline(p pipeline.Pipeline) MaterialBuilderOption {
	return func(m *material) {
		m.pipeline = p
	}
}

// WithUniformLayout is an option builder that sets the reflected layout of the parameter uniform
// block. Without it the layout is computed from the declared parameters.
//
// Parameters:
//   - l: the uniform block layout
//
// Returns:
//   - MaterialBuilderOption: a function that applies the layout to a material
func WithUniformLayout(l shader.StructLayout) MaterialBuilderOption {
	return func(m *material) {
		m.uniforms = l
	}
}
