package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/compiler"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrInstantiate is returned when a package cannot be turned into a material.
var ErrInstantiate = errors.New("failed to instantiate material package")

// ObjectFactory turns compiled packages into materials and destroys them again.
type ObjectFactory interface {
	// Instantiate decodes a package and creates the material it describes.
	//
	// Parameters:
	//   - pkg: a package produced by a compiler
	//
	// Returns:
	//   - material.Material: the material, owned by the caller until passed to Destroy
	//   - error: ErrInstantiate wrapping the cause
	Instantiate(pkg compiler.Package) (material.Material, error)

	// Destroy releases a material created by Instantiate.
	//
	// Parameters:
	//   - m: the material to destroy
	Destroy(m material.Material)

	// TargetAPI reports which code a package must carry for this factory.
	//
	// Returns:
	//   - compiler.TargetAPI: the required target APIs
	TargetAPI() compiler.TargetAPI
}

// decodedPackage is a package with every stage reflected.
type decodedPackage struct {
	manifest *compiler.Manifest
	vertex   shader.Shader
	skinned  shader.Shader
	fragment shader.Shader
	uniforms shader.StructLayout
}

// decodePackage decodes and reflects a package.
//
// Parameters:
//   - pkg: the package bytes
//
// Returns:
//   - *decodedPackage: the manifest and reflected stages
//   - error: ErrInstantiate wrapping the decode or reflection failure
func decodePackage(pkg compiler.Package) (*decodedPackage, error) {
	m, err := compiler.DecodePackage(pkg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiate, err)
	}

	d := &decodedPackage{manifest: m}
	for _, s := range m.Stages {
		reflected, err := shader.NewShader(m.Name+" "+s.Type.String(), s.Type.ShaderType(), s.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInstantiate, err)
		}
		switch s.Type {
		case compiler.StageVertex:
			d.vertex = reflected
		case compiler.StageVertexSkinned:
			d.skinned = reflected
		case compiler.StageFragment:
			d.fragment = reflected
		}
	}
	if d.vertex == nil || d.fragment == nil {
		return nil, fmt.Errorf("%w: %s: package lacks a vertex or fragment stage", ErrInstantiate, m.Name)
	}

	l, ok := d.fragment.StructLayout(compiler.MaterialParamsStruct)
	if !ok {
		return nil, fmt.Errorf("%w: %s: fragment stage has no %s block", ErrInstantiate, m.Name, compiler.MaterialParamsStruct)
	}
	d.uniforms = l
	return d, nil
}

// newPipeline creates the pipeline of the package, without GPU objects.
func (d *decodedPackage) newPipeline(frontFace wgpu.FrontFace) pipeline.Pipeline {
	return pipeline.NewPipeline(d.manifest.Name,
		pipeline.WithVertexShader(d.vertex),
		pipeline.WithSkinnedShader(d.skinned),
		pipeline.WithFragmentShader(d.fragment),
		pipeline.WithRenderState(d.manifest.Capabilities, d.manifest.DoubleSided),
		pipeline.WithFrontFace(frontFace),
	)
}

// newMaterial wraps a pipeline into the material the package describes.
func (d *decodedPackage) newMaterial(p pipeline.Pipeline) material.Material {
	m := d.manifest
	return material.NewMaterial(
		material.WithName(m.Name),
		material.WithKey(m.Key, m.UvMap),
		material.WithDeclarations(shader.Declarations{
			Parameters:   m.Parameters,
			Attributes:   m.Attributes,
			Capabilities: m.Capabilities,
		}),
		material.WithPipeline(p),
		material.WithUniformLayout(d.uniforms),
	)
}
