package provider

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/compiler"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
)

// ErrBuild is returned when a variant cannot be built into a material.
var ErrBuild = errors.New("failed to build material variant")

// buildOrchestrator turns one canonical key into a material: it assembles the material source,
// declares its parameters, compiles it and hands the package to the object factory.
type buildOrchestrator struct {
	compiler   compiler.Compiler
	factory    renderer.ObjectFactory
	config     compiler.BuildConfig
	filters    compiler.VariantFilter
	stereoType compiler.StereoscopicType
	eyeCount   uint8
}

// options returns the compile options of a canonical key under the process build configuration.
func (o *buildOrchestrator) options(name string, k variant.Key, uvmap variant.UvMap, decls shader.Declarations) compiler.Options {
	opts := compiler.NewOptions(name, k, uvmap, decls).WithBuildConfig(o.config)
	opts.TargetAPI = o.factory.TargetAPI()
	opts.VariantFilter = o.filters
	opts.StereoscopicType = o.stereoType
	if o.eyeCount > 0 {
		opts.StereoscopicEyeCount = o.eyeCount
	}
	return opts
}

// build creates the material of a canonical key.
//
// Parameters:
//   - name: the material name
//   - k: the canonical key
//   - uvmap: the UV map derived alongside k
//
// Returns:
//   - material.Material: the instantiated material
//   - error: ErrBuild wrapping the failing step
func (o *buildOrchestrator) build(name string, k variant.Key, uvmap variant.UvMap) (material.Material, error) {
	source := shader.Assemble(k, uvmap)
	decls := shader.DeclareParameters(k, uvmap)
	if err := shader.CheckParameters(source, decls.Parameters); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBuild, name, err)
	}

	pkg, err := o.compiler.Build(source, o.options(name, k, uvmap, decls))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBuild, name, err)
	}

	m, err := o.factory.Instantiate(pkg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBuild, name, err)
	}
	return m, nil
}
