package provider

import (
	"github.com/Carmen-Shannon/oxy-jit/engine/profiler"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/compiler"
)

// ProviderBuilderOption is a functional option applied to a provider during construction via
// NewJitShaderProvider.
type ProviderBuilderOption func(*jitShaderProvider)

// WithCompiler sets the compiler used to build variants. The provider does not shut down a
// compiler it was given.
//
// Parameters:
//   - c: the compiler
//
// Returns:
//   - ProviderBuilderOption: a function that applies the compiler option to a provider
func WithCompiler(c compiler.Compiler) ProviderBuilderOption {
	return func(p *jitShaderProvider) {
		p.compiler = c
	}
}

// WithVariantFilters names engine variants that are never generated. Unknown names make
// NewJitShaderProvider fail.
//
// Parameters:
//   - names: filter names such as "skinning" or "stereo"
//
// Returns:
//   - ProviderBuilderOption: a function that applies the filter option to a provider
func WithVariantFilters(names ...string) ProviderBuilderOption {
	return func(p *jitShaderProvider) {
		p.filterNames = append(p.filterNames, names...)
	}
}

// WithOptimizeShaders enables optimized code generation. Ignored in debug builds.
//
// Parameters:
//   - optimize: true to optimize
//
// Returns:
//   - ProviderBuilderOption: a function that applies the optimization option to a provider
func WithOptimizeShaders(optimize bool) ProviderBuilderOption {
	return func(p *jitShaderProvider) {
		p.optimize = optimize
	}
}

// WithStereoscopic sets how vertex stages render to several eyes.
//
// Parameters:
//   - t: the stereoscopic type
//   - eyes: the number of eyes, 2 when zero
//
// Returns:
//   - ProviderBuilderOption: a function that applies the stereoscopic option to a provider
func WithStereoscopic(t compiler.StereoscopicType, eyes uint8) ProviderBuilderOption {
	return func(p *jitShaderProvider) {
		p.stereoType = t
		p.eyeCount = eyes
	}
}

// WithWorkers sets the worker count of the compiler the provider creates. It has no effect
// together with WithCompiler.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - ProviderBuilderOption: a function that applies the worker option to a provider
func WithWorkers(n int) ProviderBuilderOption {
	return func(p *jitShaderProvider) {
		p.workers = n
	}
}

// WithConfig applies a loaded configuration. Options after it override its values.
//
// Parameters:
//   - c: the configuration, usually from LoadConfig
//
// Returns:
//   - ProviderBuilderOption: a function that applies the configuration to a provider
func WithConfig(c Config) ProviderBuilderOption {
	return func(p *jitShaderProvider) {
		if err := c.validate(); err != nil {
			p.configErr = err
			return
		}
		p.filterNames = append(p.filterNames, c.VariantFilters...)
		p.optimize = c.OptimizeShaders
		p.stereoType, _ = c.stereoscopicType()
		p.eyeCount = c.EyeCount
		p.workers = c.Workers
	}
}

// WithProfiler sets the profiler recording hits, misses and build timings.
//
// Parameters:
//   - bp: the profiler
//
// Returns:
//   - ProviderBuilderOption: a function that applies the profiler option to a provider
func WithProfiler(bp *profiler.BuildProfiler) ProviderBuilderOption {
	return func(p *jitShaderProvider) {
		p.profiler = bp
	}
}
