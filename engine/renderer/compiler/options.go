package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
)

// ErrUnknownVariantFilter is returned for a variant filter name that is not recognized.
var ErrUnknownVariantFilter = errors.New("unknown variant filter")

// TargetAPI is a bit set of the backends a package carries code for.
type TargetAPI uint8

const (
	// TargetAPIWebGPU keeps the WGSL text of every stage.
	TargetAPIWebGPU TargetAPI = 1 << iota

	// TargetAPIVulkan adds SPIR-V binaries.
	TargetAPIVulkan

	// TargetAPIOpenGL adds GLSL 3.30 sources.
	TargetAPIOpenGL

	// TargetAPIMetal adds MSL sources.
	TargetAPIMetal
)

// Has reports whether every API in o is also in t.
func (t TargetAPI) Has(o TargetAPI) bool {
	return t&o == o
}

func (t TargetAPI) String() string {
	var names []string
	for _, n := range []struct {
		api  TargetAPI
		name string
	}{{TargetAPIWebGPU, "webgpu"}, {TargetAPIVulkan, "vulkan"}, {TargetAPIOpenGL, "opengl"}, {TargetAPIMetal, "metal"}} {
		if t.Has(n.api) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Optimization selects how much work the compiler spends on the generated code.
type Optimization uint8

const (
	OptimizationNone Optimization = iota
	OptimizationPerformance
)

// TransparencyMode selects how blended materials are drawn.
type TransparencyMode uint8

const (
	TransparencyDefault TransparencyMode = iota

	// TransparencyTwoPassesTwoSides draws back faces first, then front faces.
	TransparencyTwoPassesTwoSides
)

// ReflectionMode selects where specular reflections are gathered from.
type ReflectionMode uint8

const (
	ReflectionDefault ReflectionMode = iota
	ReflectionScreenSpace
)

// StereoscopicType selects how a single draw renders to several eyes.
type StereoscopicType uint8

const (
	StereoscopicNone StereoscopicType = iota

	// StereoscopicInstanced selects the eye from the instance index.
	StereoscopicInstanced

	// StereoscopicMultiview needs multiview support, which WGSL does not have.
	StereoscopicMultiview
)

// VariantFilter is a bit set of engine-side shader variants that are never generated.
type VariantFilter uint8

const (
	FilterDirectionalLighting VariantFilter = 1 << iota
	FilterDynamicLighting
	FilterShadowReceiver
	FilterSkinning
	FilterVSM
	FilterFog
	FilterSSR
	FilterStereo
)

var variantFilterNames = map[string]VariantFilter{
	"directionalLighting": FilterDirectionalLighting,
	"dynamicLighting":     FilterDynamicLighting,
	"shadowReceiver":      FilterShadowReceiver,
	"skinning":            FilterSkinning,
	"vsm":                 FilterVSM,
	"fog":                 FilterFog,
	"ssr":                 FilterSSR,
	"stereo":              FilterStereo,
}

// ParseVariantFilters converts variant filter names into a filter mask.
//
// Parameters:
//   - names: filter names such as "skinning" or "fog"
//
// Returns:
//   - VariantFilter: the union of the named filters
//   - error: ErrUnknownVariantFilter naming the first unrecognized name
func ParseVariantFilters(names []string) (VariantFilter, error) {
	var mask VariantFilter
	for _, name := range names {
		f, ok := variantFilterNames[strings.TrimSpace(name)]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownVariantFilter, name)
		}
		mask |= f
	}
	return mask, nil
}

// Has reports whether every filter in o is set.
func (f VariantFilter) Has(o VariantFilter) bool {
	return f&o == o
}

// Options is the full set of inputs a compiler needs besides the material source.
type Options struct {
	Name  string
	Key   variant.Key
	UvMap variant.UvMap

	FlipUV               bool
	DoubleSided          bool
	TransparencyMode     TransparencyMode
	ReflectionMode       ReflectionMode
	TargetAPI            TargetAPI
	StereoscopicType     StereoscopicType
	StereoscopicEyeCount uint8
	VariantFilter        VariantFilter
	Optimization         Optimization
	GenerateDebugInfo    bool
	SpecularAntiAliasing bool
	ClearCoatIorChange   bool

	RequiredAttributes shader.AttributeSet
	Parameters         []shader.ParameterDecl
	Capabilities       shader.Capabilities
}

// NewOptions builds the compile options of a canonical key: its declarations plus the fixed
// settings every generated material shares. Double sided blended materials draw in two passes.
//
// Parameters:
//   - name: the material name, used as label
//   - k: the canonical key
//   - uvmap: the UV map derived alongside the key
//   - decls: the declarations of the key
//
// Returns:
//   - Options: options ready for target, stereo, filter and optimization settings
func NewOptions(name string, k variant.Key, uvmap variant.UvMap, decls shader.Declarations) Options {
	o := Options{
		Name:                 name,
		Key:                  k,
		UvMap:                uvmap,
		DoubleSided:          k.DoubleSided,
		ReflectionMode:       ReflectionScreenSpace,
		TargetAPI:            TargetAPIWebGPU,
		StereoscopicEyeCount: 2,
		SpecularAntiAliasing: true,
		RequiredAttributes:   decls.Attributes,
		Parameters:           decls.Parameters,
		Capabilities:         decls.Capabilities,
	}
	if k.DoubleSided {
		o.TransparencyMode = TransparencyTwoPassesTwoSides
	}
	return o
}

// BuildConfig is the process-wide build configuration. It is fixed for the lifetime of a
// provider and never part of a variant key.
type BuildConfig struct {
	Optimize  bool
	DebugInfo bool
}

// NewBuildConfig returns the build configuration of this process. Debug builds (-tags oxydebug)
// always compile without optimization and with debug info.
//
// Parameters:
//   - optimize: whether release builds optimize generated code
//
// Returns:
//   - BuildConfig: the effective configuration
func NewBuildConfig(optimize bool) BuildConfig {
	if debugBuild {
		return BuildConfig{DebugInfo: true}
	}
	return BuildConfig{Optimize: optimize}
}

// WithBuildConfig applies a build configuration to the options.
//
// Parameters:
//   - c: the process build configuration
//
// Returns:
//   - Options: the adjusted options
func (o Options) WithBuildConfig(c BuildConfig) Options {
	o.Optimization = OptimizationNone
	if c.Optimize {
		o.Optimization = OptimizationPerformance
	}
	o.GenerateDebugInfo = c.DebugInfo
	return o
}

// eyeCount is the number of eyes the vertex stage renders to.
func (o Options) eyeCount() int {
	if o.StereoscopicType == StereoscopicNone || o.VariantFilter.Has(FilterStereo) || o.StereoscopicEyeCount < 2 {
		return 1
	}
	return int(o.StereoscopicEyeCount)
}
