package provider

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-jit/common"
	"github.com/Carmen-Shannon/oxy-jit/engine/profiler"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/compiler"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
)

// ErrProviderClosed is returned by lookups on a closed provider.
var ErrProviderClosed = errors.New("material provider is closed")

// jitShaderProvider is the implementation of the MaterialProvider interface that generates and
// compiles a material for each distinct canonical key the first time it is requested.
type jitShaderProvider struct {
	mu     sync.RWMutex
	closed bool

	cache        *variantCache
	orchestrator *buildOrchestrator
	factory      renderer.ObjectFactory
	compiler     compiler.Compiler
	ownsCompiler bool
	profiler     *profiler.BuildProfiler

	filterNames []string
	optimize    bool
	stereoType  compiler.StereoscopicType
	eyeCount    uint8
	workers     int
	configErr   error
}

// MaterialProvider hands out materials and instances for variant keys. Implementations differ in
// how materials come to exist: prebuilt libraries, or generation on demand.
type MaterialProvider interface {
	// CreateMaterialInstance returns a new instance of the material of a key, building the
	// material first if no equivalent key was requested before.
	//
	// Parameters:
	//   - k: the raw variant key, normalized before lookup
	//   - label: the label of the instance, also naming the material when it is built
	//   - extras: application data attached to the instance
	//
	// Returns:
	//   - material.Instance: the new instance
	//   - error: ErrBuild on a failed build, ErrProviderClosed after Close
	CreateMaterialInstance(k variant.Key, label, extras string) (material.Instance, error)

	// GetMaterial returns the material of a key, building it if needed.
	//
	// Parameters:
	//   - k: the raw variant key, normalized before lookup
	//   - label: names the material when it is built
	//
	// Returns:
	//   - material.Material: the shared material
	//   - error: ErrBuild on a failed build, ErrProviderClosed after Close
	GetMaterial(k variant.Key, label string) (material.Material, error)

	// MaterialsCount returns the number of cached materials.
	MaterialsCount() int

	// Materials returns every cached material in the order it was first built.
	//
	// Returns:
	//   - []material.Material: a copy of the cached materials
	Materials() []material.Material

	// DestroyMaterials destroys every cached material and empties the cache.
	DestroyMaterials()

	// NeedsDummyData reports whether meshes lacking attr must be padded with placeholder data.
	//
	// Parameters:
	//   - attr: the vertex attribute
	//
	// Returns:
	//   - bool: true if placeholder data is required
	NeedsDummyData(attr shader.VertexAttribute) bool

	// Stats returns the hit, miss and build counters.
	Stats() profiler.Stats

	// Close destroys every material and shuts down a compiler the provider created itself.
	// Close is idempotent.
	Close()
}

var _ MaterialProvider = &jitShaderProvider{}

// NewJitShaderProvider creates a MaterialProvider that generates materials on demand.
// Unless WithCompiler is given, the provider creates a naga compiler and shuts it down on Close.
//
// Parameters:
//   - factory: the object factory instantiating compiled packages
//   - opts: a variadic list of ProviderBuilderOption functions to configure the provider
//
// Returns:
//   - MaterialProvider: the provider
//   - error: ErrConfig for an unknown variant filter or invalid option
func NewJitShaderProvider(factory renderer.ObjectFactory, opts ...ProviderBuilderOption) (MaterialProvider, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: nil object factory", ErrConfig)
	}
	p := &jitShaderProvider{
		cache:   newVariantCache(),
		factory: factory,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.configErr != nil {
		return nil, p.configErr
	}
	filters, err := compiler.ParseVariantFilters(p.filterNames)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if p.workers < 0 {
		return nil, fmt.Errorf("%w: negative worker count %d", ErrConfig, p.workers)
	}

	if p.compiler == nil {
		var compilerOpts []compiler.NagaCompilerBuilderOption
		if p.workers > 0 {
			compilerOpts = append(compilerOpts, compiler.WithWorkers(p.workers))
		}
		p.compiler = compiler.NewNagaCompiler(compilerOpts...)
		p.ownsCompiler = true
	}
	if p.profiler == nil {
		p.profiler = profiler.NewBuildProfiler(0)
	}

	p.orchestrator = &buildOrchestrator{
		compiler:   p.compiler,
		factory:    factory,
		config:     compiler.NewBuildConfig(p.optimize),
		filters:    filters,
		stereoType: p.stereoType,
		eyeCount:   p.eyeCount,
	}

	common.Logger().Info("material provider created",
		"targets", factory.TargetAPI().String(),
		"filters", p.filterNames,
		"optimize", p.orchestrator.config.Optimize,
		"debug_info", p.orchestrator.config.DebugInfo,
	)
	return p, nil
}

func (p *jitShaderProvider) CreateMaterialInstance(k variant.Key, label, extras string) (material.Instance, error) {
	m, err := p.GetMaterial(k, label)
	if err != nil {
		return nil, err
	}
	return m.CreateInstance(label, extras)
}

func (p *jitShaderProvider) GetMaterial(raw variant.Key, label string) (material.Material, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrProviderClosed
	}

	k, uvmap := variant.Constrain(raw)
	name := label
	if name == "" {
		name = "material_" + k.String()
	}

	m, built, err := p.cache.getOrBuild(k, func() (material.Material, error) {
		common.Logger().Debug("building material variant", "material", name, "key", k.String(), "hash", k.Hash())
		start := time.Now()
		m, err := p.orchestrator.build(name, k, uvmap)
		p.profiler.RecordBuild(time.Since(start), err)
		if err != nil {
			common.Logger().Warn("material variant build failed", "material", name, "key", k.String(), "error", err)
			return nil, err
		}
		common.Logger().Debug("built material variant", "material", name, "key", k.String(), "duration", time.Since(start))
		return m, nil
	})
	if built {
		p.profiler.RecordMiss()
		p.profiler.Tick()
	} else if err == nil {
		p.profiler.RecordHit()
		common.Logger().Debug("material variant cache hit", "material", m.Name(), "key", k.String())
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (p *jitShaderProvider) MaterialsCount() int {
	return p.cache.len()
}

func (p *jitShaderProvider) Materials() []material.Material {
	return p.cache.list()
}

func (p *jitShaderProvider) DestroyMaterials() {
	n := p.cache.destroyAll(p.factory.Destroy)
	common.Logger().Info("material variants destroyed", "count", n)
}

func (p *jitShaderProvider) NeedsDummyData(attr shader.VertexAttribute) bool {
	return false
}

func (p *jitShaderProvider) Stats() profiler.Stats {
	return p.profiler.Stats()
}

func (p *jitShaderProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	n := p.cache.destroyAll(p.factory.Destroy)
	if p.ownsCompiler {
		p.compiler.Shutdown()
	}
	common.Logger().Info("material provider closed", "destroyed", n)
}
