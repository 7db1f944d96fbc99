package provider

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-jit/common"
	"github.com/Carmen-Shannon/oxy-jit/engine/profiler"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/compiler"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompiler counts builds and records their options. Packages carry a manifest without stages.
type stubCompiler struct {
	mu        sync.Mutex
	calls     int
	options   []compiler.Options
	sources   []string
	fail      bool
	gate      chan struct{}
	shutdowns int
}

func (c *stubCompiler) Build(source string, opts compiler.Options) (compiler.Package, error) {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	c.calls++
	c.options = append(c.options, opts)
	c.sources = append(c.sources, source)
	fail := c.fail
	c.mu.Unlock()
	if fail {
		return nil, errors.New("stub compile failure")
	}
	return compiler.EncodePackage(&compiler.Manifest{
		Name:         opts.Name,
		Key:          opts.Key,
		UvMap:        opts.UvMap,
		DoubleSided:  opts.DoubleSided,
		Attributes:   opts.RequiredAttributes,
		Parameters:   opts.Parameters,
		Capabilities: opts.Capabilities,
	}), nil
}

func (c *stubCompiler) Shutdown() {
	c.mu.Lock()
	c.shutdowns++
	c.mu.Unlock()
}

func (c *stubCompiler) buildCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// stubFactory creates materials from a package manifest without reflecting any stage.
type stubFactory struct {
	mu        sync.Mutex
	destroyed []material.Material
}

func (f *stubFactory) Instantiate(pkg compiler.Package) (material.Material, error) {
	m, err := compiler.DecodePackage(pkg)
	if err != nil {
		return nil, err
	}
	return material.NewMaterial(
		material.WithName(m.Name),
		material.WithKey(m.Key, m.UvMap),
		material.WithDeclarations(shader.Declarations{
			Parameters:   m.Parameters,
			Attributes:   m.Attributes,
			Capabilities: m.Capabilities,
		}),
	), nil
}

func (f *stubFactory) Destroy(m material.Material) {
	f.mu.Lock()
	f.destroyed = append(f.destroyed, m)
	f.mu.Unlock()
	m.Release()
}

func (f *stubFactory) TargetAPI() compiler.TargetAPI {
	return compiler.TargetAPIWebGPU | compiler.TargetAPIVulkan
}

func newStubProvider(t *testing.T, opts ...ProviderBuilderOption) (MaterialProvider, *stubCompiler, *stubFactory) {
	t.Helper()
	c := &stubCompiler{}
	f := &stubFactory{}
	p, err := NewJitShaderProvider(f, append([]ProviderBuilderOption{WithCompiler(c)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, c, f
}

func TestCacheHitAvoidsRebuild(t *testing.T) {
	p, c, _ := newStubProvider(t)

	k := variant.Key{HasBaseColorTexture: true, BaseColorUV: 1}
	a, err := p.GetMaterial(k, "first")
	require.NoError(t, err)

	// normalizes to the same canonical key: an orphaned clear coat texture is dropped
	equivalent := k
	equivalent.HasClearCoatTexture = true
	b, err := p.GetMaterial(equivalent, "second")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, "first", b.Name())
	assert.Equal(t, 1, c.buildCount())
	assert.Equal(t, 1, p.MaterialsCount())

	s := p.Stats()
	assert.Equal(t, 1, s.Misses)
	assert.Equal(t, 1, s.Hits)
	assert.Equal(t, 1, s.Builds)
}

func TestCreateMaterialInstance(t *testing.T) {
	p, c, _ := newStubProvider(t)

	k := variant.Key{HasBaseColorTexture: true, AlphaMode: variant.AlphaModeBlend}
	i1, err := p.CreateMaterialInstance(k, "a", `{"node":1}`)
	require.NoError(t, err)
	i2, err := p.CreateMaterialInstance(k, "b", "")
	require.NoError(t, err)

	assert.Equal(t, "a", i1.Label())
	assert.Equal(t, `{"node":1}`, i1.Extras())
	assert.Equal(t, "b", i2.Label())
	assert.Same(t, i1.Material(), i2.Material())
	assert.Equal(t, 2, i1.Material().Instances())
	assert.Equal(t, 1, c.buildCount())

	require.NoError(t, i1.SetFloat4("baseColorFactor", [4]float32{1, 0, 0, 1}))
	_, ok := i1.Material().Parameter("baseColorMap")
	assert.True(t, ok)
}

func TestMaterialsKeepInsertionOrder(t *testing.T) {
	p, _, _ := newStubProvider(t)

	keys := []variant.Key{
		{Unlit: true},
		{HasBaseColorTexture: true},
		{AlphaMode: variant.AlphaModeMask},
	}
	var want []material.Material
	for _, k := range keys {
		m, err := p.GetMaterial(k, "")
		require.NoError(t, err)
		want = append(want, m)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		_, err := p.GetMaterial(keys[i], "")
		require.NoError(t, err)
	}

	got := p.Materials()
	require.Len(t, got, 3)
	for i := range want {
		assert.Same(t, want[i], got[i])
	}
}

func TestDestroyMaterialsResetsCache(t *testing.T) {
	p, c, f := newStubProvider(t)

	k := variant.Key{HasNormalTexture: true}
	m, err := p.GetMaterial(k, "")
	require.NoError(t, err)
	_, err = p.GetMaterial(variant.Key{}, "")
	require.NoError(t, err)

	p.DestroyMaterials()
	assert.Zero(t, p.MaterialsCount())
	assert.Empty(t, p.Materials())
	assert.Len(t, f.destroyed, 2)
	assert.Same(t, m, f.destroyed[0])
	assert.True(t, m.Released())

	again, err := p.GetMaterial(k, "")
	require.NoError(t, err)
	assert.NotSame(t, m, again)
	assert.Equal(t, 3, c.buildCount())
}

func TestConcurrentMissesBuildOnce(t *testing.T) {
	p, c, _ := newStubProvider(t)
	c.gate = make(chan struct{})

	const callers = 16
	k := variant.Key{HasBaseColorTexture: true, HasEmissiveTexture: true}
	results := make([]material.Material, callers)
	errs := make([]error, callers)

	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := range callers {
		go func() {
			defer done.Done()
			started.Done()
			results[i], errs[i] = p.GetMaterial(k, "")
		}()
	}
	started.Wait()
	close(c.gate)
	done.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 1, c.buildCount())
	assert.Equal(t, 1, p.MaterialsCount())
}

func TestFailedBuildIsNotCached(t *testing.T) {
	p, c, _ := newStubProvider(t)
	c.fail = true

	k := variant.Key{HasOcclusionTexture: true}
	_, err := p.GetMaterial(k, "")
	assert.ErrorIs(t, err, ErrBuild)
	assert.Zero(t, p.MaterialsCount())
	assert.Equal(t, 1, p.Stats().Failures)

	c.mu.Lock()
	c.fail = false
	c.mu.Unlock()
	_, err = p.GetMaterial(k, "")
	require.NoError(t, err)
	assert.Equal(t, 2, c.buildCount())
	assert.Equal(t, 1, p.MaterialsCount())
}

func TestDoubleSidedIsDistinctEntry(t *testing.T) {
	p, c, _ := newStubProvider(t)

	base := variant.Key{HasBaseColorTexture: true, AlphaMode: variant.AlphaModeBlend}
	twoSided := base
	twoSided.DoubleSided = true

	a, err := p.GetMaterial(base, "")
	require.NoError(t, err)
	b, err := p.GetMaterial(twoSided, "")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, p.MaterialsCount())
	require.Len(t, c.options, 2)
	assert.False(t, c.options[0].DoubleSided)
	assert.True(t, c.options[1].DoubleSided)
	assert.Equal(t, compiler.TransparencyDefault, c.options[0].TransparencyMode)
	assert.Equal(t, compiler.TransparencyTwoPassesTwoSides, c.options[1].TransparencyMode)
	assert.Equal(t, c.options[0].Parameters, c.options[1].Parameters)
	assert.Equal(t, c.sources[0], c.sources[1])
}

func TestOptionsReachCompiler(t *testing.T) {
	p, c, _ := newStubProvider(t,
		WithVariantFilters("skinning", "fog"),
		WithStereoscopic(compiler.StereoscopicInstanced, 4),
		WithOptimizeShaders(true),
	)

	_, err := p.GetMaterial(variant.Key{HasBaseColorTexture: true}, "named")
	require.NoError(t, err)

	require.Len(t, c.options, 1)
	o := c.options[0]
	want := compiler.Options{}.WithBuildConfig(compiler.NewBuildConfig(true))
	assert.Equal(t, "named", o.Name)
	assert.Equal(t, compiler.FilterSkinning|compiler.FilterFog, o.VariantFilter)
	assert.Equal(t, compiler.StereoscopicInstanced, o.StereoscopicType)
	assert.Equal(t, uint8(4), o.StereoscopicEyeCount)
	assert.Equal(t, want.Optimization, o.Optimization)
	assert.Equal(t, want.GenerateDebugInfo, o.GenerateDebugInfo)
	assert.Equal(t, compiler.TargetAPIWebGPU|compiler.TargetAPIVulkan, o.TargetAPI)
	assert.True(t, o.RequiredAttributes.Has(shader.AttributeUV0))
}

func TestUnknownVariantFilterFailsConstruction(t *testing.T) {
	_, err := NewJitShaderProvider(&stubFactory{}, WithCompiler(&stubCompiler{}), WithVariantFilters("fog", "bloom"))
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, err, compiler.ErrUnknownVariantFilter)

	_, err = NewJitShaderProvider(nil)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewJitShaderProvider(&stubFactory{}, WithCompiler(&stubCompiler{}), WithWorkers(-1))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNeedsDummyDataIsAlwaysFalse(t *testing.T) {
	p, _, _ := newStubProvider(t)
	for _, attr := range []shader.VertexAttribute{shader.AttributePosition, shader.AttributeTangents, shader.AttributeColor, shader.AttributeUV1} {
		assert.False(t, p.NeedsDummyData(attr))
	}
}

func TestCloseKeepsInjectedCompiler(t *testing.T) {
	c := &stubCompiler{}
	f := &stubFactory{}
	bp := profiler.NewBuildProfiler(0)
	p, err := NewJitShaderProvider(f, WithCompiler(c), WithProfiler(bp))
	require.NoError(t, err)

	_, err = p.GetMaterial(variant.Key{}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, bp.Stats().Builds)

	p.Close()
	p.Close()
	assert.Zero(t, c.shutdowns)
	assert.Len(t, f.destroyed, 1)

	_, err = p.GetMaterial(variant.Key{}, "")
	assert.ErrorIs(t, err, ErrProviderClosed)
	_, err = p.CreateMaterialInstance(variant.Key{}, "", "")
	assert.ErrorIs(t, err, ErrProviderClosed)
}

func TestProviderCompilesWithNaga(t *testing.T) {
	p, err := NewJitShaderProvider(renderer.NewHeadlessObjectFactory(0), WithWorkers(2), WithVariantFilters("stereo"))
	require.NoError(t, err)
	defer p.Close()

	inst, err := p.CreateMaterialInstance(variant.Key{
		HasBaseColorTexture:  true,
		HasTextureTransforms: true,
		HasVertexColors:      true,
		AlphaMode:            variant.AlphaModeMask,
	}, "crate", "")
	require.NoError(t, err)

	m := inst.Material()
	assert.NotNil(t, m.Pipeline().Shader(shader.ShaderTypeFragment))
	assert.NoError(t, inst.SetMaskThreshold(0.3))
	assert.NoError(t, inst.SetMat3("baseColorUvMatrix", [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}))
	assert.Equal(t, 1, p.MaterialsCount())
}

func TestBuildLogsVariantHash(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { common.SetLogger(nil) })

	p, _, _ := newStubProvider(t)
	k, _ := variant.Constrain(variant.Key{HasBaseColorTexture: true, AlphaMode: variant.AlphaModeMask})
	_, err := p.GetMaterial(k, "logged")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "building material variant")
	assert.Contains(t, buf.String(), fmt.Sprintf("hash=%d", k.Hash()))
	assert.Contains(t, buf.String(), "key="+k.String())
}

// randomKey decodes a pseudo-random key encoding covering every flag, alpha mode and texcoord.
func randomKey(t *testing.T, r *rand.Rand) variant.Key {
	t.Helper()
	b := make([]byte, variant.EncodedKeySize)
	binary.LittleEndian.PutUint32(b, r.Uint32()&(1<<26-1))
	b[4] = byte(r.Intn(3))
	for i := 5; i < len(b); i++ {
		b[i] = byte(r.Intn(4))
	}
	k, err := variant.DecodeKey(b)
	require.NoError(t, err)
	return k
}

func TestProviderCompilesRandomVariantsWithNaga(t *testing.T) {
	p, err := NewJitShaderProvider(renderer.NewHeadlessObjectFactory(0), WithWorkers(4))
	require.NoError(t, err)
	defer p.Close()

	r := rand.New(rand.NewSource(5))
	for i := 0; i < 60; i++ {
		k := randomKey(t, r)
		_, err := p.GetMaterial(k, "")
		require.NoError(t, err, "key %s", k)
	}
	assert.Zero(t, p.Stats().Failures)
}
