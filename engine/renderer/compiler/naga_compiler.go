package compiler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-jit/common"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/msl"
	"github.com/gogpu/naga/spirv"
)

// nagaCompiler generates WGSL stages for a material and validates and translates them with naga,
// one worker pool task per stage.
type nagaCompiler struct {
	mu           sync.RWMutex
	pool         worker.DynamicWorkerPool
	workers      int
	queueSize    int
	spirvVersion spirv.Version
	shutdown     bool
}

var _ Compiler = &nagaCompiler{}

// NewNagaCompiler creates a Compiler backed by the naga WGSL toolchain.
//
// Parameters:
//   - options: optional NagaCompilerBuilderOption functions
//
// Returns:
//   - Compiler: the compiler, ready for concurrent Build calls
func NewNagaCompiler(options ...NagaCompilerBuilderOption) Compiler {
	c := &nagaCompiler{
		workers:      3,
		queueSize:    256,
		spirvVersion: spirv.Version1_3,
	}
	for _, opt := range options {
		opt(c)
	}
	c.pool = worker.NewDynamicWorkerPool(c.workers, c.queueSize, 1*time.Second)
	return c
}

func (c *nagaCompiler) Build(source string, opts Options) (Package, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.shutdown {
		return nil, ErrCompilerShutdown
	}
	if opts.StereoscopicType == StereoscopicMultiview && !opts.VariantFilter.Has(FilterStereo) {
		return nil, fmt.Errorf("%w: multiview stereo", ErrUnsupportedOption)
	}

	stages, err := c.compileStages(source, opts)
	if err != nil {
		common.Logger().Debug("material compile failed", "name", opts.Name, "key", opts.Key.String(), "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, opts.Name, err)
	}

	m := newManifest(opts)
	m.Stages = stages
	if opts.GenerateDebugInfo {
		m.MaterialSource = source
	}
	return EncodePackage(m), nil
}

// compileStages generates the stages of a material and compiles them in parallel on the pool.
func (c *nagaCompiler) compileStages(source string, opts Options) ([]Stage, error) {
	stages, err := newStageGenerator(source, opts).stages()
	if err != nil {
		return nil, err
	}
	errs := make([]error, len(stages))

	var wg sync.WaitGroup
	for i := range stages {
		wg.Add(1)
		c.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				errs[i] = c.compileStage(&stages[i], opts)
				return nil, errs[i]
			},
		})
	}
	wg.Wait()
	return stages, errors.Join(errs...)
}

// compileStage validates one stage and fills in the code of every requested target API.
func (c *nagaCompiler) compileStage(s *Stage, opts Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s stage: naga panic: %v", s.Type, r)
		}
	}()

	if opts.Optimization == OptimizationPerformance {
		s.Source = shader.StripComments(s.Source)
	}

	ast, err := naga.Parse(s.Source)
	if err != nil {
		return fmt.Errorf("%s stage: %w", s.Type, err)
	}
	module, err := naga.LowerWithSource(ast, s.Source)
	if err != nil {
		return fmt.Errorf("%s stage: %w", s.Type, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("%s stage: %w", s.Type, err)
	}
	if len(verrs) > 0 {
		return fmt.Errorf("%s stage: %w", s.Type, &verrs[0])
	}

	s.Code = make(map[TargetAPI][]byte)
	if opts.TargetAPI.Has(TargetAPIVulkan) {
		code, err := naga.GenerateSPIRV(module, spirv.Options{Version: c.spirvVersion, Debug: opts.GenerateDebugInfo})
		if err != nil {
			return fmt.Errorf("%s stage: %w", s.Type, err)
		}
		s.Code[TargetAPIVulkan] = code
	}
	if opts.TargetAPI.Has(TargetAPIOpenGL) {
		code, err := c.translateGLSL(module, s.EntryPoint)
		if err != nil {
			return fmt.Errorf("%s stage: %w", s.Type, err)
		}
		s.Code[TargetAPIOpenGL] = code
	}
	if opts.TargetAPI.Has(TargetAPIMetal) {
		code, _, err := msl.Compile(module, msl.DefaultOptions())
		if err != nil {
			return fmt.Errorf("%s stage: msl: %w", s.Type, err)
		}
		s.Code[TargetAPIMetal] = []byte(code)
	}
	if len(s.Code) == 0 {
		s.Code = nil
	}
	return nil
}

func (c *nagaCompiler) translateGLSL(module *ir.Module, entryPoint string) ([]byte, error) {
	o := glsl.DefaultOptions()
	o.EntryPoint = entryPoint
	code, _, err := glsl.Compile(module, o)
	if err != nil {
		return nil, fmt.Errorf("glsl: %w", err)
	}
	return []byte(code), nil
}

func (c *nagaCompiler) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return
	}
	c.shutdown = true
	c.pool.Stop()
}
