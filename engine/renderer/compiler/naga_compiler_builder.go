package compiler

import "github.com/gogpu/naga/spirv"

// NagaCompilerBuilderOption is a functional option used to configure the naga compiler during construction.
type NagaCompilerBuilderOption func(*nagaCompiler)

// WithWorkers sets how many stages are compiled in parallel.
//
// Parameters:
//   - n: the number of workers, values below 1 are ignored
//
// Returns:
//   - NagaCompilerBuilderOption: a function that sets the worker count
func WithWorkers(n int) NagaCompilerBuilderOption {
	return func(c *nagaCompiler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueSize sets how many stage tasks may wait for a worker before Build blocks.
//
// Parameters:
//   - n: the queue size, values below 1 are ignored
//
// Returns:
//   - NagaCompilerBuilderOption: a function that sets the queue size
func WithQueueSize(n int) NagaCompilerBuilderOption {
	return func(c *nagaCompiler) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithSPIRVVersion sets the SPIR-V version emitted for TargetAPIVulkan.
//
// Parameters:
//   - v: the SPIR-V version
//
// Returns:
//   - NagaCompilerBuilderOption: a function that sets the SPIR-V version
func WithSPIRVVersion(v spirv.Version) NagaCompilerBuilderOption {
	return func(c *nagaCompiler) {
		c.spirvVersion = v
	}
}
