package compiler

import "errors"

var (
	// ErrCompile is returned when any stage of a material fails to compile.
	ErrCompile = errors.New("material compilation failed")

	// ErrCompilerShutdown is returned by Build after Shutdown.
	ErrCompilerShutdown = errors.New("compiler is shut down")

	// ErrUnsupportedOption is returned for option combinations a backend cannot produce.
	ErrUnsupportedOption = errors.New("unsupported compile option")
)

// Compiler turns material source plus options into a Package a GPU object factory can
// instantiate. Build blocks until every stage finished and may be called concurrently.
type Compiler interface {
	// Build compiles one material.
	//
	// Parameters:
	//   - source: the material source
	//   - opts: the compile options
	//
	// Returns:
	//   - Package: the compiled material
	//   - error: ErrCompile wrapping every stage failure, or ErrCompilerShutdown
	Build(source string, opts Options) (Package, error)

	// Shutdown releases the compiler's workers. Builds in progress finish first.
	Shutdown()
}
