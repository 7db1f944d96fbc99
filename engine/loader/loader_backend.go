package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-jit/common"
)

// loaderBackend defines the generic interface for loading models from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load imports the materials and primitives of the model file at the given path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *common.ImportedAsset: the imported asset data
	//   - error: error if loading fails
	Load(path string) (*common.ImportedAsset, error)

	// LoadReader imports a model from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *common.ImportedAsset: the imported asset data
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*common.ImportedAsset, error)
}
