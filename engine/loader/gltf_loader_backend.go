package loader

import (
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-jit/common"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct{}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() gltfLoaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) Load(path string) (*common.ImportedAsset, error) {
	f, err := openGLTF(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return b.extract(f, path)
}

// LoadReader resolves relative URIs against the working directory.
func (b *gltfLoaderBackendImpl) LoadReader(r io.Reader, isGLB bool) (*common.ImportedAsset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read model data: %w", err)
	}
	f, err := decodeGLTF(data, isGLB, "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return b.extract(f, "")
}

// extract collects the primitives and materials of a decoded file.
func (b *gltfLoaderBackendImpl) extract(f *gltfFile, path string) (*common.ImportedAsset, error) {
	primitives, err := newGLTFMeshExtractor(f).ExtractAllMeshes()
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}
	materials, err := newGLTFMaterialExtractor(f).ExtractAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("material extraction failed: %w", err)
	}
	return &common.ImportedAsset{
		Name:       f.modelName(path),
		Materials:  materials,
		Primitives: primitives,
	}, nil
}

// gltfDefaultMaterial returns the material glTF prescribes for primitives without one.
func gltfDefaultMaterial() common.ImportedMaterial {
	return common.ImportedMaterial{
		Name:              "default",
		AlphaMode:         "OPAQUE",
		AlphaCutoff:       0.5,
		BaseColorFactor:   [4]float32{1, 1, 1, 1},
		MetallicFactor:    1.0,
		RoughnessFactor:   1.0,
		EmissiveStrength:  1.0,
		NormalScale:       1.0,
		OcclusionStrength: 1.0,
	}
}
