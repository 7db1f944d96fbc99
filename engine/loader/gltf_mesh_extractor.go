package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-jit/common"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	file *gltfFile
}

// gltfMeshExtractor defines the interface for extracting the per-primitive facts that select a
// material variant: which material a primitive uses, whether it carries vertex colors, and
// whether it is skinned.
type gltfMeshExtractor interface {
	// ExtractMesh extracts the primitives of a single mesh by index.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - []common.ImportedPrimitive: one entry per primitive
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) ([]common.ImportedPrimitive, error)

	// ExtractAllMeshes extracts the primitives of all meshes in document order.
	//
	// Returns:
	//   - []common.ImportedPrimitive: all primitives (flattened across meshes)
	//   - error: error if extraction fails
	ExtractAllMeshes() ([]common.ImportedPrimitive, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

func newGLTFMeshExtractor(f *gltfFile) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{file: f}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]common.ImportedPrimitive, error) {
	doc := e.file.doc
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIndex)
	}

	mesh := &doc.Meshes[meshIndex]
	skinned := e.meshHasSkin(meshIndex)
	result := make([]common.ImportedPrimitive, 0, len(mesh.Primitives))

	for primIdx := range mesh.Primitives {
		prim := &mesh.Primitives[primIdx]
		imported := common.ImportedPrimitive{
			Mesh:          common.Coalesce(mesh.Name, fmt.Sprintf("mesh_%d", meshIndex)),
			MeshIndex:     meshIndex,
			Index:         primIdx,
			MaterialIndex: -1,
		}
		if prim.Material != nil {
			if *prim.Material < 0 || *prim.Material >= len(doc.Materials) {
				return nil, fmt.Errorf("mesh %d primitive %d: material index %d out of range", meshIndex, primIdx, *prim.Material)
			}
			imported.MaterialIndex = *prim.Material
		}
		_, imported.HasVertexColors = prim.Attributes[gltfAttributeColor0]
		_, hasJoints := prim.Attributes[gltfAttributeJoints0]
		imported.Skinned = skinned && hasJoints
		result = append(result, imported)
	}

	return result, nil
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]common.ImportedPrimitive, error) {
	var all []common.ImportedPrimitive
	for i := range e.file.doc.Meshes {
		prims, err := e.ExtractMesh(i)
		if err != nil {
			return nil, err
		}
		all = append(all, prims...)
	}

	return all, nil
}

// meshHasSkin reports whether any node instantiates the mesh together with a skin.
func (e *gltfMeshExtractorImpl) meshHasSkin(meshIndex int) bool {
	for _, node := range e.file.doc.Nodes {
		if node.Mesh != nil && *node.Mesh == meshIndex && node.Skin != nil {
			return true
		}
	}
	return false
}
