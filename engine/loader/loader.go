package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-jit/common"
	"github.com/Carmen-Shannon/oxy-jit/engine/provider"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/material"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// Model is a loaded model file whose primitives are bound to material instances.
type Model struct {
	// Name is the scene name, or the cache key when the scene is unnamed.
	Name string

	// Materials holds the imported materials in document order.
	Materials []common.ImportedMaterial

	// Primitives holds every primitive with the instance it draws with.
	Primitives []Primitive
}

// Primitive is an imported primitive together with its material instance.
type Primitive struct {
	common.ImportedPrimitive

	// Instance carries the primitive's material values. Primitives sharing a material and
	// vertex color layout share one instance.
	Instance material.Instance
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	provider    provider.MaterialProvider
	diagnostics bool

	modelCache map[string]*Model

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching models. It abstracts the
// file format (glTF, GLB, etc.) behind a generic backend, requests a material from the provider
// for every distinct material and vertex layout, and manages a cache of previously loaded models.
type Loader interface {
	// Load imports a model file and caches the result.
	// If the model is already cached (by file path), the cached version is returned.
	// The backend is selected based on the file extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - *Model: the loaded and cached model
	//   - error: error if loading or material creation fails
	Load(path string) (*Model, error)

	// LoadReader imports a model from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *Model: the loaded model
	//   - error: error if loading or material creation fails
	LoadReader(name string, r io.Reader, isGLB bool) (*Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Model: the cached model or nil
	Get(name string) *Model

	// Models returns the full model cache.
	//
	// Returns:
	//   - map[string]*Model: all cached models keyed by name
	Models() map[string]*Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - p: the provider materials are requested from
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, p provider.MaterialProvider, options ...LoaderBuilderOption) Loader {
	l := &loader{
		provider:   p,
		modelCache: make(map[string]*Model),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*Model, error) {
	if m := l.Get(path); m != nil {
		return m, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	imported, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return l.store(path, imported)
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*Model, error) {
	if m := l.Get(name); m != nil {
		return m, nil
	}

	imported, err := l.backend.LoadReader(r, isGLB)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	return l.store(name, imported)
}

func (l *loader) Get(name string) *Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]*Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".gltf", ".glb":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported model format: %s", ext)
	}
}

// store converts an imported asset into a Model and caches it. A concurrent load of the same
// key keeps the model stored first.
func (l *loader) store(key string, imported *common.ImportedAsset) (*Model, error) {
	m, err := l.importedToModel(imported)
	if err != nil {
		return nil, err
	}
	if m.Name == "" || m.Name == "unnamed_model" {
		m.Name = key
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.modelCache[key]; ok {
		return cached, nil
	}
	l.modelCache[key] = m
	return m, nil
}

// instanceKey identifies the primitives that can share one material instance.
type instanceKey struct {
	material        int
	hasVertexColors bool
}

// importedToModel requests a material instance for every distinct material and vertex color
// combination of the imported asset and fills it with the imported values.
//
// Parameters:
//   - imported: the CPU-side ImportedAsset
//
// Returns:
//   - *Model: the model with bound instances
//   - error: error if a material cannot be built or written
func (l *loader) importedToModel(imported *common.ImportedAsset) (*Model, error) {
	m := &Model{
		Name:       imported.Name,
		Materials:  imported.Materials,
		Primitives: make([]Primitive, 0, len(imported.Primitives)),
	}

	var fallback *common.ImportedMaterial
	instances := make(map[instanceKey]material.Instance)

	for _, prim := range imported.Primitives {
		var mat *common.ImportedMaterial
		if prim.MaterialIndex >= 0 {
			mat = &m.Materials[prim.MaterialIndex]
		} else {
			if fallback == nil {
				d := gltfDefaultMaterial()
				fallback = &d
			}
			mat = fallback
		}

		ik := instanceKey{material: prim.MaterialIndex, hasVertexColors: prim.HasVertexColors}
		inst, ok := instances[ik]
		if !ok {
			k := MaterialKey(mat, prim.HasVertexColors)
			k.EnableDiagnostics = l.diagnostics

			var err error
			inst, err = l.provider.CreateMaterialInstance(k, mat.Name, mat.Extras)
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", prim.Mesh, prim.Index, err)
			}
			if err := ApplyMaterial(inst, mat); err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", prim.Mesh, prim.Index, err)
			}
			instances[ik] = inst
			common.Logger().Debug("bound material instance",
				"model", m.Name,
				"material", inst.Material().Name(),
				"key", inst.Material().Key().String(),
			)
		}

		m.Primitives = append(m.Primitives, Primitive{ImportedPrimitive: prim, Instance: inst})
	}

	common.Logger().Info("model loaded",
		"model", m.Name,
		"primitives", len(m.Primitives),
		"instances", len(instances),
	)
	return m, nil
}
