package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model *Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}

// WithDiagnostics is an option builder that requests the diagnostics variant for every material
// the Loader creates.
//
// Parameters:
//   - enabled: true to build materials with diagnostics support
//
// Returns:
//   - LoaderBuilderOption: a function that applies the diagnostics option to a loader
func WithDiagnostics(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.diagnostics = enabled
	}
}
