package provider

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/compiler"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrConfig is returned when a provider configuration cannot be read or is invalid.
var ErrConfig = errors.New("invalid provider configuration")

// Config is the file form of the provider options.
type Config struct {
	// VariantFilters names the engine variants that are never generated, e.g. "skinning".
	VariantFilters []string `toml:"variant_filters" yaml:"variant_filters"`

	// OptimizeShaders enables optimized code generation in release builds.
	OptimizeShaders bool `toml:"optimize_shaders" yaml:"optimize_shaders"`

	// Stereoscopic is "none", "instanced" or "multiview".
	Stereoscopic string `toml:"stereoscopic" yaml:"stereoscopic"`

	// EyeCount is the number of stereoscopic eyes, 2 when zero.
	EyeCount uint8 `toml:"eye_count" yaml:"eye_count"`

	// Workers is the number of compiler workers, the compiler default when zero.
	Workers int `toml:"workers" yaml:"workers"`
}

// decoder is satisfied by the toml and yaml stream decoders.
type decoder interface {
	Decode(v any) error
}

var decoders = map[string]func(r io.Reader) decoder{
	".toml": func(r io.Reader) decoder { return toml.NewDecoder(r).DisallowUnknownFields() },
	".yaml": newYAMLDecoder,
	".yml":  newYAMLDecoder,
}

func newYAMLDecoder(r io.Reader) decoder {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	return d
}

// LoadConfig reads a provider configuration from a .toml, .yaml or .yml file.
//
// Parameters:
//   - path: the configuration file
//
// Returns:
//   - Config: the configuration
//   - error: ErrConfig wrapping the read or decode failure
func LoadConfig(path string) (Config, error) {
	newDecoder, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Config{}, fmt.Errorf("%w: unsupported file type %q", ErrConfig, filepath.Ext(path))
	}
	fp, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	defer fp.Close()

	var c Config
	if err := newDecoder(bufio.NewReader(fp)).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// stereoscopicTypes maps configuration names to stereoscopic types.
var stereoscopicTypes = map[string]compiler.StereoscopicType{
	"":          compiler.StereoscopicNone,
	"none":      compiler.StereoscopicNone,
	"instanced": compiler.StereoscopicInstanced,
	"multiview": compiler.StereoscopicMultiview,
}

func (c Config) stereoscopicType() (compiler.StereoscopicType, error) {
	t, ok := stereoscopicTypes[strings.ToLower(c.Stereoscopic)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown stereoscopic type %q", ErrConfig, c.Stereoscopic)
	}
	return t, nil
}

func (c Config) validate() error {
	if _, err := compiler.ParseVariantFilters(c.VariantFilters); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if _, err := c.stereoscopicType(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: negative worker count %d", ErrConfig, c.Workers)
	}
	return nil
}
