package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeConfig(t, "provider.toml", `
variant_filters = ["skinning", "stereo"]
optimize_shaders = true
stereoscopic = "instanced"
eye_count = 2
workers = 4
`)
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		VariantFilters:  []string{"skinning", "stereo"},
		OptimizeShaders: true,
		Stereoscopic:    "instanced",
		EyeCount:        2,
		Workers:         4,
	}, c)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "provider.yml", `
variant_filters:
  - fog
  - ssr
stereoscopic: none
`)
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"fog", "ssr"}, c.VariantFilters)
	assert.False(t, c.OptimizeShaders)

	c, err = LoadConfig(writeConfig(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Config{}, c)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown_filter.toml": `variant_filters = ["bloom"]`,
		"unknown_field.toml":  `shading = "toon"`,
		"bad_stereo.yaml":     `stereoscopic: anaglyph`,
		"negative.yaml":       `workers: -2`,
		"unknown_field.yml":   `shading: toon`,
		"malformed.toml":      `variant_filters = [`,
		"provider.json":       `{}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, name, content))
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestWithConfigConfiguresProvider(t *testing.T) {
	c := &stubCompiler{}
	p, err := NewJitShaderProvider(&stubFactory{}, WithCompiler(c), WithConfig(Config{
		VariantFilters: []string{"vsm"},
		Stereoscopic:   "multiview",
		EyeCount:       2,
	}))
	require.NoError(t, err)
	defer p.Close()

	jp := p.(*jitShaderProvider)
	assert.Equal(t, compiler.FilterVSM, jp.orchestrator.filters)
	assert.Equal(t, compiler.StereoscopicMultiview, jp.orchestrator.stereoType)

	_, err = NewJitShaderProvider(&stubFactory{}, WithCompiler(c), WithConfig(Config{Stereoscopic: "anaglyph"}))
	assert.ErrorIs(t, err, ErrConfig)
}
