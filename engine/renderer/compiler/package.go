package compiler

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-jit/engine/renderer/variant"
)

// ErrMalformedPackage is returned when a package cannot be decoded.
var ErrMalformedPackage = errors.New("malformed material package")

const (
	packageMagic   = "OXYM"
	packageVersion = 1
)

// Package is an opaque compiled material. Only DecodePackage looks inside.
type Package []byte

// StageType identifies one compiled program of a material.
type StageType uint8

const (
	StageVertex StageType = iota
	StageVertexSkinned
	StageFragment
)

func (s StageType) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageVertexSkinned:
		return "vertex_skinned"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// ShaderType returns the pipeline stage the program runs in.
func (s StageType) ShaderType() shader.ShaderType {
	if s == StageFragment {
		return shader.ShaderTypeFragment
	}
	return shader.ShaderTypeVertex
}

// Stage is one compiled program. Source is the WGSL text; Code holds the output of every
// other target API the package was built for.
type Stage struct {
	Type       StageType
	EntryPoint string
	Source     string
	Code       map[TargetAPI][]byte
}

// Manifest is the decoded content of a Package.
type Manifest struct {
	Name  string
	Key   variant.Key
	UvMap variant.UvMap

	FlipUV               bool
	DoubleSided          bool
	TransparencyMode     TransparencyMode
	ReflectionMode       ReflectionMode
	TargetAPI            TargetAPI
	StereoscopicType     StereoscopicType
	StereoscopicEyeCount uint8
	VariantFilter        VariantFilter
	Optimization         Optimization
	SpecularAntiAliasing bool
	ClearCoatIorChange   bool

	Attributes   shader.AttributeSet
	Parameters   []shader.ParameterDecl
	Capabilities shader.Capabilities
	Stages       []Stage

	// MaterialSource is only kept when the package was built with debug info.
	MaterialSource string
}

// Stage returns the program of the given type.
//
// Parameters:
//   - t: the stage type
//
// Returns:
//   - Stage: the stage, zero if absent
//   - bool: true if the package contains the stage
func (m *Manifest) Stage(t StageType) (Stage, bool) {
	i := slices.IndexFunc(m.Stages, func(s Stage) bool { return s.Type == t })
	if i < 0 {
		return Stage{}, false
	}
	return m.Stages[i], true
}

// newManifest copies the options a compiled material keeps into a manifest.
func newManifest(opts Options) *Manifest {
	return &Manifest{
		Name:                 opts.Name,
		Key:                  opts.Key,
		UvMap:                opts.UvMap,
		FlipUV:               opts.FlipUV,
		DoubleSided:          opts.DoubleSided,
		TransparencyMode:     opts.TransparencyMode,
		ReflectionMode:       opts.ReflectionMode,
		TargetAPI:            opts.TargetAPI,
		StereoscopicType:     opts.StereoscopicType,
		StereoscopicEyeCount: opts.StereoscopicEyeCount,
		VariantFilter:        opts.VariantFilter,
		Optimization:         opts.Optimization,
		SpecularAntiAliasing: opts.SpecularAntiAliasing,
		ClearCoatIorChange:   opts.ClearCoatIorChange,
		Attributes:           opts.RequiredAttributes,
		Parameters:           opts.Parameters,
		Capabilities:         opts.Capabilities,
	}
}

// EncodePackage serializes a manifest: the magic, a version, then every field little-endian with
// length-prefixed strings and byte slices.
//
// Parameters:
//   - m: the manifest to encode
//
// Returns:
//   - Package: the encoded package
func EncodePackage(m *Manifest) Package {
	b := append([]byte(packageMagic), packageVersion)
	b = appendString(b, m.Name)
	b = m.Key.AppendEncoding(b)
	for _, s := range m.UvMap {
		b = append(b, byte(s))
	}
	b = append(b,
		boolByte(m.FlipUV), boolByte(m.DoubleSided), byte(m.TransparencyMode), byte(m.ReflectionMode),
		byte(m.TargetAPI), byte(m.StereoscopicType), m.StereoscopicEyeCount, byte(m.VariantFilter),
		byte(m.Optimization), boolByte(m.SpecularAntiAliasing), boolByte(m.ClearCoatIorChange),
		byte(m.Capabilities.Blending), byte(m.Capabilities.Shading),
		byte(m.Capabilities.RefractionMode), byte(m.Capabilities.RefractionType),
	)
	b = binary.LittleEndian.AppendUint32(b, uint32(m.Attributes))

	b = binary.LittleEndian.AppendUint16(b, uint16(len(m.Parameters)))
	for _, p := range m.Parameters {
		b = appendString(b, p.Name)
		b = append(b, byte(p.Type), byte(p.Precision))
	}

	b = append(b, byte(len(m.Stages)))
	for _, s := range m.Stages {
		b = append(b, byte(s.Type))
		b = appendString(b, s.EntryPoint)
		b = appendString(b, s.Source)
		apis := make([]TargetAPI, 0, len(s.Code))
		for api := range s.Code {
			apis = append(apis, api)
		}
		slices.Sort(apis)
		b = append(b, byte(len(apis)))
		for _, api := range apis {
			b = append(b, byte(api))
			b = appendBytes(b, s.Code[api])
		}
	}
	return appendString(b, m.MaterialSource)
}

// DecodePackage parses a package produced by EncodePackage.
//
// Parameters:
//   - pkg: the package bytes
//
// Returns:
//   - *Manifest: the decoded manifest
//   - error: ErrMalformedPackage wrapped with the failing field
func DecodePackage(pkg Package) (*Manifest, error) {
	r := &packageReader{buf: pkg}
	if string(r.next(len(packageMagic))) != packageMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformedPackage)
	}
	if v := r.byte(); v != packageVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedPackage, v)
	}

	m := &Manifest{Name: r.string()}
	key, err := variant.DecodeKey(r.next(variant.EncodedKeySize))
	if err != nil && r.err == nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPackage, err)
	}
	m.Key = key
	for i := range m.UvMap {
		m.UvMap[i] = variant.UvSet(r.byte())
	}
	m.FlipUV = r.bool()
	m.DoubleSided = r.bool()
	m.TransparencyMode = TransparencyMode(r.byte())
	m.ReflectionMode = ReflectionMode(r.byte())
	m.TargetAPI = TargetAPI(r.byte())
	m.StereoscopicType = StereoscopicType(r.byte())
	m.StereoscopicEyeCount = r.byte()
	m.VariantFilter = VariantFilter(r.byte())
	m.Optimization = Optimization(r.byte())
	m.SpecularAntiAliasing = r.bool()
	m.ClearCoatIorChange = r.bool()
	m.Capabilities.Blending = shader.BlendingMode(r.byte())
	m.Capabilities.Shading = shader.ShadingModel(r.byte())
	m.Capabilities.RefractionMode = shader.RefractionMode(r.byte())
	m.Capabilities.RefractionType = shader.RefractionType(r.byte())
	m.Attributes = shader.AttributeSet(r.uint32())

	for n := r.uint16(); n > 0 && r.err == nil; n-- {
		m.Parameters = append(m.Parameters, shader.ParameterDecl{
			Name:      r.string(),
			Type:      shader.ParameterType(r.byte()),
			Precision: shader.Precision(r.byte()),
		})
	}

	for n := r.byte(); n > 0 && r.err == nil; n-- {
		s := Stage{Type: StageType(r.byte()), EntryPoint: r.string(), Source: r.string()}
		if apis := r.byte(); apis > 0 {
			s.Code = make(map[TargetAPI][]byte, apis)
			for ; apis > 0 && r.err == nil; apis-- {
				api := TargetAPI(r.byte())
				s.Code[api] = r.bytes()
			}
		}
		m.Stages = append(m.Stages, s)
	}
	m.MaterialSource = r.string()

	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedPackage, len(r.buf))
	}
	return m, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func appendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func appendBytes(b, data []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(data)))
	return append(b, data...)
}

// packageReader consumes a package front to back. The first short read sets err and every later
// read returns zero values.
type packageReader struct {
	buf []byte
	err error
}

func (r *packageReader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf) {
		r.err = fmt.Errorf("%w: truncated", ErrMalformedPackage)
		return nil
	}
	out := r.buf[:n:n]
	r.buf = r.buf[n:]
	return out
}

func (r *packageReader) byte() byte {
	if b := r.next(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *packageReader) bool() bool {
	return r.byte() != 0
}

func (r *packageReader) uint16() uint16 {
	if b := r.next(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *packageReader) uint32() uint32 {
	if b := r.next(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *packageReader) bytes() []byte {
	n := r.uint32()
	if n > math.MaxInt32 {
		r.err = fmt.Errorf("%w: length %d", ErrMalformedPackage, n)
		return nil
	}
	return r.next(int(n))
}

func (r *packageReader) string() string {
	return string(r.bytes())
}
