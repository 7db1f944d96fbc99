package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslVertexFormatMap maps the WGSL types a generated vertex stage may declare as inputs.
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
}

// wgslLayoutMap holds size and alignment of the scalar, vector and matrix types.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslLayoutMap = map[string]typeLayout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"vec2<f32>":   {8, 8},
	"vec3<f32>":   {12, 16},
	"vec4<f32>":   {16, 16},
	"vec2<u32>":   {8, 8},
	"vec4<u32>":   {16, 16},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
}

// wgslTextureDimMap maps sampled texture base names to their view dimension.
var wgslTextureDimMap = map[string]wgpu.TextureViewDimension{
	"texture_2d":       wgpu.TextureViewDimension2D,
	"texture_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_3d":       wgpu.TextureViewDimension3D,
	"texture_cube":     wgpu.TextureViewDimensionCube,
	"texture_depth_2d": wgpu.TextureViewDimension2D,
}

var (
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex    = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex     = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex captures name and type after any attributes; the type is greedy for array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)

	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindingRegex captures group, binding, address space, variable name and type of a resource
	// declaration, e.g. @group(1) @binding(0) var<uniform> materialParams: MaterialParams;
	bindingRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseEntryPoint returns the name of the first entry point of the given stage, or "".
func parseEntryPoint(source string, shaderType ShaderType) string {
	re := vertexEntryRegex
	if shaderType == ShaderTypeFragment {
		re = fragmentEntryRegex
	}
	if m := re.FindStringSubmatch(stripComments(source)); m != nil {
		return m[1]
	}
	return ""
}

// parseVertexLayouts builds one vertex buffer layout per vertex input struct, in declaration
// order. A vertex input struct has @location members and no @builtin members; structs with a
// member type that is not a vertex format are skipped.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - []wgpu.VertexBufferLayout: the tightly packed layouts
func parseVertexLayouts(source string) []wgpu.VertexBufferLayout {
	var layouts []wgpu.VertexBufferLayout
	for _, ps := range parseStructBlocks(stripComments(source)) {
		if !isVertexInputStruct(ps) {
			continue
		}
		attrs := make([]wgpu.VertexAttribute, 0, len(ps.fields))
		var offset uint64
		ok := true
		for _, f := range ps.fields {
			info, known := wgslVertexFormatMap[f.typeName]
			if !known {
				ok = false
				break
			}
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         info.format,
				Offset:         offset,
				ShaderLocation: uint32(f.location),
			})
			offset += info.size
		}
		if !ok {
			continue
		}
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: offset,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}
	return layouts
}

// parseBindGroupLayouts collects every @group/@binding declaration into layout descriptors keyed
// by group, entries sorted by binding. Buffer entries get MinBindingSize from the bound type.
//
// Parameters:
//   - source: the WGSL source
//   - visibility: the stage flag applied to every entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	cleaned := stripComments(source)
	layouts := computeStructLayouts(parseStructBlocks(cleaned))

	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	names := make(map[int]map[int]string)
	for _, m := range bindingRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		typeName := strings.TrimSpace(m[5])

		entry := classifyResource(uint32(binding), visibility, strings.TrimSpace(m[3]), typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := resolveTypeLayout(typeName, layouts); ok {
				entry.Buffer.MinBindingSize = l.size
			}
		}
		groups[group] = append(groups[group], entry)

		if names[group] == nil {
			names[group] = make(map[int]string)
		}
		names[group][binding] = m[4]
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result, names
}

// MergeBindGroupLayouts combines the descriptors of two stages. Groups present in both are merged
// by binding; a binding declared by both stages gets the union of their visibilities.
//
// Parameters:
//   - a: descriptors of the first stage
//   - b: descriptors of the second stage
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func MergeBindGroupLayouts(a, b map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(a)+len(b))
	for g, desc := range a {
		merged[g] = desc
	}
	for g, desc := range b {
		existing, ok := merged[g]
		if !ok {
			merged[g] = desc
			continue
		}
		byBinding := make(map[uint32]wgpu.BindGroupLayoutEntry, len(existing.Entries)+len(desc.Entries))
		for _, e := range existing.Entries {
			byBinding[e.Binding] = e
		}
		for _, e := range desc.Entries {
			if prev, dup := byBinding[e.Binding]; dup {
				prev.Visibility |= e.Visibility
				byBinding[e.Binding] = prev
				continue
			}
			byBinding[e.Binding] = e
		}
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(byBinding))
		for _, e := range byBinding {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		merged[g] = wgpu.BindGroupLayoutDescriptor{Label: existing.Label, Entries: entries}
	}
	return merged
}

// parseStructLayouts returns the buffer layout of every struct in source whose members resolve.
func parseStructLayouts(source string) map[string]StructLayout {
	return computeStructLayouts(parseStructBlocks(stripComments(source)))
}

func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, parsedStruct{name: m[1], fields: parseStructFields(m[2])})
	}
	return structs
}

func parseStructFields(body string) []parsedField {
	parts := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(part)
		if fm == nil {
			continue
		}
		f := parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			location:  -1,
			isBuiltin: builtinRegex.MatchString(part),
		}
		if lm := locationRegex.FindStringSubmatch(part); lm != nil {
			if loc, err := strconv.Atoi(lm[1]); err == nil {
				f.location = loc
			}
		}
		fields = append(fields, f)
	}
	return fields
}

func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// computeStructLayouts resolves struct layouts iteratively so a struct may contain structs
// declared after it.
func computeStructLayouts(structs []parsedStruct) map[string]StructLayout {
	resolved := make(map[string]StructLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)
	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if l, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}

// computeStructLayout places each member at the next offset aligned for its type and rounds the
// total size up to the struct alignment. Builtin members are not part of a buffer and are skipped.
func computeStructLayout(ps parsedStruct, known map[string]StructLayout) (StructLayout, bool) {
	l := StructLayout{Name: ps.name, Align: 1}
	var offset uint64
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := resolveTypeLayout(f.typeName, known)
		if !ok {
			return StructLayout{}, false
		}
		offset = roundUpAlign(fl.align, offset)
		l.Fields = append(l.Fields, StructField{Name: f.name, Type: f.typeName, Offset: offset, Size: fl.size})
		offset += fl.size
		l.Align = max(l.Align, fl.align)
	}
	l.Size = roundUpAlign(l.Align, offset)
	return l, true
}

// resolveTypeLayout resolves builtin types, known structs and array<T, N>. A runtime-sized
// array<T> resolves to one element stride, the smallest useful binding.
func resolveTypeLayout(typeName string, known map[string]StructLayout) (typeLayout, bool) {
	if l, ok := wgslLayoutMap[typeName]; ok {
		return l, true
	}
	if s, ok := known[typeName]; ok {
		return typeLayout{s.Size, s.Align}, true
	}
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return typeLayout{}, false
	}
	elemType, countStr, sized := strings.Cut(typeName[len("array<"):len(typeName)-1], ",")
	elem, ok := resolveTypeLayout(strings.TrimSpace(elemType), known)
	if !ok {
		return typeLayout{}, false
	}
	stride := roundUpAlign(elem.align, elem.size)
	if !sized {
		return typeLayout{stride, elem.align}, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	return typeLayout{count * stride, elem.align}, true
}

func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// classifyResource builds the layout entry for one resource declaration from its address space
// and type.
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		return entry
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
		return entry
	}

	base, param, _ := strings.Cut(typeName, "<")
	switch {
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(base, "texture_depth_"):
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = wgslTextureDimMap[base]
	case strings.HasPrefix(base, "texture_"):
		entry.Texture.ViewDimension = wgslTextureDimMap[base]
		switch strings.TrimSuffix(param, ">") {
		case "i32":
			entry.Texture.SampleType = wgpu.TextureSampleTypeSint
		case "u32":
			entry.Texture.SampleType = wgpu.TextureSampleTypeUint
		default:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		}
	}
	return entry
}

// stripComments removes line comments and (nested) block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case depth == 0 && source[i] == '/' && source[i+1] == '/':
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// StripComments returns WGSL source without comments. Line structure is kept.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - string: the source with every comment removed
func StripComments(source string) string {
	return stripComments(source)
}

// splitAtTopLevelCommas splits at commas outside angle brackets, keeping array<T, N> whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
