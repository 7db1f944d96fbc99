package shader

import "github.com/cogentcore/webgpu/wgpu"

// StructField is one member of a host-shareable WGSL struct with its resolved placement.
type StructField struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
}

// StructLayout is the byte layout of a WGSL struct as seen by a uniform or storage buffer.
type StructLayout struct {
	Name   string
	Size   uint64
	Align  uint64
	Fields []StructField
}

// Field looks up a member by name.
//
// Parameters:
//   - name: the member name
//
// Returns:
//   - StructField: the member, zero if absent
//   - bool: true if the member exists
func (l StructLayout) Field(name string) (StructField, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return StructField{}, false
}

// vertexFormatInfo holds the wgpu vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// typeLayout holds the byte size and alignment of a WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// parsedField is a single member extracted from a WGSL struct body.
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct is a WGSL struct block extracted from source.
type parsedStruct struct {
	name   string
	fields []parsedField
}
