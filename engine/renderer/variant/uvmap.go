package variant

// MaxTexCoords is the number of glTF texcoord slots a UvMap can address.
const MaxTexCoords = 8

// MaxUvSets is the number of distinct UV sets a generated shader can read.
const MaxUvSets = 2

// UvSet names the shader-side UV accessor a texcoord slot is routed to.
type UvSet uint8

const (
	// UvUnused marks a texcoord slot no enabled texture samples with.
	UvUnused UvSet = iota

	// UvSet0 routes the slot to the first shader UV set.
	UvSet0

	// UvSet1 routes the slot to the second shader UV set.
	UvSet1
)

// Accessor returns the shader expression reading this UV set.
func (u UvSet) Accessor() string {
	if u == UvSet1 {
		return "getUV1()"
	}
	return "getUV0()"
}

// UvMap maps each glTF texcoord slot to the UV set the shader reads it from.
type UvMap [MaxTexCoords]UvSet

// Count returns the number of distinct UV sets in use.
func (m UvMap) Count() int {
	var used [MaxUvSets + 1]bool
	n := 0
	for _, s := range m {
		if s != UvUnused && !used[s] {
			used[s] = true
			n++
		}
	}
	return n
}

// Set returns the UV set assigned to a texcoord slot, UvUnused when out of range.
//
// Parameters:
//   - texCoord: the glTF texcoord index
//
// Returns:
//   - UvSet: the assigned set
func (m UvMap) Set(texCoord uint8) UvSet {
	if int(texCoord) >= MaxTexCoords {
		return UvUnused
	}
	return m[texCoord]
}
