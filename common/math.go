package common

import (
	"github.com/chewxy/math32"
)

// Mat3 is a 3x3 matrix stored in column-major order, matching the layout the shaders expect
// for mat3 uniforms before per-column padding is applied.
type Mat3 [9]float32

// Mat3Identity returns the 3x3 identity matrix.
//
// Returns:
//   - Mat3: the identity matrix
func Mat3Identity() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// TextureTransform describes a KHR_texture_transform entry applied to a texture's UV coordinates.
type TextureTransform struct {
	// Offset is the UV translation.
	Offset [2]float32

	// Rotation is the counter-clockwise UV rotation in radians.
	Rotation float32

	// Scale is the UV scale. A zero scale is treated as 1.
	Scale [2]float32
}

// UvTransform builds the matrix applied to a UV coordinate as a row vector,
// i.e. uv' = (vec3(uv, 1.0) * m).xy, composing translation * rotation * scale.
//
// Parameters:
//   - t: the texture transform; nil yields the identity matrix
//
// Returns:
//   - Mat3: the UV matrix in column-major order
func UvTransform(t *TextureTransform) Mat3 {
	if t == nil {
		return Mat3Identity()
	}
	sx := Coalesce(t.Scale[0], 1)
	sy := Coalesce(t.Scale[1], 1)
	s, c := math32.Sincos(t.Rotation)

	// Columns of the row-vector form are the rows of T*R*S.
	return Mat3{
		c * sx, s * sy, t.Offset[0],
		-s * sx, c * sy, t.Offset[1],
		0, 0, 1,
	}
}

// Apply transforms a UV coordinate the same way the generated shader does.
//
// Parameters:
//   - uv: the input coordinate
//
// Returns:
//   - [2]float32: the transformed coordinate
func (m Mat3) Apply(uv [2]float32) [2]float32 {
	v := [3]float32{uv[0], uv[1], 1}
	return [2]float32{
		v[0]*m[0] + v[1]*m[1] + v[2]*m[2],
		v[0]*m[3] + v[1]*m[4] + v[2]*m[5],
	}
}

// NearlyEqual reports whether two matrices match within epsilon per component.
//
// Parameters:
//   - o: the matrix to compare against
//   - epsilon: the tolerated absolute difference
//
// Returns:
//   - bool: true if every component is within epsilon
func (m Mat3) NearlyEqual(o Mat3, epsilon float32) bool {
	for i := range m {
		if math32.Abs(m[i]-o[i]) > epsilon {
			return false
		}
	}
	return true
}
